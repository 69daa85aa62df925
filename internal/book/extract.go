package book

import (
	"fmt"
	"strings"
)

// Values are the flat book values of one record. A nil pointer means the
// editor left the field empty.
type Values struct {
	Title         string
	ISBN          *string
	AuthorRef     *string
	Cover         *string
	OriginalTitle *string
	PublishDate   *string
	Publisher     *string
	Description   *string
	Language      *string
	Pages         *int
}

// Missing returns the completable fields that are still absent, in patch order
func (v Values) Missing() []Field {
	var missing []Field
	check := func(f Field, absent bool) {
		if absent {
			missing = append(missing, f)
		}
	}
	check(FieldCover, v.Cover == nil)
	check(FieldOriginalTitle, v.OriginalTitle == nil)
	check(FieldPublishDate, v.PublishDate == nil)
	check(FieldPublisher, v.Publisher == nil)
	check(FieldDescription, v.Description == nil)
	check(FieldLanguage, v.Language == nil)
	check(FieldPages, v.Pages == nil)
	return missing
}

// Extract derives the flat values from a validated record
func Extract(rec *Record) (Values, error) {
	var v Values
	if rec == nil {
		return v, fmt.Errorf("%w: no record", ErrMissingTitle)
	}

	if len(rec.Title.Title) == 0 {
		return v, fmt.Errorf("%w: title property has no text", ErrMissingTitle)
	}
	first := rec.Title.Title[0]
	title := first.PlainText
	if first.Text != nil && first.Text.Content != "" {
		title = first.Text.Content
	}
	if strings.TrimSpace(title) == "" {
		return v, fmt.Errorf("%w: title property is empty", ErrMissingTitle)
	}
	v.Title = title

	v.ISBN = firstPlainText(rec.ISBN.RichText)
	v.OriginalTitle = firstPlainText(rec.OriginalTitle.RichText)
	v.Publisher = firstPlainText(rec.Publisher.RichText)
	v.Description = firstPlainText(rec.Description.RichText)

	if len(rec.Author.Relation) > 0 {
		v.AuthorRef = present(rec.Author.Relation[0].ID)
	}
	if len(rec.Cover.Files) > 0 {
		v.Cover = present(rec.Cover.Files[0].Name)
	}
	if rec.PublishDate.Date != nil {
		v.PublishDate = present(rec.PublishDate.Date.Start)
	}
	if rec.Language.Select != nil {
		v.Language = present(rec.Language.Select.Name)
	}
	// a page count of 0 is as good as none
	if rec.Pages.Number != nil && *rec.Pages.Number > 0 {
		pages := int(*rec.Pages.Number)
		v.Pages = &pages
	}
	return v, nil
}

func firstPlainText(runs []RichText) *string {
	if len(runs) == 0 {
		return nil
	}
	return present(runs[0].PlainText)
}

// present returns nil for an empty string
func present(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
