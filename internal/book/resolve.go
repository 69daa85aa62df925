package book

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/drallgood/notion-book-sync/internal/api/openlibrary"
	"github.com/drallgood/notion-book-sync/internal/logger"
)

// Source looks up bibliographic data by ISBN
type Source interface {
	LookupISBN(ctx context.Context, isbn string) (*openlibrary.Edition, error)
	CoverExists(ctx context.Context, isbn string) (bool, error)
	CoverURL(isbn string) string
}

// LanguageLabels are the select options written into the language property
type LanguageLabels struct {
	German  string
	English string
}

// DefaultLanguageLabels returns the default language option names
func DefaultLanguageLabels() LanguageLabels {
	return LanguageLabels{German: "German", English: "English"}
}

// Resolved holds replacement values for the fields that were missing.
// Fields that stay untouched are nil.
type Resolved struct {
	ISBN          string
	Cover         *string
	OriginalTitle *string
	PublishDate   *string
	Publisher     *string
	Description   *string
	Language      *string
	Pages         *int
}

// Fields lists the resolved fields in patch order
func (r Resolved) Fields() []Field {
	var fields []Field
	add := func(f Field, set bool) {
		if set {
			fields = append(fields, f)
		}
	}
	add(FieldCover, r.Cover != nil)
	add(FieldOriginalTitle, r.OriginalTitle != nil)
	add(FieldPublishDate, r.PublishDate != nil)
	add(FieldPublisher, r.Publisher != nil)
	add(FieldDescription, r.Description != nil)
	add(FieldLanguage, r.Language != nil)
	add(FieldPages, r.Pages != nil)
	return fields
}

// Empty reports whether nothing was resolved
func (r Resolved) Empty() bool {
	return len(r.Fields()) == 0
}

// Resolver fills missing book values from a bibliographic source
type Resolver struct {
	source    Source
	languages LanguageLabels
	log       *logger.Logger
}

// NewResolver creates a resolver. Empty language labels fall back to the defaults.
func NewResolver(source Source, languages LanguageLabels, log *logger.Logger) *Resolver {
	def := DefaultLanguageLabels()
	if languages.German == "" {
		languages.German = def.German
	}
	if languages.English == "" {
		languages.English = def.English
	}
	if log == nil {
		log = logger.Get()
	}
	return &Resolver{source: source, languages: languages, log: log.Component("resolver")}
}

// Resolve computes replacements for every missing field of v. Present fields
// are never touched. The source is only queried when something is missing.
func (r *Resolver) Resolve(ctx context.Context, v Values) (Resolved, error) {
	if v.ISBN == nil || strings.TrimSpace(*v.ISBN) == "" {
		return Resolved{}, fmt.Errorf("%w: book %q has no ISBN", ErrMissingISBN, v.Title)
	}
	isbn := strings.TrimSpace(*v.ISBN)
	out := Resolved{ISBN: isbn}

	missing := v.Missing()
	if len(missing) == 0 {
		r.log.Debug("Nothing to complete", map[string]interface{}{"title": v.Title, "isbn": isbn})
		return out, nil
	}

	edition, err := r.source.LookupISBN(ctx, isbn)
	if err != nil {
		if errors.Is(err, openlibrary.ErrNotFound) {
			return Resolved{}, fmt.Errorf("%w: ISBN %s for book %q is invalid or unknown to Open Library", ErrUnknownISBN, isbn, v.Title)
		}
		return Resolved{}, fmt.Errorf("%w: ISBN %s: %w", ErrLookupFailed, isbn, err)
	}

	if v.Cover == nil {
		if out.Cover, err = r.resolveCover(ctx, isbn); err != nil {
			return Resolved{}, err
		}
	}

	if v.OriginalTitle == nil {
		if out.OriginalTitle, err = r.resolveOriginalTitle(v.Title, edition); err != nil {
			return Resolved{}, err
		}
	}

	if v.PublishDate == nil {
		if edition.PublishDate == "" {
			return Resolved{}, incomplete(FieldPublishDate, "publish_date", v.Title, isbn)
		}
		date := NormalizePublishDate(edition.PublishDate)
		out.PublishDate = &date
	}

	if v.Publisher == nil {
		publishers := nonEmpty(edition.Publishers)
		if len(publishers) == 0 {
			return Resolved{}, incomplete(FieldPublisher, "publishers", v.Title, isbn)
		}
		joined := strings.Join(publishers, ", ")
		out.Publisher = &joined
	}

	if v.Description == nil {
		text := edition.Description.Text()
		if text == "" {
			return Resolved{}, incomplete(FieldDescription, "description", v.Title, isbn)
		}
		out.Description = &text
	}

	if v.Language == nil {
		key := edition.FirstLanguage()
		if key == "" {
			return Resolved{}, incomplete(FieldLanguage, "languages", v.Title, isbn)
		}
		label := r.languages.English
		if key == openlibrary.GermanLanguageKey {
			label = r.languages.German
		}
		out.Language = &label
	}

	if v.Pages == nil {
		if edition.NumberOfPages == nil {
			return Resolved{}, incomplete(FieldPages, "number_of_pages", v.Title, isbn)
		}
		pages := *edition.NumberOfPages
		out.Pages = &pages
	}

	return out, nil
}

// resolveCover probes the cover endpoint. A successful probe leaves the
// cover empty and any other answer yields the constructed image URL.
func (r *Resolver) resolveCover(ctx context.Context, isbn string) (*string, error) {
	exists, err := r.source.CoverExists(ctx, isbn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	if exists {
		r.log.Debug("Cover probe succeeded, leaving cover empty", map[string]interface{}{"isbn": isbn})
		return nil, nil
	}
	url := r.source.CoverURL(isbn)
	return &url, nil
}

// resolveOriginalTitle takes translation_of. A missing value is always fatal.
func (r *Resolver) resolveOriginalTitle(title string, edition *openlibrary.Edition) (*string, error) {
	original := strings.TrimSpace(edition.TranslationOf)
	if original == "" {
		return nil, fmt.Errorf("%w: Open Library has no translation_of for %q", ErrIncompleteExternalData, title)
	}
	r.log.Info("Original title according to Open Library", map[string]interface{}{
		"title":          title,
		"original_title": original,
	})
	return &original, nil
}

func incomplete(field Field, source, title, isbn string) error {
	return fmt.Errorf("%w: Open Library has no %s for %q (ISBN %s), needed for %s",
		ErrIncompleteExternalData, source, title, isbn, field)
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
