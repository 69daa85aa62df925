package book

import (
	"path"
	"sort"
)

const (
	// maxRunRunes is the longest text.content Notion accepts in one run
	maxRunRunes = 2000
	// maxRuns is the most rich text runs Notion accepts in one property
	maxRuns = 100
)

// PropertyPatch is one property of a page update. Exactly one payload is set.
type PropertyPatch struct {
	RichText []RichText    `json:"rich_text,omitempty"`
	Files    []FileObject  `json:"files,omitempty"`
	Date     *DateValue    `json:"date,omitempty"`
	Select   *SelectOption `json:"select,omitempty"`
	Number   *float64      `json:"number,omitempty"`
}

// Patch maps property labels to their new values
type Patch map[string]PropertyPatch

// Empty reports whether the patch changes nothing
func (p Patch) Empty() bool {
	return len(p) == 0
}

// Properties returns the patched property labels, sorted
func (p Patch) Properties() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildPatch encodes the resolved values as Notion property updates
func (s *Schema) BuildPatch(r Resolved) Patch {
	patch := Patch{}

	text := func(f Field, v *string) {
		if v == nil {
			return
		}
		patch[s.props.Label(f)] = PropertyPatch{RichText: textRuns(*v)}
	}

	if r.Cover != nil {
		patch[s.props.Cover] = PropertyPatch{
			Files: []FileObject{{
				Type:     "external",
				Name:     path.Base(*r.Cover),
				External: &FileURL{URL: *r.Cover},
			}},
		}
	}
	text(FieldOriginalTitle, r.OriginalTitle)
	if r.PublishDate != nil {
		patch[s.props.PublishDate] = PropertyPatch{Date: &DateValue{Start: *r.PublishDate}}
	}
	text(FieldPublisher, r.Publisher)
	text(FieldDescription, r.Description)
	if r.Language != nil {
		patch[s.props.Language] = PropertyPatch{Select: &SelectOption{Name: *r.Language}}
	}
	if r.Pages != nil {
		n := float64(*r.Pages)
		patch[s.props.Pages] = PropertyPatch{Number: &n}
	}
	return patch
}

// textRuns splits s into rich text runs Notion accepts. Text beyond maxRuns
// runs is dropped.
func textRuns(s string) []RichText {
	runes := []rune(s)
	runs := make([]RichText, 0, len(runes)/maxRunRunes+1)
	for len(runes) > 0 && len(runs) < maxRuns {
		n := min(len(runes), maxRunRunes)
		runs = append(runs, RichText{Type: "text", Text: &TextContent{Content: string(runes[:n])}})
		runes = runes[n:]
	}
	if len(runs) == 0 {
		runs = append(runs, RichText{Type: "text", Text: &TextContent{}})
	}
	return runs
}
