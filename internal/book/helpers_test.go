package book

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/drallgood/notion-book-sync/internal/api/openlibrary"
)

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func textRun(s string) map[string]any {
	return map[string]any{
		"type":       "text",
		"text":       map[string]any{"content": s, "link": nil},
		"plain_text": s,
		"href":       nil,
	}
}

func richText(id string, runs ...string) map[string]any {
	items := make([]any, 0, len(runs))
	for _, r := range runs {
		items = append(items, textRun(r))
	}
	return map[string]any{"id": id, "type": "rich_text", "rich_text": items}
}

// fullProperties is a book page with every field filled in
func fullProperties() map[string]any {
	return map[string]any{
		"Titel": map[string]any{"id": "title", "type": "title", "title": []any{textRun("Der Marsianer")}},
		"ISBN":  richText("isbn", "9783453316911"),
		"Autor": map[string]any{
			"id": "aut", "type": "relation", "has_more": false,
			"relation": []any{map[string]any{"id": "author-1"}},
		},
		"Cover": map[string]any{
			"id": "cov", "type": "files",
			"files": []any{map[string]any{
				"name": "9783453316911-L.jpg", "type": "external",
				"external": map[string]any{"url": "https://covers.openlibrary.org/b/isbn/9783453316911-L.jpg"},
			}},
		},
		"Originaltitel": richText("orig", "The Martian"),
		"Veröffentlichungsdatum": map[string]any{
			"id": "date", "type": "date",
			"date": map[string]any{"start": "2014-10-28", "end": nil, "time_zone": nil},
		},
		"Verlag":      richText("pub", "Heyne"),
		"Klappentext": richText("desc", "Gestrandet auf dem Mars."),
		"Sprache": map[string]any{
			"id": "lang", "type": "select",
			"select": map[string]any{"id": "opt", "name": "German", "color": "blue"},
		},
		"Seiten":  map[string]any{"id": "pages", "type": "number", "number": 512},
		"Gelesen": map[string]any{"id": "read", "type": "checkbox", "checkbox": true},
	}
}

// sparseProperties is a book page with only a title and an ISBN
func sparseProperties(title, isbn string) map[string]any {
	props := map[string]any{
		"Titel":                  map[string]any{"id": "title", "type": "title", "title": []any{textRun(title)}},
		"ISBN":                   richText("isbn"),
		"Autor":                  map[string]any{"id": "aut", "type": "relation", "relation": []any{}, "has_more": false},
		"Cover":                  map[string]any{"id": "cov", "type": "files", "files": []any{}},
		"Originaltitel":          richText("orig"),
		"Veröffentlichungsdatum": map[string]any{"id": "date", "type": "date", "date": nil},
		"Verlag":                 richText("pub"),
		"Klappentext":            richText("desc"),
		"Sprache":                map[string]any{"id": "lang", "type": "select", "select": nil},
		"Seiten":                 map[string]any{"id": "pages", "type": "number", "number": nil},
	}
	if isbn != "" {
		props["ISBN"] = richText("isbn", isbn)
	}
	return props
}

func rawProperties(t *testing.T, props map[string]any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(props)
	require.NoError(t, err)
	return raw
}

func newTestSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema(DefaultProperties())
	require.NoError(t, err)
	return s
}

func completeEdition() *openlibrary.Edition {
	return &openlibrary.Edition{
		Key:           "/books/OL26929964M",
		Title:         "Der Marsianer",
		TranslationOf: "The Martian",
		PublishDate:   "October 28, 2014",
		Publishers:    []string{"Heyne"},
		Description:   &openlibrary.Description{Type: "/type/text", Value: "Gestrandet auf dem Mars."},
		Languages:     []openlibrary.Reference{{Key: openlibrary.GermanLanguageKey}},
		NumberOfPages: intPtr(512),
	}
}

type mockSource struct {
	mock.Mock
}

func (m *mockSource) LookupISBN(ctx context.Context, isbn string) (*openlibrary.Edition, error) {
	args := m.Called(ctx, isbn)
	ed, _ := args.Get(0).(*openlibrary.Edition)
	return ed, args.Error(1)
}

func (m *mockSource) CoverExists(ctx context.Context, isbn string) (bool, error) {
	args := m.Called(ctx, isbn)
	return args.Bool(0), args.Error(1)
}

func (m *mockSource) CoverURL(isbn string) string {
	return "https://covers.openlibrary.org/b/isbn/" + isbn + "-L.jpg"
}
