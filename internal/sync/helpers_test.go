package sync

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/drallgood/notion-book-sync/internal/api/notion"
	"github.com/drallgood/notion-book-sync/internal/book"
	"github.com/drallgood/notion-book-sync/internal/database"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) RetrievePage(ctx context.Context, pageID string) (*notion.Page, error) {
	args := m.Called(ctx, pageID)
	p, _ := args.Get(0).(*notion.Page)
	return p, args.Error(1)
}

func (m *mockStore) PrimaryDataSource(ctx context.Context, databaseID string) (string, error) {
	args := m.Called(ctx, databaseID)
	return args.String(0), args.Error(1)
}

func (m *mockStore) QueryDataSource(ctx context.Context, dataSourceID string) ([]notion.Page, error) {
	args := m.Called(ctx, dataSourceID)
	pages, _ := args.Get(0).([]notion.Page)
	return pages, args.Error(1)
}

func (m *mockStore) UpdatePage(ctx context.Context, pageID string, properties any) (*notion.Page, error) {
	args := m.Called(ctx, pageID, properties)
	p, _ := args.Get(0).(*notion.Page)
	return p, args.Error(1)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, v book.Values) (book.Resolved, error) {
	args := m.Called(ctx, v)
	r, _ := args.Get(0).(book.Resolved)
	return r, args.Error(1)
}

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) StartRun(ctx context.Context, mode string, dryRun bool) (*database.Run, error) {
	args := m.Called(ctx, mode, dryRun)
	r, _ := args.Get(0).(*database.Run)
	return r, args.Error(1)
}

func (m *mockHistory) AddResult(ctx context.Context, run *database.Run, result *database.RecordResult) error {
	return m.Called(ctx, run, result).Error(0)
}

func (m *mockHistory) FinishRun(ctx context.Context, run *database.Run, status string, runErr error) error {
	return m.Called(ctx, run, status, runErr).Error(0)
}

// recordingProgress keeps every notification in order
type recordingProgress struct {
	started   []string
	completed []*Outcome
	failed    []*Outcome
}

func (p *recordingProgress) RecordStarted(n, total int, pageID string) {
	p.started = append(p.started, pageID)
}

func (p *recordingProgress) RecordCompleted(n, total int, o *Outcome) {
	p.completed = append(p.completed, o)
}

func (p *recordingProgress) RecordFailed(n, total int, o *Outcome) {
	p.failed = append(p.failed, o)
}

func strPtr(s string) *string { return &s }

func textRun(s string) map[string]any {
	return map[string]any{"type": "text", "text": map[string]any{"content": s}, "plain_text": s}
}

func richText(runs ...string) map[string]any {
	items := make([]any, 0, len(runs))
	for _, r := range runs {
		items = append(items, textRun(r))
	}
	return map[string]any{"id": "x", "type": "rich_text", "rich_text": items}
}

// bookProperties is a page with a title, an ISBN and nothing else filled in
func bookProperties(title, isbn string) map[string]any {
	return map[string]any{
		"Titel":                  map[string]any{"id": "title", "type": "title", "title": []any{textRun(title)}},
		"ISBN":                   richText(isbn),
		"Autor":                  map[string]any{"id": "aut", "type": "relation", "relation": []any{}},
		"Cover":                  map[string]any{"id": "cov", "type": "files", "files": []any{}},
		"Originaltitel":          richText(),
		"Veröffentlichungsdatum": map[string]any{"id": "date", "type": "date", "date": nil},
		"Verlag":                 richText(),
		"Klappentext":            richText(),
		"Sprache":                map[string]any{"id": "lang", "type": "select", "select": nil},
		"Seiten":                 map[string]any{"id": "pages", "type": "number", "number": nil},
	}
}

func newPage(t *testing.T, id string, props map[string]any) notion.Page {
	t.Helper()
	raw, err := json.Marshal(props)
	require.NoError(t, err)
	return notion.Page{Object: "page", ID: id, Properties: raw}
}

func newSchema(t *testing.T) *book.Schema {
	t.Helper()
	s, err := book.NewSchema(book.DefaultProperties())
	require.NoError(t, err)
	return s
}

// byTitle matches the values extracted for a given title
func byTitle(title string) any {
	return mock.MatchedBy(func(v book.Values) bool { return v.Title == title })
}
