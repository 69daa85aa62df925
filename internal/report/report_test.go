package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/drallgood/notion-book-sync/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector() *Collector {
	c := NewCollector(logger.Nop())
	c.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return c
}

func TestCollector_Add(t *testing.T) {
	c := newTestCollector()

	c.Add(Failure{PageID: "p1", Title: "Dune", Kind: "missing_isbn", Reason: "no ISBN"})
	c.Add(Failure{PageID: "p2", Kind: "schema_mismatch", Reason: "bad shape"})

	all := c.All()
	require.Len(t, all, 2)
	assert.Equal(t, "p1", all[0].PageID)
	assert.Equal(t, "p2", all[1].PageID)
	assert.Equal(t, int64(1709287200), all[0].Timestamp)
	assert.False(t, all[0].CreatedAt.IsZero())

	all[0].PageID = "changed"
	assert.Equal(t, "p1", c.All()[0].PageID, "All returns a copy")

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCollector_ExportJSON(t *testing.T) {
	c := newTestCollector()

	data, err := c.ExportJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"failures": [], "count": 0, "timestamp": 1709287200}`, string(data))

	c.Add(Failure{PageID: "p1", Stage: "resolved", Kind: "unknown_isbn", Reason: "ISBN 000"})
	data, err = c.ExportJSON()
	require.NoError(t, err)

	var out export
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "unknown_isbn", out.Failures[0].Kind)
}

func TestCollector_SaveToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reports", "failed.json")
	c := newTestCollector()

	require.NoError(t, c.SaveToFile(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "no report without failures")

	c.Add(Failure{PageID: "p1", Kind: "missing_title"})
	require.NoError(t, c.SaveToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"missing_title"`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}
