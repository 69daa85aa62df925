package openlibrary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/drallgood/notion-book-sync/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, cacheTTL time.Duration) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{
		BaseURL:           server.URL,
		CoversURL:         server.URL,
		RequestsPerSecond: 1000,
		RetryAttempts:     3,
		RetryDelay:        time.Millisecond,
		CacheTTL:          cacheTTL,
	}, logger.Nop())
}

func TestLookupISBN(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    error
		wantResult func(t *testing.T, ed *Edition)
	}{
		{
			name:   "found with object description",
			status: http.StatusOK,
			body: `{
				"key": "/books/OL1M",
				"title": "Der Marsianer",
				"translation_of": "The Martian",
				"publish_date": "October 2014",
				"publishers": ["Heyne", "Random House"],
				"description": {"type": "/type/text", "value": "Gestrandet auf dem Mars."},
				"languages": [{"key": "/languages/ger"}],
				"number_of_pages": 512
			}`,
			wantResult: func(t *testing.T, ed *Edition) {
				assert.Equal(t, "The Martian", ed.TranslationOf)
				assert.Equal(t, []string{"Heyne", "Random House"}, ed.Publishers)
				assert.Equal(t, "Gestrandet auf dem Mars.", ed.Description.Text())
				assert.Equal(t, GermanLanguageKey, ed.FirstLanguage())
				require.NotNil(t, ed.NumberOfPages)
				assert.Equal(t, 512, *ed.NumberOfPages)
			},
		},
		{
			name:   "found with string description",
			status: http.StatusOK,
			body:   `{"key": "/books/OL2M", "description": "A plain description"}`,
			wantResult: func(t *testing.T, ed *Edition) {
				assert.Equal(t, "A plain description", ed.Description.Text())
				assert.Equal(t, "", ed.FirstLanguage())
				assert.Nil(t, ed.NumberOfPages)
			},
		},
		{
			name:    "not found",
			status:  http.StatusNotFound,
			body:    `{"error": "notfound"}`,
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/isbn/9783453316911.json", r.URL.Path)
				assert.NotEmpty(t, r.Header.Get("User-Agent"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, 0)

			ed, err := client.LookupISBN(context.Background(), "9783453316911")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, ed)
				return
			}
			require.NoError(t, err)
			tt.wantResult(t, ed)
		})
	}
}

func TestLookupISBN_RetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(Edition{Key: "/books/OL3M", TranslationOf: "Dune"})
	}, 0)

	ed, err := client.LookupISBN(context.Background(), "0441013597")
	require.NoError(t, err)
	assert.Equal(t, "Dune", ed.TranslationOf)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestLookupISBN_GivesUpAfterAttempts(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, 0)

	_, err := client.LookupISBN(context.Background(), "0441013597")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestLookupISBN_DoesNotRetryNotFound(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}, 0)

	_, err := client.LookupISBN(context.Background(), "000")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLookupISBN_EmptyISBN(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}, 0)

	_, err := client.LookupISBN(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupISBN_Cache(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"key": "/books/OL4M"}`))
	}, time.Minute)

	for i := 0; i < 3; i++ {
		ed, err := client.LookupISBN(context.Background(), "9780553418026")
		require.NoError(t, err)
		assert.Equal(t, "/books/OL4M", ed.Key)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCoverExists(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"image available", http.StatusOK, true},
		{"no image", http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/b/isbn/9780553418026-L.jpg", r.URL.Path)
				assert.Equal(t, "false", r.URL.Query().Get("default"))
				w.WriteHeader(tt.status)
			}, 0)

			exists, err := client.CoverExists(context.Background(), "9780553418026")
			require.NoError(t, err)
			assert.Equal(t, tt.want, exists)
		})
	}
}

func TestCoverURL(t *testing.T) {
	client := NewClient(Config{}, logger.Nop())
	assert.Equal(t, "https://covers.openlibrary.org/b/isbn/9780553418026-L.jpg", client.CoverURL("9780553418026"))
}

func TestDescriptionUnmarshal(t *testing.T) {
	var ed Edition
	require.NoError(t, json.Unmarshal([]byte(`{"description": null}`), &ed))
	assert.Equal(t, "", ed.Description.Text())

	var d Description
	assert.Error(t, json.Unmarshal([]byte(`42`), &d))
}
