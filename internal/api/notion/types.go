package notion

import (
	"encoding/json"
	"fmt"
	"time"
)

// Page is a Notion page. Properties are kept raw so callers can validate them.
type Page struct {
	Object         string          `json:"object"`
	ID             string          `json:"id"`
	URL            string          `json:"url,omitempty"`
	Archived       bool            `json:"archived"`
	InTrash        bool            `json:"in_trash"`
	CreatedTime    time.Time       `json:"created_time"`
	LastEditedTime time.Time       `json:"last_edited_time"`
	Properties     json.RawMessage `json:"properties"`
}

// DataSourceRef references one data source of a database
type DataSourceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Database is a Notion database container
type Database struct {
	Object      string          `json:"object"`
	ID          string          `json:"id"`
	DataSources []DataSourceRef `json:"data_sources"`
}

type queryRequest struct {
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

type queryResponse struct {
	Object     string  `json:"object"`
	Results    []Page  `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

type updateRequest struct {
	Properties any `json:"properties"`
}

// APIError is an error response from the Notion API
type APIError struct {
	Status     int           `json:"status"`
	Code       string        `json:"code"`
	Message    string        `json:"message"`
	RetryAfter time.Duration `json:"-"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion API returned status %d", e.Status)
	}
	return fmt.Sprintf("notion API error %d %s: %s", e.Status, e.Code, e.Message)
}

// Retryable reports whether the request may succeed when sent again
func (e *APIError) Retryable() bool {
	return e.Status == 429 || e.Status == 409 || e.Status >= 500
}
