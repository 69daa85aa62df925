package report

import "time"

// Failure is a book that could not be completed during a run
type Failure struct {
	PageID    string    `json:"page_id"`
	Title     string    `json:"title,omitempty"`
	ISBN      string    `json:"isbn,omitempty"`
	Stage     string    `json:"stage"`
	Kind      string    `json:"kind"`
	Reason    string    `json:"reason"`
	Timestamp int64     `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}
