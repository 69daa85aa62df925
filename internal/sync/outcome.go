package sync

import (
	"github.com/drallgood/notion-book-sync/internal/book"
)

// Stage is a step of the per-record pipeline
type Stage string

const (
	StageRetrieved Stage = "retrieved"
	StageValidated Stage = "validated"
	StageExtracted Stage = "extracted"
	StageResolved  Stage = "resolved"
	StagePatched   Stage = "patched"
	StageWritten   Stage = "written"
)

// Status is the final state of one record
type Status string

const (
	StatusWritten   Status = "written"
	StatusUnchanged Status = "unchanged"
	StatusDryRun    Status = "dry_run"
	StatusFailed    Status = "failed"
)

// ErrWriteFailure is returned when Notion rejects a patch
var ErrWriteFailure = book.ErrWriteFailure

// Outcome is the result of completing one record.
// For a failed record Stage is the step that could not be completed.
type Outcome struct {
	PageID string
	Title  string
	ISBN   string
	Stage  Stage
	Status Status
	Patch  book.Patch
	Err    error
}

// Failed reports whether the record could not be completed
func (o *Outcome) Failed() bool {
	return o.Status == StatusFailed
}

// Kind returns the error kind of a failed record
func (o *Outcome) Kind() book.Kind {
	return book.KindOf(o.Err)
}

// Properties returns the labels the patch touches
func (o *Outcome) Properties() []string {
	if o.Patch == nil {
		return nil
	}
	return o.Patch.Properties()
}

// Summary describes a bulk run
type Summary struct {
	RunID     string
	Total     int
	Written   int
	Unchanged int
	DryRun    int
	Failed    int
	Cancelled bool
	Outcomes  []*Outcome
}

func (s *Summary) add(o *Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Status {
	case StatusWritten:
		s.Written++
	case StatusUnchanged:
		s.Unchanged++
	case StatusDryRun:
		s.DryRun++
	case StatusFailed:
		s.Failed++
	}
}

// Processed returns how many records were attempted
func (s *Summary) Processed() int {
	return len(s.Outcomes)
}
