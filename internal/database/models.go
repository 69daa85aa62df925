package database

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Run modes
const (
	ModeSingle = "single"
	ModeBulk   = "bulk"
)

// Run statuses
const (
	RunRunning   = "running"
	RunFinished  = "finished"
	RunCancelled = "cancelled"
	RunAborted   = "aborted"
)

// Record statuses
const (
	StatusWritten   = "written"
	StatusUnchanged = "unchanged"
	StatusDryRun    = "dry_run"
	StatusFailed    = "failed"
)

// Run is one invocation of the completion pipeline
type Run struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	Mode       string     `gorm:"size:16;not null" json:"mode"`
	DryRun     bool       `json:"dry_run"`
	Status     string     `gorm:"size:16;not null" json:"status"`
	Total      int        `json:"total"`
	Written    int        `json:"written"`
	Unchanged  int        `json:"unchanged"`
	Previewed  int        `json:"previewed"`
	Failed     int        `json:"failed"`
	Error      string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt  time.Time  `gorm:"index" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Results []RecordResult `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"results,omitempty"`
}

// RecordResult is the outcome of completing one page
type RecordResult struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RunID        string    `gorm:"size:36;index;not null" json:"run_id"`
	PageID       string    `gorm:"size:64;index;not null" json:"page_id"`
	Title        string    `json:"title,omitempty"`
	ISBN         string    `gorm:"size:32" json:"isbn,omitempty"`
	Status       string    `gorm:"size:16;not null" json:"status"`
	Stage        string    `gorm:"size:16" json:"stage"`
	ErrorKind    string    `gorm:"size:32" json:"error_kind,omitempty"`
	ErrorMessage string    `gorm:"type:text" json:"error_message,omitempty"`
	Properties   string    `gorm:"type:text" json:"properties,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// BeforeCreate assigns an ID and start time to new runs
func (r *Run) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.Status == "" {
		r.Status = RunRunning
	}
	return nil
}

// SetProperties stores the patched property labels
func (rr *RecordResult) SetProperties(labels []string) {
	rr.Properties = strings.Join(labels, ",")
}

// PropertyList returns the patched property labels
func (rr *RecordResult) PropertyList() []string {
	if rr.Properties == "" {
		return nil
	}
	return strings.Split(rr.Properties, ",")
}
