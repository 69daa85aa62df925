package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/drallgood/notion-book-sync/internal/logger"
)

// ErrRunNotFound is returned when no run matches a query
var ErrRunNotFound = errors.New("run not found")

// Repository stores run history
type Repository struct {
	db  *Database
	log *logger.Logger
}

// NewRepository creates a repository on top of an open database
func NewRepository(db *Database, log *logger.Logger) *Repository {
	if log == nil {
		log = logger.Get()
	}
	return &Repository{db: db, log: log.Component("history")}
}

// StartRun creates a new running run
func (r *Repository) StartRun(ctx context.Context, mode string, dryRun bool) (*Run, error) {
	run := &Run{Mode: mode, DryRun: dryRun, Status: RunRunning}
	if err := r.db.GetDB().WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	r.log.Debug("Run started", map[string]interface{}{"run_id": run.ID, "mode": mode})
	return run, nil
}

// AddResult stores the outcome of one record and updates the run totals.
// The in-memory totals only change once the database accepted both writes.
func (r *Repository) AddResult(ctx context.Context, run *Run, result *RecordResult) error {
	result.RunID = run.ID
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}

	counts := *run
	counts.Results = nil
	switch result.Status {
	case StatusWritten:
		counts.Written++
	case StatusDryRun:
		counts.Previewed++
	case StatusUnchanged:
		counts.Unchanged++
	case StatusFailed:
		counts.Failed++
	}
	counts.Total++

	err := r.db.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(result).Error; err != nil {
			return fmt.Errorf("failed to store result for page %s: %w", result.PageID, err)
		}
		err := tx.Model(&Run{ID: run.ID}).
			Select("total", "written", "previewed", "unchanged", "failed").
			Updates(&counts).Error
		if err != nil {
			return fmt.Errorf("failed to update run %s: %w", run.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	run.Total = counts.Total
	run.Written = counts.Written
	run.Previewed = counts.Previewed
	run.Unchanged = counts.Unchanged
	run.Failed = counts.Failed
	return nil
}

// FinishRun marks the run as done with the given status and error
func (r *Repository) FinishRun(ctx context.Context, run *Run, status string, runErr error) error {
	now := time.Now()
	run.Status = status
	run.FinishedAt = &now
	if runErr != nil {
		run.Error = runErr.Error()
	}

	err := r.db.GetDB().WithContext(ctx).Model(run).
		Select("status", "finished_at", "error").
		Updates(run).Error
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first, without their results
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	var runs []Run
	err := r.db.GetDB().WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRun loads a run with its results in processing order
func (r *Repository) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := r.db.GetDB().WithContext(ctx).
		Preload("Results", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return &run, nil
}

// LatestRun loads the most recent run with its results
func (r *Repository) LatestRun(ctx context.Context) (*Run, error) {
	runs, err := r.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return r.GetRun(ctx, runs[0].ID)
}
