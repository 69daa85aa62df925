package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/drallgood/notion-book-sync/internal/api/notion"
	"github.com/drallgood/notion-book-sync/internal/book"
	"github.com/drallgood/notion-book-sync/internal/database"
	"github.com/drallgood/notion-book-sync/internal/logger"
	"github.com/drallgood/notion-book-sync/internal/report"
)

// ErrNoDatabase is returned by CompleteAll when no database ID is configured
var ErrNoDatabase = errors.New("no Notion database configured")

// RecordStore reads and updates book pages
type RecordStore interface {
	RetrievePage(ctx context.Context, pageID string) (*notion.Page, error)
	PrimaryDataSource(ctx context.Context, databaseID string) (string, error)
	QueryDataSource(ctx context.Context, dataSourceID string) ([]notion.Page, error)
	UpdatePage(ctx context.Context, pageID string, properties any) (*notion.Page, error)
}

// Resolver computes replacement values for missing fields
type Resolver interface {
	Resolve(ctx context.Context, v book.Values) (book.Resolved, error)
}

// History persists runs and their per-record results
type History interface {
	StartRun(ctx context.Context, mode string, dryRun bool) (*database.Run, error)
	AddResult(ctx context.Context, run *database.Run, result *database.RecordResult) error
	FinishRun(ctx context.Context, run *database.Run, status string, runErr error) error
}

// Service completes book pages
type Service struct {
	store      RecordStore
	schema     *book.Schema
	resolver   Resolver
	databaseID string
	dryRun     bool
	progress   Progress
	report     *report.Collector
	history    History
	log        *logger.Logger
}

// Option configures a Service
type Option func(*Service)

// WithDatabaseID sets the database used by CompleteAll
func WithDatabaseID(id string) Option {
	return func(s *Service) { s.databaseID = id }
}

// WithDryRun logs patches instead of writing them
func WithDryRun(dryRun bool) Option {
	return func(s *Service) { s.dryRun = dryRun }
}

// WithProgress sets the progress sink
func WithProgress(p Progress) Option {
	return func(s *Service) {
		if p != nil {
			s.progress = p
		}
	}
}

// WithReport collects failed records into the given collector
func WithReport(c *report.Collector) Option {
	return func(s *Service) { s.report = c }
}

// WithHistory stores every run in the history database
func WithHistory(h History) Option {
	return func(s *Service) { s.history = h }
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates a completion service
func NewService(store RecordStore, schema *book.Schema, resolver Resolver, opts ...Option) *Service {
	s := &Service{
		store:    store,
		schema:   schema,
		resolver: resolver,
		progress: nopProgress{},
		log:      logger.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Component("sync")
	return s
}

// CompleteRecord completes a single page. Any failure is returned to the caller.
func (s *Service) CompleteRecord(ctx context.Context, pageID string) (*Outcome, error) {
	run := s.startRun(ctx, database.ModeSingle)
	s.progress.RecordStarted(1, 1, pageID)

	page, err := s.store.RetrievePage(ctx, pageID)
	var outcome *Outcome
	if err != nil {
		outcome = &Outcome{
			PageID: pageID,
			Stage:  StageRetrieved,
			Status: StatusFailed,
			Err:    fmt.Errorf("failed to retrieve page %s: %w", pageID, err),
		}
	} else {
		outcome = s.complete(ctx, page)
	}

	s.finishRecord(ctx, run, 1, 1, outcome)

	status := database.RunFinished
	if outcome.Failed() {
		status = database.RunAborted
	}
	s.finishRun(ctx, run, status, outcome.Err)

	return outcome, outcome.Err
}

// CompleteAll completes every page of the configured database in the order
// Notion returns them. A failing record is reported and skipped. Cancelling
// ctx stops the loop between records; records already written stay written.
func (s *Service) CompleteAll(ctx context.Context) (*Summary, error) {
	if s.databaseID == "" {
		return nil, ErrNoDatabase
	}

	s.log.Info("Starting bulk completion", map[string]interface{}{
		"database_id": s.databaseID,
		"dry_run":     s.dryRun,
	})

	run := s.startRun(ctx, database.ModeBulk)
	summary := &Summary{}
	if run != nil {
		summary.RunID = run.ID
	}

	pages, err := s.listPages(ctx)
	if err != nil {
		s.finishRun(ctx, run, database.RunAborted, err)
		return nil, err
	}
	summary.Total = len(pages)

	for i := range pages {
		if err := ctx.Err(); err != nil {
			summary.Cancelled = true
			s.log.Warn("Bulk completion interrupted", map[string]interface{}{
				"processed": summary.Processed(),
				"total":     summary.Total,
			})
			s.finishRun(context.WithoutCancel(ctx), run, database.RunCancelled, err)
			return summary, err
		}

		n := i + 1
		s.progress.RecordStarted(n, summary.Total, pages[i].ID)
		outcome := s.complete(ctx, &pages[i])
		summary.add(outcome)
		s.finishRecord(ctx, run, n, summary.Total, outcome)
	}

	s.log.Info("Bulk completion finished", map[string]interface{}{
		"total":     summary.Total,
		"written":   summary.Written,
		"unchanged": summary.Unchanged,
		"dry_run":   summary.DryRun,
		"failed":    summary.Failed,
	})
	s.finishRun(ctx, run, database.RunFinished, nil)
	return summary, nil
}

func (s *Service) listPages(ctx context.Context) ([]notion.Page, error) {
	dataSourceID, err := s.store.PrimaryDataSource(ctx, s.databaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data source of database %s: %w", s.databaseID, err)
	}
	pages, err := s.store.QueryDataSource(ctx, dataSourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages of data source %s: %w", dataSourceID, err)
	}
	s.log.Info("Fetched book pages", map[string]interface{}{
		"data_source_id": dataSourceID,
		"count":          len(pages),
	})
	return pages, nil
}

// complete runs validate, extract, resolve, patch and write for one page.
// The patch is only built once resolution succeeded and is written in one call.
func (s *Service) complete(ctx context.Context, page *notion.Page) *Outcome {
	o := &Outcome{PageID: page.ID}
	log := s.log.WithFields(map[string]interface{}{"page_id": page.ID})

	fail := func(stage Stage, err error) *Outcome {
		o.Stage = stage
		o.Status = StatusFailed
		o.Err = err
		return o
	}

	rec, err := s.schema.ParseRecord(page.Properties)
	if err != nil {
		return fail(StageValidated, err)
	}
	o.Stage = StageValidated

	values, err := book.Extract(rec)
	if err != nil {
		return fail(StageExtracted, err)
	}
	o.Stage = StageExtracted
	o.Title = values.Title
	if values.ISBN != nil {
		o.ISBN = *values.ISBN
	}
	log = log.WithFields(map[string]interface{}{"title": values.Title})

	resolved, err := s.resolver.Resolve(ctx, values)
	if err != nil {
		return fail(StageResolved, err)
	}
	o.Stage = StageResolved

	patch := s.schema.BuildPatch(resolved)
	o.Patch = patch
	o.Stage = StagePatched

	if patch.Empty() {
		log.Debug("Nothing to complete", nil)
		o.Status = StatusUnchanged
		return o
	}

	if s.dryRun {
		log.Info("[DRY-RUN] Would update page", map[string]interface{}{
			"properties": patch.Properties(),
		})
		o.Status = StatusDryRun
		return o
	}

	if _, err := s.store.UpdatePage(ctx, page.ID, patch); err != nil {
		return fail(StageWritten, fmt.Errorf("%w: page %s: %w", ErrWriteFailure, page.ID, err))
	}
	o.Stage = StageWritten
	o.Status = StatusWritten
	log.Info("Page updated", map[string]interface{}{
		"properties": patch.Properties(),
	})
	return o
}

func (s *Service) finishRecord(ctx context.Context, run *database.Run, n, total int, o *Outcome) {
	if o.Failed() {
		s.progress.RecordFailed(n, total, o)
		if s.report != nil {
			s.report.Add(report.Failure{
				PageID: o.PageID,
				Title:  o.Title,
				ISBN:   o.ISBN,
				Stage:  string(o.Stage),
				Kind:   string(o.Kind()),
				Reason: errString(o.Err),
			})
		}
	} else {
		s.progress.RecordCompleted(n, total, o)
	}

	if s.history == nil || run == nil {
		return
	}
	result := &database.RecordResult{
		PageID: o.PageID,
		Title:  o.Title,
		ISBN:   o.ISBN,
		Status: string(o.Status),
		Stage:  string(o.Stage),
	}
	if o.Failed() {
		result.ErrorKind = string(o.Kind())
		result.ErrorMessage = errString(o.Err)
	}
	result.SetProperties(o.Properties())
	if err := s.history.AddResult(context.WithoutCancel(ctx), run, result); err != nil {
		s.log.Warn("Failed to store record result", map[string]interface{}{
			"page_id": o.PageID,
			"error":   err.Error(),
		})
	}
}

func (s *Service) startRun(ctx context.Context, mode string) *database.Run {
	if s.history == nil {
		return nil
	}
	run, err := s.history.StartRun(ctx, mode, s.dryRun)
	if err != nil {
		s.log.Warn("Failed to record run start", map[string]interface{}{
			"mode":  mode,
			"error": err.Error(),
		})
		return nil
	}
	return run
}

func (s *Service) finishRun(ctx context.Context, run *database.Run, status string, runErr error) {
	if s.history == nil || run == nil {
		return
	}
	if err := s.history.FinishRun(ctx, run, status, runErr); err != nil {
		s.log.Warn("Failed to record run end", map[string]interface{}{
			"run_id": run.ID,
			"error":  err.Error(),
		})
	}
}
