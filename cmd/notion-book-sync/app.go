package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/drallgood/notion-book-sync/internal/api/notion"
	"github.com/drallgood/notion-book-sync/internal/api/openlibrary"
	"github.com/drallgood/notion-book-sync/internal/book"
	"github.com/drallgood/notion-book-sync/internal/config"
	"github.com/drallgood/notion-book-sync/internal/database"
	"github.com/drallgood/notion-book-sync/internal/logger"
	"github.com/drallgood/notion-book-sync/internal/report"
	"github.com/drallgood/notion-book-sync/internal/sync"
)

// loadConfig reads the configuration and applies the global flags
func loadConfig(c *cli.Context) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if c.Bool("dry-run") {
		cfg.App.DryRun = true
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}

	logger.ForceSetup(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     logger.ParseLogFormat(cfg.Logging.Format),
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
	})
	return cfg, logger.Get(), nil
}

func bookProperties(cfg *config.Config) book.Properties {
	p := cfg.Properties
	return book.Properties{
		Title:         p.Title,
		ISBN:          p.ISBN,
		Author:        p.Author,
		Cover:         p.Cover,
		OriginalTitle: p.OriginalTitle,
		PublishDate:   p.PublishDate,
		Publisher:     p.Publisher,
		Description:   p.Description,
		Language:      p.Language,
		Pages:         p.Pages,
	}
}

func databaseConfig(cfg *config.Config) database.DatabaseConfig {
	d := cfg.Database
	return database.DatabaseConfig{
		Type:     database.ParseDatabaseType(d.Type),
		Path:     d.Path,
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Name,
		Username: d.User,
		Password: d.Password,
		SSLMode:  d.SSLMode,
	}
}

func notionConfig(cfg *config.Config) notion.Config {
	return notion.Config{
		Token:         cfg.Notion.Token,
		BaseURL:       cfg.Notion.BaseURL,
		Version:       cfg.Notion.Version,
		RateLimit:     cfg.Notion.RateLimit,
		Timeout:       cfg.Notion.Timeout,
		RetryAttempts: uint(cfg.Retry.Attempts),
		RetryDelay:    cfg.Retry.Delay,
	}
}

func openLibraryConfig(cfg *config.Config) openlibrary.Config {
	return openlibrary.Config{
		BaseURL:           cfg.OpenLibrary.BaseURL,
		CoversURL:         cfg.OpenLibrary.CoversURL,
		UserAgent:         cfg.OpenLibrary.UserAgent,
		RequestsPerSecond: cfg.OpenLibrary.RequestsPerSecond,
		Timeout:           cfg.OpenLibrary.Timeout,
		RetryAttempts:     uint(cfg.Retry.Attempts),
		RetryDelay:        cfg.Retry.Delay,
		CacheTTL:          cfg.OpenLibrary.CacheTTL,
	}
}

// newService wires the clients, schema and resolver into a completion service
func newService(cfg *config.Config, log *logger.Logger, history sync.History, failures *report.Collector) (*sync.Service, error) {
	store, err := notion.NewClient(notionConfig(cfg), log)
	if err != nil {
		return nil, err
	}
	schema, err := book.NewSchema(bookProperties(cfg))
	if err != nil {
		return nil, fmt.Errorf("invalid property configuration: %w", err)
	}
	lookup := openlibrary.NewClient(openLibraryConfig(cfg), log)
	resolver := book.NewResolver(lookup, book.LanguageLabels{
		German:  cfg.Languages.German,
		English: cfg.Languages.English,
	}, log)

	opts := []sync.Option{
		sync.WithLogger(log),
		sync.WithDatabaseID(cfg.Notion.DatabaseID),
		sync.WithDryRun(cfg.App.DryRun),
		sync.WithProgress(sync.NewLogProgress(log, os.Stdout)),
		sync.WithReport(failures),
	}
	if history != nil {
		opts = append(opts, sync.WithHistory(history))
	}
	return sync.NewService(store, schema, resolver, opts...), nil
}

// openHistory opens the history store. A broken store only disables history.
func openHistory(cfg *config.Config, log *logger.Logger) (*database.Database, *database.Repository) {
	db, err := database.Open(databaseConfig(cfg), log)
	if err != nil {
		log.Warn("Run history disabled", map[string]interface{}{"error": err.Error()})
		return nil, nil
	}
	return db, database.NewRepository(db, log)
}

func completeAction(c *cli.Context) error {
	cfg, log, err := loadConfig(c)
	if err != nil {
		return err
	}
	pageID := strings.TrimSpace(c.String("page-id"))
	if pageID == "" {
		err = cfg.ValidateBulk()
	} else {
		err = cfg.Validate()
	}
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, repo := openHistory(cfg, log)
	if db != nil {
		defer db.Close()
	}
	var history sync.History
	if repo != nil {
		history = repo
	}

	failures := report.NewCollector(log)
	svc, err := newService(cfg, log, history, failures)
	if err != nil {
		return err
	}

	if pageID != "" {
		outcome, err := svc.CompleteRecord(ctx, pageID)
		if err != nil {
			return fmt.Errorf("failed to complete page %s (%s): %w", pageID, outcome.Kind(), err)
		}
		return nil
	}

	summary, runErr := svc.CompleteAll(ctx)
	if summary != nil {
		printSummary(os.Stdout, summary)
	}
	if err := failures.SaveToFile(cfg.App.ReportFile); err != nil {
		log.Error("Failed to write failure report", map[string]interface{}{
			"path":  cfg.App.ReportFile,
			"error": err.Error(),
		})
	} else if failures.Len() > 0 {
		log.Info("Failure report written", map[string]interface{}{
			"path":     cfg.App.ReportFile,
			"failures": failures.Len(),
		})
	}
	if errors.Is(runErr, context.Canceled) {
		log.Warn("Interrupted, pages already written are kept", nil)
		return nil
	}
	return runErr
}

func printSummary(w io.Writer, s *sync.Summary) {
	fmt.Fprintf(w, "\n%d pages: %d written, %d unchanged, %d dry-run, %d failed\n",
		s.Total, s.Written, s.Unchanged, s.DryRun, s.Failed)
	if s.Cancelled {
		fmt.Fprintf(w, "interrupted after %d of %d pages\n", s.Processed(), s.Total)
	}
}

func historyAction(c *cli.Context) error {
	cfg, log, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := database.Open(databaseConfig(cfg), log)
	if err != nil {
		return err
	}
	defer db.Close()
	repo := database.NewRepository(db, log)

	runs, err := repo.ListRuns(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet")
		return nil
	}
	printRuns(os.Stdout, runs)

	var run *database.Run
	if id := c.String("run"); id != "" {
		run, err = repo.GetRun(c.Context, id)
	} else {
		run, err = repo.LatestRun(c.Context)
	}
	if err != nil {
		return err
	}
	fmt.Println()
	printResults(os.Stdout, run)
	return nil
}

func printRuns(w io.Writer, runs []database.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tMODE\tSTATUS\tTOTAL\tWRITTEN\tDRY-RUN\tUNCHANGED\tFAILED")
	for _, r := range runs {
		mode := r.Mode
		if r.DryRun {
			mode += " (dry-run)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), mode, r.Status,
			r.Total, r.Written, r.Previewed, r.Unchanged, r.Failed)
	}
	tw.Flush()
}

func printResults(w io.Writer, run *database.Run) {
	fmt.Fprintf(w, "Run %s\n", run.ID)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tTITLE\tSTATUS\tDETAIL")
	for _, r := range run.Results {
		detail := r.Properties
		if r.Status == database.StatusFailed {
			detail = r.ErrorKind + ": " + r.ErrorMessage
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.PageID, r.Title, r.Status, detail)
	}
	tw.Flush()
}
