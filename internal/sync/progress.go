package sync

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/drallgood/notion-book-sync/internal/logger"
)

// Progress receives per-record notifications during a run. It only observes.
type Progress interface {
	RecordStarted(n, total int, pageID string)
	RecordCompleted(n, total int, outcome *Outcome)
	RecordFailed(n, total int, outcome *Outcome)
}

// LogProgress logs every record and prints a n/total line per finished record
type LogProgress struct {
	log *logger.Logger
	out io.Writer
}

// NewLogProgress creates a progress sink. A nil writer prints to stdout.
func NewLogProgress(log *logger.Logger, out io.Writer) *LogProgress {
	if log == nil {
		log = logger.Get()
	}
	if out == nil {
		out = os.Stdout
	}
	return &LogProgress{log: log.Component("progress"), out: out}
}

func (p *LogProgress) RecordStarted(n, total int, pageID string) {
	p.log.Debug("Completing record", map[string]interface{}{
		"page_id": pageID,
		"n":       n,
		"total":   total,
	})
}

func (p *LogProgress) RecordCompleted(n, total int, o *Outcome) {
	detail := string(o.Status)
	if props := o.Properties(); len(props) > 0 {
		detail += " (" + strings.Join(props, ", ") + ")"
	}
	fmt.Fprintf(p.out, "[%d/%d] %s: %s\n", n, total, displayName(o), detail)
}

func (p *LogProgress) RecordFailed(n, total int, o *Outcome) {
	p.log.Warn("Record failed", map[string]interface{}{
		"page_id": o.PageID,
		"title":   o.Title,
		"stage":   o.Stage,
		"kind":    o.Kind(),
		"error":   errString(o.Err),
	})
	fmt.Fprintf(p.out, "[%d/%d] %s: failed (%s): %s\n", n, total, displayName(o), o.Kind(), errString(o.Err))
}

func displayName(o *Outcome) string {
	if o.Title != "" {
		return o.Title
	}
	return o.PageID
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// nopProgress drops every notification
type nopProgress struct{}

func (nopProgress) RecordStarted(int, int, string)     {}
func (nopProgress) RecordCompleted(int, int, *Outcome) {}
func (nopProgress) RecordFailed(int, int, *Outcome)    {}
