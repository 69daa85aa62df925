package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/drallgood/notion-book-sync/internal/logger"
)

// Collector gathers the failures of one run
type Collector struct {
	mu       sync.Mutex
	failures []Failure
	log      *logger.Logger
	now      func() time.Time
}

// NewCollector creates an empty collector
func NewCollector(log *logger.Logger) *Collector {
	if log == nil {
		log = logger.Get()
	}
	return &Collector{log: log.Component("report"), now: time.Now}
}

// Add records a failure
func (c *Collector) Add(f Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f.CreatedAt.IsZero() {
		f.CreatedAt = c.now()
	}
	if f.Timestamp == 0 {
		f.Timestamp = f.CreatedAt.Unix()
	}
	c.failures = append(c.failures, f)

	c.log.Debug("Failure recorded", map[string]interface{}{
		"page_id": f.PageID,
		"title":   f.Title,
		"kind":    f.Kind,
	})
}

// All returns a copy of the recorded failures in insertion order
func (c *Collector) All() []Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Failure, len(c.failures))
	copy(out, c.failures)
	return out
}

// Len returns the number of recorded failures
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.failures)
}

// Clear drops every recorded failure
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = nil
}

type export struct {
	Failures  []Failure `json:"failures"`
	Count     int       `json:"count"`
	Timestamp int64     `json:"timestamp"`
}

// ExportJSON returns the failures as an indented JSON document
func (c *Collector) ExportJSON() ([]byte, error) {
	failures := c.All()
	if failures == nil {
		failures = []Failure{}
	}
	data, err := json.MarshalIndent(export{
		Failures:  failures,
		Count:     len(failures),
		Timestamp: c.now().Unix(),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal failures to JSON: %w", err)
	}
	return data, nil
}

// SaveToFile writes the report to path, replacing any previous report.
// Nothing is written when there are no failures.
func (c *Collector) SaveToFile(path string) error {
	if path == "" || c.Len() == 0 {
		return nil
	}

	data, err := c.ExportJSON()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move report into place: %w", err)
	}

	c.log.Info("Saved failure report", map[string]interface{}{
		"path":  path,
		"count": c.Len(),
	})
	return nil
}
