// ABOUTME: This file implements a JSON file-based dead letter queue for exhausted queue items
// ABOUTME: Items that failed all retry attempts are archived here for operator inspection
package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"content-scheduler/config"
	"content-scheduler/domain"

	"github.com/google/uuid"
)

// ExhaustedItemRecord is the archived form of a queue item that ran out of
// retry attempts.
type ExhaustedItemRecord struct {
	ID           string       `json:"id"`
	ItemID       uuid.UUID    `json:"item_id"`
	ArticleID    uuid.UUID    `json:"article_id"`
	Attempts     int          `json:"attempts"`
	MaxAttempts  int          `json:"max_attempts"`
	Scheduling   string       `json:"scheduling_type"`
	LastError    ErrorDetails `json:"last_error"`
	ArchivedAt   time.Time    `json:"archived_at"`
	ServiceName  string       `json:"service_name"`
}

// ErrorDetails captures the classified failure that exhausted the item.
type ErrorDetails struct {
	Phase       string `json:"phase,omitempty"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

// FileDLQ archives exhausted queue items as one JSON file per item, grouped
// by date.
type FileDLQ struct {
	config  config.DLQConfig
	counter uint64
	mu      sync.Mutex
	logger  *slog.Logger
}

// NewFileDLQ creates a file-backed dead letter queue.
func NewFileDLQ(cfg config.DLQConfig, logger *slog.Logger) *FileDLQ {
	return &FileDLQ{
		config: cfg,
		logger: logger,
	}
}

// Archive writes the exhausted item to disk. Failures here are logged loudly
// but must not block the worker, so callers may treat the error as advisory.
func (d *FileDLQ) Archive(ctx context.Context, item *domain.QueueItem, lastErr error) error {
	if item == nil {
		return fmt.Errorf("queue item cannot be nil")
	}

	d.mu.Lock()
	d.counter++
	recordID := fmt.Sprintf("dlq_%s_%03d", time.Now().Format("20060102"), d.counter)
	d.mu.Unlock()

	record := ExhaustedItemRecord{
		ID:          recordID,
		ItemID:      item.ID,
		ArticleID:   item.ArticleID,
		Attempts:    item.Attempts,
		MaxAttempts: item.MaxAttempts,
		Scheduling:  string(item.Scheduling),
		LastError:   classifyError(lastErr),
		ArchivedAt:  time.Now().UTC(),
		ServiceName: "content-scheduler",
	}

	if err := d.writeRecord(record); err != nil {
		d.logger.ErrorContext(ctx, "failed to archive exhausted queue item",
			"record_id", recordID, "item_id", item.ID, "article_id", item.ArticleID, "error", err)
		return err
	}

	d.logger.InfoContext(ctx, "exhausted queue item archived",
		"record_id", recordID, "item_id", item.ID, "article_id", item.ArticleID,
		"attempts", item.Attempts)
	return nil
}

func classifyError(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{Message: "unknown failure"}
	}

	details := ErrorDetails{
		Message:     err.Error(),
		Recoverable: domain.IsRecoverable(err),
	}

	var phaseErr *domain.PhaseError
	if errors.As(err, &phaseErr) {
		details.Phase = string(phaseErr.Phase)
	}
	return details
}

func (d *FileDLQ) writeRecord(record ExhaustedItemRecord) error {
	dateDir := record.ArchivedAt.Format("2006-01-02")
	dir := filepath.Join(d.config.BasePath, "exhausted-items", dateDir)

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create directory failed: %w", err)
	}

	recordBytes, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	targetPath := filepath.Join(dir, record.ID+".json")
	tempFile := targetPath + ".tmp"

	// Temp file plus rename keeps partially written records invisible.
	if err := os.WriteFile(tempFile, recordBytes, 0600); err != nil {
		return fmt.Errorf("write temp file failed: %w", err)
	}
	if err := os.Rename(tempFile, targetPath); err != nil {
		if cleanupErr := os.Remove(tempFile); cleanupErr != nil {
			d.logger.Error("failed to cleanup temp file", "temp_file", tempFile, "error", cleanupErr)
		}
		return fmt.Errorf("rename file failed: %w", err)
	}

	return nil
}

// Stats summarizes the archive for the health endpoint.
type Stats struct {
	TotalItems    int       `json:"total_items"`
	OldestFailure time.Time `json:"oldest_failure"`
	DiskUsage     int64     `json:"disk_usage_bytes"`
}

// GetStats walks the archive and aggregates counts.
func (d *FileDLQ) GetStats() (Stats, error) {
	stats := Stats{}
	root := filepath.Join(d.config.BasePath, "exhausted-items")

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".json" {
			stats.TotalItems++
			stats.DiskUsage += info.Size()
			if stats.OldestFailure.IsZero() || info.ModTime().Before(stats.OldestFailure) {
				stats.OldestFailure = info.ModTime()
			}
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return stats, fmt.Errorf("failed to calculate stats: %w", err)
	}

	return stats, nil
}

// Cleanup removes date directories older than the configured retention.
func (d *FileDLQ) Cleanup(ctx context.Context) error {
	if !d.config.EnableCleanup {
		return nil
	}

	root := filepath.Join(d.config.BasePath, "exhausted-items")
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read archive directory: %w", err)
	}

	cutoff := time.Now().Add(-d.config.Retention)
	var removed int

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dirDate, err := time.Parse("2006-01-02", entry.Name())
		if err != nil {
			continue
		}
		if dirDate.Before(cutoff) {
			if err := os.RemoveAll(filepath.Join(root, entry.Name())); err != nil {
				d.logger.ErrorContext(ctx, "failed to remove expired archive directory",
					"dir", entry.Name(), "error", err)
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		d.logger.InfoContext(ctx, "expired archive directories removed", "count", removed)
	}
	return nil
}
