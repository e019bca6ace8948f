package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"content-scheduler/config"
	"content-scheduler/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDLQ(t *testing.T) *FileDLQ {
	t.Helper()
	return NewFileDLQ(config.DLQConfig{
		BasePath:      t.TempDir(),
		Retention:     720 * time.Hour,
		EnableCleanup: true,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func exhaustedItem() *domain.QueueItem {
	return &domain.QueueItem{
		ID:          uuid.New(),
		ArticleID:   uuid.New(),
		Status:      domain.QueueItemStatusFailed,
		Scheduling:  domain.SchedulingAutomatic,
		Attempts:    3,
		MaxAttempts: 3,
	}
}

func TestFileDLQ_Archive(t *testing.T) {
	t.Run("should write one record per exhausted item", func(t *testing.T) {
		d := newTestDLQ(t)
		item := exhaustedItem()

		phaseErr := domain.NewRecoverablePhaseError(domain.PhaseWriting, errors.New("generator timeout"))
		require.NoError(t, d.Archive(context.Background(), item, phaseErr))

		stats, err := d.GetStats()
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalItems)

		var record ExhaustedItemRecord
		readSingleRecord(t, d.config.BasePath, &record)
		assert.Equal(t, item.ID, record.ItemID)
		assert.Equal(t, item.ArticleID, record.ArticleID)
		assert.Equal(t, 3, record.Attempts)
		assert.Equal(t, string(domain.PhaseWriting), record.LastError.Phase)
		assert.True(t, record.LastError.Recoverable)
		assert.Equal(t, "content-scheduler", record.ServiceName)
	})

	t.Run("should classify unknown errors as fatal", func(t *testing.T) {
		d := newTestDLQ(t)

		require.NoError(t, d.Archive(context.Background(), exhaustedItem(), errors.New("boom")))

		var record ExhaustedItemRecord
		readSingleRecord(t, d.config.BasePath, &record)
		assert.False(t, record.LastError.Recoverable)
		assert.Empty(t, record.LastError.Phase)
	})

	t.Run("should reject nil items", func(t *testing.T) {
		d := newTestDLQ(t)
		assert.Error(t, d.Archive(context.Background(), nil, errors.New("boom")))
	})

	t.Run("should assign unique record ids", func(t *testing.T) {
		d := newTestDLQ(t)

		require.NoError(t, d.Archive(context.Background(), exhaustedItem(), errors.New("first")))
		require.NoError(t, d.Archive(context.Background(), exhaustedItem(), errors.New("second")))

		stats, err := d.GetStats()
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalItems)
	})
}

func TestFileDLQ_GetStats(t *testing.T) {
	t.Run("should return zero stats for an empty archive", func(t *testing.T) {
		d := newTestDLQ(t)

		stats, err := d.GetStats()
		require.NoError(t, err)
		assert.Zero(t, stats.TotalItems)
		assert.Zero(t, stats.DiskUsage)
	})
}

func TestFileDLQ_Cleanup(t *testing.T) {
	t.Run("should remove directories past retention", func(t *testing.T) {
		d := newTestDLQ(t)
		root := filepath.Join(d.config.BasePath, "exhausted-items")

		oldDir := filepath.Join(root, time.Now().AddDate(0, -2, 0).Format("2006-01-02"))
		freshDir := filepath.Join(root, time.Now().Format("2006-01-02"))
		require.NoError(t, os.MkdirAll(oldDir, 0750))
		require.NoError(t, os.MkdirAll(freshDir, 0750))

		require.NoError(t, d.Cleanup(context.Background()))

		assert.NoDirExists(t, oldDir)
		assert.DirExists(t, freshDir)
	})

	t.Run("should be a no-op when cleanup is disabled", func(t *testing.T) {
		d := newTestDLQ(t)
		d.config.EnableCleanup = false
		root := filepath.Join(d.config.BasePath, "exhausted-items")

		oldDir := filepath.Join(root, time.Now().AddDate(0, -2, 0).Format("2006-01-02"))
		require.NoError(t, os.MkdirAll(oldDir, 0750))

		require.NoError(t, d.Cleanup(context.Background()))
		assert.DirExists(t, oldDir)
	})
}

// readSingleRecord finds the only archived record under basePath and decodes it.
func readSingleRecord(t *testing.T, basePath string, record *ExhaustedItemRecord) {
	t.Helper()

	var found string
	err := filepath.Walk(basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".json" {
			found = path
		}
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, found, "expected one archived record")

	data, err := os.ReadFile(found)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, record))
}
