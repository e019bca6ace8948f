package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"content-scheduler/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDB only answers Ping; the health checker never issues queries.
type stubDB struct {
	pingErr error
}

func (s *stubDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not implemented")
}
func (s *stubDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}
func (s *stubDB) QueryRow(context.Context, string, ...any) pgx.Row { return nil }
func (s *stubDB) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("not implemented")
}
func (s *stubDB) Ping(context.Context) error { return s.pingErr }

func TestHealthChecker_Check(t *testing.T) {
	t.Run("should pass when both dependencies answer", func(t *testing.T) {
		h := NewHealthChecker(&stubDB{}, newFakeGenerator(), testLogger())
		assert.NoError(t, h.Check(context.Background()))
	})

	t.Run("should report an unhealthy database", func(t *testing.T) {
		h := NewHealthChecker(&stubDB{pingErr: errors.New("connection refused")}, newFakeGenerator(), testLogger())

		err := h.Check(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database unhealthy")
	})

	t.Run("should report an unhealthy generator", func(t *testing.T) {
		generator := newFakeGenerator()
		generator.healthErr = domain.ErrGeneratorUnavailable

		h := NewHealthChecker(&stubDB{}, generator, testLogger())
		err := h.Check(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrGeneratorUnavailable)
	})
}

func TestHealthChecker_WaitForGenerator(t *testing.T) {
	t.Run("should return immediately when already healthy", func(t *testing.T) {
		h := NewHealthChecker(&stubDB{}, newFakeGenerator(), testLogger())
		assert.NoError(t, h.WaitForGenerator(context.Background(), time.Second))
	})

	t.Run("should give up when the context expires", func(t *testing.T) {
		generator := newFakeGenerator()
		generator.healthErr = domain.ErrGeneratorUnavailable

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		h := NewHealthChecker(&stubDB{}, generator, testLogger())
		err := h.WaitForGenerator(ctx, 10*time.Millisecond)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
