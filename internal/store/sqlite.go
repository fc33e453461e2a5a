package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/helsbotje/helsbotje-gpt/internal/domain"
	"github.com/helsbotje/helsbotje-gpt/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS exchanges (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		request_id TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		user_text TEXT NOT NULL,
		reply_text TEXT NOT NULL,
		outcome TEXT NOT NULL,
		error_detail TEXT,
		latency_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_exchanges_created ON exchanges(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RecordExchange stores one gateway exchange, retrying on SQLITE_BUSY.
func (s *SQLiteStore) RecordExchange(ctx context.Context, ex *domain.Exchange) error {
	query := `
	INSERT INTO exchanges (
		id, session_id, request_id, provider, model,
		user_text, reply_text, outcome, error_detail, latency_ms, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var errorDetail interface{}
	if ex.ErrorDetail != "" {
		errorDetail = ex.ErrorDetail
	}
	createdAt := ex.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	return withRetry(ctx, "record exchange", func() error {
		_, err := s.db.ExecContext(ctx, query,
			ex.ID, ex.SessionID, ex.RequestID, ex.Provider, ex.Model,
			ex.UserText, ex.ReplyText, string(ex.Outcome), errorDetail,
			ex.Latency.Milliseconds(), createdAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("insert exchange: %w", err)
		}
		return nil
	})
}

// RecentExchanges returns up to limit exchanges, newest first.
func (s *SQLiteStore) RecentExchanges(ctx context.Context, limit int) ([]*domain.Exchange, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, session_id, request_id, provider, model,
		       user_text, reply_text, outcome, error_detail, latency_ms, created_at
		FROM exchanges ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close exchange rows", "error", closeErr)
		}
	}()

	var exchanges []*domain.Exchange
	for rows.Next() {
		var ex domain.Exchange
		var outcome string
		var errorDetail sql.NullString
		var latencyMs, createdAt int64

		if err := rows.Scan(
			&ex.ID, &ex.SessionID, &ex.RequestID, &ex.Provider, &ex.Model,
			&ex.UserText, &ex.ReplyText, &outcome, &errorDetail, &latencyMs, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan exchange row: %w", err)
		}

		ex.Outcome = domain.Outcome(outcome)
		ex.ErrorDetail = errorDetail.String
		ex.Latency = time.Duration(latencyMs) * time.Millisecond
		ex.CreatedAt = time.Unix(0, createdAt)
		exchanges = append(exchanges, &ex)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exchanges: %w", err)
	}

	return exchanges, nil
}

// PruneExchanges deletes exchanges older than retention.
func (s *SQLiteStore) PruneExchanges(ctx context.Context, retention time.Duration) (int64, error) {
	threshold := s.now().Add(-retention).UnixNano()
	var deleted int64
	err := withRetry(ctx, "prune exchanges", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM exchanges WHERE created_at < ?`, threshold)
		if err != nil {
			return fmt.Errorf("prune exchanges: %w", err)
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// withRetry runs op, retrying SQLite lock conflicts with exponential backoff.
func withRetry(ctx context.Context, name string, op func() error) error {
	const maxRetries = 3
	baseDelay := 50 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = op()
		if err == nil || !shared.IsSQLiteConflictError(err) {
			return err
		}
		if i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i) // 50ms, 100ms
		slog.Debug("SQLite busy, retrying", "operation", name, "attempt", i+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, maxRetries, err)
}

var _ Repository = (*SQLiteStore)(nil)
