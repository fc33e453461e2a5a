// Package store provides persistence for the diagnostic exchange log.
package store

import (
	"context"
	"time"

	"github.com/helsbotje/helsbotje-gpt/internal/domain"
)

// Repository defines the interface for persisting gateway exchanges.
type Repository interface {
	// RecordExchange stores one gateway exchange.
	RecordExchange(ctx context.Context, ex *domain.Exchange) error

	// RecentExchanges returns up to limit exchanges, newest first.
	RecentExchanges(ctx context.Context, limit int) ([]*domain.Exchange, error)

	// PruneExchanges deletes exchanges older than retention and returns the count.
	PruneExchanges(ctx context.Context, retention time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
