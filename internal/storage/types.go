package storage

import (
	"context"
	"errors"
	"time"

	"herald/internal/campaign"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "sqlite" (or empty): SQLite database file
//
// HistoryMax bounds the report history; older entries are evicted on append.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
	HistoryMax  int           // 0 means defaultHistoryMax
}

// Directory supplies the recipient set and supports pruning.
type Directory interface {
	ListRecipients(ctx context.Context) ([]campaign.Recipient, error)
	PutRecipient(ctx context.Context, r campaign.Recipient) error
	// RemoveRecipient is idempotent: removing an absent id is a no-op.
	RemoveRecipient(ctx context.Context, id int64) error
}

// Reports is the append-only, bounded run-report history.
// Eviction of old entries is the store's responsibility.
type Reports interface {
	AppendReport(ctx context.Context, r campaign.Report) error
	RecentReports(ctx context.Context, limit int) ([]campaign.Report, error)
}

// Store is the full persistence API used by the broadcast engine.
type Store interface {
	Directory
	Reports
	Close() error
}
