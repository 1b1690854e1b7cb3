// Package store defines the storage provider capability the feedback
// pipeline writes to and the projection reads from.
package store

import (
	"context"

	"github.com/NomadCrew/feedback-hub-backend/types"
)

// FeedbackProvider durably stores feedback records and answers "most recent".
// Implementations must not drop or reorder records appended by one client.
type FeedbackProvider interface {
	// Name identifies the provider in logs, metrics and health output.
	Name() string
	// Append stores one record and returns the id the provider assigned.
	Append(ctx context.Context, rec *types.FeedbackRecord) (string, error)
	// FetchLatest returns the most recent record, or nil when there is none.
	FetchLatest(ctx context.Context) (*types.FeedbackRecord, error)
	// Ping checks connectivity for health reporting.
	Ping(ctx context.Context) error
	// Close releases the provider's connections.
	Close() error
}

// FeedbackSubscriber is implemented by providers that push the full record
// collection whenever it changes. The returned channel receives an initial
// snapshot, then one snapshot per change, and is closed once ctx is done or
// the underlying feed fails.
type FeedbackSubscriber interface {
	Subscribe(ctx context.Context) (<-chan []types.FeedbackRecord, error)
}
