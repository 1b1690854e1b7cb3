package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/NomadCrew/feedback-hub-backend/models/feedback/service"
	"github.com/NomadCrew/feedback-hub-backend/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher publishes change-feed events to other instances.
type EventPublisher interface {
	Publish(ctx context.Context, event types.Event) error
}

// Notifier is told about every stored submission.
type Notifier interface {
	Notify(rec types.FeedbackRecord) bool
}

// FeedbackBoard is the presentation shell. It owns the refresh signal: a
// version counter bumped after every stored submission and fanned out to the
// active watchers. Business rules live in the service package.
type FeedbackBoard struct {
	submitter  service.Submitter
	projection *service.LatestProjection
	forms      *service.FormRegistry
	publisher  EventPublisher
	notifier   Notifier
	instanceID string
	log        *zap.SugaredLogger

	version atomic.Uint64

	mu       sync.Mutex
	watchers map[chan uint64]struct{}
}

// BoardOption configures optional FeedbackBoard collaborators.
type BoardOption func(*FeedbackBoard)

// WithEventPublisher makes the board announce stored submissions on the change feed.
func WithEventPublisher(p EventPublisher) BoardOption {
	return func(b *FeedbackBoard) { b.publisher = p }
}

// WithNotifier makes the board hand stored submissions to n.
func WithNotifier(n Notifier) BoardOption {
	return func(b *FeedbackBoard) { b.notifier = n }
}

func NewFeedbackBoard(submitter service.Submitter, projection *service.LatestProjection, forms *service.FormRegistry, opts ...BoardOption) *FeedbackBoard {
	b := &FeedbackBoard{
		submitter:  submitter,
		projection: projection,
		forms:      forms,
		instanceID: uuid.NewString(),
		log:        logger.GetLogger().Named("board"),
		watchers:   make(map[chan uint64]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// InstanceID identifies this process on the change feed.
func (b *FeedbackBoard) InstanceID() string {
	return b.instanceID
}

// Version returns the current refresh signal value.
func (b *FeedbackBoard) Version() uint64 {
	return b.version.Load()
}

// Submit fills the form identified by formID with draft and submits it. An
// empty formID uses a throwaway form. On success the refresh signal is bumped
// before Submit returns.
func (b *FeedbackBoard) Submit(ctx context.Context, formID string, draft types.FeedbackDraft) (*types.FeedbackRecord, error) {
	rec, err := b.forms.Form(formID).SubmitDraft(ctx, b.submitter, draft)
	if err != nil {
		return nil, err
	}
	if formID != "" {
		b.forms.Forget(formID)
	}

	b.bump()
	b.announce(ctx, *rec)
	if b.notifier != nil {
		b.notifier.Notify(*rec)
	}
	return rec, nil
}

// Latest derives the current state once, stamped with the current version.
func (b *FeedbackBoard) Latest(ctx context.Context) types.LatestState {
	version := b.Version()
	state := b.projection.Current(ctx)
	state.Version = version
	return state
}

// Watch streams projection states until ctx is done. Refresh values are
// coalesced: a slow watcher only sees the most recent version.
func (b *FeedbackBoard) Watch(ctx context.Context) <-chan types.LatestState {
	refresh := make(chan uint64, 1)
	refresh <- b.Version()

	b.mu.Lock()
	b.watchers[refresh] = struct{}{}
	b.mu.Unlock()

	context.AfterFunc(ctx, func() {
		b.mu.Lock()
		delete(b.watchers, refresh)
		b.mu.Unlock()
	})

	return b.projection.Watch(ctx, refresh)
}

// WatcherCount returns the number of registered watchers.
func (b *FeedbackBoard) WatcherCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.watchers)
}

// Follow bumps the refresh signal for every submission event produced by
// another instance. It returns when events is closed or ctx is done.
func (b *FeedbackBoard) Follow(ctx context.Context, events <-chan types.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.InstanceID == b.instanceID || event.Type != types.EventTypeFeedbackSubmitted {
				continue
			}
			b.log.Debugw("Remote submission observed",
				"recordId", event.RecordID,
				"instanceId", event.InstanceID)
			b.bump()
		}
	}
}

func (b *FeedbackBoard) bump() {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.version.Add(1)
	for ch := range b.watchers {
		// Replace a pending value the watcher has not consumed yet.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

func (b *FeedbackBoard) announce(ctx context.Context, rec types.FeedbackRecord) {
	if b.publisher == nil {
		return
	}
	event := types.Event{
		ID:         uuid.NewString(),
		Type:       types.EventTypeFeedbackSubmitted,
		InstanceID: b.instanceID,
		RecordID:   rec.ID,
		Timestamp:  time.Now().UTC(),
	}
	if err := b.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		b.log.Warnw("Failed to publish submission event", "recordId", rec.ID, "error", err)
	}
}
