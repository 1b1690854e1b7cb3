// Package realtime implements the feedback provider on a realtime document
// store: every record is a JSON document in one Redis hash, keyed by a
// time-ordered push id, and every write is announced on a pub/sub channel so
// subscribers receive a fresh snapshot of the whole collection.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/NomadCrew/feedback-hub-backend/internal/store"
	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/NomadCrew/feedback-hub-backend/models/feedback"
	"github.com/NomadCrew/feedback-hub-backend/types"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	_ store.FeedbackProvider   = (*FeedbackStore)(nil)
	_ store.FeedbackSubscriber = (*FeedbackStore)(nil)
)

const ProviderName = "realtime"

// Config holds the collection layout.
type Config struct {
	// Collection is the hash holding the documents.
	Collection string
	// SubscribeTimeout bounds the wait for the SUBSCRIBE confirmation.
	SubscribeTimeout time.Duration
}

// DefaultConfig mirrors the "feedbacks" collection of the web client.
func DefaultConfig() Config {
	return Config{
		Collection:       "feedbacks",
		SubscribeTimeout: 10 * time.Second,
	}
}

// document is the stored JSON shape. The id is the hash field, not part of the body.
type document struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Rating    int     `json:"rating"`
	Category  string  `json:"category"`
	Message   *string `json:"message"`
	CreatedAt string  `json:"createdAt"`
}

// FeedbackStore is the Redis-backed document provider. The Redis client is
// owned by the caller.
type FeedbackStore struct {
	rdb    *redis.Client
	config Config
	log    *zap.SugaredLogger
	newID  func() (string, error)

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

// NewFeedbackStore creates the provider over an existing Redis client.
func NewFeedbackStore(rdb *redis.Client, cfg ...Config) *FeedbackStore {
	config := DefaultConfig()
	if len(cfg) > 0 {
		config = cfg[0]
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &FeedbackStore{
		rdb:     rdb,
		config:  config,
		log:     logger.GetLogger().Named("realtime_store"),
		newID:   pushID,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// pushID returns a UUIDv7: its text form sorts in creation order.
func pushID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s *FeedbackStore) channel() string {
	return s.config.Collection + ":changed"
}

func (s *FeedbackStore) Name() string {
	return ProviderName
}

// Append writes the document and announces it in one MULTI/EXEC.
func (s *FeedbackStore) Append(ctx context.Context, rec *types.FeedbackRecord) (string, error) {
	if s.isClosed() {
		return "", store.ErrProviderClosed
	}

	id, err := s.newID()
	if err != nil {
		return "", fmt.Errorf("generate push id: %w", err)
	}

	data, err := json.Marshal(document{
		Name:      rec.Name,
		Email:     rec.Email,
		Rating:    rec.Rating,
		Category:  string(rec.Category),
		Message:   rec.Message,
		CreatedAt: rec.CreatedAt.UTC().Format(types.TimestampLayout),
	})
	if err != nil {
		return "", fmt.Errorf("marshal feedback document: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, s.config.Collection, id, string(data))
	pipe.Publish(ctx, s.channel(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("redis append feedback: %w", err)
	}

	s.log.Debugw("Feedback document stored", "id", id, "collection", s.config.Collection)
	return id, nil
}

// FetchLatest reads the whole collection and selects the most recent record.
func (s *FeedbackStore) FetchLatest(ctx context.Context) (*types.FeedbackRecord, error) {
	records, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	latest, ok := feedback.SelectLatest(records)
	if !ok {
		return nil, nil
	}
	return &latest, nil
}

// snapshot returns every well-formed document in push-id order.
func (s *FeedbackStore) snapshot(ctx context.Context) ([]types.FeedbackRecord, error) {
	if s.isClosed() {
		return nil, store.ErrProviderClosed
	}

	entries, err := s.rdb.HGetAll(ctx, s.config.Collection).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read feedback collection: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	raws := make([]types.RawFeedback, 0, len(ids))
	for _, id := range ids {
		var raw types.RawFeedback
		if err := json.Unmarshal([]byte(entries[id]), &raw); err != nil {
			s.log.Warnw("Skipping undecodable feedback document", "id", id, "error", err)
			continue
		}
		raw.ID = id
		raws = append(raws, raw)
	}
	return feedback.DecodeRecords(raws, s.log), nil
}

// Subscribe delivers the full collection now and after every change. The
// subscription is released when ctx is done or the store is closed.
func (s *FeedbackStore) Subscribe(ctx context.Context) (<-chan []types.FeedbackRecord, error) {
	if !s.track() {
		return nil, store.ErrProviderClosed
	}

	subCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.baseCtx, cancel)

	pubsub := s.rdb.Subscribe(subCtx, s.channel())

	waitCtx, waitCancel := context.WithTimeout(subCtx, s.config.SubscribeTimeout)
	_, err := pubsub.Receive(waitCtx)
	waitCancel()
	if err != nil {
		stop()
		cancel()
		_ = pubsub.Close()
		s.wg.Done()
		return nil, fmt.Errorf("redis subscribe %s: %w", s.channel(), err)
	}

	out := make(chan []types.FeedbackRecord, 1)
	go func() {
		defer s.wg.Done()
		defer stop()
		defer cancel()
		defer func() {
			if err := pubsub.Close(); err != nil {
				s.log.Warnw("Error closing feedback subscription", "error", err)
			}
		}()
		s.stream(subCtx, pubsub.Channel(), out)
	}()

	return out, nil
}

// stream emits a snapshot, then one per notification, until ctx ends, the
// notification channel closes or a snapshot read fails. It closes out.
func (s *FeedbackStore) stream(ctx context.Context, notifications <-chan *redis.Message, out chan<- []types.FeedbackRecord) {
	defer close(out)

	emit := func() bool {
		records, err := s.snapshot(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Errorw("Feedback snapshot failed, closing subscription", "error", err)
			}
			return false
		}
		select {
		case out <- records:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !emit() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-notifications:
			if !ok {
				return
			}
			if !emit() {
				return
			}
		}
	}
}

func (s *FeedbackStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close ends all live subscriptions and waits for them to release.
func (s *FeedbackStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return nil
}

// track registers a subscription with Close's wait group unless the store is
// already closed. The check and the Add share s.mu with Close.
func (s *FeedbackStore) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *FeedbackStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
