package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/NomadCrew/feedback-hub-backend/types"
	"github.com/stretchr/testify/mock"
)

func init() {
	logger.IsTest = true
	resetMetricsForTesting()
}

// MockProvider is a testify mock of store.FeedbackProvider.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Append(ctx context.Context, rec *types.FeedbackRecord) (string, error) {
	args := m.Called(ctx, rec)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) FetchLatest(ctx context.Context) (*types.FeedbackRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.FeedbackRecord), args.Error(1)
}

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockProvider) Close() error { return nil }

// liveProvider pushes whatever the test sends on the feed handed out per subscription.
type liveProvider struct {
	MockProvider

	feeds chan chan []types.FeedbackRecord

	mu        sync.Mutex
	active    int
	maxActive int
	acquired  int
}

func newLiveProvider() *liveProvider {
	return &liveProvider{feeds: make(chan chan []types.FeedbackRecord, 8)}
}

func (p *liveProvider) Subscribe(ctx context.Context) (<-chan []types.FeedbackRecord, error) {
	p.mu.Lock()
	p.active++
	p.acquired++
	if p.active > p.maxActive {
		p.maxActive = p.active
	}
	p.mu.Unlock()

	in := make(chan []types.FeedbackRecord)
	out := make(chan []types.FeedbackRecord)
	p.feeds <- in

	go func() {
		defer close(out)
		defer func() {
			p.mu.Lock()
			p.active--
			p.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case recs, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- recs:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (p *liveProvider) counts() (active, maxActive, acquired int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active, p.maxActive, p.acquired
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func feedbackAt(id string, at time.Time) types.FeedbackRecord {
	return types.FeedbackRecord{
		ID:        id,
		Name:      "Ada",
		Email:     "ada@example.com",
		Rating:    4,
		Category:  types.CategoryUI,
		CreatedAt: at,
	}
}
