package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/NomadCrew/feedback-hub-backend/types"
	"github.com/stretchr/testify/mock"
)

func init() {
	logger.IsTest = true
	resetQueueMetricsForTesting()
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

// memoryProvider keeps appended records in memory.
type memoryProvider struct {
	mu      sync.Mutex
	records []types.FeedbackRecord
	fail    error
}

func (p *memoryProvider) Name() string { return "memory" }

func (p *memoryProvider) Append(ctx context.Context, rec *types.FeedbackRecord) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return "", p.fail
	}
	stored := *rec
	stored.ID = fmt.Sprintf("fb-%d", len(p.records)+1)
	p.records = append(p.records, stored)
	return stored.ID, nil
}

func (p *memoryProvider) FetchLatest(ctx context.Context) (*types.FeedbackRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.records) == 0 {
		return nil, nil
	}
	latest := p.records[len(p.records)-1]
	return &latest, nil
}

func (p *memoryProvider) Ping(ctx context.Context) error { return nil }

func (p *memoryProvider) Close() error { return nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event types.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	records []types.FeedbackRecord
}

func (n *recordingNotifier) Notify(rec types.FeedbackRecord) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.records = append(n.records, rec)
	return true
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
