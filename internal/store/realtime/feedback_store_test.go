package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NomadCrew/feedback-hub-backend/internal/store"
	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/NomadCrew/feedback-hub-backend/types"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

const (
	docAda   = `{"name":"Ada","email":"ada@example.com","rating":5,"category":"UI","message":"Great","createdAt":"2025-01-01T12:00:00Z"}`
	docGrace = `{"name":"Grace","email":"grace@example.com","rating":3,"category":"Other","message":null,"createdAt":"2025-01-01T12:05:00Z"}`
)

func newTestStore(t *testing.T) (*FeedbackStore, redismock.ClientMock) {
	t.Helper()
	rdb, mock := redismock.NewClientMock()
	s := NewFeedbackStore(rdb)
	s.newID = func() (string, error) { return "0190a1b2-0000-7000-8000-000000000001", nil }
	t.Cleanup(func() { _ = s.Close() })
	return s, mock
}

func TestFeedbackStore_Append(t *testing.T) {
	s, mock := newTestStore(t)
	msg := "Great"
	rec := &types.FeedbackRecord{
		Name:      "Ada",
		Email:     "ada@example.com",
		Rating:    5,
		Category:  types.CategoryUI,
		Message:   &msg,
		CreatedAt: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	mock.ExpectTxPipeline()
	mock.ExpectHSet("feedbacks", "0190a1b2-0000-7000-8000-000000000001", docAda).SetVal(1)
	mock.ExpectPublish("feedbacks:changed", "0190a1b2-0000-7000-8000-000000000001").SetVal(0)
	mock.ExpectTxPipelineExec()

	id, err := s.Append(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "0190a1b2-0000-7000-8000-000000000001", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackStore_Append_AfterClose(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.Append(context.Background(), &types.FeedbackRecord{})
	assert.ErrorIs(t, err, store.ErrProviderClosed)
}

func TestFeedbackStore_FetchLatest(t *testing.T) {
	t.Run("picks greatest createdAt", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectHGetAll("feedbacks").SetVal(map[string]string{
			"id-1": docGrace,
			"id-0": docAda,
		})

		got, err := s.FetchLatest(context.Background())
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "id-1", got.ID)
		assert.Equal(t, "Grace", got.Name)
		assert.Nil(t, got.Message)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty collection", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectHGetAll("feedbacks").SetVal(map[string]string{})

		got, err := s.FetchLatest(context.Background())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("malformed documents are skipped", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectHGetAll("feedbacks").SetVal(map[string]string{
			"id-0": docAda,
			"id-1": `{"name":"Broken","rating":9}`,
			"id-2": `not json`,
		})

		got, err := s.FetchLatest(context.Background())
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "id-0", got.ID)
	})

	t.Run("read failure", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectHGetAll("feedbacks").SetErr(errors.New("connection reset"))

		got, err := s.FetchLatest(context.Background())
		assert.Error(t, err)
		assert.Nil(t, got)
	})
}

func TestFeedbackStore_Stream(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectHGetAll("feedbacks").SetVal(map[string]string{"id-0": docAda})
	mock.ExpectHGetAll("feedbacks").SetVal(map[string]string{"id-0": docAda, "id-1": docGrace})

	notifications := make(chan *redis.Message)
	out := make(chan []types.FeedbackRecord)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.stream(context.Background(), notifications, out)
	}()

	first := <-out
	require.Len(t, first, 1)
	assert.Equal(t, "id-0", first[0].ID)

	notifications <- &redis.Message{Channel: "feedbacks:changed", Payload: "id-1"}
	second := <-out
	require.Len(t, second, 2)
	assert.Equal(t, "id-0", second[0].ID)
	assert.Equal(t, "id-1", second[1].ID)

	close(notifications)
	_, open := <-out
	assert.False(t, open)
	<-done
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackStore_Stream_ClosesOnSnapshotFailure(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectHGetAll("feedbacks").SetErr(errors.New("connection reset"))

	out := make(chan []types.FeedbackRecord, 1)
	s.stream(context.Background(), make(chan *redis.Message), out)

	_, open := <-out
	assert.False(t, open)
}

func TestFeedbackStore_Stream_StopsOnCancel(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectHGetAll("feedbacks").SetVal(map[string]string{})

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan []types.FeedbackRecord, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.stream(ctx, make(chan *redis.Message), out)
	}()

	snapshot := <-out
	assert.Empty(t, snapshot)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not stop after cancel")
	}
}

func TestFeedbackStore_Subscribe_AfterClose(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Close())

	ch, err := s.Subscribe(context.Background())
	assert.ErrorIs(t, err, store.ErrProviderClosed)
	assert.Nil(t, ch)
}

func TestFeedbackStore_CloseWaitsForRegisteredSubscriptions(t *testing.T) {
	for i := 0; i < 50; i++ {
		s, _ := newTestStore(t)

		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			for s.track() {
				s.wg.Done()
			}
		}()

		require.NoError(t, s.Close())
		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Fatal("registration kept succeeding after Close")
		}
		assert.False(t, s.track())
	}
}

func TestFeedbackStore_Ping(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, s.Ping(context.Background()))

	mock.ExpectPing().SetErr(errors.New("down"))
	assert.Error(t, s.Ping(context.Background()))
	assert.Equal(t, ProviderName, s.Name())
}
