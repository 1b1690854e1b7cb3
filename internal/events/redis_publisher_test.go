package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/NomadCrew/feedback-hub-backend/config"
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

func submittedEvent() types.Event {
	return types.Event{
		ID:         "evt-1",
		Type:       types.EventTypeFeedbackSubmitted,
		InstanceID: "instance-a",
		RecordID:   "fb-1",
		Timestamp:  time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
	}
}

func TestRedisPublisher_Publish(t *testing.T) {
	resetMetricsForTesting()
	rdb, mock := redismock.NewClientMock()
	publisher := NewRedisPublisher(rdb)

	event := submittedEvent()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	mock.ExpectPublish("feedback:events", data).SetVal(1)

	require.NoError(t, publisher.Publish(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisPublisher_PublishRejectsInvalidEvent(t *testing.T) {
	resetMetricsForTesting()
	rdb, mock := redismock.NewClientMock()
	publisher := NewRedisPublisher(rdb)

	err := publisher.Publish(context.Background(), types.Event{Type: types.EventTypeFeedbackSubmitted})
	assert.ErrorContains(t, err, "instance id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisPublisher_PublishRedisError(t *testing.T) {
	resetMetricsForTesting()
	rdb, mock := redismock.NewClientMock()
	publisher := NewRedisPublisher(rdb, Config{Channel: "custom", PublishTimeout: time.Second})

	event := submittedEvent()
	data, _ := json.Marshal(event)
	mock.ExpectPublish("custom", data).SetErr(errors.New("connection reset"))

	err := publisher.Publish(context.Background(), event)
	assert.ErrorContains(t, err, "redis publish")
}

func TestRedisPublisher_ProcessMessages(t *testing.T) {
	resetMetricsForTesting()
	publisher := NewRedisPublisher(nil)

	event := submittedEvent()
	valid, _ := json.Marshal(event)
	noInstance, _ := json.Marshal(types.Event{Type: types.EventTypeFeedbackSubmitted})

	msgs := make(chan *redis.Message, 4)
	msgs <- &redis.Message{Channel: "feedback:events", Payload: "not json"}
	msgs <- &redis.Message{Channel: "feedback:events", Payload: string(noInstance)}
	msgs <- &redis.Message{Channel: "feedback:events", Payload: string(valid)}
	close(msgs)

	events := make(chan types.Event, 4)
	publisher.processMessages(context.Background(), msgs, events)

	var got []types.Event
	for e := range events {
		got = append(got, e)
	}
	require.Len(t, got, 1)
	assert.Equal(t, "fb-1", got[0].RecordID)
	assert.True(t, event.Timestamp.Equal(got[0].Timestamp))
}

func TestRedisPublisher_ProcessMessagesStopsOnCancel(t *testing.T) {
	resetMetricsForTesting()
	publisher := NewRedisPublisher(nil)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan types.Event, 1)
	done := make(chan struct{})
	go func() {
		publisher.processMessages(ctx, make(chan *redis.Message), events)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processMessages did not stop")
	}
	_, ok := <-events
	assert.False(t, ok)
}

func TestRedisPublisher_SubscribeAfterShutdown(t *testing.T) {
	resetMetricsForTesting()
	rdb, _ := redismock.NewClientMock()
	publisher := NewRedisPublisher(rdb)

	require.NoError(t, publisher.Shutdown(context.Background()))
	_, err := publisher.Subscribe(context.Background())
	assert.Error(t, err)
}

func TestConfigFrom(t *testing.T) {
	c := ConfigFrom(config.EventsConfig{Channel: "other", PublishTimeoutSeconds: 2})
	assert.Equal(t, "other", c.Channel)
	assert.Equal(t, 2*time.Second, c.PublishTimeout)
	assert.Equal(t, DefaultConfig().SubscribeTimeout, c.SubscribeTimeout)
	assert.Equal(t, 100, c.EventBufferSize)
}
