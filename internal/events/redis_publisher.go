// Package events carries submission events between instances over Redis
// pub/sub so every instance can bump its own refresh signal.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/NomadCrew/feedback-hub-backend/config"
	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/NomadCrew/feedback-hub-backend/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config holds configuration for RedisPublisher
type Config struct {
	Channel          string
	PublishTimeout   time.Duration
	SubscribeTimeout time.Duration
	EventBufferSize  int
}

// DefaultConfig returns default configuration values
func DefaultConfig() Config {
	return Config{
		Channel:          "feedback:events",
		PublishTimeout:   5 * time.Second,
		SubscribeTimeout: 10 * time.Second,
		EventBufferSize:  100,
	}
}

// ConfigFrom converts the EVENTS config section, keeping defaults for unset values.
func ConfigFrom(cfg config.EventsConfig) Config {
	c := DefaultConfig()
	if cfg.Channel != "" {
		c.Channel = cfg.Channel
	}
	if cfg.PublishTimeoutSeconds > 0 {
		c.PublishTimeout = time.Duration(cfg.PublishTimeoutSeconds) * time.Second
	}
	if cfg.SubscribeTimeoutSeconds > 0 {
		c.SubscribeTimeout = time.Duration(cfg.SubscribeTimeoutSeconds) * time.Second
	}
	if cfg.EventBufferSize > 0 {
		c.EventBufferSize = cfg.EventBufferSize
	}
	return c
}

// metrics holds Prometheus metrics for the publisher
type metrics struct {
	publishLatency    prometheus.Histogram
	errorCount        *prometheus.CounterVec
	eventCount        *prometheus.CounterVec
	activeSubscribers prometheus.Gauge
}

var (
	metricsInstance *metrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func newMetrics() *metrics {
	metricsOnce.Do(func() {
		metricsInstance = &metrics{
			publishLatency: promauto.With(defaultRegistry).NewHistogram(prometheus.HistogramOpts{
				Name:    "feedback_event_publish_duration_seconds",
				Help:    "Time taken to publish change feed events",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			}),
			errorCount: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "feedback_event_errors_total",
				Help: "Total number of change feed errors",
			}, []string{"operation", "type"}),
			eventCount: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "feedback_events_total",
				Help: "Total number of change feed events by operation and type",
			}, []string{"operation", "type"}),
			activeSubscribers: promauto.With(defaultRegistry).NewGauge(prometheus.GaugeOpts{
				Name: "feedback_event_active_subscribers",
				Help: "Current number of change feed subscribers",
			}),
		}
	})
	return metricsInstance
}

func resetMetricsForTesting() {
	defaultRegistry = prometheus.NewRegistry()
	metricsInstance = nil
	metricsOnce = sync.Once{}
}

// RedisPublisher publishes and receives submission events on one Redis channel.
type RedisPublisher struct {
	rdb     *redis.Client
	log     *zap.SugaredLogger
	metrics *metrics
	config  Config
	mu      sync.Mutex
	subs    map[string]*subscription
	closed  bool
	wg      sync.WaitGroup
}

type subscription struct {
	pubsub    *redis.PubSub
	cancelCtx context.CancelFunc
	closeOnce sync.Once
}

func (s *subscription) close(log *zap.SugaredLogger) {
	s.closeOnce.Do(func() {
		if err := s.pubsub.Close(); err != nil {
			log.Errorw("Error closing pubsub", "error", err)
		}
	})
}

func NewRedisPublisher(rdb *redis.Client, cfg ...Config) *RedisPublisher {
	config := DefaultConfig()
	if len(cfg) > 0 {
		config = cfg[0]
	}

	return &RedisPublisher{
		rdb:     rdb,
		log:     logger.GetLogger().Named("events"),
		metrics: newMetrics(),
		config:  config,
		subs:    make(map[string]*subscription),
	}
}

// Publish validates event, fills in a missing id and timestamp and publishes it.
func (p *RedisPublisher) Publish(ctx context.Context, event types.Event) error {
	start := time.Now()
	defer func() {
		p.metrics.publishLatency.Observe(time.Since(start).Seconds())
	}()

	if err := event.Validate(); err != nil {
		p.metrics.errorCount.WithLabelValues("publish", "validation").Inc()
		return fmt.Errorf("invalid event: %w", err)
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.metrics.errorCount.WithLabelValues("publish", "marshal").Inc()
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
	defer cancel()

	if err := p.rdb.Publish(ctx, p.config.Channel, data).Err(); err != nil {
		p.metrics.errorCount.WithLabelValues("publish", "redis").Inc()
		return fmt.Errorf("redis publish: %w", err)
	}

	p.metrics.eventCount.WithLabelValues("publish", string(event.Type)).Inc()
	return nil
}

// Subscribe returns the events published on the channel from now on. The
// channel is closed when ctx is done or the publisher shuts down.
func (p *RedisPublisher) Subscribe(ctx context.Context) (<-chan types.Event, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("publisher is shut down")
	}
	p.mu.Unlock()

	pubsub := p.rdb.Subscribe(ctx, p.config.Channel)

	recvCtx, cancelRecv := context.WithTimeout(ctx, p.config.SubscribeTimeout)
	_, err := pubsub.Receive(recvCtx)
	cancelRecv()
	if err != nil {
		p.metrics.errorCount.WithLabelValues("subscribe", "redis").Inc()
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	subKey := uuid.NewString()
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{pubsub: pubsub, cancelCtx: cancel}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		cancel()
		sub.close(p.log)
		return nil, fmt.Errorf("publisher is shut down")
	}
	p.subs[subKey] = sub
	p.wg.Add(1)
	p.mu.Unlock()

	p.metrics.activeSubscribers.Inc()
	events := make(chan types.Event, p.config.EventBufferSize)

	go func() {
		defer p.wg.Done()
		defer func() {
			p.mu.Lock()
			delete(p.subs, subKey)
			p.mu.Unlock()
			sub.close(p.log)
			p.metrics.activeSubscribers.Dec()
			p.log.Debugw("Subscription closed", "subKey", subKey)
		}()
		p.processMessages(subCtx, pubsub.Channel(), events)
	}()

	return events, nil
}

// processMessages decodes messages into events until ctx is done or msgs is
// closed, then closes events. Undecodable messages are skipped; when events
// is full the event is dropped.
func (p *RedisPublisher) processMessages(ctx context.Context, msgs <-chan *redis.Message, events chan<- types.Event) {
	defer close(events)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			var event types.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				p.metrics.errorCount.WithLabelValues("process", "unmarshal").Inc()
				p.log.Errorw("Failed to unmarshal event", "error", err)
				continue
			}
			if err := event.Validate(); err != nil {
				p.metrics.errorCount.WithLabelValues("process", "validation").Inc()
				continue
			}

			select {
			case events <- event:
				p.metrics.eventCount.WithLabelValues("receive", string(event.Type)).Inc()
			default:
				p.metrics.errorCount.WithLabelValues("process", "channel_full").Inc()
				p.log.Warnw("Dropped event due to full channel", "eventType", event.Type)
			}
		}
	}
}

// Shutdown cancels every subscription and waits for their goroutines.
func (p *RedisPublisher) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	localSubs := make([]*subscription, 0, len(p.subs))
	for _, sub := range p.subs {
		localSubs = append(localSubs, sub)
	}
	p.mu.Unlock()

	p.log.Infow("Shutting down change feed", "subscriptions", len(localSubs))
	for _, sub := range localSubs {
		sub.cancelCtx()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("Change feed shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
