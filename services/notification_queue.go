// Package services wires the feedback pipeline to its process-level
// collaborators: the board that owns the refresh signal, health reporting and
// submission notifications.
package services

import (
	"context"
	"sync"
	"time"

	"github.com/NomadCrew/feedback-hub-backend/config"
	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	// attemptTimeout bounds one delivery attempt.
	attemptTimeout = 30 * time.Second
	// retryBackoff is multiplied by the attempt number between retries.
	retryBackoff = 500 * time.Millisecond
)

// Delivery is one notification about a stored record.
type Delivery struct {
	RecordID string
	Send     func(ctx context.Context) error
}

// NotificationQueue delivers notifications off the request path on a fixed
// number of workers. Enqueue never blocks; a full queue drops the delivery.
// Failed deliveries are retried in place up to the configured attempt count.
type NotificationQueue struct {
	deliveries chan Delivery
	workers    sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	log        *zap.SugaredLogger
	metrics    *queueMetrics
	config     config.WorkerPoolConfig
	backoff    time.Duration

	mu      sync.Mutex
	running bool
}

type queueMetrics struct {
	pending    prometheus.Gauge
	sending    prometheus.Gauge
	outcomes   *prometheus.CounterVec
	retries    prometheus.Counter
	sendTiming prometheus.Histogram
}

var (
	queueMetricsInstance *queueMetrics
	queueMetricsOnce     sync.Once
	queueMetricsRegistry = prometheus.DefaultRegisterer
)

func newQueueMetrics() *queueMetrics {
	queueMetricsOnce.Do(func() {
		factory := promauto.With(queueMetricsRegistry)
		queueMetricsInstance = &queueMetrics{
			pending: factory.NewGauge(prometheus.GaugeOpts{
				Name: "feedback_notifications_pending",
				Help: "Notifications waiting for a worker",
			}),
			sending: factory.NewGauge(prometheus.GaugeOpts{
				Name: "feedback_notifications_sending",
				Help: "Notifications currently being delivered",
			}),
			outcomes: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "feedback_notifications_total",
				Help: "Notifications by final outcome",
			}, []string{"outcome"}),
			retries: factory.NewCounter(prometheus.CounterOpts{
				Name: "feedback_notification_retries_total",
				Help: "Delivery attempts after the first",
			}),
			sendTiming: factory.NewHistogram(prometheus.HistogramOpts{
				Name:    "feedback_notification_delivery_seconds",
				Help:    "Time from first attempt to final outcome",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			}),
		}
	})
	return queueMetricsInstance
}

// resetQueueMetricsForTesting gives each test binary a private registry.
func resetQueueMetricsForTesting() {
	queueMetricsRegistry = prometheus.NewRegistry()
	queueMetricsInstance = nil
	queueMetricsOnce = sync.Once{}
}

// NewNotificationQueue sizes the queue from cfg. Call Start before Enqueue.
func NewNotificationQueue(cfg config.WorkerPoolConfig) *NotificationQueue {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &NotificationQueue{
		deliveries: make(chan Delivery, cfg.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
		log:        logger.GetLogger().Named("notification_queue"),
		metrics:    newQueueMetrics(),
		config:     cfg,
		backoff:    retryBackoff,
	}
}

// Start launches the workers. A second call does nothing.
func (q *NotificationQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.running = true

	q.log.Infow("Notification queue started",
		"workers", q.config.MaxWorkers,
		"capacity", q.config.QueueSize,
		"maxAttempts", q.config.MaxAttempts)

	q.workers.Add(q.config.MaxWorkers)
	for i := 0; i < q.config.MaxWorkers; i++ {
		go q.work()
	}
}

// work drains deliveries until the channel is closed by Shutdown.
func (q *NotificationQueue) work() {
	defer q.workers.Done()
	for d := range q.deliveries {
		q.metrics.pending.Dec()
		q.deliver(d)
	}
}

func (q *NotificationQueue) deliver(d Delivery) {
	q.metrics.sending.Inc()
	defer q.metrics.sending.Dec()

	start := time.Now()
	var err error
	for attempt := 1; attempt <= q.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			q.metrics.retries.Inc()
			select {
			case <-time.After(time.Duration(attempt-1) * q.backoff):
			case <-q.ctx.Done():
				q.finish(d, start, "abandoned", err)
				return
			}
		}
		if err = q.attempt(d); err == nil {
			q.finish(d, start, "sent", nil)
			return
		}
		q.log.Warnw("Notification attempt failed",
			"feedbackId", d.RecordID,
			"attempt", attempt,
			"error", err)
	}
	q.finish(d, start, "failed", err)
}

func (q *NotificationQueue) attempt(d Delivery) error {
	ctx, cancel := context.WithTimeout(q.ctx, attemptTimeout)
	defer cancel()
	return d.Send(ctx)
}

func (q *NotificationQueue) finish(d Delivery, start time.Time, outcome string, err error) {
	q.metrics.outcomes.WithLabelValues(outcome).Inc()
	q.metrics.sendTiming.Observe(time.Since(start).Seconds())
	if err != nil {
		q.log.Errorw("Notification not delivered",
			"feedbackId", d.RecordID,
			"outcome", outcome,
			"error", err)
	}
}

// Enqueue hands d to the workers. It returns false when the queue is stopped
// or full; the delivery is then dropped.
func (q *NotificationQueue) Enqueue(d Delivery) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		q.metrics.outcomes.WithLabelValues("dropped").Inc()
		q.log.Warnw("Notification dropped, queue stopped", "feedbackId", d.RecordID)
		return false
	}

	select {
	case q.deliveries <- d:
		q.metrics.pending.Inc()
		return true
	default:
		q.metrics.outcomes.WithLabelValues("dropped").Inc()
		q.log.Warnw("Notification dropped, queue full",
			"feedbackId", d.RecordID,
			"capacity", q.config.QueueSize)
		return false
	}
}

// Shutdown stops intake and waits for queued deliveries to finish. When ctx
// ends first, in-flight attempts are cancelled and pending retries abandoned.
func (q *NotificationQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	close(q.deliveries)
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		q.workers.Wait()
		close(drained)
	}()

	defer q.cancel()
	select {
	case <-drained:
		q.log.Info("Notification queue drained")
		return nil
	case <-ctx.Done():
		q.log.Warnw("Notification queue shutdown timed out", "pending", len(q.deliveries))
		return ctx.Err()
	}
}

// Pending returns the number of deliveries waiting for a worker.
func (q *NotificationQueue) Pending() int {
	return len(q.deliveries)
}

func (q *NotificationQueue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}
