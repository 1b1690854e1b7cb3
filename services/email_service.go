package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/NomadCrew/feedback-hub-backend/config"
	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/NomadCrew/feedback-hub-backend/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

type EmailMetrics struct {
	sendLatency prometheus.Histogram
	errorCount  prometheus.Counter
	sentCount   prometheus.Counter
}

// deliveryQueue is the part of NotificationQueue the notifier needs.
type deliveryQueue interface {
	Enqueue(d Delivery) bool
}

// SubmissionNotifier emails a summary of every persisted submission to the
// configured recipients. Sends run on the notification queue, never on the request path.
type SubmissionNotifier struct {
	config  *config.NotificationConfig
	client  *resend.Client
	queue   deliveryQueue
	tmpl    *template.Template
	metrics *EmailMetrics
	log     *zap.SugaredLogger
}

func NewSubmissionNotifier(cfg *config.NotificationConfig, queue *NotificationQueue) *SubmissionNotifier {
	return NewSubmissionNotifierWithRegistry(cfg, queue, prometheus.DefaultRegisterer)
}

func NewSubmissionNotifierWithRegistry(cfg *config.NotificationConfig, queue deliveryQueue, reg prometheus.Registerer) *SubmissionNotifier {
	log := logger.GetLogger().Named("notifier")
	log.Infow("Initializing submission notifier",
		"from", cfg.FromAddress, "recipients", len(cfg.Recipients))

	metrics := &EmailMetrics{
		sendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedback_email_send_duration_seconds",
			Help:    "Time taken to send submission summary emails",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		}),
		errorCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedback_email_errors_total",
			Help: "Total number of submission summary email errors",
		}),
		sentCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedback_emails_sent_total",
			Help: "Total number of submission summary emails sent",
		}),
	}
	reg.MustRegister(metrics.sendLatency)
	reg.MustRegister(metrics.errorCount)
	reg.MustRegister(metrics.sentCount)

	return &SubmissionNotifier{
		config:  cfg,
		client:  resend.NewClient(cfg.ResendAPIKey),
		queue:   queue,
		tmpl:    template.Must(template.New("submission").Parse(submissionEmailTemplate)),
		metrics: metrics,
		log:     log,
	}
}

// Notify queues a summary email for rec. It reports whether the job was accepted.
func (n *SubmissionNotifier) Notify(rec types.FeedbackRecord) bool {
	return n.queue.Enqueue(Delivery{
		RecordID: rec.ID,
		Send: func(ctx context.Context) error {
			return n.Send(ctx, rec)
		},
	})
}

// Send renders and delivers the summary for rec.
func (n *SubmissionNotifier) Send(ctx context.Context, rec types.FeedbackRecord) error {
	start := time.Now()
	defer func() {
		n.metrics.sendLatency.Observe(time.Since(start).Seconds())
	}()

	if n.config.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(n.config.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	var html bytes.Buffer
	if err := n.tmpl.Execute(&html, summaryData(rec)); err != nil {
		n.metrics.errorCount.Inc()
		return fmt.Errorf("failed to execute template: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", n.config.FromName, n.config.FromAddress),
		To:      n.config.Recipients,
		Subject: fmt.Sprintf("New %s feedback (%d/5)", rec.Category, rec.Rating),
		Html:    html.String(),
		ReplyTo: rec.Email,
	}

	resp, err := n.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		n.metrics.errorCount.Inc()
		n.log.Errorw("Failed to send submission summary",
			"feedbackId", rec.ID,
			"error", err)
		return fmt.Errorf("email send failed: %w", err)
	}

	n.metrics.sentCount.Inc()
	n.log.Infow("Submission summary sent",
		"feedbackId", rec.ID,
		"emailId", resp.Id,
		"submitter", logger.MaskEmail(rec.Email))
	return nil
}

type summary struct {
	ID        string
	Name      string
	Email     string
	Rating    int
	Stars     string
	Category  types.Category
	Message   string
	CreatedAt string
}

func summaryData(rec types.FeedbackRecord) summary {
	s := summary{
		ID:        rec.ID,
		Name:      rec.Name,
		Email:     rec.Email,
		Rating:    rec.Rating,
		Stars:     strings.Repeat("★", rec.Rating) + strings.Repeat("☆", types.MaxRating-rec.Rating),
		Category:  rec.Category,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC1123),
	}
	if rec.Message != nil {
		s.Message = *rec.Message
	}
	return s
}

const submissionEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>New feedback</title>
    <style>
        body { font-family: sans-serif; background-color: #f7f7f7; color: #333333; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; padding: 24px; border-radius: 12px; }
        h1 { font-size: 22px; }
        .stars { color: #F46315; font-size: 20px; }
        .message { white-space: pre-wrap; border-left: 3px solid #dddddd; padding-left: 12px; }
        .meta { font-size: 12px; color: #777777; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Category}} feedback from {{.Name}}</h1>
        <p class="stars">{{.Stars}}</p>
        <p>{{.Email}}</p>
        {{if .Message}}<p class="message">{{.Message}}</p>{{else}}<p><em>No message.</em></p>{{end}}
        <p class="meta">{{.ID}} &middot; {{.CreatedAt}}</p>
    </div>
</body>
</html>`
