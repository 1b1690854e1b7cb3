// Package service implements the feedback submission pipeline, the form that
// guards it against double submission, and the latest-feedback projection.
package service

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/NomadCrew/feedback-hub-backend/errors"
	"github.com/NomadCrew/feedback-hub-backend/internal/store"
	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/NomadCrew/feedback-hub-backend/models/feedback/validation"
	"github.com/NomadCrew/feedback-hub-backend/types"
	"go.uber.org/zap"
)

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

// Submitter persists a draft. Form depends on this rather than the concrete service.
type Submitter interface {
	Submit(ctx context.Context, draft types.FeedbackDraft) (*types.FeedbackRecord, error)
}

// SubmissionService validates, normalizes and appends feedback drafts.
type SubmissionService struct {
	provider     store.FeedbackProvider
	now          Clock
	writeTimeout time.Duration
	log          *zap.SugaredLogger
	metrics      *metrics
}

var _ Submitter = (*SubmissionService)(nil)

// SubmissionOption configures a SubmissionService.
type SubmissionOption func(*SubmissionService)

// WithClock replaces the wall clock used to stamp createdAt.
func WithClock(now Clock) SubmissionOption {
	return func(s *SubmissionService) { s.now = now }
}

// WithWriteTimeout bounds each append. Zero disables the bound.
func WithWriteTimeout(d time.Duration) SubmissionOption {
	return func(s *SubmissionService) { s.writeTimeout = d }
}

func NewSubmissionService(provider store.FeedbackProvider, opts ...SubmissionOption) *SubmissionService {
	s := &SubmissionService{
		provider:     provider,
		now:          time.Now,
		writeTimeout: 10 * time.Second,
		log:          logger.GetLogger().Named("feedback_submission"),
		metrics:      newMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates the draft and, when it passes, appends exactly one record.
// A validation failure never reaches the provider. The append runs detached
// from ctx cancellation so a client that goes away cannot abort a write that
// the provider may already have accepted.
func (s *SubmissionService) Submit(ctx context.Context, draft types.FeedbackDraft) (*types.FeedbackRecord, error) {
	if err := validation.ValidateDraft(&draft); err != nil {
		s.metrics.submissions.WithLabelValues("invalid").Inc()
		return nil, err
	}

	rec := Normalize(draft, s.now())

	writeCtx := context.WithoutCancel(ctx)
	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(writeCtx, s.writeTimeout)
		defer cancel()
	}

	start := time.Now()
	id, err := s.provider.Append(writeCtx, &rec)
	s.metrics.appendLatency.WithLabelValues(s.provider.Name()).Observe(time.Since(start).Seconds())
	if err == nil && id == "" {
		err = store.ErrNoRecordID
	}
	if err != nil {
		s.metrics.submissions.WithLabelValues("failed").Inc()
		s.log.Errorw("Failed to append feedback",
			"provider", s.provider.Name(),
			"submitter", logger.MaskEmail(rec.Email),
			"error", err)
		return nil, apperrors.PersistenceFailed(err)
	}

	rec.ID = id
	s.metrics.submissions.WithLabelValues("stored").Inc()
	s.log.Infow("Feedback stored",
		"id", id,
		"provider", s.provider.Name(),
		"rating", rec.Rating,
		"category", rec.Category)
	return &rec, nil
}

// Normalize converts a valid draft into the record that is persisted: name
// trimmed, email trimmed and lowercased, blank message absent, stamped at now.
// createdAt is cut to microseconds, the finest precision every provider keeps,
// so the returned record equals what a later fetch reads back.
func Normalize(d types.FeedbackDraft, now time.Time) types.FeedbackRecord {
	return types.FeedbackRecord{
		Name:      strings.TrimSpace(d.Name),
		Email:     strings.ToLower(strings.TrimSpace(d.Email)),
		Rating:    d.Rating,
		Category:  d.Category,
		Message:   types.OptionalText(&d.Message),
		CreatedAt: now.UTC().Truncate(time.Microsecond),
	}
}
