package service

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/NomadCrew/feedback-hub-backend/errors"
	"github.com/NomadCrew/feedback-hub-backend/internal/store"
	"github.com/NomadCrew/feedback-hub-backend/models/feedback/validation"
	"github.com/NomadCrew/feedback-hub-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

func validDraft() types.FeedbackDraft {
	return types.FeedbackDraft{
		Name:     "  Ada Lovelace ",
		Email:    " Ada@Example.COM ",
		Rating:   5,
		Category: types.CategoryFeature,
		Message:  "   ",
	}
}

func TestSubmissionService_Submit(t *testing.T) {
	provider := new(MockProvider)
	svc := NewSubmissionService(provider, WithClock(func() time.Time { return fixedNow }))

	provider.On("Append", mock.Anything, mock.MatchedBy(func(rec *types.FeedbackRecord) bool {
		return rec.Name == "Ada Lovelace" &&
			rec.Email == "ada@example.com" &&
			rec.Rating == 5 &&
			rec.Category == types.CategoryFeature &&
			rec.Message == nil &&
			rec.CreatedAt.Equal(fixedNow)
	})).Return("fb-1", nil).Once()

	rec, err := svc.Submit(context.Background(), validDraft())
	require.NoError(t, err)
	assert.Equal(t, "fb-1", rec.ID)
	assert.Equal(t, "ada@example.com", rec.Email)
	provider.AssertNumberOfCalls(t, "Append", 1)
}

func TestSubmissionService_Submit_InvalidDraftNeverReachesProvider(t *testing.T) {
	tests := []struct {
		name  string
		draft types.FeedbackDraft
		want  error
	}{
		{"blank name", types.FeedbackDraft{Name: "  ", Email: "a@b", Rating: 3, Category: types.CategoryUI}, validation.ErrMissingName},
		{"email without at", types.FeedbackDraft{Name: "A", Email: "ab", Rating: 3, Category: types.CategoryUI}, validation.ErrInvalidEmail},
		{"no rating", types.FeedbackDraft{Name: "A", Email: "a@b", Category: types.CategoryUI}, validation.ErrMissingRating},
		{"no category", types.FeedbackDraft{Name: "A", Email: "a@b", Rating: 3}, validation.ErrMissingCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := new(MockProvider)
			svc := NewSubmissionService(provider)

			rec, err := svc.Submit(context.Background(), tt.draft)
			assert.Nil(t, rec)
			assert.ErrorIs(t, err, tt.want)
			provider.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		})
	}
}

func TestSubmissionService_Submit_PersistenceFailure(t *testing.T) {
	provider := new(MockProvider)
	svc := NewSubmissionService(provider)
	cause := errors.New("network unreachable")
	provider.On("Append", mock.Anything, mock.Anything).Return("", cause).Once()

	rec, err := svc.Submit(context.Background(), validDraft())
	assert.Nil(t, rec)
	assert.True(t, apperrors.IsType(err, apperrors.PersistenceError))
	assert.ErrorIs(t, err, cause)
}

func TestSubmissionService_Submit_EmptyIDIsAFailure(t *testing.T) {
	provider := new(MockProvider)
	svc := NewSubmissionService(provider)
	provider.On("Append", mock.Anything, mock.Anything).Return("", nil).Once()

	_, err := svc.Submit(context.Background(), validDraft())
	assert.True(t, apperrors.IsType(err, apperrors.PersistenceError))
	assert.ErrorIs(t, err, store.ErrNoRecordID)
}

func TestSubmissionService_Submit_DetachedFromCallerCancellation(t *testing.T) {
	provider := new(MockProvider)
	svc := NewSubmissionService(provider, WithWriteTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider.On("Append", mock.MatchedBy(func(ctx context.Context) bool {
		_, hasDeadline := ctx.Deadline()
		return ctx.Err() == nil && hasDeadline
	}), mock.Anything).Return("fb-2", nil).Once()

	rec, err := svc.Submit(ctx, validDraft())
	require.NoError(t, err)
	assert.Equal(t, "fb-2", rec.ID)
	provider.AssertExpectations(t)
}

func TestNormalize(t *testing.T) {
	local := time.Date(2025, 6, 1, 12, 30, 0, 0, time.FixedZone("CEST", 2*60*60))
	rec := Normalize(types.FeedbackDraft{
		Name:     " Grace ",
		Email:    " GRACE@Navy.MIL",
		Rating:   2,
		Category: types.CategoryPerformance,
		Message:  "  slow on mobile  ",
	}, local)

	assert.Equal(t, "Grace", rec.Name)
	assert.Equal(t, "grace@navy.mil", rec.Email)
	assert.Equal(t, 2, rec.Rating)
	assert.Equal(t, types.CategoryPerformance, rec.Category)
	require.NotNil(t, rec.Message)
	assert.Equal(t, "slow on mobile", *rec.Message)
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())
	assert.True(t, rec.CreatedAt.Equal(local))
}

func TestNormalize_CreatedAtKeepsMicroseconds(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 30, 0, 123456789, time.UTC)
	rec := Normalize(validDraft(), now)

	assert.Equal(t, 123456000, rec.CreatedAt.Nanosecond())
	assert.True(t, rec.CreatedAt.Equal(now.Truncate(time.Microsecond)))
}

func TestSubmissionService_Submit_ReturnsStoredTimestamp(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 30, 0, 999999999, time.UTC)
	provider := new(MockProvider)
	svc := NewSubmissionService(provider, WithClock(func() time.Time { return now }))

	var stored time.Time
	provider.On("Append", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*types.FeedbackRecord).CreatedAt }).
		Return("fb-3", nil).Once()

	rec, err := svc.Submit(context.Background(), validDraft())
	require.NoError(t, err)
	assert.Equal(t, stored, rec.CreatedAt)
	assert.Zero(t, rec.CreatedAt.Nanosecond()%int(time.Microsecond))
}
