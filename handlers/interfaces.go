package handlers

import (
	"context"

	"github.com/NomadCrew/feedback-hub-backend/types"
)

// FeedbackBoard is the part of services.FeedbackBoard the HTTP layer drives.
type FeedbackBoard interface {
	Submit(ctx context.Context, formID string, draft types.FeedbackDraft) (*types.FeedbackRecord, error)
	Latest(ctx context.Context) types.LatestState
}

// HealthChecker reports process and dependency health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) types.HealthCheck
	IsReady(ctx context.Context) bool
}
