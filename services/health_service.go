package services

import (
	"context"
	"fmt"
	"time"

	"github.com/NomadCrew/feedback-hub-backend/internal/store"
	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/NomadCrew/feedback-hub-backend/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// checkTimeout bounds every component probe.
const checkTimeout = 3 * time.Second

type HealthService struct {
	provider          store.FeedbackProvider
	redisClient       *redis.Client
	version           string
	log               *zap.SugaredLogger
	startTime         time.Time
	activeConnections func() int
}

// NewHealthService reports on the storage provider and, when redisClient is
// non-nil, on the Redis connection backing the change feed.
func NewHealthService(provider store.FeedbackProvider, redisClient *redis.Client, version string) *HealthService {
	return &HealthService{
		provider:    provider,
		redisClient: redisClient,
		version:     version,
		log:         logger.GetLogger().Named("health"),
		startTime:   time.Now(),
	}
}

// SetActiveConnectionsGetter wires the live-stream connection count into health output.
func (h *HealthService) SetActiveConnectionsGetter(getter func() int) {
	h.activeConnections = getter
}

func (h *HealthService) CheckHealth(ctx context.Context) types.HealthCheck {
	health := types.NewHealthCheck(h.version, time.Now(), time.Since(h.startTime))

	health.Add(types.HealthComponentProvider, h.checkProvider(ctx), true)

	// The change feed is best effort; losing it only delays cross-instance refreshes.
	if h.redisClient != nil {
		health.Add(types.HealthComponentRedis, h.checkRedis(ctx), false)
	}

	if h.activeConnections != nil {
		health.Add(types.HealthComponentLiveStream, types.HealthComponent{
			Status:  types.HealthStatusUp,
			Details: fmt.Sprintf("%d active connections", h.activeConnections()),
		}, false)
	}

	return health
}

// IsReady reports whether the storage provider answers.
func (h *HealthService) IsReady(ctx context.Context) bool {
	return h.checkProvider(ctx).Status == types.HealthStatusUp
}

func (h *HealthService) checkProvider(ctx context.Context) types.HealthComponent {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	if err := h.provider.Ping(ctx); err != nil {
		h.log.Errorw("Provider health check failed", "provider", h.provider.Name(), "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Details: fmt.Sprintf("%s provider unreachable", h.provider.Name()),
		}
	}
	return types.HealthComponent{
		Status:    types.HealthStatusUp,
		Details:   h.provider.Name(),
		LatencyMS: time.Since(start).Milliseconds(),
	}
}

func (h *HealthService) checkRedis(ctx context.Context) types.HealthComponent {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		h.log.Errorw("Redis health check failed", "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Details: "Redis connection failed",
		}
	}
	return types.HealthComponent{
		Status:    types.HealthStatusUp,
		LatencyMS: time.Since(start).Milliseconds(),
	}
}
