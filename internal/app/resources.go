// Package app opens the external resources shared by the server and the
// feedbackctl command: the configured feedback provider and, when any
// component needs it, the Redis client.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NomadCrew/feedback-hub-backend/config"
	"github.com/NomadCrew/feedback-hub-backend/db"
	"github.com/NomadCrew/feedback-hub-backend/internal/store"
	"github.com/NomadCrew/feedback-hub-backend/internal/store/postgres"
	"github.com/NomadCrew/feedback-hub-backend/internal/store/realtime"
	"github.com/NomadCrew/feedback-hub-backend/internal/store/supabase"
	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/redis/go-redis/v9"
)

const connectTimeout = 15 * time.Second

// Resources holds the opened provider and its supporting clients.
type Resources struct {
	Provider store.FeedbackProvider
	// Redis is nil unless the realtime provider or the change feed is configured.
	Redis *redis.Client
}

// Open connects to everything cfg selects. On error, whatever was already
// opened is closed again.
func Open(ctx context.Context, cfg *config.Config) (*Resources, error) {
	log := logger.GetLogger()
	res := &Resources{}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if cfg.NeedsRedis() {
		res.Redis = config.NewRedisClient(&cfg.Redis)
		if err := res.Redis.Ping(ctx).Err(); err != nil {
			_ = res.Redis.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Address, err)
		}
		log.Infow("Connected to Redis", "address", cfg.Redis.Address, "db", cfg.Redis.DB)
	}

	provider, err := openProvider(ctx, cfg, res.Redis)
	if err != nil {
		_ = res.Close()
		return nil, err
	}
	res.Provider = provider

	log.Infow("Feedback provider ready", "provider", provider.Name())
	return res, nil
}

func openProvider(ctx context.Context, cfg *config.Config, rdb *redis.Client) (store.FeedbackProvider, error) {
	switch cfg.Provider.Kind {
	case config.ProviderRealtime:
		rcfg := realtime.DefaultConfig()
		rcfg.Collection = cfg.Redis.Collection
		return realtime.NewFeedbackStore(rdb, rcfg), nil

	case config.ProviderSupabase:
		return supabase.NewFeedbackStore(cfg.Supabase.URL, cfg.Supabase.ServiceKey)

	case config.ProviderPostgres:
		if cfg.Database.AutoMigrate {
			if err := db.RunMigrations(cfg.Database.URL()); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		pool, err := config.NewPool(ctx, &cfg.Database, cfg.Server.Environment)
		if err != nil {
			return nil, err
		}
		logger.GetLogger().Infow("Connected to PostgreSQL",
			"database", logger.MaskConnectionString(cfg.Database.URL()))
		return postgres.NewFeedbackStore(pool), nil
	}
	return nil, fmt.Errorf("unknown feedback provider %q", cfg.Provider.Kind)
}

// Close releases the provider before the Redis client it may be using.
func (r *Resources) Close() error {
	var errs []error
	if r.Provider != nil {
		if err := r.Provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s provider: %w", r.Provider.Name(), err))
		}
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
