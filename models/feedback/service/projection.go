package service

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/NomadCrew/feedback-hub-backend/errors"
	"github.com/NomadCrew/feedback-hub-backend/internal/store"
	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/NomadCrew/feedback-hub-backend/models/feedback"
	"github.com/NomadCrew/feedback-hub-backend/types"
	"go.uber.org/zap"
)

var errFeedClosed = errors.New("feedback subscription closed")

// LatestProjection derives the "most recent feedback" display state from a
// provider. It never writes.
type LatestProjection struct {
	provider     store.FeedbackProvider
	fetchTimeout time.Duration
	log          *zap.SugaredLogger
	metrics      *metrics
}

func NewLatestProjection(provider store.FeedbackProvider, fetchTimeout time.Duration) *LatestProjection {
	return &LatestProjection{
		provider:     provider,
		fetchTimeout: fetchTimeout,
		log:          logger.GetLogger().Named("feedback_projection"),
		metrics:      newMetrics(),
	}
}

// Current derives the state once. Read failures yield the unavailable state.
func (p *LatestProjection) Current(ctx context.Context) types.LatestState {
	return p.fetch(ctx, 0)
}

func (p *LatestProjection) fetch(ctx context.Context, version uint64) types.LatestState {
	if p.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.fetchTimeout)
		defer cancel()
	}

	rec, err := p.provider.FetchLatest(ctx)
	if err != nil {
		return p.unavailable(err, version)
	}
	return p.derive(rec, version)
}

func (p *LatestProjection) derive(rec *types.FeedbackRecord, version uint64) types.LatestState {
	state := types.LatestState{Status: types.LatestEmpty, Version: version}
	if rec != nil {
		state = types.LatestState{Status: types.LatestPresent, Feedback: rec, Version: version}
	}
	p.metrics.derivations.WithLabelValues(string(state.Status)).Inc()
	return state
}

func (p *LatestProjection) unavailable(err error, version uint64) types.LatestState {
	p.log.Errorw("Failed to derive latest feedback",
		"provider", p.provider.Name(),
		"version", version,
		"error", apperrors.ProjectionFetchFailed(err))
	p.metrics.derivations.WithLabelValues(string(types.LatestUnavailable)).Inc()
	return types.LatestState{Status: types.LatestUnavailable, Version: version}
}

// Watch starts a refresh cycle for every version received on refresh; the
// caller sends the current version first. Each cycle emits loading and then
// the derived state. Providers that push snapshots are subscribed for the
// length of a cycle, and each pushed snapshot yields a new state. The
// subscription is released before the next cycle acquires one and when ctx
// ends. The returned channel is closed once ctx is done or refresh is closed.
func (p *LatestProjection) Watch(ctx context.Context, refresh <-chan uint64) <-chan types.LatestState {
	out := make(chan types.LatestState)
	go func() {
		defer close(out)
		p.metrics.activeWatchers.Inc()
		defer p.metrics.activeWatchers.Dec()

		subscriber, live := p.provider.(store.FeedbackSubscriber)

		var (
			version uint64
			ok      bool
		)
		select {
		case <-ctx.Done():
			return
		case version, ok = <-refresh:
			if !ok {
				return
			}
		}

		for {
			if !p.emit(ctx, out, types.LatestState{Status: types.LatestLoading, Version: version}) {
				return
			}

			var next uint64
			if live {
				next, ok = p.runLiveCycle(ctx, subscriber, version, refresh, out)
			} else {
				next, ok = p.runFetchCycle(ctx, version, refresh, out)
			}
			if !ok {
				return
			}
			version = next
		}
	}()
	return out
}

// runFetchCycle derives once, then waits for the next refresh value.
func (p *LatestProjection) runFetchCycle(ctx context.Context, version uint64, refresh <-chan uint64, out chan<- types.LatestState) (uint64, bool) {
	if !p.emit(ctx, out, p.fetch(ctx, version)) {
		return 0, false
	}
	return waitRefresh(ctx, refresh)
}

// runLiveCycle holds one subscription until the refresh value changes or ctx ends.
func (p *LatestProjection) runLiveCycle(ctx context.Context, sub store.FeedbackSubscriber, version uint64, refresh <-chan uint64, out chan<- types.LatestState) (uint64, bool) {
	cycleCtx, cancel := context.WithCancel(ctx)
	snapshots, err := sub.Subscribe(cycleCtx)
	if err != nil {
		cancel()
		if !p.emit(ctx, out, p.unavailable(err, version)) {
			return 0, false
		}
		return waitRefresh(ctx, refresh)
	}

	release := func() {
		cancel()
		for range snapshots {
		}
	}

	for {
		select {
		case <-ctx.Done():
			release()
			return 0, false
		case next, ok := <-refresh:
			release()
			return next, ok
		case records, ok := <-snapshots:
			if !ok {
				cancel()
				if !p.emit(ctx, out, p.unavailable(errFeedClosed, version)) {
					return 0, false
				}
				return waitRefresh(ctx, refresh)
			}
			var rec *types.FeedbackRecord
			if latest, found := feedback.SelectLatest(records); found {
				rec = &latest
			}
			if !p.emit(ctx, out, p.derive(rec, version)) {
				release()
				return 0, false
			}
		}
	}
}

func waitRefresh(ctx context.Context, refresh <-chan uint64) (uint64, bool) {
	select {
	case <-ctx.Done():
		return 0, false
	case v, ok := <-refresh:
		return v, ok
	}
}

func (p *LatestProjection) emit(ctx context.Context, out chan<- types.LatestState, state types.LatestState) bool {
	select {
	case out <- state:
		return true
	case <-ctx.Done():
		return false
	}
}
