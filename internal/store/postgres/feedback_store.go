package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NomadCrew/feedback-hub-backend/internal/store"
	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/NomadCrew/feedback-hub-backend/types"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ store.FeedbackProvider = (*FeedbackStore)(nil)

const ProviderName = "postgres"

// Pool is the subset of pgxpool.Pool the store needs.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

const (
	upsertUserSQL = `
		INSERT INTO users (name, email)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
		RETURNING id::text`

	// name is copied onto the row so a later submission under the same
	// email cannot change what an earlier record reads back.
	insertFeedbackSQL = `
		INSERT INTO feedback (user_id, name, rating, category, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text`

	latestFeedbackSQL = `
		SELECT f.id::text, f.name, u.email, f.rating, f.category, f.message, f.created_at
		FROM feedback f
		JOIN users u ON u.id = f.user_id
		ORDER BY f.created_at DESC, f.seq ASC
		LIMIT 1`
)

// FeedbackStore stores feedback in PostgreSQL. It owns the pool it is given.
type FeedbackStore struct {
	pool Pool
	log  *zap.SugaredLogger

	closeOnce sync.Once
}

func NewFeedbackStore(pool Pool) *FeedbackStore {
	return &FeedbackStore{
		pool: pool,
		log:  logger.GetLogger().Named("postgres_store"),
	}
}

func (s *FeedbackStore) Name() string {
	return ProviderName
}

// Append upserts the submitter and inserts the feedback row in one transaction.
func (s *FeedbackStore) Append(ctx context.Context, rec *types.FeedbackRecord) (id string, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin feedback transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.log.Warnw("Failed to roll back feedback transaction", "error", rbErr)
			}
		}
	}()

	var userID string
	if err = tx.QueryRow(ctx, upsertUserSQL, rec.Name, rec.Email).Scan(&userID); err != nil {
		return "", fmt.Errorf("upsert feedback submitter: %w", err)
	}

	if err = tx.QueryRow(ctx, insertFeedbackSQL,
		userID, rec.Name, rec.Rating, string(rec.Category), rec.Message, rec.CreatedAt,
	).Scan(&id); err != nil {
		return "", fmt.Errorf("insert feedback: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit feedback transaction: %w", err)
	}

	s.log.Debugw("Feedback row inserted", "id", id, "submitter", logger.MaskEmail(rec.Email))
	return id, nil
}

// FetchLatest returns the newest feedback row with its submitter's email.
func (s *FeedbackStore) FetchLatest(ctx context.Context) (*types.FeedbackRecord, error) {
	var (
		raw       types.RawFeedback
		name      string
		email     string
		rating    int
		category  string
		createdAt time.Time
	)
	err := s.pool.QueryRow(ctx, latestFeedbackSQL).
		Scan(&raw.ID, &name, &email, &rating, &category, &raw.Message, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest feedback: %w", err)
	}

	stamp := createdAt.UTC().Format(types.TimestampLayout)
	raw.Name, raw.Email, raw.Rating, raw.Category, raw.CreatedAt = &name, &email, &rating, &category, &stamp

	rec, err := raw.ToRecord()
	if err != nil {
		s.log.Warnw("Skipping malformed feedback row", "id", raw.ID, "error", err)
		return nil, nil
	}
	return &rec, nil
}

func (s *FeedbackStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *FeedbackStore) Close() error {
	s.closeOnce.Do(s.pool.Close)
	return nil
}
