// Package supabase implements the feedback provider on a hosted relational
// backend reached through its PostgREST API. Submitters live in a users table
// keyed by email; each feedback row references its submitter.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/NomadCrew/feedback-hub-backend/internal/store"
	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/NomadCrew/feedback-hub-backend/models/feedback"
	"github.com/NomadCrew/feedback-hub-backend/types"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
)

var _ store.FeedbackProvider = (*FeedbackStore)(nil)

const (
	ProviderName = "supabase"

	usersTable    = "users"
	feedbackTable = "feedback"

	// latestColumns embeds the submitter's email through the user_id foreign
	// key. The name comes from the feedback row itself.
	latestColumns = "id,name,rating,category,message,created_at,users(email)"
)

type userRow struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type feedbackInsert struct {
	UserID    string  `json:"user_id"`
	Name      string  `json:"name"`
	Rating    int     `json:"rating"`
	Category  string  `json:"category"`
	Message   *string `json:"message"`
	CreatedAt string  `json:"created_at"`
}

type feedbackRow struct {
	ID        string  `json:"id"`
	Name      *string `json:"name"`
	Rating    *int    `json:"rating"`
	Category  *string `json:"category"`
	Message   *string `json:"message"`
	CreatedAt *string `json:"created_at"`
	User      *struct {
		Email *string `json:"email"`
	} `json:"users"`
}

func (r feedbackRow) raw() types.RawFeedback {
	raw := types.RawFeedback{
		ID:        r.ID,
		Name:      r.Name,
		Rating:    r.Rating,
		Category:  r.Category,
		Message:   r.Message,
		CreatedAt: r.CreatedAt,
	}
	if r.User != nil {
		raw.Email = r.User.Email
	}
	return raw
}

// FeedbackStore writes and reads feedback through the Supabase REST client.
type FeedbackStore struct {
	client *supabase.Client
	log    *zap.SugaredLogger

	mu     sync.Mutex
	closed bool
}

// NewFeedbackStore creates a client for the project at url using the service key.
func NewFeedbackStore(url, serviceKey string) (*FeedbackStore, error) {
	if url == "" || serviceKey == "" {
		return nil, errors.New("supabase url and service key are required")
	}
	client, err := supabase.NewClient(url, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &FeedbackStore{
		client: client,
		log:    logger.GetLogger().Named("supabase_store"),
	}, nil
}

func (s *FeedbackStore) Name() string {
	return ProviderName
}

// Append upserts the submitter by email, then inserts the feedback row
// carrying its own copy of the submitted name.
func (s *FeedbackStore) Append(ctx context.Context, rec *types.FeedbackRecord) (string, error) {
	if s.isClosed() {
		return "", store.ErrProviderClosed
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var users []userRow
	_, err := s.client.From(usersTable).
		Insert(userRow{Name: rec.Name, Email: rec.Email}, true, "email", "representation", "").
		ExecuteTo(&users)
	if err != nil {
		return "", fmt.Errorf("supabase upsert user: %w", err)
	}
	if len(users) == 0 || users[0].ID == "" {
		return "", fmt.Errorf("supabase upsert user: %w", store.ErrNoRecordID)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	var inserted []struct {
		ID string `json:"id"`
	}
	_, err = s.client.From(feedbackTable).
		Insert(feedbackInsert{
			UserID:    users[0].ID,
			Name:      rec.Name,
			Rating:    rec.Rating,
			Category:  string(rec.Category),
			Message:   rec.Message,
			CreatedAt: rec.CreatedAt.UTC().Format(types.TimestampLayout),
		}, false, "", "representation", "").
		ExecuteTo(&inserted)
	if err != nil {
		return "", fmt.Errorf("supabase insert feedback: %w", err)
	}
	if len(inserted) == 0 || inserted[0].ID == "" {
		return "", fmt.Errorf("supabase insert feedback: %w", store.ErrNoRecordID)
	}

	s.log.Debugw("Feedback row inserted", "id", inserted[0].ID, "userID", users[0].ID)
	return inserted[0].ID, nil
}

// FetchLatest asks the backend for the newest row by created_at. A malformed
// newest row yields no record rather than an error.
func (s *FeedbackStore) FetchLatest(ctx context.Context) (*types.FeedbackRecord, error) {
	if s.isClosed() {
		return nil, store.ErrProviderClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []feedbackRow
	_, err := s.client.From(feedbackTable).
		Select(latestColumns, "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("supabase fetch latest feedback: %w", err)
	}

	raws := make([]types.RawFeedback, 0, len(rows))
	for _, row := range rows {
		raws = append(raws, row.raw())
	}
	latest, ok := feedback.SelectLatest(feedback.DecodeRecords(raws, s.log))
	if !ok {
		return nil, nil
	}
	return &latest, nil
}

// Ping issues a minimal read against the feedback table.
func (s *FeedbackStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := s.client.From(feedbackTable).Select("id", "", false).Limit(1, "").Execute()
	return err
}

func (s *FeedbackStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *FeedbackStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
