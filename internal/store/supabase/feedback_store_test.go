package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/NomadCrew/feedback-hub-backend/internal/store"
	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/NomadCrew/feedback-hub-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

// restFake answers the PostgREST routes the store uses.
type restFake struct {
	mu         sync.Mutex
	users      []map[string]any
	feedback   []map[string]any
	latestBody string
	failWith   int
	queries    []string
}

func (f *restFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, r.URL.RawQuery)
	w.Header().Set("Content-Type", "application/json")
	if f.failWith != 0 {
		w.WriteHeader(f.failWith)
		_, _ = w.Write([]byte(`{"code":"XX000","message":"backend unavailable"}`))
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/rest/v1/users":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.users = append(f.users, body)
		body["id"] = "user-1"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode([]map[string]any{body})
	case r.Method == http.MethodPost && r.URL.Path == "/rest/v1/feedback":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.feedback = append(f.feedback, body)
		body["id"] = "fb-1"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode([]map[string]any{body})
	case r.Method == http.MethodGet && r.URL.Path == "/rest/v1/feedback":
		body := f.latestBody
		if body == "" {
			body = "[]"
		}
		_, _ = w.Write([]byte(body))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"PGRST000","message":"not found"}`))
	}
}

func newTestStore(t *testing.T) (*FeedbackStore, *restFake) {
	t.Helper()
	fake := &restFake{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewFeedbackStore(srv.URL, "service-key")
	require.NoError(t, err)
	return s, fake
}

func TestNewFeedbackStore_RequiresCredentials(t *testing.T) {
	_, err := NewFeedbackStore("", "key")
	assert.Error(t, err)
	_, err = NewFeedbackStore("http://localhost", "")
	assert.Error(t, err)
}

func TestFeedbackStore_Append(t *testing.T) {
	s, fake := newTestStore(t)

	rec := &types.FeedbackRecord{
		Name:      "Ada",
		Email:     "ada@example.com",
		Rating:    4,
		Category:  types.CategoryFeature,
		CreatedAt: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	id, err := s.Append(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "fb-1", id)

	require.Len(t, fake.users, 1)
	assert.Equal(t, "ada@example.com", fake.users[0]["email"])
	assert.Equal(t, "Ada", fake.users[0]["name"])
	assert.Contains(t, fake.queries[0], "on_conflict=email")

	require.Len(t, fake.feedback, 1)
	assert.Equal(t, "user-1", fake.feedback[0]["user_id"])
	assert.Equal(t, "Ada", fake.feedback[0]["name"], "the row keeps its own copy of the name")
	assert.EqualValues(t, 4, fake.feedback[0]["rating"])
	assert.Equal(t, "Feature", fake.feedback[0]["category"])
	assert.Nil(t, fake.feedback[0]["message"])
	assert.Equal(t, "2025-01-01T12:00:00Z", fake.feedback[0]["created_at"])
}

func TestFeedbackStore_Append_BackendError(t *testing.T) {
	s, fake := newTestStore(t)
	fake.failWith = http.StatusInternalServerError

	_, err := s.Append(context.Background(), &types.FeedbackRecord{Name: "Ada", Email: "ada@example.com", Rating: 1, Category: types.CategoryUI})
	assert.Error(t, err)
}

func TestFeedbackStore_FetchLatest(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		s, fake := newTestStore(t)
		fake.latestBody = `[{"id":"fb-9","name":"Grace","rating":5,"category":"UI","message":"Smooth","created_at":"2025-01-02T08:30:00.123456+00:00","users":{"email":"grace@example.com"}}]`

		got, err := s.FetchLatest(context.Background())
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "fb-9", got.ID)
		assert.Equal(t, "Grace", got.Name)
		assert.Equal(t, "grace@example.com", got.Email)
		require.NotNil(t, got.Message)
		assert.Equal(t, "Smooth", *got.Message)
		assert.True(t, got.CreatedAt.Equal(time.Date(2025, 1, 2, 8, 30, 0, 123456000, time.UTC)))

		require.NotEmpty(t, fake.queries)
		q := fake.queries[len(fake.queries)-1]
		assert.True(t, strings.Contains(q, "order=created_at.desc"), q)
		assert.Contains(t, q, "limit=1")
		selected, err := url.QueryUnescape(q)
		require.NoError(t, err)
		assert.Contains(t, selected, "users(email)", "the submitter name is not read through the join")
	})

	t.Run("empty", func(t *testing.T) {
		s, _ := newTestStore(t)
		got, err := s.FetchLatest(context.Background())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("malformed row", func(t *testing.T) {
		s, fake := newTestStore(t)
		fake.latestBody = `[{"id":"fb-9","rating":5,"category":"UI","message":null,"created_at":"yesterday","users":null}]`
		got, err := s.FetchLatest(context.Background())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("backend error", func(t *testing.T) {
		s, fake := newTestStore(t)
		fake.failWith = http.StatusServiceUnavailable
		_, err := s.FetchLatest(context.Background())
		assert.Error(t, err)
	})
}

func TestFeedbackStore_Closed(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.Append(context.Background(), &types.FeedbackRecord{})
	assert.ErrorIs(t, err, store.ErrProviderClosed)
	_, err = s.FetchLatest(context.Background())
	assert.ErrorIs(t, err, store.ErrProviderClosed)
}

func TestFeedbackStore_Ping(t *testing.T) {
	s, fake := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))

	fake.failWith = http.StatusBadGateway
	assert.Error(t, s.Ping(context.Background()))
	assert.Equal(t, ProviderName, s.Name())
}
