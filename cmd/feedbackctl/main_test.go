package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/NomadCrew/feedback-hub-backend/models/feedback/validation"
	"github.com/NomadCrew/feedback-hub-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("FEEDBACK_PROVIDER", "realtime")

	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSubmit_RejectsInvalidDraftBeforeConnecting(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"missing name", []string{"submit", "--email", "ada@example.com"}, validation.ErrMissingName},
		{"invalid email", []string{"submit", "--name", "Ada", "--email", "ada"}, validation.ErrInvalidEmail},
		{"rating out of range", []string{"submit", "--name", "Ada", "--email", "a@b", "--rating", "9", "--category", "UI"}, validation.ErrInvalidRating},
		{"unknown category", []string{"submit", "--name", "Ada", "--email", "a@b", "--rating", "3", "--category", "Billing"}, validation.ErrInvalidCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Empty(t, out)
		})
	}
}

func TestMigrateDown_RejectsNonPositiveSteps(t *testing.T) {
	_, err := execute(t, "migrate", "down", "--steps", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps must be positive")
}

func TestRoot_RejectsUnknownProvider(t *testing.T) {
	var out bytes.Buffer
	t.Setenv("FEEDBACK_PROVIDER", "filesystem")
	root := newRootCmd(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"latest"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown feedback provider")
}

func TestRefreshes_StartsAtZero(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := refreshes(ctx, 0, nil)
	assert.Equal(t, uint64(0), <-ch)

	select {
	case v := <-ch:
		t.Fatalf("unexpected refresh %d", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRefreshes_BumpsOnRemoteEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	remote := make(chan types.Event)
	ch := refreshes(ctx, 0, remote)
	require.Equal(t, uint64(0), <-ch)

	remote <- types.Event{Type: types.EventTypeFeedbackSubmitted, InstanceID: "other"}
	select {
	case v := <-ch:
		assert.Equal(t, uint64(1), v)
	case <-time.After(time.Second):
		t.Fatal("no refresh after remote event")
	}
}

func TestRefreshes_Polls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := refreshes(ctx, 10*time.Millisecond, nil)
	require.Equal(t, uint64(0), <-ch)

	select {
	case v := <-ch:
		assert.Greater(t, v, uint64(0))
	case <-time.After(time.Second):
		t.Fatal("no refresh from ticker")
	}
}

func TestConfigTemplate_SkipsConfigLoading(t *testing.T) {
	t.Setenv("FEEDBACK_PROVIDER", "filesystem")

	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"config", "template", "--env", "production"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "environment: production")
}
