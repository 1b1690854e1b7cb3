package app

import (
	"context"
	"testing"

	"github.com/NomadCrew/feedback-hub-backend/config"
	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func TestOpen_UnknownProvider(t *testing.T) {
	cfg := &config.Config{Provider: config.ProviderConfig{Kind: "filesystem"}}

	res, err := Open(context.Background(), cfg)

	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "filesystem")
}

func TestOpen_Supabase(t *testing.T) {
	cfg := &config.Config{
		Provider: config.ProviderConfig{Kind: config.ProviderSupabase},
		Supabase: config.SupabaseConfig{URL: "https://project.supabase.co", ServiceKey: "service-key"},
	}

	res, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, res.Redis)
	assert.Equal(t, "supabase", res.Provider.Name())
	assert.NoError(t, res.Close())
}

func TestOpen_SupabaseMissingKey(t *testing.T) {
	cfg := &config.Config{
		Provider: config.ProviderConfig{Kind: config.ProviderSupabase},
		Supabase: config.SupabaseConfig{URL: "https://project.supabase.co"},
	}

	_, err := Open(context.Background(), cfg)
	assert.Error(t, err)
}

func TestResources_CloseEmpty(t *testing.T) {
	assert.NoError(t, (&Resources{}).Close())
}
