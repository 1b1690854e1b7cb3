package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToPgx5URL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@localhost:5432/feedback?sslmode=disable", "pgx5://u:p@localhost:5432/feedback?sslmode=disable"},
		{"postgresql://u:p@db/feedback", "pgx5://u:p@db/feedback"},
		{"pgx5://u:p@db/feedback", "pgx5://u:p@db/feedback"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, convertToPgx5URL(tt.in))
	}
}

func TestMigrationFilesArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Equal(t, ups, downs)
	assert.Equal(t, 3, ups)
}

func TestRollbackMigrations_RejectsNonPositiveSteps(t *testing.T) {
	assert.Error(t, RollbackMigrations("postgres://localhost/feedback", 0))
}

func TestMigrations_FeedbackRowsKeepSubmitterName(t *testing.T) {
	up, err := fs.ReadFile(migrationFiles, "migrations/000003_feedback_submitter_name.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "ADD COLUMN IF NOT EXISTS name TEXT")
	assert.Contains(t, string(up), "SET NOT NULL")

	down, err := fs.ReadFile(migrationFiles, "migrations/000003_feedback_submitter_name.down.sql")
	require.NoError(t, err)
	assert.Contains(t, string(down), "DROP COLUMN IF EXISTS name")
}
