package migrate

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/notekeeper/migrations"
)

func TestFiles_EmbeddedAndAnnotated(t *testing.T) {
	files, err := Files()
	require.NoError(t, err)
	require.Equal(t, []string{
		"00001_users.sql",
		"00002_logins.sql",
		"00003_notes.sql",
		"00004_login_attempts.sql",
	}, files)

	for _, f := range files {
		b, err := fs.ReadFile(migrations.FS, f)
		require.NoError(t, err)
		require.True(t, strings.Contains(string(b), "-- +goose Up"), f)
		require.True(t, strings.Contains(string(b), "-- +goose Down"), f)
	}
}

func TestLoginsTableKeyedByUIDAndToken(t *testing.T) {
	b, err := fs.ReadFile(migrations.FS, "00002_logins.sql")
	require.NoError(t, err)
	require.Contains(t, string(b), "PRIMARY KEY (uid, token)")
}
