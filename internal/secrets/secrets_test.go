// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) (string, []string)
		want  Store
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) (string, []string) {
				dir := t.TempDir()
				writeFile(t, dir, "semantic-scholar-api-key", "  sk_xyz789  \n")
				writeFile(t, dir, "openalex-email", "user@example.com\n")
				return dir, nil
			},
			want: Store{
				"semantic-scholar-api-key": "sk_xyz789",
				"openalex-email":           "user@example.com",
			},
		},
		{
			name: "returns empty store for nonexistent directory",
			setup: func(t *testing.T) (string, []string) {
				return filepath.Join(t.TempDir(), "does-not-exist"), nil
			},
			want: Store{},
		},
		{
			name: "skips empty files, dotfiles and subdirectories",
			setup: func(t *testing.T) (string, []string) {
				dir := t.TempDir()
				writeFile(t, dir, "crossref-email", "a@b.org")
				writeFile(t, dir, "empty-key", "   \n\t ")
				writeFile(t, dir, ".hidden-key", "secret")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir, nil
			},
			want: Store{"crossref-email": "a@b.org"},
		},
		{
			name: "merges dotenv files and lets key files win",
			setup: func(t *testing.T) (string, []string) {
				envDir := t.TempDir()
				writeFile(t, envDir, ".env", "OPENALEX_EMAIL=env@example.com\nSQL_DSN=postgres://localhost/cat\n")
				dir := t.TempDir()
				writeFile(t, dir, "openalex-email", "file@example.com")
				return dir, []string{filepath.Join(envDir, ".env"), filepath.Join(envDir, "missing.env")}
			},
			want: Store{
				"openalex-email": "file@example.com",
				"sql-dsn":        "postgres://localhost/cat",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, envFiles := tt.setup(t)
			got, err := Load(dir, envFiles...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStoreGet(t *testing.T) {
	s := Store{"openalex-email": "x@y.org"}
	assert.Equal(t, "x@y.org", s.Get("openalex-email", ""))
	assert.Equal(t, "fallback", s.Get("crossref-email", "fallback"))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}
