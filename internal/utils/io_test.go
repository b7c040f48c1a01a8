package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanDir(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "empty", input: "  ", wantErr: true},
		{name: "traversal", input: "logs/../../etc", wantErr: true},
		{name: "absolute", input: "/var/log/app/", wantErr: false},
		{name: "relative", input: "logs/app", wantErr: false},
		{name: "dotted name is fine", input: "/var/log/app..old", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanDir(tt.input)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(got))
		})
	}
}

func TestEnsureDirAndExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")

	assert.False(t, Exists(dir))
	require.NoError(t, EnsureDir(dir, 0o755))
	assert.True(t, Exists(dir))
	require.NoError(t, EnsureDir(dir, 0o755), "second call is a no-op")
}

func TestLogRoot(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, "/home/tester/logs", LogRoot("/fallback"))

	t.Setenv("HOME", "")
	assert.Equal(t, "/fallback", LogRoot("/fallback"))
}
