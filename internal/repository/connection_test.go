package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"backoffice/internal/config"
	"backoffice/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectKind(t *testing.T) {
	tests := []struct {
		name       string
		remote     config.RemoteConfig
		serverless bool
		expected   Kind
		missing    bool
	}{
		{name: "Nothing Set", expected: KindLocal},
		{name: "Credentials", remote: config.RemoteConfig{URL: "libsql://db.example.io", AuthToken: "t"}, expected: KindRemote},
		{name: "Credentials On Serverless", remote: config.RemoteConfig{URL: "libsql://db.example.io", AuthToken: "t"}, serverless: true, expected: KindRemote},
		{name: "Serverless Without Credentials", serverless: true, expected: KindRemote, missing: true},
		{name: "URL Without Token", remote: config.RemoteConfig{URL: "libsql://db.example.io"}, expected: KindRemote, missing: true},
		{name: "Token Without URL", remote: config.RemoteConfig{AuthToken: "t"}, expected: KindRemote, missing: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Remote = tc.remote
			cfg.Runtime.Serverless = tc.serverless

			kind, err := SelectKind(cfg)
			assert.Equal(t, tc.expected, kind)
			if tc.missing {
				assert.True(t, errors.Is(err, shared.ErrMissingCredentials))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSelectKind_ErrorNamesMissingSetting(t *testing.T) {
	cfg := config.Default()
	cfg.Runtime.Serverless = true
	cfg.Remote.URL = "libsql://db.example.io"

	_, err := SelectKind(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TURSO_AUTH_TOKEN")
	assert.NotContains(t, err.Error(), "TURSO_DATABASE_URL")
}

func TestConnect(t *testing.T) {
	ctx := context.Background()
	t.Cleanup(func() { _ = Shutdown() })

	t.Run("Failed Attempt Can Be Retried", func(t *testing.T) {
		dir := t.TempDir()
		// a regular file where the data directory should be
		blocker := filepath.Join(dir, "data")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

		cfg := config.Default()
		cfg.Database.Path = filepath.Join(blocker, "backoffice.db")
		_, err := Connect(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "creating data directory")

		cfg.Database.Path = filepath.Join(dir, "ok", "backoffice.db")
		b, err := Connect(ctx, cfg)
		require.NoError(t, err)
		assert.Equal(t, KindLocal, b.Kind())
		require.NoError(t, Shutdown())
	})

	t.Run("Same Handle Until Shutdown", func(t *testing.T) {
		cfg := config.Default()
		cfg.Database.Path = filepath.Join(t.TempDir(), "backoffice.db")

		first, err := Connect(ctx, cfg)
		require.NoError(t, err)

		// a different configuration does not open a second connection
		other := config.Default()
		other.Database.Path = filepath.Join(t.TempDir(), "other.db")
		second, err := Connect(ctx, other)
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.NoFileExists(t, other.Database.Path)

		require.NoError(t, Shutdown())
		assert.NoError(t, Shutdown(), "second shutdown is a no-op")

		third, err := Connect(ctx, other)
		require.NoError(t, err)
		assert.NotSame(t, first, third)
		require.NoError(t, Shutdown())
	})

	t.Run("Missing Credentials Is Fatal", func(t *testing.T) {
		cfg := config.Default()
		cfg.Runtime.Serverless = true

		b, err := Connect(ctx, cfg)
		assert.Nil(t, b)
		assert.True(t, errors.Is(err, shared.ErrMissingCredentials))
	})
}
