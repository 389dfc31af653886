package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsdk/internal/app/db"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	cfg := Config{UserID: "jc", UserToken: "token-1", UserName: "Jc"}
	require.NoError(t, s.Put(ctx, cfg))

	got, err = s.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cfg, *got)
	assert.True(t, got.IsValid())

	cfg.UserToken = "token-2"
	cfg.IsAnonymous = true
	require.NoError(t, s.Put(ctx, cfg))

	got, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, *got)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))

	got, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	exerciseStore(t, NewFileStore(path))
}

func TestFileStoreFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	s := NewFileStore(path)

	require.NoError(t, s.Put(context.Background(), Config{UserID: "jc", UserToken: "t"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Get(context.Background())
	assert.Error(t, err)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	pool, err := db.NewPool(context.Background(), dsn, db.PoolConfig{MaxConns: 2})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := NewPostgresStore(pool, "test-"+t.Name())
	_ = s.Clear(context.Background())
	exerciseStore(t, s)
}

func TestConfigIsValid(t *testing.T) {
	var nilCfg *Config
	assert.False(t, nilCfg.IsValid())
	assert.False(t, (&Config{UserID: "jc"}).IsValid())
	assert.True(t, (&Config{UserID: "jc", UserToken: "t"}).IsValid())
}
