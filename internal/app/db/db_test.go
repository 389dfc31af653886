package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolConfigDefaults(t *testing.T) {
	cfg := PoolConfig{}.withDefaults()
	assert.Equal(t, int32(4), cfg.MaxConns)
	assert.Equal(t, int32(1), cfg.MinConns)

	cfg = PoolConfig{MaxConns: 2, MinConns: 8}.withDefaults()
	assert.Equal(t, int32(2), cfg.MaxConns)
	assert.Equal(t, int32(1), cfg.MinConns)
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := embedMigrations.ReadDir("migrations")
	assert.NoError(t, err)
	assert.NotEmpty(t, entries)
}
