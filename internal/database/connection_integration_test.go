//go:build integration

package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/nocturne/internal/database"
	"github.com/cloo-solutions/nocturne/internal/testutil"
)

func TestMigrateAndConnect(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	dir, err := filepath.Abs("../../migrations")
	require.NoError(t, err)

	require.NoError(t, database.Migrate(pc.ConnectionString(), "file://"+dir))
	// a second run finds nothing to apply
	require.NoError(t, database.Migrate(pc.ConnectionString(), "file://"+dir))

	pool, err := database.NewPool(ctx, database.Config{URL: pc.ConnectionString(), MaxConns: 4})
	require.NoError(t, err)
	defer pool.Close()

	var exists bool
	err = pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'kv_entries')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestNewPool_InvalidURL(t *testing.T) {
	_, err := database.NewPool(context.Background(), database.Config{URL: "://not-a-url"})
	assert.Error(t, err)
}
