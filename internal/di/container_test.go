package di

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.DefaultConfig(config.Development)
	cfg.Storage.SQLitePath = filepath.Join(dir, "memoryd.db")
	cfg.Storage.VectorIndexPath = filepath.Join(dir, "vectors.bolt")
	cfg.Metrics.Namespace = "memoryd_test"
	return cfg
}

func TestNewBuildsEveryDependency(t *testing.T) {
	cfg := testConfig(t)
	c, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	require.NotNil(t, c.DB)
	require.NotNil(t, c.Vectors)
	require.NotNil(t, c.Entries)
	require.NotNil(t, c.Tags)
	require.NotNil(t, c.Relations)
	require.NotNil(t, c.Conversations)
	require.NotNil(t, c.Episodes)
	require.NotNil(t, c.Locks)
	require.NotNil(t, c.Feedback)
	require.NotNil(t, c.Decisions)
	require.NotNil(t, c.Classifier)
	require.NotNil(t, c.Query)
	require.NotNil(t, c.Capture)
	require.NotNil(t, c.Sweeper)
	require.NotNil(t, c.Coordinator)
	require.NotNil(t, c.Locking)
	require.NotNil(t, c.RateLimiter)
	require.NotNil(t, c.Permission)
	require.NotNil(t, c.Workers)
	require.NotNil(t, c.Notifier)
}

func TestNewRegistersCachesWithCoordinator(t *testing.T) {
	cfg := testConfig(t)
	c, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	require.True(t, c.Coordinator.Registered("query"))
	require.True(t, c.Coordinator.Registered("classification"))
}

func TestNewDefaultsToUnavailableProviders(t *testing.T) {
	cfg := testConfig(t)
	c, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	require.False(t, c.Embedder.IsAvailable())
	require.False(t, c.Extractor.IsAvailable())
}

func TestCloseIsIdempotentSafeToCallOnce(t *testing.T) {
	cfg := testConfig(t)
	c, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Close())
}
