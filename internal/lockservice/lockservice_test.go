package lockservice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/repository"
	"github.com/agentmemory/memoryd/internal/store/sqlite"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := repository.NewLockRepository(db, zap.NewNop())
	svc := New(repo, 60_000, zap.NewNop())
	t.Cleanup(svc.Stop)
	return svc
}

func TestCheckoutThenReleaseRoundTrips(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, uerr := svc.Checkout(ctx, "src/main.go", "agent-1", time.Hour)
	require.Nil(t, uerr)

	l, uerr := svc.Get(ctx, "src/main.go")
	require.Nil(t, uerr)
	require.NotNil(t, l)
	require.Equal(t, "agent-1", l.CheckedOutBy)

	require.Nil(t, svc.Release(ctx, "src/main.go", "agent-1"))

	l, uerr = svc.Get(ctx, "src/main.go")
	require.Nil(t, uerr)
	require.Nil(t, l)
}

func TestCheckoutBlocksWhileHeldByAnotherAgent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, uerr := svc.Checkout(ctx, "src/main.go", "agent-1", time.Hour)
	require.Nil(t, uerr)

	_, uerr = svc.Checkout(ctx, "src/main.go", "agent-2", time.Hour)
	require.NotNil(t, uerr)
}

func TestSweepPurgesExpiredLease(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, uerr := svc.Checkout(ctx, "src/expired.go", "agent-1", time.Nanosecond)
	require.Nil(t, uerr)
	time.Sleep(2 * time.Millisecond)

	svc.sweep()

	l, uerr := svc.Get(ctx, "src/expired.go")
	require.Nil(t, uerr)
	require.Nil(t, l)
}
