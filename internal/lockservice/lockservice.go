// Package lockservice wraps repository.LockRepository with a cron-scheduled
// expiry sweep, mirroring the memory coordinator's accounting cadence
// (spec section 4.5.2: "a scheduled cleanupExpiredLocks() reports the
// number purged"). Grounded on the teacher's
// internal/repository/optimistic_lock.go compare-and-swap idiom, which the
// repository layer already adapts; this package only adds the scheduling.
package lockservice

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/domain/lock"
	apperrors "github.com/agentmemory/memoryd/internal/errors"
	"github.com/agentmemory/memoryd/internal/repository"
)

// Service is the file-lock lease API exposed to MCP handlers.
type Service struct {
	repo *repository.LockRepository
	cron *cron.Cron
	log  *zap.Logger
}

// New constructs a Service and starts its cron-scheduled GC sweep at
// checkIntervalMs, sharing the coordinator's default cadence unless
// overridden.
func New(repo *repository.LockRepository, checkIntervalMs int, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{repo: repo, cron: cron.New(), log: log}
	if checkIntervalMs <= 0 {
		checkIntervalMs = 60_000
	}
	_, err := s.cron.AddFunc(everySpec(checkIntervalMs), s.sweep)
	if err != nil {
		log.Error("lockservice: failed to schedule expiry sweep", zap.Error(err))
	}
	s.cron.Start()
	return s
}

// Stop halts the GC sweep.
func (s *Service) Stop() { s.cron.Stop() }

// Checkout acquires a lease on filePath for agent.
func (s *Service) Checkout(ctx context.Context, filePath, agent string, expiresIn time.Duration) (lock.FileLock, *apperrors.UnifiedError) {
	return s.repo.Checkout(ctx, filePath, agent, expiresIn)
}

// Release drops agent's lease on filePath.
func (s *Service) Release(ctx context.Context, filePath, agent string) *apperrors.UnifiedError {
	return s.repo.Release(ctx, filePath, agent)
}

// Get returns the live lease on filePath, nil if none or expired.
func (s *Service) Get(ctx context.Context, filePath string) (*lock.FileLock, *apperrors.UnifiedError) {
	return s.repo.Get(ctx, filePath)
}

// sweep runs one GC pass in the background, logging the purge count.
func (s *Service) sweep() {
	purged, uerr := s.repo.CleanupExpired(context.Background())
	if uerr != nil {
		s.log.Error("lockservice: expiry sweep failed", zap.Error(uerr))
		return
	}
	if purged > 0 {
		s.log.Info("lockservice: purged expired leases", zap.Int("count", purged))
	}
}

func everySpec(intervalMs int) string {
	return "@every " + (time.Duration(intervalMs) * time.Millisecond).String()
}
