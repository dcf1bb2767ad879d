// Package retention schedules the periodic sweep that prunes orchestrator
// events and provider logs past their retention window, in case a given
// store's own write-path pruning falls behind.
package retention

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper is implemented by any store capable of on-demand pruning.
type Sweeper interface {
	Prune(ctx context.Context) error
}

// Scheduler runs one or more named Sweepers on a cron schedule. Each
// sweeper is protected by a per-name lock so a slow tick can't overlap
// itself.
type Scheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	sweepers map[string]Sweeper
	locks    map[string]*sync.Mutex
	logger   *zap.Logger
	cancel   context.CancelFunc
}

// NewScheduler builds a Scheduler.
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sweepers: make(map[string]Sweeper),
		locks:    make(map[string]*sync.Mutex),
		logger:   logger,
	}
}

// Register adds a named sweeper. Must be called before Start.
func (s *Scheduler) Register(name string, sweeper Sweeper) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sweepers[name]; exists {
		return fmt.Errorf("retention: duplicate sweeper name %q", name)
	}
	s.sweepers[name] = sweeper
	s.locks[name] = &sync.Mutex{}
	return nil
}

// Start schedules every registered sweeper to run on spec (a standard
// five-field cron expression).
func (s *Scheduler) Start(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.cron = cron.New()

	for name, sweeper := range s.sweepers {
		name, sweeper := name, sweeper
		lock := s.locks[name]

		_, err := s.cron.AddFunc(spec, func() {
			if !lock.TryLock() {
				s.logger.Warn("retention: sweep still running, skipping tick", zap.String("sweeper", name))
				return
			}
			defer lock.Unlock()

			if err := sweeper.Prune(ctx); err != nil {
				s.logger.Error("retention: sweep failed", zap.String("sweeper", name), zap.Error(err))
			}
		})
		if err != nil {
			cancel()
			return fmt.Errorf("retention: invalid schedule %q: %w", spec, err)
		}
	}

	s.cron.Start()
	s.logger.Info("retention: scheduler started", zap.Int("sweepers", len(s.sweepers)))
	return nil
}

// Stop cancels in-flight sweeps and waits for the cron engine to drain.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.logger.Info("retention: scheduler stopped")
	}
}
