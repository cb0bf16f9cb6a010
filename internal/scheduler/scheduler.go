// Package scheduler runs the long-lived worker loops. Each loop ticks at its
// own interval and is isolated: a failed or panicking iteration is logged
// and retried on the next tick, never terminating the loop.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nexusglass/nexusglass-backend/internal/clock"
)

// Task is one loop iteration.
type Task func(ctx context.Context) error

// Metrics records loop iterations.
type Metrics interface {
	ObserveIteration(loop string, err error, started time.Time)
}

type loop struct {
	name     string
	interval time.Duration
	task     Task
}

// Scheduler owns the registered loops.
type Scheduler struct {
	logger  *zap.Logger
	metrics Metrics
	loops   []loop
}

// New builds a Scheduler.
func New(metrics Metrics, logger *zap.Logger) *Scheduler {
	return &Scheduler{logger: logger, metrics: metrics}
}

// Register adds a named loop ticking at the given interval.
func (s *Scheduler) Register(name string, interval time.Duration, task Task) {
	s.loops = append(s.loops, loop{name: name, interval: interval, task: task})
}

// Run starts every registered loop and blocks until the context is cancelled
// and all loops have drained.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, l := range s.loops {
		wg.Add(1)
		go func(l loop) {
			defer wg.Done()
			s.runLoop(ctx, l)
		}(l)
	}
	wg.Wait()
}

func (s *Scheduler) runLoop(ctx context.Context, l loop) {
	s.logger.Info("loop started", zap.String("loop", l.name), zap.Duration("interval", l.interval))
	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("loop stopped", zap.String("loop", l.name))
			return
		}

		started := time.Now()
		err := s.runOnce(ctx, l)
		if s.metrics != nil {
			s.metrics.ObserveIteration(l.name, err, started)
		}
		if err != nil && ctx.Err() == nil {
			s.logger.Error("loop iteration failed",
				zap.String("loop", l.name),
				zap.Error(err))
		}

		if err := clock.SleepWithContext(ctx, l.interval); err != nil {
			s.logger.Info("loop stopped", zap.String("loop", l.name))
			return
		}
	}
}

// runOnce converts an iteration panic into an error so one poisoned tick
// cannot take the loop down.
func (s *Scheduler) runOnce(ctx context.Context, l loop) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("loop panic: %v", r)
		}
	}()
	return l.task(ctx)
}
