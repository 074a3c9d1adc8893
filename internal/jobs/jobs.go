// Package jobs runs the periodic sweeps: baseline recalculation so baselines
// decay while a category is quiet, gauge snapshot persistence and feed polling.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rewired-gh/pulsegauge/internal/logger"
	"github.com/rewired-gh/pulsegauge/internal/models"
)

const (
	// persistTimeout bounds a single snapshot save.
	persistTimeout = 30 * time.Second
	// pollTimeout bounds one pass over all feeds.
	pollTimeout = 2 * time.Minute
)

// GaugeSource is the gauge store as seen by the sweeps.
type GaugeSource interface {
	RecalculateAll()
	GetAllGauges() map[models.Category]models.GaugeData
}

// Saver persists gauge snapshots.
type Saver interface {
	SaveGauges(ctx context.Context, gauges []models.GaugeData) error
}

// FeedPoller fetches every upstream feed once.
type FeedPoller interface {
	PollAll(ctx context.Context) error
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron   *cron.Cron
	source GaugeSource
}

// New creates a Scheduler. Overlapping runs of the same job are skipped and
// panics are recovered and logged.
func New(source GaugeSource) *Scheduler {
	l := cronLogger{}
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(l),
			cron.SkipIfStillRunning(l),
		), cron.WithLogger(l)),
		source: source,
	}
}

// AddBaselineSweep schedules RecalculateAll. spec uses cron syntax or
// descriptors such as "@every 60s".
func (s *Scheduler) AddBaselineSweep(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.RecalculateBaselines); err != nil {
		return fmt.Errorf("invalid baseline schedule %q: %w", spec, err)
	}
	logger.Info("Baseline recalculation scheduled (%s)", spec)
	return nil
}

// AddPersistSweep schedules snapshot saves to saver.
func (s *Scheduler) AddPersistSweep(spec string, saver Saver) error {
	job := func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.Persist(ctx, saver); err != nil {
			logger.Warn("Scheduled persistence failed: %v", err)
		}
	}
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("invalid persist schedule %q: %w", spec, err)
	}
	logger.Info("Gauge persistence scheduled (%s)", spec)
	return nil
}

// AddFeedPoll schedules one PollAll per tick.
func (s *Scheduler) AddFeedPoll(spec string, poller FeedPoller) error {
	job := func() {
		ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
		defer cancel()
		if err := poller.PollAll(ctx); err != nil {
			logger.Warn("Feed polling failed: %v", err)
		}
	}
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("invalid feed schedule %q: %w", spec, err)
	}
	logger.Info("Feed polling scheduled (%s)", spec)
	return nil
}

// RecalculateBaselines runs one baseline sweep.
func (s *Scheduler) RecalculateBaselines() {
	start := time.Now()
	s.source.RecalculateAll()
	logger.Debug("Baselines recalculated in %v", time.Since(start))
}

// Persist saves a snapshot of every gauge, ordered by category.
func (s *Scheduler) Persist(ctx context.Context, saver Saver) error {
	all := s.source.GetAllGauges()
	gauges := make([]models.GaugeData, 0, len(all))
	for _, g := range all {
		gauges = append(gauges, g)
	}
	sort.Slice(gauges, func(i, j int) bool { return gauges[i].Category < gauges[j].Category })

	if err := saver.SaveGauges(ctx, gauges); err != nil {
		return fmt.Errorf("failed to persist %d gauges: %w", len(gauges), err)
	}
	return nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.Warn("Timed out waiting for running jobs to finish")
	}
}

// Entries reports how many jobs are scheduled.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// cronLogger routes cron's own logging through the leveled logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: %s: %v %v", msg, err, keysAndValues)
}
