package sync

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/exp/slog"
)

// SchedulerConfig maps sync-frequency groups to cron expressions.
type SchedulerConfig struct {
	FrequentSpec string
	DailySpec    string
	// Timeout bounds one full run of a group.
	Timeout time.Duration
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.FrequentSpec == "" {
		c.FrequentSpec = "@every 1m"
	}
	if c.DailySpec == "" {
		c.DailySpec = "@every 24h"
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
	return c
}

// Scheduler invokes registered syncers on their group's cadence. The syncer
// set is injected at construction; there is no ambient registry.
type Scheduler struct {
	cron    *cron.Cron
	cfg     SchedulerConfig
	syncers []Syncer
	log     *slog.Logger
}

func NewScheduler(cfg SchedulerConfig, syncers []Syncer, log *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		cfg:     cfg.withDefaults(),
		syncers: syncers,
		log:     log.With("component", "sync_scheduler"),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	for _, group := range []Group{GroupFrequent, GroupDaily} {
		group := group
		spec := s.cfg.FrequentSpec
		if group == GroupDaily {
			spec = s.cfg.DailySpec
		}
		if _, err := s.cron.AddFunc(spec, func() { s.runGroup(ctx, group) }); err != nil {
			return err
		}
	}
	s.cron.Start()
	s.log.Info("scheduler started",
		"frequent", s.cfg.FrequentSpec, "daily", s.cfg.DailySpec)
	return nil
}

func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.log.Info("scheduler stopped")
}

// RunGroup syncs every registered type in the group once, sequentially.
// Failures of one type never block the others.
func (s *Scheduler) RunGroup(ctx context.Context, group Group) {
	s.runGroup(ctx, group)
}

func (s *Scheduler) runGroup(ctx context.Context, group Group) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	for _, syncer := range s.syncers {
		if syncer.Group() != group {
			continue
		}
		res, err := syncer.Sync(ctx)
		switch {
		case errors.Is(err, ErrSyncRunning):
			s.log.Debug("skipping, previous run still in flight", "record_type", syncer.Name())
		case err != nil:
			s.log.Warn("scheduled sync failed",
				"record_type", syncer.Name(), "recoverable", Recoverable(err), "error", err)
		default:
			s.log.Debug("scheduled sync complete",
				"record_type", syncer.Name(),
				"uploaded", res.Uploaded, "downloaded", res.Downloaded,
				"duration", res.Duration)
		}
	}
}
