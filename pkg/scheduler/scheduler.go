package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jakechorley/whoseonfirst/internal/config"
	"github.com/jakechorley/whoseonfirst/pkg/core/rotation"
	"github.com/jakechorley/whoseonfirst/pkg/core/services"
)

// Store defines the database operations needed by the background jobs
type Store interface {
	services.GenerateScheduleStore
	services.ScheduleQueryStore
	services.OverrideStore
	services.WeeklySummaryStore
	FurthestAssignmentEnd(ctx context.Context) (time.Time, bool, error)
}

// RenewalResult reports what an auto-renewal run did
type RenewalResult struct {
	Renewed        bool
	WeeksRemaining float64
	Generated      int
	Reason         string
}

// Manager owns the cron runner and exposes its jobs for manual triggering
type Manager struct {
	cron       *cron.Cron
	store      Store
	dispatcher *services.Dispatcher
	settings   *services.Settings
	cfg        *config.Config
	logger     *zap.Logger
	loc        *time.Location
}

// cronLogger adapts zap to the cron.Logger interface
type cronLogger struct {
	logger *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

// NewManager builds the cron runner and registers the four background jobs:
// daily shift notifications, schedule auto-renewal, the weekly summary
// digest, and the override completion sweep. Jobs skip their run if the
// previous one is still going.
func NewManager(cfg *config.Config, store Store, dispatcher *services.Dispatcher, settings *services.Settings, logger *zap.Logger) (*Manager, error) {
	loc := cfg.Location()
	cl := cronLogger{logger: logger.Named("cron")}

	m := &Manager{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		store:      store,
		dispatcher: dispatcher,
		settings:   settings,
		cfg:        cfg,
		logger:     logger,
		loc:        loc,
	}

	jobs := []struct {
		name string
		expr string
		run  func(ctx context.Context)
	}{
		{"daily_notifications", cfg.Jobs.DailyNotifications, func(ctx context.Context) {
			if _, err := m.RunDailyNotifications(ctx, false); err != nil {
				logger.Error("Daily notification job failed", zap.Error(err))
			}
		}},
		{"auto_renewal", cfg.Jobs.AutoRenewal, func(ctx context.Context) {
			if _, err := m.RunAutoRenewal(ctx); err != nil {
				logger.Error("Auto-renewal job failed", zap.Error(err))
			}
		}},
		{"weekly_summary", cfg.Jobs.WeeklySummary, func(ctx context.Context) {
			if err := m.RunWeeklySummary(ctx); err != nil {
				logger.Error("Weekly summary job failed", zap.Error(err))
			}
		}},
		{"override_sweep", cfg.Jobs.OverrideSweep, func(ctx context.Context) {
			if _, err := m.RunOverrideSweep(ctx); err != nil {
				logger.Error("Override sweep job failed", zap.Error(err))
			}
		}},
	}

	for _, job := range jobs {
		run := job.run
		name := job.name
		_, err := m.cron.AddFunc(job.expr, func() {
			logger.Debug("Running scheduled job", zap.String("job", name))
			run(context.Background())
		})
		if err != nil {
			return nil, fmt.Errorf("failed to register %s job: %w", name, err)
		}
	}

	return m, nil
}

// Start begins running the scheduled jobs
func (m *Manager) Start() {
	m.cron.Start()
	m.logger.Info("Scheduler started", zap.String("timezone", m.loc.String()))
}

// Stop stops the scheduler and waits for running jobs to finish
func (m *Manager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.logger.Info("Scheduler stopped")
}

// RunDailyNotifications dispatches shift-start notifications for today's
// un-notified assignments. force resends even already-notified ones.
func (m *Manager) RunDailyNotifications(ctx context.Context, force bool) (*services.BatchResult, error) {
	now := time.Now().In(m.loc)

	pending, err := services.PendingNotifications(ctx, m.store, now)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		m.logger.Info("No pending notifications today")
		return &services.BatchResult{}, nil
	}

	result := m.dispatcher.SendBatch(ctx, pending, force)
	m.logger.Info("Daily notification run finished",
		zap.Int("total", result.Total),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// RunAutoRenewal extends the schedule when coverage runs low. When the
// furthest assignment ends within the configured threshold, a new block of
// weeks is generated starting where the schedule leaves off.
func (m *Manager) RunAutoRenewal(ctx context.Context) (*RenewalResult, error) {
	enabled, thresholdWeeks, renewWeeks, err := m.settings.AutoRenew(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch auto-renew settings: %w", err)
	}
	if !enabled {
		return &RenewalResult{Reason: "auto-renewal disabled"}, nil
	}

	furthest, ok, err := m.store.FurthestAssignmentEnd(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &RenewalResult{Reason: "no assignments exist"}, nil
	}

	now := time.Now().In(m.loc)
	weeksRemaining := furthest.Sub(now).Hours() / (24 * 7)
	if weeksRemaining > float64(thresholdWeeks) {
		return &RenewalResult{WeeksRemaining: weeksRemaining, Reason: "sufficient coverage"}, nil
	}

	m.logger.Info("Schedule coverage low, renewing",
		zap.Float64("weeks_remaining", weeksRemaining),
		zap.Int("renew_weeks", renewWeeks))

	// A shift configuration that stops short of Sunday leaves the final
	// generated rows inside the week containing furthest; start the renewal
	// one week later so generation does not collide with them.
	renewStart := rotation.WeekStart(furthest.In(m.loc))
	tail, err := m.store.GetAssignmentsByDateRange(ctx, renewStart, renewStart.AddDate(0, 0, 7))
	if err != nil {
		return nil, fmt.Errorf("failed to check schedule tail: %w", err)
	}
	for _, a := range tail {
		if !a.StartAt.Before(renewStart) {
			renewStart = renewStart.AddDate(0, 0, 7)
			break
		}
	}

	result, err := services.GenerateSchedule(ctx, m.store, m.logger, renewStart, renewWeeks, false)
	if err != nil {
		return nil, fmt.Errorf("failed to renew schedule: %w", err)
	}

	return &RenewalResult{
		Renewed:        true,
		WeeksRemaining: weeksRemaining,
		Generated:      len(result.Assignments),
	}, nil
}

// RunWeeklySummary composes the digest for the upcoming week and sends it to
// the escalation contacts
func (m *Manager) RunWeeklySummary(ctx context.Context) error {
	enabled, err := m.settings.WeeklySummaryEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch summary settings: %w", err)
	}
	if !enabled {
		m.logger.Info("Weekly summary disabled, skipping")
		return nil
	}
	escalationOn, err := m.settings.EscalationEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch escalation settings: %w", err)
	}
	if !escalationOn {
		m.logger.Warn("Escalation contacts disabled, skipping summary")
		return nil
	}

	weekStart := SummaryWeekStart(time.Now().In(m.loc), m.cfg.Jobs.SummaryHour)

	body, err := services.ComposeWeeklySummary(ctx, m.store, weekStart)
	if err != nil {
		return err
	}

	outcomes, err := services.SendWeeklySummary(ctx, m.dispatcher, m.logger, body)
	if err != nil {
		return err
	}

	m.logger.Info("Weekly summary run finished",
		zap.Time("week_start", weekStart),
		zap.Int("contacts", len(outcomes)))
	return nil
}

// RunOverrideSweep completes active overrides whose assignments have ended
func (m *Manager) RunOverrideSweep(ctx context.Context) (int64, error) {
	now := time.Now().In(m.loc)
	return services.CompletePastOverrides(ctx, m.store, m.logger, now)
}

// SummaryWeekStart picks the Monday the summary digest covers. On Monday
// before the send hour the digest covers the running week; any later, the
// following week.
func SummaryWeekStart(now time.Time, summaryHour int) time.Time {
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	daysUntilMonday := (7 - daysSinceMonday) % 7
	if daysUntilMonday == 0 && now.Hour() > summaryHour {
		daysUntilMonday = 7
	}
	d := now.AddDate(0, 0, daysUntilMonday)
	return rotation.WeekStart(time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, now.Location()))
}
