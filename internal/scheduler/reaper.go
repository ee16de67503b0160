package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/gallerio/internal/metrics"
	"github.com/robfig/cron/v3"
)

const sweepTimeout = 30 * time.Second

type resetCodeSweeper interface {
	ClearExpiredResetCodes(ctx context.Context, now time.Time) (int64, error)
}

// Reaper nulls out password reset codes whose expiry has passed, so a code
// nobody tried to use does not linger on the identity row.
type Reaper struct {
	repo     resetCodeSweeper
	logger   *slog.Logger
	schedule cron.Schedule
	spec     string
	now      func() time.Time
}

// NewReaper accepts a standard five-field cron expression or a descriptor
// such as "@every 5m".
func NewReaper(repo resetCodeSweeper, logger *slog.Logger, spec string) (*Reaper, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", spec, err)
	}
	return &Reaper{
		repo:     repo,
		logger:   logger.With("component", "reset_code_reaper"),
		schedule: sched,
		spec:     spec,
		now:      time.Now,
	}, nil
}

// Start blocks until ctx is cancelled, then waits for an in-flight sweep.
func (r *Reaper) Start(ctx context.Context) {
	cl := cronLogger{r.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(r.schedule, cron.FuncJob(func() { r.Sweep(ctx) }))
	c.Start()

	r.logger.Info("reaper started", "schedule", r.spec)

	<-ctx.Done()
	<-c.Stop().Done()
	r.logger.Info("reaper shut down")
}

// Sweep runs one pass.
func (r *Reaper) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	start := time.Now()
	cleared, err := r.repo.ClearExpiredResetCodes(ctx, r.now())
	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		r.logger.ErrorContext(ctx, "clear expired reset codes", "error", err)
		return
	}

	metrics.ResetCodesSweptTotal.Add(float64(cleared))
	if cleared > 0 {
		r.logger.InfoContext(ctx, "cleared expired reset codes", "count", cleared)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
