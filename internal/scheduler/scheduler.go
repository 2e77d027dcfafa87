// Package scheduler runs background jobs on cron specs with seconds.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"fxjournal/internal/calc"
	"fxjournal/internal/services"
)

// Runner schedules jobs on a seconds-resolution cron and hands each run a shared
// base context.
type Runner struct {
	cron    *cron.Cron
	log     *zap.SugaredLogger
	baseCtx context.Context
}

// New creates a Runner whose jobs receive baseCtx.
func New(log *zap.SugaredLogger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron:    cron.New(cron.WithSeconds()),
		log:     log,
		baseCtx: baseCtx,
	}
}

// Add registers job under spec, a six-field cron expression or an @-descriptor.
func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		if r.baseCtx.Err() != nil {
			return
		}
		job(r.baseCtx)
	})
}

// Start begins scheduling in the background. It does not block.
func (r *Runner) Start() {
	if r.log != nil {
		r.log.Info("cron started")
	}
	r.cron.Start()
}

// Stop stops scheduling and waits for running jobs to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	if r.log != nil {
		r.log.Info("cron stopped")
	}
}

// SnapshotJob records the performance snapshots of the current month.
func SnapshotJob(snapshots services.SnapshotServicer, now func() time.Time, log *zap.SugaredLogger) func(context.Context) {
	return func(ctx context.Context) {
		at := now()
		month := calc.MonthKey(at)
		n, err := snapshots.RecordSnapshots(month, at)
		if err != nil {
			log.Errorw("snapshot job failed", "month_key", month, "error", err)
			return
		}
		log.Infow("snapshot job finished", "month_key", month, "users", n)
	}
}
