package scheduler

import (
	"context"
	"fmt"

	apptdomain "franchise_crm/internal/appointments/domain"
	"franchise_crm/platform/config"
	"franchise_crm/platform/logger"

	"github.com/hibiken/asynq"
)

// KPISnapshotCron rolls up the previous day shortly after local midnight.
const KPISnapshotCron = "5 0 * * *"

// Periodic registers cron tasks with asynq.
type Periodic struct {
	scheduler *asynq.Scheduler
	queue     string
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	p := &Periodic{
		scheduler: asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: apptdomain.Local}),
		queue:     queueName(cfg),
		log:       log,
	}

	task, err := NewKPISnapshotTask(KPISnapshotPayload{})
	if err != nil {
		return nil, err
	}
	entryID, err := p.scheduler.Register(KPISnapshotCron, task, asynq.Queue(p.queue), asynq.MaxRetry(3))
	if err != nil {
		return nil, fmt.Errorf("register kpi snapshot: %w", err)
	}
	log.Info("periodic task registered", "task", TaskKPISnapshot, "cron", KPISnapshotCron, "entry_id", entryID)
	return p, nil
}

// Run keeps the cron entries firing until ctx is cancelled.
func (p *Periodic) Run(ctx context.Context) error {
	if err := p.scheduler.Start(); err != nil {
		return fmt.Errorf("start periodic scheduler: %w", err)
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
	p.log.Info("periodic scheduler stopped")
	return nil
}
