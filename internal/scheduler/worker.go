package scheduler

import (
	"context"
	"fmt"
	"time"

	apptdomain "franchise_crm/internal/appointments/domain"
	"franchise_crm/internal/email"
	"franchise_crm/internal/kpi"
	"franchise_crm/internal/sla"
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/config"
	"franchise_crm/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// SnapshotRunner computes the daily KPI rollup.
type SnapshotRunner interface {
	SnapshotDaily(ctx context.Context, day time.Time) ([]kpi.Snapshot, error)
}

// AppointmentReader loads one appointment.
type AppointmentReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (apptdomain.Appointment, error)
}

// ClockScanner escalates the overdue entities of one clock.
type ClockScanner interface {
	ScanClock(ctx context.Context, c sla.Clock, now time.Time) (sla.ClockResult, error)
}

// Handlers are the task handlers independent of the asynq server.
type Handlers struct {
	snapshots    SnapshotRunner
	sender       email.Sender
	appointments AppointmentReader
	scanner      ClockScanner
	log          *logger.Logger
	now          func() time.Time
}

func NewHandlers(snapshots SnapshotRunner, sender email.Sender, appointments AppointmentReader, scanner ClockScanner, log *logger.Logger) *Handlers {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Handlers{
		snapshots:    snapshots,
		sender:       sender,
		appointments: appointments,
		scanner:      scanner,
		log:          log.WithComponent("worker"),
		now:          time.Now,
	}
}

func (h *Handlers) handleKPISnapshot(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseKPISnapshotPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	day := kpi.Yesterday(h.now())
	if payload.Date != "" {
		if day, err = kpi.ParseDay(payload.Date); err != nil {
			return fmt.Errorf("invalid snapshot date %q: %w", payload.Date, asynq.SkipRetry)
		}
	}

	_, err = h.snapshots.SnapshotDaily(ctx, day)
	if apperr.Is(err, apperr.KindValidation) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}

func (h *Handlers) handleNotificationEmail(ctx context.Context, task *asynq.Task) error {
	msg, err := ParseNotificationEmailPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if msg.To == "" {
		return nil
	}
	if err := h.sender.Send(ctx, msg); err != nil {
		h.log.Warn("email delivery failed", "to", msg.To, "error", err)
		return err
	}
	return nil
}

// handleConfirmationCheck escalates a still-pending appointment as soon as its
// window closes instead of waiting for the next scan tick.
func (h *Handlers) handleConfirmationCheck(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseConfirmationCheckPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	id, err := uuid.Parse(payload.AppointmentID)
	if err != nil {
		return fmt.Errorf("invalid appointment id: %w", asynq.SkipRetry)
	}

	appt, err := h.appointments.GetByID(ctx, id)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	now := h.now()
	if !appt.ConfirmationOverdue(now) {
		return nil
	}

	result, err := h.scanner.ScanClock(ctx, sla.ClockConfirmation, now)
	if err != nil {
		return err
	}
	h.log.Info("confirmation check ran", "appointment_id", id.String(), "escalated", result.Escalated)
	return nil
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, handlers *Handlers, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskKPISnapshot, handlers.handleKPISnapshot)
	mux.HandleFunc(TaskNotificationEmail, handlers.handleNotificationEmail)
	mux.HandleFunc(TaskConfirmationCheck, handlers.handleConfirmationCheck)

	return &Worker{server: server, mux: mux, log: log}, nil
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}

	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("scheduler worker stopped")
	return nil
}
