package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"franchise_crm/internal/email"
	"franchise_crm/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// confirmationGrace delays the check a little past the deadline so the
// scanner sees the appointment as overdue.
const confirmationGrace = time.Minute

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueEmail hands one message to the worker. Delivery is retried by asynq.
func (c *Client) EnqueueEmail(ctx context.Context, msg email.Message) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewNotificationEmailTask(msg)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(5))
	return err
}

// ScheduleConfirmationCheck runs a confirmation scan just after deadline.
// Scheduling the same appointment twice is a no-op.
func (c *Client) ScheduleConfirmationCheck(ctx context.Context, appointmentID uuid.UUID, deadline time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewConfirmationCheckTask(ConfirmationCheckPayload{AppointmentID: appointmentID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(deadline.Add(confirmationGrace)),
		asynq.Queue(c.queue),
		asynq.TaskID("confirmation-check:"+appointmentID.String()),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// EnqueueKPISnapshot queues a rollup of day, used by the CLI to backfill.
func (c *Client) EnqueueKPISnapshot(ctx context.Context, day string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewKPISnapshotTask(KPISnapshotPayload{Date: day})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

func queueName(cfg config.SchedulerConfig) string {
	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	return queue
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
