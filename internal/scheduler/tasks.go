package scheduler

import (
	"encoding/json"

	"franchise_crm/internal/email"

	"github.com/hibiken/asynq"
)

const TaskKPISnapshot = "kpi.snapshot"

const TaskNotificationEmail = "notification.email"

const TaskConfirmationCheck = "appointments.confirmation_check"

// KPISnapshotPayload names the day to roll up. An empty date means the day
// before the task runs.
type KPISnapshotPayload struct {
	Date string `json:"date,omitempty"`
}

type NotificationEmailPayload struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Heading  string `json:"heading"`
	Body     string `json:"body"`
	CTALabel string `json:"ctaLabel,omitempty"`
	CTAURL   string `json:"ctaUrl,omitempty"`
}

type ConfirmationCheckPayload struct {
	AppointmentID string `json:"appointmentId"`
}

func NewKPISnapshotTask(payload KPISnapshotPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskKPISnapshot, data), nil
}

func ParseKPISnapshotPayload(task *asynq.Task) (KPISnapshotPayload, error) {
	var payload KPISnapshotPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return KPISnapshotPayload{}, err
	}
	return payload, nil
}

func NewNotificationEmailTask(msg email.Message) (*asynq.Task, error) {
	data, err := json.Marshal(NotificationEmailPayload{
		To:       msg.To,
		Subject:  msg.Subject,
		Heading:  msg.Heading,
		Body:     msg.Body,
		CTALabel: msg.CTALabel,
		CTAURL:   msg.CTAURL,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationEmail, data), nil
}

func ParseNotificationEmailPayload(task *asynq.Task) (email.Message, error) {
	var payload NotificationEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return email.Message{}, err
	}
	return email.Message{
		To:       payload.To,
		Subject:  payload.Subject,
		Heading:  payload.Heading,
		Body:     payload.Body,
		CTALabel: payload.CTALabel,
		CTAURL:   payload.CTAURL,
	}, nil
}

func NewConfirmationCheckTask(payload ConfirmationCheckPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskConfirmationCheck, data), nil
}

func ParseConfirmationCheckPayload(task *asynq.Task) (ConfirmationCheckPayload, error) {
	var payload ConfirmationCheckPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ConfirmationCheckPayload{}, err
	}
	return payload, nil
}
