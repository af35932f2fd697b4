// Package notification delivers in-app notifications to staff, streams them
// over SSE and mails SLA escalations.
package notification

import (
	"context"
	"fmt"
	"strings"

	apptdomain "franchise_crm/internal/appointments/domain"
	"franchise_crm/internal/authz"
	"franchise_crm/internal/email"
	"franchise_crm/internal/events"
	apphttp "franchise_crm/internal/http"
	"franchise_crm/internal/notification/handler"
	"franchise_crm/internal/notification/inapp"
	"franchise_crm/internal/notification/sse"
	"franchise_crm/platform/config"
	"franchise_crm/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Directory resolves staff for fan-out.
type Directory interface {
	ListRecipients(ctx context.Context, roles []string, officeID *uuid.UUID) ([]uuid.UUID, error)
	EmailsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// EmailQueue defers delivery to the background worker.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, msg email.Message) error
}

// Module is the notification bounded context implementing http.Module.
type Module struct {
	handler   *handler.HTTPHandler
	service   *inapp.Service
	sse       *sse.Service
	directory Directory
	sender    email.Sender
	queue     EmailQueue
	baseURL   string
	log       *logger.Logger
}

func NewModule(pool *pgxpool.Pool, directory Directory, sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return newModule(inapp.NewRepository(pool), directory, sender, cfg, log)
}

func newModule(store inapp.Store, directory Directory, sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	stream := sse.New(log)
	svc := inapp.NewService(store, log)
	svc.SetSSE(stream)

	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Module{
		handler:   handler.NewHTTPHandler(svc, stream.Handler()),
		service:   svc,
		sse:       stream,
		directory: directory,
		sender:    sender,
		baseURL:   strings.TrimRight(cfg.GetAppBaseURL(), "/"),
		log:       log.WithComponent("notification"),
	}
}

func (m *Module) Name() string {
	return "notification"
}

// Service exposes Notify for the SLA scanner.
func (m *Module) Service() *inapp.Service {
	return m.service
}

// SetEmailQueue routes escalation mail through the worker. Without a queue
// mail is sent inline from the event handler.
func (m *Module) SetEmailQueue(q EmailQueue) {
	m.queue = q
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

// RegisterHandlers subscribes to the domain events this module reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.SLABreached{}.EventName(), events.HandlerFunc(m.handleSLABreached))
	bus.Subscribe(events.AppointmentCreated{}.EventName(), events.HandlerFunc(m.handleAppointmentCreated))
}

func (m *Module) handleSLABreached(ctx context.Context, e events.Event) error {
	breach, ok := e.(events.SLABreached)
	if !ok || len(breach.Recipients) == 0 {
		return nil
	}

	addresses, err := m.directory.EmailsByID(ctx, breach.Recipients)
	if err != nil {
		return fmt.Errorf("resolve escalation recipients: %w", err)
	}

	var failed int
	for _, id := range breach.Recipients {
		to := addresses[id]
		if to == "" {
			continue
		}
		msg := email.Message{
			To:       to,
			Subject:  fmt.Sprintf(email.SubjectSLAWarningFmt, breach.Title),
			Heading:  breach.Title,
			Body:     breach.Body,
			CTALabel: email.CTAOpenRecord,
			CTAURL:   m.baseURL + breach.Link,
		}
		if err := m.deliver(ctx, msg); err != nil {
			failed++
			m.log.Warn("escalation email failed", "userId", id, "clock", breach.Clock, "error", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d escalation emails failed", failed)
	}
	return nil
}

func (m *Module) deliver(ctx context.Context, msg email.Message) error {
	if m.queue != nil {
		return m.queue.EnqueueEmail(ctx, msg)
	}
	return m.sender.Send(ctx, msg)
}

func (m *Module) handleAppointmentCreated(ctx context.Context, e events.Event) error {
	created, ok := e.(events.AppointmentCreated)
	if !ok {
		return nil
	}

	officeID := created.OfficeID
	recipients, err := m.directory.ListRecipients(ctx, []string{authz.RoleOfficeManager}, &officeID)
	if err != nil {
		return fmt.Errorf("resolve office managers: %w", err)
	}

	_, err = m.service.Notify(ctx, recipients, inapp.Message{
		Type:  inapp.TypeAppointmentNew,
		Title: "Yeni randevu onay bekliyor",
		Body: fmt.Sprintf("Randevu %s tarihine kadar onaylanmalı.",
			created.ConfirmationDeadline.In(apptdomain.Local).Format("02.01.2006 15:04")),
		Link: fmt.Sprintf("/appointments/%s", created.AppointmentID),
	})
	return err
}

var _ apphttp.Module = (*Module)(nil)
