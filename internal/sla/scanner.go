package sla

import (
	"context"
	"fmt"
	"time"

	"franchise_crm/internal/events"
	"franchise_crm/internal/notification/inapp"
	"franchise_crm/platform/config"
	"franchise_crm/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence the scanner needs.
type Store interface {
	OverdueFirstCalls(ctx context.Context, now time.Time) ([]Breach, error)
	OverdueConfirmations(ctx context.Context, now time.Time) ([]Breach, error)
	OverdueReports(ctx context.Context, now time.Time, window time.Duration) ([]Breach, error)
	Record(ctx context.Context, b Breach, now time.Time) (bool, error)
	SetNotified(ctx context.Context, c Clock, entityID uuid.UUID, count int) error
}

// Directory resolves active users holding any of roles, optionally limited
// to one office.
type Directory interface {
	ListRecipients(ctx context.Context, roles []string, officeID *uuid.UUID) ([]uuid.UUID, error)
}

// Notifier delivers in-app notices.
type Notifier interface {
	Notify(ctx context.Context, userIDs []uuid.UUID, m inapp.Message) (int, error)
}

// ClockResult counts what one clock scan did.
type ClockResult struct {
	Clock     Clock `json:"clock"`
	Overdue   int   `json:"overdue"`
	Escalated int   `json:"escalated"`
	Known     int   `json:"alreadyEscalated"`
	Failed    int   `json:"failed"`
}

// ScanResult is the outcome of a full pass.
type ScanResult struct {
	At     time.Time     `json:"at"`
	Clocks []ClockResult `json:"clocks"`
}

func (r ScanResult) Escalated() int {
	n := 0
	for _, c := range r.Clocks {
		n += c.Escalated
	}
	return n
}

// Scanner finds missed deadlines and escalates each one exactly once.
type Scanner struct {
	store     Store
	directory Directory
	notifier  Notifier
	bus       events.Bus
	cfg       config.PipelineConfig
	log       *logger.Logger
	now       func() time.Time
}

func NewScanner(store Store, directory Directory, notifier Notifier, bus events.Bus, cfg config.PipelineConfig, log *logger.Logger) *Scanner {
	return &Scanner{
		store:     store,
		directory: directory,
		notifier:  notifier,
		bus:       bus,
		cfg:       cfg,
		log:       log.WithComponent("sla-scanner"),
		now:       time.Now,
	}
}

// Scan checks every clock at now. A failing clock does not stop the others;
// the first query error is returned alongside the partial result.
func (s *Scanner) Scan(ctx context.Context, now time.Time) (ScanResult, error) {
	result := ScanResult{At: now.UTC(), Clocks: make([]ClockResult, 0, len(Clocks))}
	var firstErr error
	for _, c := range Clocks {
		cr, err := s.ScanClock(ctx, c, now)
		result.Clocks = append(result.Clocks, cr)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return result, firstErr
}

// ScanClock escalates the overdue entities of one clock.
func (s *Scanner) ScanClock(ctx context.Context, c Clock, now time.Time) (ClockResult, error) {
	cr := ClockResult{Clock: c}

	var (
		overdue []Breach
		err     error
	)
	switch c {
	case ClockFirstCall:
		overdue, err = s.store.OverdueFirstCalls(ctx, now)
	case ClockConfirmation:
		overdue, err = s.store.OverdueConfirmations(ctx, now)
	case ClockReport:
		overdue, err = s.store.OverdueReports(ctx, now, s.cfg.GetReportWindow())
	default:
		return cr, fmt.Errorf("unknown clock %q", c)
	}
	if err != nil {
		s.log.Error("sla query failed", "clock", string(c), "error", err)
		return cr, err
	}
	cr.Overdue = len(overdue)

	for _, b := range overdue {
		if ctx.Err() != nil {
			return cr, ctx.Err()
		}
		created, err := s.escalate(ctx, b, now)
		switch {
		case err != nil:
			cr.Failed++
			s.log.Error("sla escalation failed", "clock", string(c), "entity_id", b.EntityID.String(), "error", err)
		case created:
			cr.Escalated++
		default:
			cr.Known++
		}
	}
	return cr, nil
}

// escalate records b and notifies its audience. The escalation row is the
// claim: once it exists the breach is never announced again, even when
// delivery below fails.
func (s *Scanner) escalate(ctx context.Context, b Breach, now time.Time) (bool, error) {
	created, err := s.store.Record(ctx, b, now)
	if err != nil || !created {
		return false, err
	}

	recipients, err := s.recipients(ctx, b)
	if err != nil {
		return true, err
	}

	notice := NoticeFor(b)
	notified, err := s.notifier.Notify(ctx, recipients, inapp.Message{
		Type:  inapp.TypeSLAWarning,
		Title: notice.Title,
		Body:  notice.Body,
		Link:  notice.Link,
	})
	if err != nil {
		return true, err
	}
	if err := s.store.SetNotified(ctx, b.Clock, b.EntityID, notified); err != nil {
		s.log.Warn("failed to store notified count", "entity_id", b.EntityID.String(), "error", err)
	}

	s.bus.Publish(ctx, events.SLABreached{
		BaseEvent:  events.NewBaseEventAt(now),
		Clock:      string(b.Clock),
		EntityID:   b.EntityID,
		LeadID:     b.LeadID,
		OfficeID:   b.OfficeID,
		Deadline:   b.Deadline,
		Recipients: recipients,
		Title:      notice.Title,
		Body:       notice.Body,
		Link:       notice.Link,
	})
	s.log.SLABreach(string(b.Clock), b.EntityID.String(), notified)
	return true, nil
}

func (s *Scanner) recipients(ctx context.Context, b Breach) ([]uuid.UUID, error) {
	audience := RecipientsFor(b.Clock)

	out, err := s.directory.ListRecipients(ctx, audience.CentralRoles, nil)
	if err != nil {
		return nil, err
	}
	if len(audience.OfficeRoles) > 0 && b.OfficeID != nil {
		local, err := s.directory.ListRecipients(ctx, audience.OfficeRoles, b.OfficeID)
		if err != nil {
			return nil, err
		}
		out = append(out, local...)
	}

	seen := make(map[uuid.UUID]bool, len(out))
	unique := out[:0]
	for _, id := range out {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	return unique, nil
}

// Run scans immediately and then every interval until ctx ends.
func (s *Scanner) Run(ctx context.Context) error {
	interval := s.cfg.GetSLAScanInterval()
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	s.log.Info("sla scanner started", "interval", interval.String())
	s.tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sla scanner stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scanner) tick(ctx context.Context) {
	result, err := s.Scan(ctx, s.now())
	if err != nil && ctx.Err() == nil {
		s.log.Warn("sla scan incomplete", "error", err)
	}
	if n := result.Escalated(); n > 0 {
		s.log.Info("sla scan escalated breaches", "count", n)
	}
}
