package sla

import (
	"context"
	"errors"
	"sync"
	"time"

	"franchise_crm/internal/events"
	"franchise_crm/internal/notification/inapp"

	"github.com/google/uuid"
)

type memStore struct {
	mu            sync.Mutex
	firstCalls    []Breach
	confirmations []Breach
	reports       []Breach
	failQuery     Clock
	failRecord    map[uuid.UUID]bool
	recorded      map[string]Breach
	notified      map[uuid.UUID]int
}

func newMemStore() *memStore {
	return &memStore{
		failRecord: map[uuid.UUID]bool{},
		recorded:   map[string]Breach{},
		notified:   map[uuid.UUID]int{},
	}
}

func (s *memStore) OverdueFirstCalls(context.Context, time.Time) ([]Breach, error) {
	if s.failQuery == ClockFirstCall {
		return nil, errors.New("query failed")
	}
	return s.firstCalls, nil
}

func (s *memStore) OverdueConfirmations(context.Context, time.Time) ([]Breach, error) {
	if s.failQuery == ClockConfirmation {
		return nil, errors.New("query failed")
	}
	return s.confirmations, nil
}

func (s *memStore) OverdueReports(context.Context, time.Time, time.Duration) ([]Breach, error) {
	if s.failQuery == ClockReport {
		return nil, errors.New("query failed")
	}
	return s.reports, nil
}

func (s *memStore) Record(_ context.Context, b Breach, _ time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRecord[b.EntityID] {
		return false, errors.New("insert failed")
	}
	key := string(b.Clock) + "/" + b.EntityID.String()
	if _, ok := s.recorded[key]; ok {
		return false, nil
	}
	s.recorded[key] = b
	return true, nil
}

func (s *memStore) SetNotified(_ context.Context, _ Clock, entityID uuid.UUID, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notified[entityID] = count
	return nil
}

type fakeDirectory struct {
	central map[string][]uuid.UUID
	office  map[uuid.UUID]map[string][]uuid.UUID
	calls   int
}

func (d *fakeDirectory) ListRecipients(_ context.Context, roles []string, officeID *uuid.UUID) ([]uuid.UUID, error) {
	d.calls++
	var out []uuid.UUID
	for _, role := range roles {
		if officeID == nil {
			out = append(out, d.central[role]...)
			continue
		}
		out = append(out, d.office[*officeID][role]...)
	}
	return out, nil
}

type sentNotice struct {
	userIDs []uuid.UUID
	msg     inapp.Message
}

type fakeNotifier struct {
	sent []sentNotice
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, userIDs []uuid.UUID, m inapp.Message) (int, error) {
	if n.err != nil {
		return 0, n.err
	}
	n.sent = append(n.sent, sentNotice{userIDs: userIDs, msg: m})
	return len(userIDs), nil
}

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type pipelineConfig struct{}

func (pipelineConfig) GetFirstCallSLA() time.Duration       { return 30 * time.Minute }
func (pipelineConfig) GetConfirmationWindow() time.Duration { return 2 * time.Hour }
func (pipelineConfig) GetReportWindow() time.Duration       { return 24 * time.Hour }
func (pipelineConfig) GetSLAScanInterval() time.Duration    { return time.Minute }
