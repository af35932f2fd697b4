package reconcile

import (
	"context"
	"errors"
	"sync"

	"franchise_crm/internal/events"
	leaddomain "franchise_crm/internal/leads/domain"

	"github.com/google/uuid"
)

type memStore struct {
	mu       sync.Mutex
	byExt    map[int64]leaddomain.Lead
	failOn   map[int64]bool
	inserted []string
}

func newMemStore() *memStore {
	return &memStore{byExt: map[int64]leaddomain.Lead{}, failOn: map[int64]bool{}}
}

func (s *memStore) MaxExternalID(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max int64
	for id := range s.byExt {
		if id > max {
			max = id
		}
	}
	return max, nil
}

func (s *memStore) FindIDByExternalID(_ context.Context, externalID int64) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byExt[externalID]
	return l.ID, ok, nil
}

func (s *memStore) InsertExternal(_ context.Context, lead leaddomain.Lead, via string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ext := *lead.ExternalID
	if s.failOn[ext] {
		return false, errors.New("insert failed")
	}
	if _, ok := s.byExt[ext]; ok {
		return false, nil
	}
	s.byExt[ext] = lead
	s.inserted = append(s.inserted, via)
	return true, nil
}

type fakeSource struct {
	mu      sync.Mutex
	records []ExternalRecord
	err     error
	calls   []int64
	fetched []int64
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchSince(_ context.Context, cursor int64) ([]ExternalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cursor)
	if f.err != nil {
		return nil, f.err
	}
	var out []ExternalRecord
	for _, r := range f.records {
		if r.ExternalID > cursor {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSource) Fetch(_ context.Context, externalID int64) (*ExternalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, externalID)
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.records {
		if r.ExternalID == externalID {
			rec := r
			return &rec, nil
		}
	}
	return nil, nil
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

func (s *memStore) setFail(id int64, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[id] = fail
}

func (s *memStore) has(id int64) (leaddomain.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byExt[id]
	return l, ok
}

func (f *fakeSource) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
