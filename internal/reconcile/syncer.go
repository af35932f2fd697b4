package reconcile

import (
	"context"
	"sort"
	"sync"
	"time"

	"franchise_crm/platform/apperr"
	"franchise_crm/platform/logger"
)

// LockKey guards reconciliation cycles across replicas.
const LockKey = "crm:reconcile:lock"

// RunResult summarizes one reconciliation cycle.
type RunResult struct {
	Source   string `json:"source"`
	Cursor   int64  `json:"cursor"`
	Fetched  int    `json:"fetched"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
	// Retried counts earlier failures ingested this cycle; Pending is what is
	// still waiting for another attempt.
	Retried int `json:"retried"`
	Pending int `json:"pending"`
}

// Syncer pulls records above the cursor and ingests each one. A failing record
// is counted and logged without aborting the batch; a failing source aborts
// the cycle and the next one retries from the same cursor.
//
// The cursor is the highest stored external id, so a record that fails while
// a later one commits falls below it. Such ids are kept in a retry set and
// fetched one by one at the start of every following cycle until they land.
type Syncer struct {
	source   Source
	store    Store
	ingester *Ingester
	locker   Locker
	lockTTL  time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	pending map[int64]struct{}
}

func NewSyncer(source Source, store Store, ingester *Ingester, locker Locker, lockTTL time.Duration, log *logger.Logger) *Syncer {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Syncer{
		source:   source,
		store:    store,
		ingester: ingester,
		locker:   locker,
		lockTTL:  lockTTL,
		log:      log.WithComponent("reconcile"),
		pending:  make(map[int64]struct{}),
	}
}

// RunOnce runs one incremental cycle from the stored cursor.
func (s *Syncer) RunOnce(ctx context.Context) (RunResult, error) {
	return s.run(ctx, false, ViaPoll)
}

// RunFull re-reads every partner record from the beginning. Existing leads
// are skipped by the external id constraint.
func (s *Syncer) RunFull(ctx context.Context) (RunResult, error) {
	return s.run(ctx, true, ViaManual)
}

// CatchUp re-reads every partner record as a poll cycle. The poller runs it
// once at start so ids whose retry was pending in a previous process are
// picked up again.
func (s *Syncer) CatchUp(ctx context.Context) (RunResult, error) {
	return s.run(ctx, true, ViaPoll)
}

// Pending lists the external ids waiting for another ingest attempt.
func (s *Syncer) Pending() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Cursor reports the current poll position.
func (s *Syncer) Cursor(ctx context.Context) (RunResult, error) {
	cursor, err := s.store.MaxExternalID(ctx)
	if err != nil {
		return RunResult{}, err
	}
	return RunResult{Source: s.source.Name(), Cursor: cursor, Pending: len(s.Pending())}, nil
}

func (s *Syncer) run(ctx context.Context, full bool, via string) (RunResult, error) {
	result := RunResult{Source: s.source.Name()}

	unlock, ok, err := s.locker.TryLock(ctx, LockKey, s.lockTTL)
	if err != nil {
		return result, apperr.Unavailable("sync lock unavailable", err)
	}
	if !ok {
		return result, apperr.Conflict("sync already running")
	}
	defer unlock()

	if !full {
		result.Cursor, err = s.store.MaxExternalID(ctx)
		if err != nil {
			return result, err
		}
	}

	s.retryPending(ctx, via, &result)

	records, err := s.source.FetchSince(ctx, result.Cursor)
	if err != nil {
		s.log.Warn("partner fetch failed", "cursor", result.Cursor, "error", err)
		return result, err
	}
	result.Fetched = len(records)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			result.Pending = len(s.Pending())
			s.log.SyncRun(result.Source, result.Cursor, result.Fetched, result.Inserted, result.Skipped, result.Failed)
			return result, err
		}
		outcome, err := s.ingester.Ingest(ctx, rec, via)
		switch {
		case err != nil:
			result.Failed++
			s.markPending(rec.ExternalID)
			s.log.Error("failed to ingest partner record", "externalId", rec.ExternalID, "error", err)
		case outcome.Created:
			s.clearPending(rec.ExternalID)
			result.Inserted++
		default:
			s.clearPending(rec.ExternalID)
			result.Skipped++
		}
	}

	result.Pending = len(s.Pending())
	s.log.SyncRun(result.Source, result.Cursor, result.Fetched, result.Inserted, result.Skipped, result.Failed)
	return result, nil
}

// retryPending fetches and ingests each id of the retry set. Ids the partner
// no longer knows are dropped; every other failure keeps the id for the next
// cycle.
func (s *Syncer) retryPending(ctx context.Context, via string, result *RunResult) {
	for _, id := range s.Pending() {
		if ctx.Err() != nil {
			return
		}
		rec, err := s.source.Fetch(ctx, id)
		if err != nil {
			result.Failed++
			s.log.Warn("partner fetch failed for pending record", "externalId", id, "error", err)
			continue
		}
		if rec == nil {
			s.clearPending(id)
			s.log.Warn("pending record no longer in partner system", "externalId", id)
			continue
		}
		outcome, err := s.ingester.Ingest(ctx, *rec, via)
		if err != nil {
			result.Failed++
			s.log.Error("retry of partner record failed", "externalId", id, "error", err)
			continue
		}
		s.clearPending(id)
		result.Retried++
		if outcome.Created {
			result.Inserted++
		} else {
			result.Skipped++
		}
	}
}

func (s *Syncer) markPending(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[id] = struct{}{}
}

func (s *Syncer) clearPending(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}
