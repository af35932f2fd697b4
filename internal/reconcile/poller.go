package reconcile

import (
	"context"
	"time"

	"franchise_crm/platform/apperr"
	"franchise_crm/platform/logger"
)

// Poller runs the syncer on a fixed interval until its context ends.
type Poller struct {
	syncer   *Syncer
	interval time.Duration
	log      *logger.Logger
}

func NewPoller(syncer *Syncer, interval time.Duration, log *logger.Logger) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{syncer: syncer, interval: interval, log: log.WithComponent("reconcile-poller")}
}

// Run re-reads the whole partner set once, then polls incrementally every
// interval. It returns nil once ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("reconcile poller started", "interval", p.interval.String())
	p.report(ctx, p.catchUp(ctx))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("reconcile poller stopped")
			return nil
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	_, err := p.syncer.RunOnce(ctx)
	p.report(ctx, err)
}

func (p *Poller) catchUp(ctx context.Context) error {
	_, err := p.syncer.CatchUp(ctx)
	return err
}

func (p *Poller) report(ctx context.Context, err error) {
	switch {
	case err == nil, ctx.Err() != nil:
	case apperr.Is(err, apperr.KindConflict):
		p.log.Debug("sync cycle skipped, another run holds the lock")
	default:
		p.log.Warn("sync cycle failed, retrying next tick", "error", err)
	}
}
