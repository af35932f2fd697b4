package bootstrap

import (
	"errors"

	"franchise_crm/internal/auth/repository"
	"franchise_crm/internal/email"
	"franchise_crm/internal/events"
	franchiserepo "franchise_crm/internal/franchise/repository"
	"franchise_crm/internal/kpi"
	leadrepo "franchise_crm/internal/leads/repository"
	"franchise_crm/internal/notification"
	"franchise_crm/internal/reconcile"
	"franchise_crm/internal/sla"
	"franchise_crm/platform/config"
	"franchise_crm/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Background is the module graph driven by timers, tasks and the CLI.
type Background struct {
	Bus          *events.InMemoryBus
	Notification *notification.Module
	SLA          *sla.Module
	KPI          *kpi.Module
	// Reconcile is nil when SYNC_SOURCE_MODE is off.
	Reconcile *reconcile.Module
	Sender    email.Sender

	closers []func() error
}

// NewBackground wires the pipeline modules. rdb may be nil.
func NewBackground(cfg *config.Config, pool *pgxpool.Pool, rdb *redis.Client, log *logger.Logger) (*Background, error) {
	bus := events.NewInMemoryBus(log)
	users := repository.New(pool)
	sender := email.NewSender(cfg)

	notificationModule := notification.NewModule(pool, users, sender, cfg, log)
	notificationModule.RegisterHandlers(bus)

	bg := &Background{
		Bus:          bus,
		Notification: notificationModule,
		SLA:          sla.NewModule(pool, users, notificationModule.Service(), bus, cfg, log),
		KPI:          kpi.NewModule(pool, franchiserepo.New(pool), log),
		Sender:       sender,
	}

	source, closeSource, err := reconcile.OpenSource(cfg)
	switch {
	case errors.Is(err, reconcile.ErrSourceDisabled):
		log.Info("reconciliation disabled")
	case err != nil:
		return nil, err
	default:
		bg.closers = append(bg.closers, closeSource)
		var locker reconcile.Locker
		if rdb != nil {
			locker = reconcile.NewRedisLocker(rdb)
		}
		store := reconcile.NewPGStore(leadrepo.New(pool))
		bg.Reconcile = reconcile.NewModule(store, source, locker, bus, cfg, log)
	}

	return bg, nil
}

// Close releases the partner source.
func (b *Background) Close() {
	for _, c := range b.closers {
		_ = c()
	}
}
