package reconcile

import (
	"franchise_crm/internal/authz"
	"franchise_crm/internal/events"
	apphttp "franchise_crm/internal/http"
	"franchise_crm/platform/config"
	"franchise_crm/platform/httpkit"
	"franchise_crm/platform/logger"

	"golang.org/x/time/rate"
)

// WebhookKeyHeader carries the shared partner secret.
const WebhookKeyHeader = "X-API-Key"

// Config combines the settings reconciliation reads.
type Config interface {
	config.SyncConfig
	config.PipelineConfig
}

// Module wires reconciliation and implements http.Module.
type Module struct {
	handler *Handler
	syncer  *Syncer
	poller  *Poller
	cfg     Config
	log     *logger.Logger
}

// NewModule assembles the ingest path shared by the poller and the webhook.
// locker may be nil, in which case runs are serialized per process only.
func NewModule(store Store, source Source, locker Locker, eventBus events.Bus, cfg Config, log *logger.Logger) *Module {
	ingester := NewIngester(store, eventBus, cfg.GetFirstCallSLA())
	syncer := NewSyncer(source, store, ingester, locker, cfg.GetSyncLockTTL(), log)
	webhook := NewWebhook(source, store, ingester, log)

	return &Module{
		handler: NewHandler(webhook, syncer),
		syncer:  syncer,
		poller:  NewPoller(syncer, cfg.GetSyncPollInterval(), log),
		cfg:     cfg,
		log:     log,
	}
}

func (m *Module) Name() string {
	return "reconcile"
}

func (m *Module) Syncer() *Syncer {
	return m.syncer
}

func (m *Module) Poller() *Poller {
	return m.poller
}

// RegisterRoutes mounts the partner webhook (only when a key is configured)
// and the sync admin routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	if m.cfg.IsWebhookEnabled() {
		limiter := httpkit.NewIPRateLimiter(rate.Limit(10), 30, m.log)
		hook := ctx.V1.Group("/webhook")
		hook.Use(limiter.RateLimit(), httpkit.StaticKeyAuth(WebhookKeyHeader, m.cfg.GetWebhookAPIKey()))
		hook.POST("/leads", m.handler.HandleWebhook)
		// Legacy path used by the partner before the rename.
		hook.POST("/yeni-talep", m.handler.HandleWebhook)
	} else {
		m.log.Info("partner webhook disabled, WEBHOOK_API_KEY not set")
	}

	sync := ctx.Protected.Group("/sync", authz.Require(authz.OpRunSync))
	sync.POST("/run", m.handler.HandleRun)
	sync.GET("/status", m.handler.HandleStatus)
}

var _ apphttp.Module = (*Module)(nil)
