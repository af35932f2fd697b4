package reconcile

import (
	"net/http"

	"franchise_crm/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// WebhookRequest is the partner's push payload. talep_id is the legacy name
// of external_id.
type WebhookRequest struct {
	ExternalID int64 `json:"external_id"`
	TalepID    int64 `json:"talep_id"`
}

func (r WebhookRequest) id() int64 {
	if r.ExternalID != 0 {
		return r.ExternalID
	}
	return r.TalepID
}

type WebhookResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	LeadID  string `json:"leadId"`
}

// Handler serves the partner webhook and the manual sync trigger.
type Handler struct {
	webhook *Webhook
	syncer  *Syncer
}

func NewHandler(webhook *Webhook, syncer *Syncer) *Handler {
	return &Handler{webhook: webhook, syncer: syncer}
}

// HandleWebhook ingests one pushed record.
// POST /api/v1/webhook/leads
func (h *Handler) HandleWebhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	outcome, err := h.webhook.Receive(c.Request.Context(), req.id())
	if httpkit.HandleError(c, err) {
		return
	}

	if !outcome.Created {
		httpkit.OK(c, WebhookResponse{OK: true, Message: "already exists", LeadID: outcome.LeadID.String()})
		return
	}
	httpkit.JSON(c, http.StatusCreated, WebhookResponse{OK: true, LeadID: outcome.LeadID.String()})
}

// HandleRun runs one cycle now. ?full=true re-reads from the first record.
// POST /api/v1/sync/run
func (h *Handler) HandleRun(c *gin.Context) {
	run := h.syncer.RunOnce
	if c.Query("full") == "true" {
		run = h.syncer.RunFull
	}

	result, err := run(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// HandleStatus reports the source and cursor.
// GET /api/v1/sync/status
func (h *Handler) HandleStatus(c *gin.Context) {
	result, err := h.syncer.Cursor(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
