package sla

import (
	"context"
	"net/http"

	"franchise_crm/internal/authz"
	"franchise_crm/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Lister reads stored escalations.
type Lister interface {
	List(ctx context.Context, p ListParams) (ListResult, error)
}

type ListBreachesRequest struct {
	Clock    string `form:"clock"`
	OfficeID string `form:"officeId" binding:"omitempty,uuid"`
	OpenOnly bool   `form:"open"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"pageSize" binding:"omitempty,min=1,max=100"`
}

type Handler struct {
	lister  Lister
	scanner *Scanner
}

func NewHandler(lister Lister, scanner *Scanner) *Handler {
	return &Handler{lister: lister, scanner: scanner}
}

// ListBreaches returns escalations visible to the caller. Office managers
// see their own office only.
// GET /api/v1/sla/breaches
func (h *Handler) ListBreaches(c *gin.Context) {
	var req ListBreachesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid query", err.Error())
		return
	}

	var requested *uuid.UUID
	if req.OfficeID != "" {
		id := uuid.MustParse(req.OfficeID)
		requested = &id
	}
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	officeID, err := authz.OfficeScope(id, authz.KPIViewAll, authz.KPIViewOwnOffice, requested)
	if httpkit.HandleError(c, err) {
		return
	}

	params := ListParams{OfficeID: officeID, OpenOnly: req.OpenOnly, Page: req.Page, PageSize: req.PageSize}
	if req.Clock != "" {
		clock, ok := ParseClock(req.Clock)
		if !ok {
			httpkit.Error(c, http.StatusBadRequest, "unknown clock", nil)
			return
		}
		params.Clock = &clock
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = 20
	}

	result, err := h.lister.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Scan runs one pass now.
// POST /api/v1/sla/scan
func (h *Handler) Scan(c *gin.Context) {
	result, err := h.scanner.Scan(c.Request.Context(), h.scanner.now())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
