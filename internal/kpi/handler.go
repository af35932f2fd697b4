package kpi

import (
	"fmt"
	"net/http"

	"franchise_crm/internal/authz"
	"franchise_crm/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ListSnapshotsRequest struct {
	From     string `form:"from"`
	To       string `form:"to"`
	OfficeID string `form:"officeId" binding:"omitempty,uuid"`
	Global   bool   `form:"global"`
}

type RunSnapshotRequest struct {
	Date string `form:"date"`
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List returns snapshots. Without dates the last 30 days are returned.
// GET /api/v1/kpi/snapshots
func (h *Handler) List(c *gin.Context) {
	params, ok := h.bindList(c)
	if !ok {
		return
	}
	snaps, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": snaps})
}

// Export streams the same rows as List as an xlsx attachment.
// GET /api/v1/kpi/snapshots/export.xlsx
func (h *Handler) Export(c *gin.Context) {
	params, ok := h.bindList(c)
	if !ok {
		return
	}
	data, err := h.svc.Export(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	filename := fmt.Sprintf("kpi-%s-%s.xlsx", params.From.Format(dateLayout), params.To.Format(dateLayout))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// Run snapshots one day now, yesterday by default.
// POST /api/v1/kpi/snapshots/run
func (h *Handler) Run(c *gin.Context) {
	var req RunSnapshotRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid query", err.Error())
		return
	}
	day := Yesterday(h.svc.now())
	if req.Date != "" {
		parsed, err := ParseDay(req.Date)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "date must be YYYY-MM-DD", nil)
			return
		}
		day = parsed
	}

	snaps, err := h.svc.SnapshotDaily(c.Request.Context(), day)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": snaps})
}

func (h *Handler) bindList(c *gin.Context) (ListParams, bool) {
	var req ListSnapshotsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid query", err.Error())
		return ListParams{}, false
	}
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return ListParams{}, false
	}

	var requested *uuid.UUID
	if req.OfficeID != "" {
		officeID := uuid.MustParse(req.OfficeID)
		requested = &officeID
	}
	officeID, err := authz.OfficeScope(id, authz.KPIViewAll, authz.KPIViewOwnOffice, requested)
	if httpkit.HandleError(c, err) {
		return ListParams{}, false
	}

	to := Yesterday(h.svc.now())
	if req.To != "" {
		if to, err = ParseDay(req.To); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "to must be YYYY-MM-DD", nil)
			return ListParams{}, false
		}
	}
	from := to.AddDate(0, 0, -29)
	if req.From != "" {
		if from, err = ParseDay(req.From); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "from must be YYYY-MM-DD", nil)
			return ListParams{}, false
		}
	}

	return ListParams{
		From:     from,
		To:       to,
		OfficeID: officeID,
		Global:   officeID == nil && req.Global,
	}, true
}

