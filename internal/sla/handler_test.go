package sla

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"franchise_crm/internal/authz"
	"franchise_crm/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeLister struct {
	last ListParams
}

func (l *fakeLister) List(_ context.Context, p ListParams) (ListResult, error) {
	l.last = p
	return ListResult{Items: []Escalation{}, Page: p.Page, PageSize: p.PageSize}, nil
}

func newBreachRouter(lister Lister, roles []string, office *uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(lister, nil)
	r := gin.New()
	r.GET("/sla/breaches", func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, uuid.New())
		c.Set(httpkit.ContextRolesKey, roles)
		if office != nil {
			c.Set(httpkit.ContextOfficeIDKey, *office)
		}
	}, h.ListBreaches)
	return r
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestListBreachesScope(t *testing.T) {
	office := uuid.New()
	other := uuid.New()

	t.Run("admin filters freely", func(t *testing.T) {
		lister := &fakeLister{}
		w := get(newBreachRouter(lister, []string{authz.RoleCentralAdmin}, nil), "/sla/breaches?officeId="+other.String()+"&clock=report&open=true")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if lister.last.OfficeID == nil || *lister.last.OfficeID != other {
			t.Fatalf("expected office filter %s, got %v", other, lister.last.OfficeID)
		}
		if lister.last.Clock == nil || *lister.last.Clock != ClockReport || !lister.last.OpenOnly {
			t.Fatalf("unexpected params %+v", lister.last)
		}
		if lister.last.Page != 1 || lister.last.PageSize != 20 {
			t.Fatalf("expected default paging, got %d/%d", lister.last.Page, lister.last.PageSize)
		}
	})

	t.Run("manager pinned to own office", func(t *testing.T) {
		lister := &fakeLister{}
		w := get(newBreachRouter(lister, []string{authz.RoleOfficeManager}, &office), "/sla/breaches")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if lister.last.OfficeID == nil || *lister.last.OfficeID != office {
			t.Fatalf("expected own office, got %v", lister.last.OfficeID)
		}
	})

	t.Run("manager asking for another office", func(t *testing.T) {
		w := get(newBreachRouter(&fakeLister{}, []string{authz.RoleOfficeManager}, &office), "/sla/breaches?officeId="+other.String())
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})

	t.Run("unknown clock", func(t *testing.T) {
		w := get(newBreachRouter(&fakeLister{}, []string{authz.RoleCentralAdmin}, nil), "/sla/breaches?clock=weekly")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}
