package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"franchise_crm/platform/apperr"
	"franchise_crm/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestCentralAdminHoldsEveryPermission(t *testing.T) {
	set := Default().Resolve([]string{RoleCentralAdmin})
	if len(set) != len(All) {
		t.Fatalf("expected %d permissions, got %d", len(All), len(set))
	}
	if len(All) != 23 {
		t.Fatalf("expected 23 permission tokens, got %d", len(All))
	}
}

func TestResolveIsUnionOfBundles(t *testing.T) {
	set := Default().Resolve([]string{RoleOfficeFieldRep, RoleCentralCaller, "unknown_role"})

	for _, p := range []Permission{ReportsSubmit, LeadsViewOwnOffice, CallsMake, LeadsClassify} {
		if !set.Has(p) {
			t.Errorf("expected union to contain %s", p)
		}
	}
	if set.Has(FranchiseManage) {
		t.Error("did not expect franchise.manage in union")
	}
}

func TestFieldRepCanSubmitReportButNotManageOffices(t *testing.T) {
	rep := httpkit.NewIdentity(uuid.New(), []string{RoleOfficeFieldRep}, nil)

	if err := Authorize(rep, OpSubmitReport); err != nil {
		t.Fatalf("expected field rep to submit reports: %v", err)
	}
	err := Authorize(rep, OpManageOffice)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCompleteAndNoShowOnlyNeedAuthentication(t *testing.T) {
	noRoles := httpkit.NewIdentity(uuid.New(), nil, nil)

	for _, op := range []Operation{OpCompleteAppointment, OpNoShowAppointment} {
		if err := Authorize(noRoles, op); err != nil {
			t.Errorf("%s: expected authenticated user to pass, got %v", op, err)
		}
	}
	for _, op := range []Operation{OpCreateAppointment, OpConfirmAppointment} {
		if err := Authorize(noRoles, op); !apperr.Is(err, apperr.KindForbidden) {
			t.Errorf("%s: expected forbidden, got %v", op, err)
		}
	}
	if err := Authorize(nil, OpCompleteAppointment); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("expected unauthorized for anonymous caller, got %v", err)
	}
}

func TestLoadRejectsUnknownPermission(t *testing.T) {
	_, err := Load([]byte("roles:\n  x:\n    permissions: [leads.fly]\n"))
	if err == nil {
		t.Fatal("expected error for unknown permission")
	}
}

func TestRolesWith(t *testing.T) {
	roles := Default().RolesWith(AppointmentsConfirm)
	if len(roles) != 2 || roles[0] != RoleOfficeManager || roles[1] != RoleCentralAdmin {
		t.Fatalf("unexpected roles: %v", roles)
	}
}

func TestRequireMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, uuid.New())
		c.Set(httpkit.ContextRolesKey, []string{RoleOfficeFieldRep})
		c.Next()
	})
	r.POST("/offices", Require(OpManageOffice), func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.POST("/reports", Require(OpSubmitReport), func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/offices", nil))
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for office creation, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reports", nil))
	if w.Code != http.StatusCreated {
		t.Errorf("expected 201 for report submission, got %d", w.Code)
	}
}
