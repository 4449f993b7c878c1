package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wowdasare/everpack-system-hnd/internal/shared"
)

func gateRequest(t *testing.T, path string, sess *shared.Session) *httptest.ResponseRecorder {
	t.Helper()
	passed := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		passed = true
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sess != nil {
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	rec := httptest.NewRecorder()
	Gate{}.Middleware(next).ServeHTTP(rec, req)
	if rec.Code == http.StatusOK {
		require.True(t, passed)
	}
	return rec
}

func sessionWithRole(role Role) *shared.Session {
	sess := &shared.Session{}
	sess.SetUser("7", role.String())
	return sess
}

func TestGateRedirectsAnonymous(t *testing.T) {
	rec := gateRequest(t, "/inventory/products", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, LoginPath, rec.Header().Get("Location"))
}

func TestGateAllowsGrantedApp(t *testing.T) {
	rec := gateRequest(t, "/sales", sessionWithRole(RoleSalesRep))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = gateRequest(t, "/inventory/products/add", sessionWithRole(RoleManager))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = gateRequest(t, "/admin", sessionWithRole(RoleAdministrator))
	require.Equal(t, http.StatusOK, rec.Code)
}

// Denials redirect to the role's landing page; they never answer 403,
// so restricted areas are indistinguishable from the user's home.
func TestGateDeniesWithRedirectNotForbidden(t *testing.T) {
	sess := sessionWithRole(RoleSalesRep)
	rec := gateRequest(t, "/reports", sess)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))

	flash := sess.PopFlash()
	require.NotNil(t, flash)
	require.Equal(t, "error", flash.Kind)

	rec = gateRequest(t, "/admin", sessionWithRole(RoleManager))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))

	// Job triggers sit in the admin area; the health probe stays open.
	rec = gateRequest(t, "/jobs/stock-alert-scan", sessionWithRole(RoleManager))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = gateRequest(t, "/jobs/stock-alert-scan", sessionWithRole(RoleAdministrator))
	require.Equal(t, http.StatusOK, rec.Code)
}

// The nested stock movements area resolves before its /inventory
// parent, so a sales rep allowed into inventory is still kept out.
func TestGateBlocksNestedStockMovements(t *testing.T) {
	sess := sessionWithRole(RoleSalesRep)

	rec := gateRequest(t, "/inventory/products", sess)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = gateRequest(t, "/inventory/stock-movements", sess)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = gateRequest(t, "/inventory/stock-movements/add", sessionWithRole(RoleManager))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGateUnknownRoleDeniedEverywhere(t *testing.T) {
	sess := &shared.Session{}
	sess.SetUser("9", "superuser")
	for _, path := range []string{"/dashboard", "/inventory", "/sales", "/reports", "/admin"} {
		rec := gateRequest(t, path, sess)
		require.Equal(t, http.StatusSeeOther, rec.Code, "path %s", path)
		require.Equal(t, LoginPath, rec.Header().Get("Location"), "path %s", path)
	}
}

func TestGateUnresolvedPathDenied(t *testing.T) {
	rec := gateRequest(t, "/payroll", sessionWithRole(RoleAdministrator))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestGateExemptsOpsAndAuthPaths(t *testing.T) {
	for _, path := range []string{LoginPath, "/healthz", "/metrics", "/jobs/health", "/static/css/app.css", "/welcome", "/"} {
		rec := gateRequest(t, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, "path %s", path)
	}
}

func TestResolveApp(t *testing.T) {
	app, ok := ResolveApp("/inventory/stock-movements/add")
	require.True(t, ok)
	require.Equal(t, AppStockMovements, app)

	app, ok = ResolveApp("/inventory")
	require.True(t, ok)
	require.Equal(t, AppInventory, app)

	app, ok = ResolveApp("/accounts/users/4/edit")
	require.True(t, ok)
	require.Equal(t, AppAccountsUsers, app)

	app, ok = ResolveApp("/accounts/profile")
	require.True(t, ok)
	require.Equal(t, AppAccounts, app)

	_, ok = ResolveApp("/unknown")
	require.False(t, ok)
}

func TestLandingPath(t *testing.T) {
	require.Equal(t, "/dashboard", LandingPath(RoleAdministrator))
	require.Equal(t, "/dashboard", LandingPath(RoleManager))
	require.Equal(t, "/dashboard", LandingPath(RoleSalesRep))
	require.Equal(t, LoginPath, LandingPath(Role("ghost")))
}
