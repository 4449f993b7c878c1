package authz

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/wowdasare/everpack-system-hnd/internal/shared"
)

// LoginPath is where denied or unauthenticated requests end up.
const LoginPath = "/accounts/login"

// appPrefixes maps URL prefixes onto apps. Longer prefixes come first
// so nested areas resolve before their parent.
var appPrefixes = []struct {
	prefix string
	app    App
}{
	{"/inventory/stock-movements", AppStockMovements},
	{"/accounts/users", AppAccountsUsers},
	{"/dashboard", AppDashboard},
	{"/inventory", AppInventory},
	{"/sales", AppSales},
	{"/reports", AppReports},
	{"/accounts", AppAccounts},
	{"/admin", AppAdmin},
	{"/jobs", AppAdmin},
}

// exemptPrefixes bypass the gate entirely: authentication endpoints,
// health and ops checks, and static assets.
var exemptPrefixes = []string{
	LoginPath,
	"/accounts/logout",
	"/healthz",
	"/metrics",
	"/jobs/health",
	"/static/",
	"/welcome",
}

// ResolveApp maps a request path onto the app that gates it.
func ResolveApp(path string) (App, bool) {
	for _, entry := range appPrefixes {
		if path == entry.prefix || strings.HasPrefix(path, entry.prefix+"/") {
			return entry.app, true
		}
	}
	return "", false
}

// LandingPath returns the page a denied user is sent to. Redirect
// loops are avoided the same way the role table is consulted anywhere
// else: only areas the role can actually enter are candidates.
func LandingPath(role Role) string {
	if CanAccessApp(role, AppDashboard) {
		return "/dashboard"
	}
	if CanAccessApp(role, AppSales) {
		return "/sales"
	}
	return LoginPath
}

// Gate enforces app-level access for every routed request.
type Gate struct {
	Logger *slog.Logger
}

// Middleware resolves the requester's role and the target app, then
// either passes the request through untouched or redirects to a
// role-appropriate landing page. Denials never surface as a 403 so
// the shape of restricted areas is not advertised.
func (g Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" || g.isExempt(path) {
			next.ServeHTTP(w, r)
			return
		}

		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}

		role, err := ParseRole(sess.Role())
		if err != nil {
			// Configuration anomaly: an assigned role outside the
			// enumerated set. Deny everything.
			if g.Logger != nil {
				g.Logger.Warn("unknown role on session",
					slog.String("role", sess.Role()),
					slog.String("user", sess.User()))
			}
			sess.AddFlash(shared.FlashMessage{Kind: "error", Message: "Your account does not have a valid role assigned."})
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}

		app, ok := ResolveApp(path)
		if !ok || !CanAccessApp(role, app) {
			sess.AddFlash(shared.FlashMessage{Kind: "error", Message: "You do not have permission to access this page."})
			http.Redirect(w, r, LandingPath(role), http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (g Gate) isExempt(path string) bool {
	for _, prefix := range exemptPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
