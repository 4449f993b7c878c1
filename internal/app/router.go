package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wowdasare/everpack-system-hnd/internal/auth"
	"github.com/wowdasare/everpack-system-hnd/internal/authz"
	"github.com/wowdasare/everpack-system-hnd/internal/dashboard"
	"github.com/wowdasare/everpack-system-hnd/internal/inventory"
	"github.com/wowdasare/everpack-system-hnd/internal/observability"
	"github.com/wowdasare/everpack-system-hnd/internal/reports"
	"github.com/wowdasare/everpack-system-hnd/internal/sales"
	"github.com/wowdasare/everpack-system-hnd/internal/shared"
	"github.com/wowdasare/everpack-system-hnd/internal/users"
	"github.com/wowdasare/everpack-system-hnd/internal/view"
	"github.com/wowdasare/everpack-system-hnd/jobs"
	"github.com/wowdasare/everpack-system-hnd/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Templates        *view.Engine
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AccessGate       authz.Gate
	AuthHandler      *auth.Handler
	UsersHandler     *users.Handler
	InventoryHandler *inventory.Handler
	SalesHandler     *sales.Handler
	DashboardHandler *dashboard.Handler
	ReportsHandler   *reports.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with EverPack defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		AccessGate:     params.AccessGate,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Landing page for unauthenticated users
	r.Get("/welcome", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
		var flash *shared.FlashMessage
		if sess != nil {
			flash = sess.PopFlash()
		}
		data := view.TemplateData{
			Title:     "EverPack System",
			CSRFToken: csrfToken,
			Flash:     flash,
		}
		if err := params.Templates.Render(w, "pages/landing.html", data); err != nil {
			params.Logger.Error("render landing", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})

	// The root route hands signed-in users to their role's landing
	// page; the gate never inspects "/" itself.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		if !shared.IsAuthenticated(r.Context()) {
			http.Redirect(w, r, "/welcome", http.StatusSeeOther)
			return
		}
		sess := shared.SessionFromContext(r.Context())
		role, err := authz.ParseRole(sess.Role())
		if err != nil {
			http.Redirect(w, r, authz.LoginPath, http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, authz.LandingPath(role), http.StatusSeeOther)
	})

	r.Route("/accounts", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r)
		params.UsersHandler.MountRoutes(r)
	})
	r.Route("/dashboard", params.DashboardHandler.MountRoutes)
	r.Route("/inventory", params.InventoryHandler.MountRoutes)
	r.Route("/sales", params.SalesHandler.MountRoutes)
	r.Route("/reports", params.ReportsHandler.MountRoutes)

	// Administration home. The gate only lets administrators this far.
	r.Get("/admin", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
		var flash *shared.FlashMessage
		var role string
		if sess != nil {
			flash = sess.PopFlash()
			role = sess.Role()
		}
		data := view.TemplateData{
			Title:       "Administration",
			CSRFToken:   csrfToken,
			Flash:       flash,
			CurrentPath: r.URL.Path,
			Role:        role,
		}
		if err := params.Templates.Render(w, "pages/admin.html", data); err != nil {
			params.Logger.Error("render admin", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers so
// browsers keep assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
