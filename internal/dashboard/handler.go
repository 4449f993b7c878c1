package dashboard

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wowdasare/everpack-system-hnd/internal/platform/httpx"
	"github.com/wowdasare/everpack-system-hnd/internal/shared"
	"github.com/wowdasare/everpack-system-hnd/internal/view"
)

// Handler serves the dashboard page and its chart feed.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.Get("/chart-data", h.chartData)
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("dashboard stats failed", slog.Any("error", err))
	}
	h.render(w, r, "pages/dashboard.html", map[string]any{"Stats": stats}, http.StatusOK)
}

func (h *Handler) chartData(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			days = parsed
		}
	}
	points, err := h.service.SalesTrend(r.Context(), days)
	if err != nil {
		h.logger.Error("chart data failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "chart data unavailable", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"points": points})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	var role string
	if sess != nil {
		flash = sess.PopFlash()
		role = sess.Role()
	}
	viewData := view.TemplateData{Title: "Dashboard", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Role: role, Data: data}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}
