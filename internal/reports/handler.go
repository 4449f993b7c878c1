package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wowdasare/everpack-system-hnd/internal/shared"
	"github.com/wowdasare/everpack-system-hnd/internal/view"
)

// Handler serves the reports area.
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

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.Get("/sales", h.salesReport)
	r.Get("/sales.csv", h.salesCSV)
	r.Get("/stock", h.stockReport)
	r.Get("/stock.csv", h.stockCSV)
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.MonthlySummary(r.Context())
	if err != nil {
		h.logger.Error("monthly summary failed", slog.Any("error", err))
		h.render(w, r, "pages/reports.html", map[string]any{"Errors": map[string]string{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/reports.html", map[string]any{
		"Summary":          summary,
		"TotalFormatted":   h.service.FormatAmount(summary.TotalAmount),
		"PaidFormatted":    h.service.FormatAmount(summary.TotalPaid),
		"OutstandingTotal": h.service.FormatAmount(summary.Outstanding),
	}, http.StatusOK)
}

func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	from, to := parseRange(r)
	report, err := h.service.BuildSalesReport(r.Context(), from, to)
	if err != nil {
		h.logger.Error("sales report failed", slog.Any("error", err))
		h.render(w, r, "pages/sales_report.html", map[string]any{"Errors": map[string]string{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/sales_report.html", map[string]any{
		"Report":           report,
		"TotalFormatted":   h.service.FormatAmount(report.TotalAmount),
		"PaidFormatted":    h.service.FormatAmount(report.TotalPaid),
		"OutstandingTotal": h.service.FormatAmount(report.Outstanding),
	}, http.StatusOK)
}

func (h *Handler) salesCSV(w http.ResponseWriter, r *http.Request) {
	from, to := parseRange(r)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="sales_report.csv"`)
	if err := h.service.WriteSalesCSV(r.Context(), w, from, to); err != nil {
		h.logger.Error("sales csv failed", slog.Any("error", err))
	}
}

func (h *Handler) stockReport(w http.ResponseWriter, r *http.Request) {
	levels, err := h.service.StockReport(r.Context())
	if err != nil {
		h.logger.Error("stock report failed", slog.Any("error", err))
		h.render(w, r, "pages/stock_report.html", map[string]any{"Errors": map[string]string{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/stock_report.html", map[string]any{"Levels": levels}, http.StatusOK)
}

func (h *Handler) stockCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="stock_report.csv"`)
	if err := h.service.WriteStockCSV(r.Context(), w); err != nil {
		h.logger.Error("stock csv failed", slog.Any("error", err))
	}
}

func parseRange(r *http.Request) (time.Time, time.Time) {
	var from, to time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		if parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local); err == nil {
			from = parsed
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local); err == nil {
			to = parsed
		}
	}
	return from, to
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
	viewData := view.TemplateData{Title: "Reports", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Role: role, Data: data}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}
