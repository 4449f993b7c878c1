package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/wowdasare/everpack-system-hnd/internal/authz"
	"github.com/wowdasare/everpack-system-hnd/internal/shared"
	"github.com/wowdasare/everpack-system-hnd/internal/view"
)

// Handler serves the inventory area: the product catalogue, the stock
// movement ledger, and alerting views.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	sessions  *shared.SessionManager
	validate  *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, sessions *shared.SessionManager) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, sessions: sessions, validate: validator.New()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listProducts)
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Get("/add", h.showProductForm)
		r.Post("/", h.createProduct)
		r.Get("/{id}/edit", h.showProductForm)
		r.Post("/{id}", h.updateProduct)
		r.Post("/{id}/delete", h.deleteProduct)
	})
	r.Route("/stock-movements", func(r chi.Router) {
		r.Get("/", h.listMovements)
		r.Get("/add", h.showMovementForm)
		r.Post("/", h.createMovement)
	})
	r.Get("/low-stock", h.lowStock)
	r.Get("/stock-alerts", h.stockAlerts)
	r.Post("/stock-alerts/{productID}/resolve", h.resolveAlerts)
}

type formErrors map[string]string

type productForm struct {
	Name              string `validate:"required,max=200"`
	Description       string
	CategoryID        int64  `validate:"required"`
	SKU               string `validate:"required,max=50"`
	Barcode           string `validate:"max=50"`
	Unit              string `validate:"required"`
	CostPrice         float64
	SellingPrice      float64
	MinimumStockLevel int
	SupplierID        int64 `validate:"required"`
	IsActive          bool
}

type movementForm struct {
	ProductID int64  `validate:"required"`
	Type      string `validate:"required,oneof=IN OUT"`
	Quantity  int    `validate:"required,gt=0"`
	Reason    string `validate:"required"`
	Reference string `validate:"max=100"`
	Notes     string
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context(), false)
	if err != nil {
		h.logger.Error("list products failed", slog.Any("error", err))
		h.render(w, r, "pages/products.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/products.html", map[string]any{"Products": products}, http.StatusOK)
}

func (h *Handler) showProductForm(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"Errors": formErrors{}}
	if raw := chi.URLParam(r, "id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		product, err := h.service.GetProduct(r.Context(), id)
		if err != nil {
			h.redirectWithFlash(w, r, "/inventory/products", "error", shared.UserSafeMessage(err))
			return
		}
		data["Product"] = product
	}
	h.loadFormOptions(w, r, data)
	h.render(w, r, "pages/product_form.html", data, http.StatusOK)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, 0)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	h.saveProduct(w, r, id)
}

func (h *Handler) saveProduct(w http.ResponseWriter, r *http.Request, id int64) {
	actorID, role, ok := h.currentActor(r)
	if !ok {
		http.Redirect(w, r, authz.LoginPath, http.StatusSeeOther)
		return
	}
	action := authz.ActionAdd
	if id != 0 {
		action = authz.ActionChange
	}
	if !authz.Can(role, authz.AppInventory, action) {
		h.redirectWithFlash(w, r, "/inventory/products", "error", "You do not have permission to access this page.")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := productForm{
		Name:              r.PostFormValue("name"),
		Description:       r.PostFormValue("description"),
		CategoryID:        parseID(r.PostFormValue("category_id")),
		SKU:               r.PostFormValue("sku"),
		Barcode:           r.PostFormValue("barcode"),
		Unit:              r.PostFormValue("unit"),
		CostPrice:         parseFloat(r.PostFormValue("cost_price")),
		SellingPrice:      parseFloat(r.PostFormValue("selling_price")),
		MinimumStockLevel: int(parseID(r.PostFormValue("minimum_stock_level"))),
		SupplierID:        parseID(r.PostFormValue("supplier_id")),
		IsActive:          r.PostFormValue("is_active") != "",
	}
	errs := formErrors{}
	if err := h.validate.Struct(form); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			errs[fieldErr.Field()] = fieldErr.Error()
		}
	}
	if len(errs) > 0 {
		data := map[string]any{"Errors": errs, "Form": form}
		h.loadFormOptions(w, r, data)
		h.render(w, r, "pages/product_form.html", data, http.StatusBadRequest)
		return
	}
	_, err := h.service.SaveProduct(r.Context(), actorID, Product{
		ID:                id,
		Name:              form.Name,
		Description:       form.Description,
		CategoryID:        form.CategoryID,
		SKU:               form.SKU,
		Barcode:           form.Barcode,
		Unit:              Unit(form.Unit),
		CostPrice:         form.CostPrice,
		SellingPrice:      form.SellingPrice,
		MinimumStockLevel: form.MinimumStockLevel,
		SupplierID:        form.SupplierID,
		IsActive:          form.IsActive,
	})
	if err != nil {
		h.logger.Error("save product", slog.Any("error", err))
		if errors.Is(err, ErrDuplicateSKU) {
			errs["SKU"] = "A product with this SKU already exists"
		} else {
			errs["general"] = shared.UserSafeMessage(err)
		}
		data := map[string]any{"Errors": errs, "Form": form}
		h.loadFormOptions(w, r, data)
		h.render(w, r, "pages/product_form.html", data, http.StatusBadRequest)
		return
	}
	message := "Product \"" + form.Name + "\" has been created successfully"
	if id != 0 {
		message = "Product \"" + form.Name + "\" has been updated successfully"
	}
	h.redirectWithFlash(w, r, "/inventory/products", "success", message)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := h.currentActor(r)
	if !ok {
		http.Redirect(w, r, authz.LoginPath, http.StatusSeeOther)
		return
	}
	// Only grants carrying the delete action may remove products.
	if !authz.Can(role, authz.AppInventory, authz.ActionDelete) {
		h.redirectWithFlash(w, r, "/inventory/products", "error", "You do not have permission to access this page.")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := h.service.DeleteProduct(r.Context(), actorID, id); err != nil {
		h.redirectWithFlash(w, r, "/inventory/products", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/inventory/products", "success", "Product deleted")
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	filter := MovementFilter{Limit: 200}
	if raw := r.URL.Query().Get("product"); raw != "" {
		filter.ProductID = parseID(raw)
	}
	movements, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		h.logger.Error("list movements failed", slog.Any("error", err))
		h.render(w, r, "pages/stock_movements.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/stock_movements.html", map[string]any{"Movements": movements}, http.StatusOK)
}

func (h *Handler) showMovementForm(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"Errors": formErrors{}}
	products, err := h.service.ListProducts(r.Context(), true)
	if err != nil {
		h.logger.Error("load products for movement form", slog.Any("error", err))
	}
	data["Products"] = products
	h.render(w, r, "pages/stock_movement_form.html", data, http.StatusOK)
}

func (h *Handler) createMovement(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := h.currentActor(r)
	if !ok {
		http.Redirect(w, r, authz.LoginPath, http.StatusSeeOther)
		return
	}
	if !authz.Can(role, authz.AppStockMovements, authz.ActionAdd) {
		h.redirectWithFlash(w, r, "/inventory/stock-movements", "error", "You do not have permission to access this page.")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := movementForm{
		ProductID: parseID(r.PostFormValue("product_id")),
		Type:      r.PostFormValue("movement_type"),
		Quantity:  int(parseID(r.PostFormValue("quantity"))),
		Reason:    r.PostFormValue("reason"),
		Reference: r.PostFormValue("reference"),
		Notes:     r.PostFormValue("notes"),
	}
	errs := formErrors{}
	if err := h.validate.Struct(form); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			errs[fieldErr.Field()] = fieldErr.Error()
		}
	}
	if len(errs) > 0 {
		h.render(w, r, "pages/stock_movement_form.html", map[string]any{"Errors": errs, "Form": form}, http.StatusBadRequest)
		return
	}
	_, err := h.service.PostMovement(r.Context(), MovementInput{
		ProductID: form.ProductID,
		Type:      MovementType(form.Type),
		Quantity:  form.Quantity,
		Reason:    MovementReason(form.Reason),
		Reference: form.Reference,
		Notes:     form.Notes,
		ActorID:   actorID,
	})
	if err != nil {
		h.logger.Error("post movement", slog.Any("error", err))
		switch {
		case errors.Is(err, ErrInsufficientStock):
			errs["Quantity"] = "Not enough stock on hand for this issue"
		case errors.Is(err, ErrInvalidMovement), errors.Is(err, ErrInvalidQuantity):
			errs["general"] = "The movement details are invalid"
		default:
			errs["general"] = shared.UserSafeMessage(err)
		}
		h.render(w, r, "pages/stock_movement_form.html", map[string]any{"Errors": errs, "Form": form}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/inventory/stock-movements", "success", "Stock movement recorded")
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	levels, err := h.service.LowStock(r.Context())
	if err != nil {
		h.logger.Error("low stock failed", slog.Any("error", err))
		h.render(w, r, "pages/low_stock.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/low_stock.html", map[string]any{"Levels": levels}, http.StatusOK)
}

func (h *Handler) stockAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.OpenAlerts(r.Context())
	if err != nil {
		h.logger.Error("stock alerts failed", slog.Any("error", err))
		h.render(w, r, "pages/stock_alerts.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/stock_alerts.html", map[string]any{"Alerts": alerts}, http.StatusOK)
}

func (h *Handler) resolveAlerts(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := h.currentActor(r)
	if !ok {
		http.Redirect(w, r, authz.LoginPath, http.StatusSeeOther)
		return
	}
	if !authz.Can(role, authz.AppInventory, authz.ActionChange) {
		h.redirectWithFlash(w, r, "/inventory/stock-alerts", "error", "You do not have permission to access this page.")
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if _, err := h.service.ResolveProductAlerts(r.Context(), actorID, productID); err != nil {
		h.redirectWithFlash(w, r, "/inventory/stock-alerts", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/inventory/stock-alerts", "success", "Alerts resolved")
}

func (h *Handler) loadFormOptions(w http.ResponseWriter, r *http.Request, data map[string]any) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("load categories", slog.Any("error", err))
	}
	suppliers, err := h.service.ListSuppliers(r.Context())
	if err != nil {
		h.logger.Error("load suppliers", slog.Any("error", err))
	}
	data["Categories"] = categories
	data["Suppliers"] = suppliers
	data["Units"] = []Unit{UnitPack, UnitCarton, UnitPiece, UnitRoll}
	data["Reasons"] = []MovementReason{ReasonPurchase, ReasonSale, ReasonReturn, ReasonDamage, ReasonTheft, ReasonAdjustment, ReasonTransfer}
}

func (h *Handler) currentActor(r *http.Request) (int64, authz.Role, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		return 0, "", false
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		return 0, "", false
	}
	role, err := authz.ParseRole(sess.Role())
	if err != nil {
		return 0, "", false
	}
	return id, role, true
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
	viewData := view.TemplateData{Title: "Inventory", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Role: role, Data: data}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func parseID(raw string) int64 {
	v, _ := strconv.ParseInt(raw, 10, 64)
	return v
}

func parseFloat(raw string) float64 {
	v, _ := strconv.ParseFloat(raw, 64)
	return v
}
