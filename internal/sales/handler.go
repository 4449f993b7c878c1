package sales

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/wowdasare/everpack-system-hnd/internal/authz"
	"github.com/wowdasare/everpack-system-hnd/internal/inventory"
	"github.com/wowdasare/everpack-system-hnd/internal/shared"
	"github.com/wowdasare/everpack-system-hnd/internal/view"
)

// Handler serves the sales area: invoices, payments, customers, and
// bulk orders.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	inventory *inventory.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	sessions  *shared.SessionManager
	validate  *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, inv *inventory.Service, templates *view.Engine, csrf *shared.CSRFManager, sessions *shared.SessionManager) *Handler {
	return &Handler{logger: logger, service: service, inventory: inv, templates: templates, csrf: csrf, sessions: sessions, validate: validator.New()}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listSales)
	r.Get("/add", h.showSaleForm)
	r.Post("/", h.createSale)
	r.Get("/{id}", h.saleDetail)
	r.Post("/{id}/payments", h.addPayment)
	r.Post("/{id}/items/{itemID}/reduce", h.reduceItem)
	r.Route("/customers", func(r chi.Router) {
		r.Get("/", h.listCustomers)
		r.Get("/add", h.showCustomerForm)
		r.Post("/", h.saveCustomer)
		r.Get("/{id}/edit", h.showCustomerForm)
		r.Post("/{id}", h.saveCustomer)
	})
	r.Route("/bulk-orders", func(r chi.Router) {
		r.Get("/", h.listBulkOrders)
		r.Get("/add", h.showBulkOrderForm)
		r.Post("/", h.createBulkOrder)
		r.Get("/{id}", h.bulkOrderDetail)
		r.Post("/{id}/submit", h.submitBulkOrder)
		r.Post("/{id}/cancel", h.cancelBulkOrder)
		r.Post("/{id}/convert", h.convertBulkOrder)
	})
}

type formErrors map[string]string

type customerForm struct {
	Name    string `validate:"required,max=200"`
	Phone   string `validate:"max=30"`
	Email   string `validate:"omitempty,email"`
	Address string
	Type    string `validate:"required,oneof=RETAIL WHOLESALE DISTRIBUTOR"`
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.service.ListSales(r.Context(), SaleFilter{Limit: 200})
	if err != nil {
		h.logger.Error("list sales failed", slog.Any("error", err))
		h.render(w, r, "pages/sales.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/sales.html", map[string]any{"Sales": sales}, http.StatusOK)
}

func (h *Handler) showSaleForm(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"Errors": formErrors{}, "SubmissionKey": uuid.NewString()}
	h.loadSaleFormOptions(r, data)
	h.render(w, r, "pages/sale_form.html", data, http.StatusOK)
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := h.currentActor(r)
	if !ok {
		http.Redirect(w, r, authz.LoginPath, http.StatusSeeOther)
		return
	}
	if !authz.Can(role, authz.AppSales, authz.ActionAdd) {
		h.redirectWithFlash(w, r, "/sales", "error", "You do not have permission to access this page.")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	input := SaleInput{
		CustomerID:     parseID(r.PostFormValue("customer_id")),
		AmountPaid:     parseFloat(r.PostFormValue("amount_paid")),
		PaymentMethod:  PaymentMethod(r.PostFormValue("payment_method")),
		Notes:          r.PostFormValue("notes"),
		ActorID:        actorID,
		IdempotencyKey: r.PostFormValue("submission_key"),
		Items:          parseItems(r),
	}
	if raw := r.PostFormValue("sale_date"); raw != "" {
		if parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local); err == nil {
			input.SaleDate = parsed
		}
	}
	sale, err := h.service.CreateSale(r.Context(), input)
	if err != nil {
		h.logger.Error("create sale", slog.Any("error", err))
		errs := formErrors{}
		switch {
		case errors.Is(err, ErrEmptySale):
			errs["Items"] = "Add at least one product to the sale"
		case errors.Is(err, ErrBackdatedSale), errors.Is(err, ErrFutureSale):
			errs["SaleDate"] = "Sale date must be today"
		case errors.Is(err, ErrOverpayment):
			errs["AmountPaid"] = "Amount paid cannot exceed the sale total"
		case errors.Is(err, ErrDuplicateSubmission):
			h.redirectWithFlash(w, r, "/sales", "info", "This sale was already recorded")
			return
		case errors.Is(err, inventory.ErrInsufficientStock):
			errs["Items"] = "Not enough stock on hand for one of the products"
		default:
			errs["general"] = shared.UserSafeMessage(err)
		}
		data := map[string]any{"Errors": errs, "SubmissionKey": uuid.NewString()}
		h.loadSaleFormOptions(r, data)
		h.render(w, r, "pages/sale_form.html", data, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/sales/"+strconv.FormatInt(sale.ID, 10), "success", "Sale "+sale.InvoiceNumber+" has been recorded successfully")
}

func (h *Handler) saleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		h.redirectWithFlash(w, r, "/sales", "error", shared.UserSafeMessage(err))
		return
	}
	h.render(w, r, "pages/sale_detail.html", map[string]any{"Sale": sale}, http.StatusOK)
}

func (h *Handler) addPayment(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := h.currentActor(r)
	if !ok {
		http.Redirect(w, r, authz.LoginPath, http.StatusSeeOther)
		return
	}
	if !authz.Can(role, authz.AppSales, authz.ActionChange) {
		h.redirectWithFlash(w, r, "/sales", "error", "You do not have permission to access this page.")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	location := "/sales/" + strconv.FormatInt(id, 10)
	_, err = h.service.AddPayment(r.Context(), actorID, id, parseFloat(r.PostFormValue("amount")))
	if err != nil {
		if errors.Is(err, ErrOverpayment) {
			h.redirectWithFlash(w, r, location, "error", "Payment exceeds the outstanding balance")
			return
		}
		h.redirectWithFlash(w, r, location, "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, location, "success", "Payment recorded")
}

func (h *Handler) reduceItem(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := h.currentActor(r)
	if !ok {
		http.Redirect(w, r, authz.LoginPath, http.StatusSeeOther)
		return
	}
	if !authz.Can(role, authz.AppSales, authz.ActionChange) {
		h.redirectWithFlash(w, r, "/sales", "error", "You do not have permission to access this page.")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	location := "/sales/" + strconv.FormatInt(id, 10)
	newQty := int(parseID(r.PostFormValue("quantity")))
	if err := h.service.ReduceSaleItem(r.Context(), actorID, id, itemID, newQty); err != nil {
		h.redirectWithFlash(w, r, location, "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, location, "success", "Item quantity reduced and stock returned")
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.ListCustomers(r.Context(), false)
	if err != nil {
		h.logger.Error("list customers failed", slog.Any("error", err))
		h.render(w, r, "pages/customers.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/customers.html", map[string]any{"Customers": customers}, http.StatusOK)
}

func (h *Handler) showCustomerForm(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"Errors": formErrors{}}
	if raw := chi.URLParam(r, "id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		customer, err := h.service.GetCustomer(r.Context(), id)
		if err != nil {
			h.redirectWithFlash(w, r, "/sales/customers", "error", shared.UserSafeMessage(err))
			return
		}
		data["Customer"] = customer
	}
	data["Types"] = []CustomerType{CustomerRetail, CustomerWholesale, CustomerDistributor}
	h.render(w, r, "pages/customer_form.html", data, http.StatusOK)
}

func (h *Handler) saveCustomer(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := h.currentActor(r)
	if !ok {
		http.Redirect(w, r, authz.LoginPath, http.StatusSeeOther)
		return
	}
	var id int64
	action := authz.ActionAdd
	if raw := chi.URLParam(r, "id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		id = parsed
		action = authz.ActionChange
	}
	if !authz.Can(role, authz.AppSales, action) {
		h.redirectWithFlash(w, r, "/sales/customers", "error", "You do not have permission to access this page.")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := customerForm{
		Name:    r.PostFormValue("name"),
		Phone:   r.PostFormValue("phone"),
		Email:   r.PostFormValue("email"),
		Address: r.PostFormValue("address"),
		Type:    r.PostFormValue("customer_type"),
	}
	errs := formErrors{}
	if err := h.validate.Struct(form); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			errs[fieldErr.Field()] = fieldErr.Error()
		}
	}
	if len(errs) > 0 {
		h.render(w, r, "pages/customer_form.html", map[string]any{"Errors": errs, "Form": form, "Types": []CustomerType{CustomerRetail, CustomerWholesale, CustomerDistributor}}, http.StatusBadRequest)
		return
	}
	_, err := h.service.SaveCustomer(r.Context(), actorID, Customer{
		ID:       id,
		Name:     form.Name,
		Phone:    form.Phone,
		Email:    form.Email,
		Address:  form.Address,
		Type:     CustomerType(form.Type),
		IsActive: r.PostFormValue("is_active") != "",
	})
	if err != nil {
		h.logger.Error("save customer", slog.Any("error", err))
		errs["general"] = shared.UserSafeMessage(err)
		h.render(w, r, "pages/customer_form.html", map[string]any{"Errors": errs, "Form": form, "Types": []CustomerType{CustomerRetail, CustomerWholesale, CustomerDistributor}}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/sales/customers", "success", "Customer \""+form.Name+"\" has been saved successfully")
}

func (h *Handler) listBulkOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListBulkOrders(r.Context())
	if err != nil {
		h.logger.Error("list bulk orders failed", slog.Any("error", err))
		h.render(w, r, "pages/bulk_orders.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/bulk_orders.html", map[string]any{"Orders": orders}, http.StatusOK)
}

func (h *Handler) showBulkOrderForm(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"Errors": formErrors{}}
	h.loadSaleFormOptions(r, data)
	h.render(w, r, "pages/bulk_order_form.html", data, http.StatusOK)
}

func (h *Handler) createBulkOrder(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := h.currentActor(r)
	if !ok {
		http.Redirect(w, r, authz.LoginPath, http.StatusSeeOther)
		return
	}
	if !authz.Can(role, authz.AppSales, authz.ActionAdd) {
		h.redirectWithFlash(w, r, "/sales/bulk-orders", "error", "You do not have permission to access this page.")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	order, err := h.service.CreateBulkOrder(r.Context(), BulkOrderInput{
		CustomerID: parseID(r.PostFormValue("customer_id")),
		Notes:      r.PostFormValue("notes"),
		Items:      parseItems(r),
		ActorID:    actorID,
	})
	if err != nil {
		h.logger.Error("create bulk order", slog.Any("error", err))
		errs := formErrors{"general": shared.UserSafeMessage(err)}
		if errors.Is(err, ErrEmptySale) {
			errs = formErrors{"Items": "Add at least one product to the order"}
		}
		data := map[string]any{"Errors": errs}
		h.loadSaleFormOptions(r, data)
		h.render(w, r, "pages/bulk_order_form.html", data, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/sales/bulk-orders/"+strconv.FormatInt(order.ID, 10), "success", "Bulk order "+order.OrderNumber+" has been created")
}

func (h *Handler) bulkOrderDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	order, err := h.service.GetBulkOrder(r.Context(), id)
	if err != nil {
		h.redirectWithFlash(w, r, "/sales/bulk-orders", "error", shared.UserSafeMessage(err))
		return
	}
	h.render(w, r, "pages/bulk_order_detail.html", map[string]any{"Order": order}, http.StatusOK)
}

func (h *Handler) submitBulkOrder(w http.ResponseWriter, r *http.Request) {
	h.bulkOrderAction(w, r, func(actorID, id int64) error {
		return h.service.SubmitBulkOrder(r.Context(), actorID, id)
	}, "Bulk order submitted")
}

func (h *Handler) cancelBulkOrder(w http.ResponseWriter, r *http.Request) {
	h.bulkOrderAction(w, r, func(actorID, id int64) error {
		return h.service.CancelBulkOrder(r.Context(), actorID, id)
	}, "Bulk order cancelled")
}

func (h *Handler) convertBulkOrder(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := h.currentActor(r)
	if !ok {
		http.Redirect(w, r, authz.LoginPath, http.StatusSeeOther)
		return
	}
	if !authz.Can(role, authz.AppSales, authz.ActionAdd) {
		h.redirectWithFlash(w, r, "/sales/bulk-orders", "error", "You do not have permission to access this page.")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	method := PaymentMethod(r.PostFormValue("payment_method"))
	if method == "" {
		method = MethodCredit
	}
	sale, err := h.service.ConvertBulkOrder(r.Context(), actorID, id, method)
	if err != nil {
		location := "/sales/bulk-orders/" + strconv.FormatInt(id, 10)
		switch {
		case errors.Is(err, ErrInvalidTransition):
			h.redirectWithFlash(w, r, location, "error", "Only submitted orders can be converted")
		case errors.Is(err, inventory.ErrInsufficientStock):
			h.redirectWithFlash(w, r, location, "error", "Not enough stock on hand to fulfil this order")
		default:
			h.redirectWithFlash(w, r, location, "error", shared.UserSafeMessage(err))
		}
		return
	}
	h.redirectWithFlash(w, r, "/sales/"+strconv.FormatInt(sale.ID, 10), "success", "Bulk order converted to sale "+sale.InvoiceNumber)
}

func (h *Handler) bulkOrderAction(w http.ResponseWriter, r *http.Request, fn func(actorID, id int64) error, success string) {
	actorID, role, ok := h.currentActor(r)
	if !ok {
		http.Redirect(w, r, authz.LoginPath, http.StatusSeeOther)
		return
	}
	if !authz.Can(role, authz.AppSales, authz.ActionChange) {
		h.redirectWithFlash(w, r, "/sales/bulk-orders", "error", "You do not have permission to access this page.")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	location := "/sales/bulk-orders/" + strconv.FormatInt(id, 10)
	if err := fn(actorID, id); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			h.redirectWithFlash(w, r, location, "error", "This order cannot change to that state")
			return
		}
		h.redirectWithFlash(w, r, location, "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, location, "success", success)
}

func (h *Handler) loadSaleFormOptions(r *http.Request, data map[string]any) {
	customers, err := h.service.ListCustomers(r.Context(), true)
	if err != nil {
		h.logger.Error("load customers", slog.Any("error", err))
	}
	data["Customers"] = customers
	if h.inventory != nil {
		products, err := h.inventory.ListProducts(r.Context(), true)
		if err != nil {
			h.logger.Error("load products", slog.Any("error", err))
		}
		data["Products"] = products
	}
	data["Methods"] = []PaymentMethod{MethodCash, MethodMobileMoney, MethodBankTransfer, MethodCredit}
}

// parseItems reads the parallel item_* form arrays into line inputs.
func parseItems(r *http.Request) []SaleItemInput {
	products := r.PostForm["item_product"]
	quantities := r.PostForm["item_quantity"]
	prices := r.PostForm["item_unit_price"]
	var items []SaleItemInput
	for i, raw := range products {
		productID := parseID(raw)
		if productID == 0 {
			continue
		}
		item := SaleItemInput{ProductID: productID}
		if i < len(quantities) {
			item.Quantity = int(parseID(quantities[i]))
		}
		if i < len(prices) {
			item.UnitPrice = parseFloat(prices[i])
		}
		items = append(items, item)
	}
	return items
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
	viewData := view.TemplateData{Title: "Sales", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Role: role, Data: data}
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
