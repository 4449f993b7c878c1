package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/wowdasare/everpack-system-hnd/internal/authz"
	"github.com/wowdasare/everpack-system-hnd/internal/shared"
	"github.com/wowdasare/everpack-system-hnd/internal/view"
)

// Handler manages the accounts area: profile plus user management.
// The app-level gate has already verified the requester may be here;
// action-level checks below consult the same evaluator for the
// destructive operations.
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

// MountRoutes registers account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/profile", h.profile)
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/add", h.showCreateForm)
		r.Post("/", h.create)
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}", h.update)
		r.Post("/{id}/reset-password", h.resetPassword)
		r.Post("/{id}/delete", h.delete)
	})
}

type formErrors map[string]string

type createUserForm struct {
	Username string `validate:"required,min=3,max=150"`
	FullName string `validate:"max=150"`
	Email    string `validate:"omitempty,email"`
	Password string `validate:"required,min=8"`
	Role     string `validate:"required"`
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := h.currentActor(r)
	if !ok {
		http.Redirect(w, r, authz.LoginPath, http.StatusSeeOther)
		return
	}
	user, err := h.service.Get(r.Context(), actorID)
	if err != nil {
		h.logger.Error("load profile", slog.Any("error", err))
		h.render(w, r, "pages/profile.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/profile.html", map[string]any{"User": user}, http.StatusOK)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		h.render(w, r, "pages/users.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/users.html", map[string]any{"Users": list}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/user_form.html", map[string]any{"Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := h.currentActor(r)
	if !ok {
		http.Redirect(w, r, authz.LoginPath, http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := createUserForm{
		Username: r.PostFormValue("username"),
		FullName: r.PostFormValue("full_name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Role:     r.PostFormValue("role"),
	}
	errs := formErrors{}
	if err := h.validate.Struct(form); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			errs[fieldErr.Field()] = fieldErr.Error()
		}
	}
	if len(errs) > 0 {
		h.render(w, r, "pages/user_form.html", map[string]any{"Errors": errs, "Form": form}, http.StatusBadRequest)
		return
	}
	_, err := h.service.Create(r.Context(), actorID, CreateInput{
		Username: form.Username,
		FullName: form.FullName,
		Email:    form.Email,
		Password: form.Password,
		Role:     form.Role,
		IsActive: r.PostFormValue("is_active") != "",
	})
	if err != nil {
		h.logger.Error("create user", slog.Any("error", err))
		switch err {
		case ErrUsernameTaken:
			errs["Username"] = "Username already taken"
		case ErrInvalidRole:
			errs["Role"] = "Choose one of the listed roles"
		default:
			errs["general"] = shared.UserSafeMessage(err)
		}
		h.render(w, r, "pages/user_form.html", map[string]any{"Errors": errs, "Form": form}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/accounts/users", "success", "User \""+form.Username+"\" has been created successfully")
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.redirectWithFlash(w, r, "/accounts/users", "error", shared.UserSafeMessage(err))
		return
	}
	h.render(w, r, "pages/user_form.html", map[string]any{"Errors": formErrors{}, "User": user}, http.StatusOK)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := h.currentActor(r)
	if !ok {
		http.Redirect(w, r, authz.LoginPath, http.StatusSeeOther)
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
	input := UpdateInput{
		Username: r.PostFormValue("username"),
		FullName: r.PostFormValue("full_name"),
		Email:    r.PostFormValue("email"),
		IsActive: r.PostFormValue("is_active") != "",
	}
	if err := h.service.Update(r.Context(), actorID, id, input); err != nil {
		h.redirectWithFlash(w, r, "/accounts/users", "error", shared.UserSafeMessage(err))
		return
	}
	// Only administrators may reassign roles.
	if newRole := r.PostFormValue("role"); newRole != "" && authz.Can(role, authz.AppAccountsUsers, authz.ActionDelete) {
		if err := h.service.ChangeRole(r.Context(), actorID, id, newRole); err != nil {
			h.redirectWithFlash(w, r, "/accounts/users", "error", "Profile saved, but the role change was rejected")
			return
		}
	}
	h.redirectWithFlash(w, r, "/accounts/users", "success", "User updated")
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := h.currentActor(r)
	if !ok {
		http.Redirect(w, r, authz.LoginPath, http.StatusSeeOther)
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
	if err := h.service.ResetPassword(r.Context(), actorID, id, r.PostFormValue("password")); err != nil {
		h.redirectWithFlash(w, r, "/accounts/users", "error", "Password must be at least 8 characters long")
		return
	}
	h.redirectWithFlash(w, r, "/accounts/users", "success", "Password has been reset")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := h.currentActor(r)
	if !ok {
		http.Redirect(w, r, authz.LoginPath, http.StatusSeeOther)
		return
	}
	// Deleting accounts requires the delete action, which only the
	// administrator grant carries.
	if !authz.Can(role, authz.AppAccountsUsers, authz.ActionDelete) {
		h.redirectWithFlash(w, r, "/accounts/users", "error", "You do not have permission to access this page.")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if id == actorID {
		h.redirectWithFlash(w, r, "/accounts/users", "error", "You cannot delete your own account")
		return
	}
	if err := h.service.Delete(r.Context(), actorID, id); err != nil {
		h.redirectWithFlash(w, r, "/accounts/users", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/accounts/users", "success", "User deleted")
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
	viewData := view.TemplateData{Title: "Accounts", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Role: role, Data: data}
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
