package view

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/wowdasare/everpack-system-hnd/internal/authz"
	"github.com/wowdasare/everpack-system-hnd/internal/shared"
	"github.com/wowdasare/everpack-system-hnd/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates. Role carries
// the requester's role so templates can consult the capability
// helpers; elements the role may not use are omitted, not disabled.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Role        string
	Data        any
}

// NewEngine parses templates at build-time. The capability helpers
// delegate to the same evaluator the request gate uses, so a link can
// never be rendered for a page the gate would block.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"canAccessApp": func(role, app string) bool {
			parsed, err := authz.ParseRole(role)
			if err != nil {
				return false
			}
			return authz.CanAccessApp(parsed, authz.App(app))
		},
		"seq": func(n int) []int {
			out := make([]int, n)
			for i := range out {
				out[i] = i
			}
			return out
		},
		"canPerformAction": func(role, action string) bool {
			parsed, err := authz.ParseRole(role)
			if err != nil {
				return false
			}
			return authz.CanPerformAction(parsed, authz.Action(action))
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}
