package view

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func renderPage(t *testing.T, name, role string, data any) string {
	t.Helper()
	engine, err := NewEngine()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	err = engine.Render(rec, name, TemplateData{
		Title:     "Test",
		CSRFToken: "token",
		Role:      role,
		Data:      data,
	})
	require.NoError(t, err)
	return rec.Body.String()
}

func TestNavShowsAllAreasForAdministrator(t *testing.T) {
	body := renderPage(t, "pages/admin.html", "administrator", map[string]any{})
	require.Contains(t, body, `href="/dashboard"`)
	require.Contains(t, body, `href="/inventory"`)
	require.Contains(t, body, `href="/inventory/stock-movements"`)
	require.Contains(t, body, `href="/sales"`)
	require.Contains(t, body, `href="/reports"`)
	require.Contains(t, body, `href="/accounts/users"`)
	require.Contains(t, body, `href="/admin"`)
}

func TestNavOmitsAdminAreaForManager(t *testing.T) {
	body := renderPage(t, "pages/reports.html", "manager", map[string]any{})
	require.NotContains(t, body, `href="/admin"`)
	require.Contains(t, body, `href="/reports"`)
	require.Contains(t, body, `href="/inventory/stock-movements"`)
	require.Contains(t, body, `href="/accounts/users"`)
}

// Links a role cannot use are omitted entirely, not rendered disabled.
func TestNavOmitsDeniedAreasForSalesRep(t *testing.T) {
	body := renderPage(t, "pages/dashboard.html", "sales_representative", map[string]any{})
	require.Contains(t, body, `href="/dashboard"`)
	require.Contains(t, body, `href="/inventory"`)
	require.Contains(t, body, `href="/sales"`)
	require.NotContains(t, body, `href="/inventory/stock-movements"`)
	require.NotContains(t, body, `href="/reports"`)
	require.NotContains(t, body, `href="/accounts/users"`)
	require.NotContains(t, body, `href="/admin"`)
}

func TestNavShowsSignInForAnonymous(t *testing.T) {
	body := renderPage(t, "pages/landing.html", "", map[string]any{})
	require.Contains(t, body, `href="/accounts/login"`)
	require.NotContains(t, body, `href="/dashboard"`)
	require.NotContains(t, body, "Sign out")
}

func TestNavRendersNothingForUnknownRole(t *testing.T) {
	body := renderPage(t, "pages/dashboard.html", "superuser", map[string]any{})
	require.NotContains(t, body, `href="/dashboard"`)
	require.NotContains(t, body, `href="/sales"`)
	require.NotContains(t, body, `href="/admin"`)
}

func TestDeleteButtonsFollowRoleGrants(t *testing.T) {
	users := []map[string]any{{
		"ID":       int64(3),
		"Username": "kwame",
		"FullName": "Kwame Mensah",
		"Email":    "kwame@everpack.example",
		"Role":     "manager",
		"IsActive": true,
	}}

	body := renderPage(t, "pages/users.html", "administrator", map[string]any{"Users": users})
	require.Contains(t, body, "/accounts/users/3/delete")

	body = renderPage(t, "pages/users.html", "manager", map[string]any{"Users": users})
	require.NotContains(t, body, "/accounts/users/3/delete")
	require.Contains(t, body, "/accounts/users/3/edit")
}

func TestProductDeleteOmittedForManager(t *testing.T) {
	products := []map[string]any{{
		"ID":                int64(8),
		"SKU":               "PK-0008",
		"Name":              "Carrier bag",
		"CategoryName":      "Bags",
		"Unit":              "PACK",
		"CostPrice":         4.5,
		"SellingPrice":      6.0,
		"MinimumStockLevel": 20,
		"IsActive":          true,
	}}

	body := renderPage(t, "pages/products.html", "administrator", map[string]any{"Products": products})
	require.Contains(t, body, "/inventory/products/8/delete")

	body = renderPage(t, "pages/products.html", "manager", map[string]any{"Products": products})
	require.NotContains(t, body, "/inventory/products/8/delete")
	require.Contains(t, body, "/inventory/products/8/edit")
}

func TestLoginRendersCSRFToken(t *testing.T) {
	body := renderPage(t, "pages/login.html", "", struct {
		Form   struct{ Username string }
		Errors map[string]string
	}{})
	require.Contains(t, body, `name="csrf_token"`)
	require.Contains(t, body, `value="token"`)
}
