package authz

import (
	"errors"
	"fmt"
	"strings"
)

// Role is a fixed category assigned to a user. It controls which
// functional areas are visible and which actions are permitted.
type Role string

const (
	// RoleAdministrator has unrestricted access, including the admin area.
	RoleAdministrator Role = "administrator"
	// RoleManager manages inventory, sales, reports and accounts.
	RoleManager Role = "manager"
	// RoleSalesRep handles day-to-day sales entry.
	RoleSalesRep Role = "sales_representative"
)

// App identifies a functional area gated as a unit.
type App string

const (
	AppDashboard      App = "dashboard"
	AppInventory      App = "inventory"
	AppStockMovements App = "inventory-stock-movements"
	AppSales          App = "sales"
	AppReports        App = "reports"
	AppAccounts       App = "accounts"
	AppAccountsUsers  App = "accounts-users"
	AppAdmin          App = "admin"
)

// Action is one of the four operations gated per app per role.
type Action string

const (
	ActionView   Action = "view"
	ActionAdd    Action = "add"
	ActionChange Action = "change"
	ActionDelete Action = "delete"
)

// ErrUnknownRole indicates a role value outside the enumerated set.
// Callers treat it as full denial, never as a crash.
var ErrUnknownRole = errors.New("authz: unknown role")

// ParseRole maps a stored role string onto the enumerated set.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleAdministrator:
		return RoleAdministrator, nil
	case RoleManager:
		return RoleManager, nil
	case RoleSalesRep:
		return RoleSalesRep, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
}

// String returns the role identifier as stored in the users table.
func (r Role) String() string { return string(r) }
