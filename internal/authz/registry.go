package authz

// Grant is the set of actions a role may perform inside one app.
type Grant map[Action]struct{}

func grant(actions ...Action) Grant {
	g := make(Grant, len(actions))
	for _, a := range actions {
		g[a] = struct{}{}
	}
	return g
}

// registry is the process-wide role table. It is assembled once at
// package init and read-only afterwards: every role holds exactly one
// grant per app it can access, and apps not listed are denied.
var registry = map[Role]map[App]Grant{
	RoleAdministrator: {
		AppDashboard:      grant(ActionView, ActionAdd, ActionChange, ActionDelete),
		AppInventory:      grant(ActionView, ActionAdd, ActionChange, ActionDelete),
		AppStockMovements: grant(ActionView, ActionAdd, ActionChange, ActionDelete),
		AppSales:          grant(ActionView, ActionAdd, ActionChange, ActionDelete),
		AppReports:        grant(ActionView, ActionAdd, ActionChange, ActionDelete),
		AppAccounts:       grant(ActionView, ActionAdd, ActionChange, ActionDelete),
		AppAccountsUsers:  grant(ActionView, ActionAdd, ActionChange, ActionDelete),
		AppAdmin:          grant(ActionView, ActionAdd, ActionChange, ActionDelete),
	},
	RoleManager: {
		AppDashboard:      grant(ActionView, ActionAdd, ActionChange),
		AppInventory:      grant(ActionView, ActionAdd, ActionChange),
		AppStockMovements: grant(ActionView, ActionAdd, ActionChange),
		AppSales:          grant(ActionView, ActionAdd, ActionChange),
		AppReports:        grant(ActionView, ActionAdd, ActionChange),
		AppAccounts:       grant(ActionView, ActionAdd, ActionChange),
		AppAccountsUsers:  grant(ActionView, ActionAdd, ActionChange),
	},
	RoleSalesRep: {
		AppDashboard: grant(ActionView, ActionAdd, ActionChange),
		AppInventory: grant(ActionView, ActionAdd, ActionChange),
		AppSales:     grant(ActionView, ActionAdd, ActionChange),
	},
}

// AllowedApps returns the set of apps the role may enter.
func AllowedApps(role Role) (map[App]struct{}, error) {
	grants, ok := registry[role]
	if !ok {
		return nil, ErrUnknownRole
	}
	apps := make(map[App]struct{}, len(grants))
	for app := range grants {
		apps[app] = struct{}{}
	}
	return apps, nil
}

// AllowedActions returns the union of actions across the role's grants.
func AllowedActions(role Role) (map[Action]struct{}, error) {
	grants, ok := registry[role]
	if !ok {
		return nil, ErrUnknownRole
	}
	actions := make(map[Action]struct{}, 4)
	for _, g := range grants {
		for a := range g {
			actions[a] = struct{}{}
		}
	}
	return actions, nil
}
