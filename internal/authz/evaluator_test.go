package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var allApps = []App{
	AppDashboard,
	AppInventory,
	AppStockMovements,
	AppSales,
	AppReports,
	AppAccounts,
	AppAccountsUsers,
	AppAdmin,
}

var allActions = []Action{ActionView, ActionAdd, ActionChange, ActionDelete}

func TestAdministratorHasFullAccess(t *testing.T) {
	for _, app := range allApps {
		require.True(t, CanAccessApp(RoleAdministrator, app), "app %s", app)
		for _, action := range allActions {
			require.True(t, Can(RoleAdministrator, app, action), "app %s action %s", app, action)
		}
	}
}

func TestManagerAppAccess(t *testing.T) {
	require.False(t, CanAccessApp(RoleManager, AppAdmin))
	for _, app := range allApps {
		if app == AppAdmin {
			continue
		}
		require.True(t, CanAccessApp(RoleManager, app), "app %s", app)
	}
}

func TestManagerCannotDelete(t *testing.T) {
	require.False(t, CanPerformAction(RoleManager, ActionDelete))
	for _, app := range allApps {
		require.False(t, Can(RoleManager, app, ActionDelete), "app %s", app)
	}
	require.True(t, Can(RoleManager, AppInventory, ActionView))
	require.True(t, Can(RoleManager, AppInventory, ActionAdd))
	require.True(t, Can(RoleManager, AppInventory, ActionChange))
}

func TestSalesRepAppAccess(t *testing.T) {
	require.True(t, CanAccessApp(RoleSalesRep, AppDashboard))
	require.True(t, CanAccessApp(RoleSalesRep, AppInventory))
	require.True(t, CanAccessApp(RoleSalesRep, AppSales))

	require.False(t, CanAccessApp(RoleSalesRep, AppStockMovements))
	require.True(t, CanAccessApp(RoleManager, AppStockMovements))

	require.False(t, CanAccessApp(RoleSalesRep, AppReports))
	require.False(t, CanAccessApp(RoleSalesRep, AppAccounts))
	require.False(t, CanAccessApp(RoleSalesRep, AppAccountsUsers))
	require.False(t, CanAccessApp(RoleSalesRep, AppAdmin))
}

// Each role's set of allowed apps strictly contains the next role down.
func TestRoleAppSupersetChain(t *testing.T) {
	adminApps, err := AllowedApps(RoleAdministrator)
	require.NoError(t, err)
	managerApps, err := AllowedApps(RoleManager)
	require.NoError(t, err)
	repApps, err := AllowedApps(RoleSalesRep)
	require.NoError(t, err)

	for app := range managerApps {
		require.Contains(t, adminApps, app)
	}
	for app := range repApps {
		require.Contains(t, managerApps, app)
	}
	require.Greater(t, len(adminApps), len(managerApps))
	require.Greater(t, len(managerApps), len(repApps))
}

func TestUnknownRoleDeniedEverything(t *testing.T) {
	unknown := Role("supervisor")
	for _, app := range allApps {
		require.False(t, CanAccessApp(unknown, app), "app %s", app)
		for _, action := range allActions {
			require.False(t, Can(unknown, app, action))
		}
	}
	for _, action := range allActions {
		require.False(t, CanPerformAction(unknown, action))
	}

	_, err := AllowedApps(unknown)
	require.ErrorIs(t, err, ErrUnknownRole)
	_, err = AllowedActions(unknown)
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestUnknownAppAndActionDenied(t *testing.T) {
	require.False(t, CanAccessApp(RoleAdministrator, App("payroll")))
	require.False(t, Can(RoleAdministrator, App("payroll"), ActionView))
	require.False(t, Can(RoleAdministrator, AppSales, Action("approve")))
	require.False(t, CanPerformAction(RoleAdministrator, Action("approve")))
}

// The same query asked twice always answers the same way.
func TestEvaluatorIsDeterministic(t *testing.T) {
	for _, role := range []Role{RoleAdministrator, RoleManager, RoleSalesRep, Role("ghost")} {
		for _, app := range allApps {
			for _, action := range allActions {
				first := Can(role, app, action)
				for i := 0; i < 3; i++ {
					require.Equal(t, first, Can(role, app, action))
				}
			}
		}
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("  Administrator ")
	require.NoError(t, err)
	require.Equal(t, RoleAdministrator, role)

	role, err = ParseRole("MANAGER")
	require.NoError(t, err)
	require.Equal(t, RoleManager, role)

	role, err = ParseRole("sales_representative")
	require.NoError(t, err)
	require.Equal(t, RoleSalesRep, role)

	_, err = ParseRole("intern")
	require.ErrorIs(t, err, ErrUnknownRole)

	_, err = ParseRole("")
	require.ErrorIs(t, err, ErrUnknownRole)
}
