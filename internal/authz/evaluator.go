// Package authz holds the role table and the access policy evaluator.
// Both the request gate and the template helpers consult it, so the
// two call sites can never disagree on what a role may do.
package authz

// CanAccessApp reports whether the role may enter the app. Unknown
// roles and unknown apps both resolve to false.
func CanAccessApp(role Role, app App) bool {
	grants, ok := registry[role]
	if !ok {
		return false
	}
	_, ok = grants[app]
	return ok
}

// CanPerformAction reports whether any of the role's grants include
// the action. Unknown roles and unknown actions both resolve to false.
func CanPerformAction(role Role, action Action) bool {
	grants, ok := registry[role]
	if !ok {
		return false
	}
	for _, g := range grants {
		if _, ok := g[action]; ok {
			return true
		}
	}
	return false
}

// Can reports whether the role's grant for the app includes the
// action. Denied app means denied action.
func Can(role Role, app App, action Action) bool {
	grants, ok := registry[role]
	if !ok {
		return false
	}
	g, ok := grants[app]
	if !ok {
		return false
	}
	_, ok = g[action]
	return ok
}
