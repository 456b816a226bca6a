package views

import "siteboard/domain"

// Action is something a user may do on a board.
type Action string

const (
	ActionCreate     Action = "create"
	ActionEdit       Action = "edit"
	ActionDelete     Action = "delete"
	ActionTransition Action = "transition"
	ActionAssign     Action = "assign"
)

// PermissionTable maps (role, action) to allowed. Missing entries deny.
type PermissionTable map[domain.Role]map[Action]bool

// Allowed reports whether role may perform action.
func (p PermissionTable) Allowed(role domain.Role, action Action) bool {
	return p[role][action]
}

// Actions returns the actions role may perform, in a fixed order.
func (p PermissionTable) Actions(role domain.Role) []Action {
	var out []Action
	for _, a := range []Action{ActionCreate, ActionEdit, ActionDelete, ActionTransition, ActionAssign} {
		if p.Allowed(role, a) {
			out = append(out, a)
		}
	}
	return out
}

func grant(actions ...Action) map[Action]bool {
	m := make(map[Action]bool, len(actions))
	for _, a := range actions {
		m[a] = true
	}
	return m
}

var allActions = []Action{ActionCreate, ActionEdit, ActionDelete, ActionTransition, ActionAssign}

// Permits reports whether role may perform action on item. Items with a
// role constraint are reserved to that role, and to admins.
func (d *Definition) Permits(role domain.Role, item domain.WorkItem, action Action) bool {
	if !d.Permissions.Allowed(role, action) {
		return false
	}
	if item.RoleConstraint == "" || item.RoleConstraint == role {
		return true
	}
	return role == domain.RoleAdmin
}
