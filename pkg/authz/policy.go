// Package authz decides which task rows a caller may see and touch.
package authz

// Role classifies a caller for access decisions.
type Role string

const (
	// RoleAdmin sees and manages every task.
	RoleAdmin Role = "ADMIN"

	// RoleUser sees only tasks they created or are assigned to.
	RoleUser Role = "USER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// ScopeAll is the discriminator for the unrestricted scope.
const ScopeAll = "ALL"

// Scope is the subset of task rows a caller/role combination may see.
// It is derived per request and never stored.
type Scope struct {
	// All grants unrestricted visibility (admin).
	All bool

	// UserID restricts visibility to tasks created by or assigned to
	// this user. Empty when All is set.
	UserID string
}

// ScopeFor derives the result scope for a caller.
func ScopeFor(role Role, callerID string) Scope {
	if role == RoleAdmin {
		return Scope{All: true}
	}
	return Scope{UserID: callerID}
}

// Discriminator returns the stable string that identifies this scope in
// cache keys: "ALL" for the unrestricted scope, the owning user id
// otherwise.
func (s Scope) Discriminator() string {
	if s.All {
		return ScopeAll
	}
	return s.UserID
}

// CanView reports whether the caller may read a task. Admins may read
// anything; users must be the creator or the assignee.
func CanView(role Role, callerID, createdByID, assignedToID string) bool {
	if role == RoleAdmin {
		return true
	}
	return callerID == createdByID || callerID == assignedToID
}

// CanModify reports whether the caller may update a task. Same rule as
// CanView: assignees may update tasks assigned to them.
func CanModify(role Role, callerID, createdByID, assignedToID string) bool {
	return CanView(role, callerID, createdByID, assignedToID)
}

// CanDelete reports whether the caller may delete a task. Only admins
// and the creator may delete; an assignee without creator rights cannot.
func CanDelete(role Role, callerID, createdByID string) bool {
	if role == RoleAdmin {
		return true
	}
	return callerID == createdByID
}
