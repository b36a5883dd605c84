package cache

import (
	"fmt"
	"strings"
)

// namespace prefixes every key written by this module. Key strings are
// an internal detail, but they must stay stable within one running
// deployment or invalidation misses entries written earlier.
const namespace = "taskforge:tasks"

// FilterAll is the sentinel component used when a status or priority
// filter is absent.
const FilterAll = "all"

// ListKey identifies a cached, paginated task list. Two semantically
// identical queries must produce the same key, so every component has a
// fixed position and empty filters collapse to the FilterAll sentinel.
type ListKey struct {
	// Scope is the scope discriminator: "ALL" for admin queries, the
	// owning user id otherwise.
	Scope string

	// Role of the caller. Kept separate from Scope so projections for
	// different roles never alias.
	Role string

	// Status filter, or empty for no filter.
	Status string

	// Priority filter, or empty for no filter.
	Priority string

	// Page and Limit of the requested window.
	Page  int
	Limit int
}

// String generates the deterministic key string.
//
// Format: taskforge:tasks:list:<scope>:<role>:<status>:<priority>:<page>:<limit>
func (k ListKey) String() string {
	status := k.Status
	if status == "" {
		status = FilterAll
	}
	priority := k.Priority
	if priority == "" {
		priority = FilterAll
	}
	return strings.Join([]string{
		namespace, "list",
		k.Scope, k.Role, status, priority,
		fmt.Sprintf("%d", k.Page), fmt.Sprintf("%d", k.Limit),
	}, ":")
}

// DetailKey identifies a cached single-task projection. Keys are
// per-caller-and-role because visibility is access-scoped: an entry is
// only ever written after the caller passed the permission check, and a
// hit must never leak across identities.
type DetailKey struct {
	TaskID   string
	CallerID string
	Role     string
}

// String generates the deterministic key string.
//
// Format: taskforge:tasks:detail:<task id>:<caller id>:<role>
func (k DetailKey) String() string {
	return strings.Join([]string{namespace, "detail", k.TaskID, k.CallerID, k.Role}, ":")
}

// DetailPattern matches every detail key for the given task, across all
// caller/role combinations.
func DetailPattern(taskID string) string {
	return namespace + ":detail:" + taskID + ":*"
}

// ListPattern matches every list key for the given scope discriminator,
// across all roles, filters and pages.
func ListPattern(scope string) string {
	return namespace + ":list:" + scope + ":*"
}

// IndexKey names the per-task set of cache keys whose entries reference
// the task. Populated at cache-write time, drained at invalidation time.
func IndexKey(taskID string) string {
	return namespace + ":index:" + taskID
}
