package task

import "time"

// Status of a task. Any status may be set directly via update; only the
// transition into StatusCompleted has a side effect (completedAt).
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Statuses lists every known status, in declaration order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusCompleted}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Priorities lists every known priority, in declaration order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is the projection returned to callers. CompletedAt is non-nil
// iff the task reached StatusCompleted (or had reached it at soft
// deletion time). DeletedAt never leaves the store layer.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	AssignedToID string     `json:"assignedToId"`
	CreatedByID  string     `json:"createdById"`
	Status       Status     `json:"status"`
	Priority     Priority   `json:"priority"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	DeletedAt    *time.Time `json:"-"`
}

// Page is one window of a filtered task list plus the total row count
// across all pages.
type Page struct {
	Items []Task `json:"items"`
	Total int    `json:"total"`
}

// Filter narrows a list query. Nil fields mean "no filter".
type Filter struct {
	Status   *Status
	Priority *Priority
}

// CreateInput carries the caller-supplied fields of a new task. The
// creator is always the authenticated caller, never an input field.
type CreateInput struct {
	Title        string
	Description  string
	AssignedToID string
	Priority     Priority
	DueDate      *time.Time
}

// Patch is a partial task update. Nil fields are left unchanged.
type Patch struct {
	Title        *string
	Description  *string
	AssignedToID *string
	Status       *Status
	Priority     *Priority
	DueDate      *time.Time

	// CompletedAt is set by the service when Status transitions into
	// StatusCompleted. It is not caller input.
	CompletedAt *time.Time
}
