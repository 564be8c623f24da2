package models

import "time"

// Role names the three portal roles. Managers and company admins share the
// project-wide views; developers only ever see their own assignments.
const (
	RoleDeveloper    = "developer"
	RoleManager      = "manager"
	RoleCompanyAdmin = "company-admin"
)

// ValidRoles enumerates the roles an account may hold.
var ValidRoles = map[string]struct{}{
	RoleDeveloper:    {},
	RoleManager:      {},
	RoleCompanyAdmin: {},
}

// User is an authenticated actor. The password hash never leaves the server.
type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserRef is the public shape of a user, used in listings and task joins.
type UserRef struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Ref strips a user down to its public reference.
func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Project groups tasks for one client engagement. Tasks are queried by
// project id; the project itself never embeds its task list.
type Project struct {
	ID         string     `json:"_id"`
	Name       string     `json:"name"`
	ClientName string     `json:"clientName"`
	Status     string     `json:"status"`
	Completion *float64   `json:"completion,omitempty"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Task statuses. Any status may follow any other, with one exception
// enforced by the server: only managers and company admins may reopen a
// completed task.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusOnHold     = "on-hold"
)

// ValidTaskStatuses enumerates the statuses a task may hold.
var ValidTaskStatuses = map[string]struct{}{
	StatusPending:    {},
	StatusInProgress: {},
	StatusCompleted:  {},
	StatusOnHold:     {},
}

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ValidTaskPriorities enumerates the priorities a task may hold.
var ValidTaskPriorities = map[string]struct{}{
	PriorityLow:    {},
	PriorityMedium: {},
	PriorityHigh:   {},
	PriorityUrgent: {},
}

// Task is the central entity. Every task belongs to exactly one project and
// is assigned to exactly one user; CreatedBy is immutable after creation.
// DaysRemaining and IsOverdue are derived from DueDate at read time and are
// never stored.
type Task struct {
	ID            string    `json:"_id"`
	ProjectID     string    `json:"projectId"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Status        string    `json:"status"`
	Priority      string    `json:"priority"`
	DueDate       time.Time `json:"dueDate"`
	Remarks       string    `json:"remarks,omitempty"`
	AssigneeID    string    `json:"assigneeId"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	DaysRemaining int       `json:"daysRemaining"`
	IsOverdue     bool      `json:"isOverdue"`
}

// ComputeDerived fills DaysRemaining and IsOverdue relative to now.
// A completed task is never reported overdue.
func (t *Task) ComputeDerived(now time.Time) {
	due := t.DueDate.Truncate(24 * time.Hour)
	t.DaysRemaining = int(due.Sub(now.Truncate(24*time.Hour)).Hours() / 24)
	t.IsOverdue = t.DaysRemaining < 0 && t.Status != StatusCompleted
}

// TaskCounts summarizes an assignee's full task set. The server computes
// these over every task, not over the truncated recent slice.
type TaskCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
}

// AssigneeSummary is the pre-aggregated dashboard payload for one assignee.
type AssigneeSummary struct {
	TaskCounts  TaskCounts `json:"taskCounts"`
	RecentTasks []Task     `json:"recentTasks"`
}

// FieldError reports a validation failure on one payload field. Task
// creation returns a list of these instead of a single message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// TaskFilter narrows a project task listing. Dimensions combine with AND;
// values within a dimension combine with OR. An empty dimension imposes no
// constraint.
type TaskFilter struct {
	Search     string
	Statuses   []string
	Priorities []string
}

// IsZero reports whether the filter imposes no constraint at all.
func (f TaskFilter) IsZero() bool {
	return f.Search == "" && len(f.Statuses) == 0 && len(f.Priorities) == 0
}
