package client

import (
	"context"
	"sort"
	"time"

	"taskhub/internal/models"
)

// dueDateLayout renders due dates for display. Formatting happens at fetch
// time; the raw timestamp is not retained downstream, so date arithmetic
// must run before this step.
const dueDateLayout = "Jan 2, 2006"

// recentLimit bounds the recent slice in manager snapshots, mirroring the
// server-side truncation for developers.
const recentLimit = 5

// RecentTask is the display form of a task inside a snapshot. DueDate is a
// locale-formatted string, not the wire timestamp.
type RecentTask struct {
	ID        string
	Title     string
	Status    string
	Priority  string
	DueDate   string
	IsOverdue bool
}

// Snapshot is the derived, non-persisted dashboard view for one principal.
// It is recomputed on every fetch and never cached across principals.
type Snapshot struct {
	Role        string
	TaskCounts  models.TaskCounts
	RecentTasks []RecentTask
}

// SnapshotRequest scopes a dashboard fetch. Developers see their own
// assignments; managers and company admins see a project-wide aggregate, so
// they additionally name the project.
type SnapshotRequest struct {
	PrincipalID string
	Role        string
	ProjectID   string
}

// Dashboard derives role-specific snapshots on top of the repository
// client. The aggregation varies only in query scope; the transport and
// session handling are shared.
type Dashboard struct {
	client *Client
}

// NewDashboard wraps a client.
func NewDashboard(c *Client) *Dashboard {
	return &Dashboard{client: c}
}

// Fetch produces the snapshot for one principal. A missing principal id is
// a precondition failure and short-circuits before any network call.
func (d *Dashboard) Fetch(ctx context.Context, req SnapshotRequest) (Snapshot, error) {
	if req.PrincipalID == "" {
		return Snapshot{}, &Error{Kind: KindPrecondition, Message: "principal id is required"}
	}

	switch req.Role {
	case models.RoleManager, models.RoleCompanyAdmin:
		return d.projectSnapshot(ctx, req)
	default:
		return d.developerSnapshot(ctx, req)
	}
}

// developerSnapshot takes the server's pre-aggregated summary. The counts
// are authoritative over the full task set; recentTasks is a truncated
// slice with independent cardinality, so counts are never recomputed from
// its length.
func (d *Dashboard) developerSnapshot(ctx context.Context, req SnapshotRequest) (Snapshot, error) {
	summary, err := d.client.ListByAssignee(ctx, req.PrincipalID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Role:        models.RoleDeveloper,
		TaskCounts:  summary.TaskCounts,
		RecentTasks: displayTasks(summary.RecentTasks),
	}, nil
}

// projectSnapshot aggregates a full project listing client-side. Unlike the
// developer path this counts over the complete, untruncated set, so the
// derivation is sound.
func (d *Dashboard) projectSnapshot(ctx context.Context, req SnapshotRequest) (Snapshot, error) {
	if req.ProjectID == "" {
		return Snapshot{}, &Error{Kind: KindPrecondition, Message: "project id is required"}
	}

	tasks, err := d.client.ListByProject(ctx, req.ProjectID, models.TaskFilter{})
	if err != nil {
		return Snapshot{}, err
	}

	snapshot := Snapshot{Role: req.Role}
	for _, t := range tasks {
		snapshot.TaskCounts.Total++
		switch t.Status {
		case models.StatusPending:
			snapshot.TaskCounts.Pending++
		case models.StatusCompleted:
			snapshot.TaskCounts.Completed++
		}
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].UpdatedAt.After(tasks[j].UpdatedAt)
	})
	if len(tasks) > recentLimit {
		tasks = tasks[:recentLimit]
	}
	snapshot.RecentTasks = displayTasks(tasks)
	return snapshot, nil
}

// displayTasks normalizes tasks to their display form. Overdue is resolved
// against the raw due date before formatting discards it.
func displayTasks(tasks []models.Task) []RecentTask {
	now := time.Now()
	out := make([]RecentTask, len(tasks))
	for i, t := range tasks {
		t.ComputeDerived(now)
		out[i] = RecentTask{
			ID:        t.ID,
			Title:     t.Title,
			Status:    t.Status,
			Priority:  t.Priority,
			DueDate:   t.DueDate.Format(dueDateLayout),
			IsOverdue: t.IsOverdue,
		}
	}
	return out
}
