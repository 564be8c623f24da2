package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"taskhub/internal/models"
)

// recentTaskLimit bounds the recent slice in an assignee summary. Counts are
// computed over the full set regardless of this limit.
const recentTaskLimit = 5

const taskColumns = `id, project_id, title, description, status, priority, due_date, remarks, assignee_id, created_by, created_at, updated_at`

// ListTasks returns tasks for the given project narrowed by the filter.
// Filter dimensions combine with AND; values within a dimension with OR.
func (s *Store) ListTasks(ctx context.Context, projectID string, filter models.TaskFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE project_id = ?`
	args := []any{projectID}

	if len(filter.Statuses) > 0 {
		query += ` AND status IN (` + placeholders(len(filter.Statuses)) + `)`
		for _, st := range filter.Statuses {
			args = append(args, st)
		}
	}
	if len(filter.Priorities) > 0 {
		query += ` AND priority IN (` + placeholders(len(filter.Priorities)) + `)`
		for _, p := range filter.Priorities {
			args = append(args, p)
		}
	}
	if filter.Search != "" {
		query += ` AND (title LIKE ? OR description LIKE ?)`
		like := "%" + filter.Search + "%"
		args = append(args, like, like)
	}
	query += ` ORDER BY updated_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// AssigneeSummary returns the dashboard payload for one assignee: counts
// over the full task set plus the most recently touched tasks, truncated.
// The two have independent cardinality.
func (s *Store) AssigneeSummary(ctx context.Context, assigneeID string) (models.AssigneeSummary, error) {
	var summary models.AssigneeSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
                COALESCE(SUM(status = 'pending'), 0),
                COALESCE(SUM(status = 'completed'), 0)
         FROM tasks WHERE assignee_id = ?`, assigneeID).
		Scan(&summary.TaskCounts.Total, &summary.TaskCounts.Pending, &summary.TaskCounts.Completed)
	if err != nil {
		return models.AssigneeSummary{}, fmt.Errorf("count tasks: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE assignee_id = ? ORDER BY updated_at DESC, id LIMIT ?`,
		assigneeID, recentTaskLimit)
	if err != nil {
		return models.AssigneeSummary{}, fmt.Errorf("recent tasks: %w", err)
	}
	defer rows.Close()

	summary.RecentTasks, err = collectTasks(rows)
	if err != nil {
		return models.AssigneeSummary{}, err
	}
	return summary, nil
}

// CreateTask inserts a new task. Project, assignee and creator references
// must already exist; the status defaults to pending.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return models.Task{}, fmt.Errorf("task title must not be empty")
	}
	if _, ok := models.ValidTaskStatuses[t.Status]; !ok {
		t.Status = models.StatusPending
	}
	if _, ok := models.ValidTaskPriorities[t.Priority]; !ok {
		t.Priority = models.PriorityMedium
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(id, project_id, title, description, status, priority, due_date, remarks, assignee_id, created_by)
         VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, strings.TrimSpace(t.Title), strings.TrimSpace(t.Description),
		t.Status, t.Priority, t.DueDate.UTC(), t.Remarks, t.AssigneeID, t.CreatedBy)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return s.GetTask(ctx, t.ID)
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id string) (models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// UpdateTaskStatus moves a task to a new status. Validity of the status
// value is the caller's concern; absence of the task reports ErrNotFound.
func (s *Store) UpdateTaskStatus(ctx context.Context, id, status string) (models.Task, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("update status: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return models.Task{}, err
	} else if affected == 0 {
		return models.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return s.GetTask(ctx, id)
}

// UpdateTaskRemarks replaces the remarks field wholesale. Last write wins.
func (s *Store) UpdateTaskRemarks(ctx context.Context, id, remarks string) (models.Task, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET remarks = ? WHERE id = ?`, remarks, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("update remarks: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return models.Task{}, err
	} else if affected == 0 {
		return models.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes a task by id. Deleting an absent id reports ErrNotFound
// so a double delete is visible to the caller.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func scanTask(row rowScanner) (models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.DueDate, &t.Remarks, &t.AssigneeID, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func collectTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
