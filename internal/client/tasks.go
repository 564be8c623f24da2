package client

import (
	"context"
	"net/http"

	"taskhub/internal/models"
)

// LoginResult carries the session token and account returned by a login.
type LoginResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login authenticates and persists the returned session token. This is one
// of the two writer paths into the token store; the other is the 401 purge.
func (c *Client) Login(ctx context.Context, email, password string) (models.User, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/auth/login", nil,
		map[string]string{"email": email, "password": password})
	if err != nil {
		return models.User{}, err
	}
	var result LoginResult
	if err := decodeData(env, &result); err != nil {
		return models.User{}, err
	}
	if err := c.store.SetToken(result.Token); err != nil {
		return models.User{}, &Error{Kind: KindMessage, Message: "persist session token: " + err.Error()}
	}
	return result.User, nil
}

// Logout revokes the session server-side and drops the stored token.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	if clearErr := c.store.Clear(); clearErr != nil && err == nil {
		err = &Error{Kind: KindMessage, Message: "clear session token: " + clearErr.Error()}
	}
	return err
}

// TaskPayload is the create-task request body.
type TaskPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssigneeID  string `json:"assigneeId"`
	Priority    string `json:"priority"`
	DueDate     string `json:"dueDate"`
	Remarks     string `json:"remarks,omitempty"`
}

// ListByProject returns a project's tasks narrowed by the filter. Order is
// whatever the server sends; callers must not assume a sort key.
func (c *Client) ListByProject(ctx context.Context, projectID string, filter models.TaskFilter) ([]models.Task, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/task/project/"+projectID, EncodeFilter(filter), nil)
	if err != nil {
		return nil, err
	}
	var tasks []models.Task
	if err := decodeData(env, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListByAssignee returns the server-aggregated summary for one assignee.
// Counts cover the full task set; recentTasks is a bounded slice. The two
// must never be cross-validated.
func (c *Client) ListByAssignee(ctx context.Context, assigneeID string) (models.AssigneeSummary, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/task/assignee", nil,
		map[string]string{"assigneeId": assigneeID})
	if err != nil {
		return models.AssigneeSummary{}, err
	}

	summary := models.AssigneeSummary{RecentTasks: env.RecentTasks}
	if env.TaskCounts != nil {
		summary.TaskCounts = *env.TaskCounts
	}
	return summary, nil
}

// GetTask retrieves one task; a missing id yields a KindNotFound error.
func (c *Client) GetTask(ctx context.Context, taskID string) (models.Task, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/task/"+taskID, nil, nil)
	if err != nil {
		return models.Task{}, err
	}
	var task models.Task
	if err := decodeData(env, &task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// CreateTask creates a task in a project. Server-side validation failures
// come back as a KindFieldErrors error with a field-to-message map.
func (c *Client) CreateTask(ctx context.Context, projectID string, payload TaskPayload) (models.Task, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/task/project/"+projectID, nil, payload)
	if err != nil {
		return models.Task{}, err
	}
	var task models.Task
	if err := decodeData(env, &task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// UpdateStatus moves a task to a new status. The server is the authority on
// transition legality.
func (c *Client) UpdateStatus(ctx context.Context, taskID, status string) (models.Task, error) {
	env, err := c.do(ctx, http.MethodPatch, "/api/task/"+taskID+"/status", nil,
		map[string]string{"status": status})
	if err != nil {
		return models.Task{}, err
	}
	var task models.Task
	if err := decodeData(env, &task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// UpdateRemarks replaces the remarks field wholesale; last write wins.
func (c *Client) UpdateRemarks(ctx context.Context, taskID, remarks string) (models.Task, error) {
	env, err := c.do(ctx, http.MethodPatch, "/api/task/"+taskID+"/remarks", nil,
		map[string]string{"remarks": remarks})
	if err != nil {
		return models.Task{}, err
	}
	var task models.Task
	if err := decodeData(env, &task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// DeleteTask removes a task. Deleting an id twice surfaces KindNotFound on
// the second call.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/task/"+taskID, nil, nil)
	return err
}

// Developers lists every developer account for assignment pickers.
func (c *Client) Developers(ctx context.Context) ([]models.UserRef, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/projectmanager/getalldeveloper", nil, nil)
	if err != nil {
		return nil, err
	}
	var refs []models.UserRef
	if err := decodeData(env, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

// NewDeveloper is the result of provisioning a developer account: the
// public reference plus the single-use reset token for the welcome link.
type NewDeveloper struct {
	User       models.UserRef `json:"user"`
	ResetToken string         `json:"resetToken"`
}

// CreateDeveloper provisions a developer account. Manager and company-admin
// only.
func (c *Client) CreateDeveloper(ctx context.Context, name, email string) (NewDeveloper, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/projectmanager/developer", nil,
		map[string]string{"name": name, "email": email})
	if err != nil {
		return NewDeveloper{}, err
	}
	var created NewDeveloper
	if err := decodeData(env, &created); err != nil {
		return NewDeveloper{}, err
	}
	return created, nil
}

// CreateProject creates a project. Manager and company-admin only.
func (c *Client) CreateProject(ctx context.Context, name, clientName string) (models.Project, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/project", nil,
		map[string]string{"name": name, "clientName": clientName})
	if err != nil {
		return models.Project{}, err
	}
	var project models.Project
	if err := decodeData(env, &project); err != nil {
		return models.Project{}, err
	}
	return project, nil
}

// Projects lists all projects.
func (c *Client) Projects(ctx context.Context) ([]models.Project, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/project", nil, nil)
	if err != nil {
		return nil, err
	}
	var projects []models.Project
	if err := decodeData(env, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}
