package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"taskhub/internal/models"
	"taskhub/internal/storage/sqlite"
)

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssigneeID  string `json:"assigneeId"`
	Priority    string `json:"priority"`
	DueDate     string `json:"dueDate"`
	Remarks     string `json:"remarks"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type remarksRequest struct {
	Remarks string `json:"remarks"`
}

// handleListTasks fetches a project's tasks narrowed by the optional filter
// query parameters (status, priority, search).
func (s *Server) handleListTasks(c *gin.Context) {
	filter := models.TaskFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		Statuses:   c.QueryArray("status"),
		Priorities: c.QueryArray("priority"),
	}

	tasks, err := s.store.ListTasks(c.Request.Context(), c.Param("projectId"), filter)
	if err != nil {
		s.respondFail(c, failStatus(err), err)
		return
	}
	respondData(c, http.StatusOK, withDerived(tasks))
}

// handleCreateTask inserts a new task into a project. Payload problems come
// back as a field error list rather than a single message.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondFail(c, http.StatusBadRequest, err)
		return
	}

	var fieldErrs []models.FieldError
	addErr := func(field, message string) {
		fieldErrs = append(fieldErrs, models.FieldError{Field: field, Message: message})
	}

	if strings.TrimSpace(req.Title) == "" {
		addErr("title", "required")
	}
	if strings.TrimSpace(req.Description) == "" {
		addErr("description", "required")
	}
	if req.AssigneeID == "" {
		addErr("assigneeId", "required")
	}
	if _, ok := models.ValidTaskPriorities[req.Priority]; !ok {
		addErr("priority", "must be one of low, medium, high, urgent")
	}
	var dueDate time.Time
	if req.DueDate == "" {
		addErr("dueDate", "required")
	} else {
		var err error
		dueDate, err = parseDate(req.DueDate)
		if err != nil {
			addErr("dueDate", "invalid date")
		}
	}

	ctx := c.Request.Context()
	projectID := c.Param("projectId")
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		s.respondFail(c, failStatus(err), err)
		return
	}
	if req.AssigneeID != "" {
		if _, err := s.store.GetUser(ctx, req.AssigneeID); err != nil {
			if errors.Is(err, sqlite.ErrNotFound) {
				addErr("assigneeId", "unknown assignee")
			} else {
				s.respondFail(c, http.StatusInternalServerError, err)
				return
			}
		}
	}

	if len(fieldErrs) > 0 {
		respondFieldErrors(c, fieldErrs)
		return
	}

	task, err := s.store.CreateTask(ctx, models.Task{
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     dueDate,
		Remarks:     req.Remarks,
		AssigneeID:  req.AssigneeID,
		CreatedBy:   currentUser(c).ID,
	})
	if err != nil {
		s.respondFail(c, failStatus(err), err)
		return
	}
	task.ComputeDerived(time.Now())
	respondData(c, http.StatusCreated, task)
}

// handleGetTask retrieves one task by id.
func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.store.GetTask(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		s.respondFail(c, failStatus(err), err)
		return
	}
	task.ComputeDerived(time.Now())
	respondData(c, http.StatusOK, task)
}

// handleUpdateStatus moves a task to a new status. Transitions are free with
// one exception: only managers and company admins may reopen a completed
// task.
func (s *Server) handleUpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondFail(c, http.StatusBadRequest, err)
		return
	}
	if _, ok := models.ValidTaskStatuses[req.Status]; !ok {
		s.respondFail(c, http.StatusBadRequest, fmt.Errorf("invalid status %q", req.Status))
		return
	}

	ctx := c.Request.Context()
	current, err := s.store.GetTask(ctx, c.Param("taskId"))
	if err != nil {
		s.respondFail(c, failStatus(err), err)
		return
	}
	if current.Status == models.StatusCompleted && req.Status != models.StatusCompleted {
		if role := currentUser(c).Role; role == models.RoleDeveloper {
			s.respondFail(c, http.StatusForbidden, fmt.Errorf("completed tasks can only be reopened by a manager"))
			return
		}
	}

	task, err := s.store.UpdateTaskStatus(ctx, current.ID, req.Status)
	if err != nil {
		s.respondFail(c, failStatus(err), err)
		return
	}
	task.ComputeDerived(time.Now())
	respondData(c, http.StatusOK, task)
}

// handleUpdateRemarks replaces the remarks field wholesale. Last write wins;
// there is no conflict detection.
func (s *Server) handleUpdateRemarks(c *gin.Context) {
	var req remarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondFail(c, http.StatusBadRequest, err)
		return
	}

	task, err := s.store.UpdateTaskRemarks(c.Request.Context(), c.Param("taskId"), req.Remarks)
	if err != nil {
		s.respondFail(c, failStatus(err), err)
		return
	}
	task.ComputeDerived(time.Now())
	respondData(c, http.StatusOK, task)
}

// handleDeleteTask removes a task completely. Deleting an already deleted id
// reports not found, never a silent success.
func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.store.DeleteTask(c.Request.Context(), c.Param("taskId")); err != nil {
		s.respondFail(c, failStatus(err), err)
		return
	}
	respondMessage(c, http.StatusOK, "task deleted")
}

// withDerived fills the read-time fields on every task and guarantees a
// non-nil slice for serialization.
func withDerived(tasks []models.Task) []models.Task {
	now := time.Now()
	out := make([]models.Task, len(tasks))
	for i, t := range tasks {
		t.ComputeDerived(now)
		out[i] = t
	}
	return out
}

// parseDate accepts RFC 3339 timestamps and plain dates.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
