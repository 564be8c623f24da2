package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskhub/internal/models"
)

type projectRequest struct {
	Name       string   `json:"name"`
	ClientName string   `json:"clientName"`
	Status     string   `json:"status"`
	Completion *float64 `json:"completion"`
	StartDate  string   `json:"startDate"`
}

// handleListProjects returns all projects.
func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.store.ListProjects(c.Request.Context())
	if err != nil {
		s.respondFail(c, failStatus(err), err)
		return
	}
	if projects == nil {
		projects = []models.Project{}
	}
	respondData(c, http.StatusOK, projects)
}

// handleCreateProject creates a new project entity.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondFail(c, http.StatusBadRequest, err)
		return
	}

	var startDate *time.Time
	if req.StartDate != "" {
		parsed, err := parseDate(req.StartDate)
		if err != nil {
			respondFieldErrors(c, []models.FieldError{{Field: "startDate", Message: "invalid date"}})
			return
		}
		startDate = &parsed
	}

	project, err := s.store.CreateProject(c.Request.Context(), models.Project{
		Name:       req.Name,
		ClientName: req.ClientName,
		Status:     req.Status,
		Completion: req.Completion,
		StartDate:  startDate,
	})
	if err != nil {
		s.respondFail(c, failStatus(err), err)
		return
	}
	respondData(c, http.StatusCreated, project)
}
