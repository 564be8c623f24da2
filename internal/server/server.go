package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskhub/internal/auth"
	"taskhub/internal/models"
	"taskhub/internal/storage/sqlite"
)

// Server provides the HTTP handlers for the task portal backend.
type Server struct {
	engine *gin.Engine
	store  *sqlite.Store
	auth   *auth.Service
	logger *slog.Logger
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, authSvc *auth.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api"))

	srv := &Server{
		engine: router,
		store:  store,
		auth:   authSvc,
		logger: logger,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires the public and authenticated API surface.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		api.POST("/auth/login", s.handleLogin)
		api.GET("/password/validate-token/:token", s.handleValidateResetToken)
		api.POST("/password/reset/:token", s.handleResetPassword)

		authed := api.Group("", s.requireAuth())
		{
			authed.POST("/auth/logout", s.handleLogout)

			authed.POST("/task/assignee", s.handleAssigneeSummary)
			authed.GET("/task/project/:projectId", s.handleListTasks)
			authed.POST("/task/project/:projectId", s.requireRole(models.RoleManager, models.RoleCompanyAdmin), s.handleCreateTask)
			authed.GET("/task/:taskId", s.handleGetTask)
			authed.PATCH("/task/:taskId/status", s.handleUpdateStatus)
			authed.PATCH("/task/:taskId/remarks", s.handleUpdateRemarks)
			authed.DELETE("/task/:taskId", s.requireRole(models.RoleManager, models.RoleCompanyAdmin), s.handleDeleteTask)

			authed.GET("/project", s.handleListProjects)
			authed.POST("/project", s.requireRole(models.RoleManager, models.RoleCompanyAdmin), s.handleCreateProject)

			manager := authed.Group("/projectmanager", s.requireRole(models.RoleManager, models.RoleCompanyAdmin))
			{
				manager.GET("/getalldeveloper", s.handleListDevelopers)
				manager.POST("/developer", s.handleCreateDeveloper)
			}
		}
	}
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondData wraps a payload in the success envelope.
func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// respondMessage reports success without a data payload.
func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": true, "message": message})
}

// respondFail logs the error and returns a failure envelope with a message.
func (s *Server) respondFail(c *gin.Context, status int, err error) {
	if err != nil {
		s.logger.Error("request failed",
			slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	message := "request failed"
	if err != nil {
		message = err.Error()
	}
	c.JSON(status, gin.H{"success": false, "message": message})
}

// respondFieldErrors returns per-field validation failures on task creation.
func respondFieldErrors(c *gin.Context, errs []models.FieldError) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": errs})
}

// failStatus maps domain errors to HTTP statuses.
func failStatus(err error) int {
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sqlite.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrPasswordTooShort):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
