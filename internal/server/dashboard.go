package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type assigneeRequest struct {
	AssigneeID string `json:"assigneeId"`
}

// handleAssigneeSummary returns the pre-aggregated dashboard payload for one
// assignee: counts over the full task set plus a truncated recent slice. The
// two are independent; clients must never recompute counts from the slice.
func (s *Server) handleAssigneeSummary(c *gin.Context) {
	var req assigneeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondFail(c, http.StatusBadRequest, err)
		return
	}
	if req.AssigneeID == "" {
		s.respondFail(c, http.StatusBadRequest, fmt.Errorf("assigneeId is required"))
		return
	}

	summary, err := s.store.AssigneeSummary(c.Request.Context(), req.AssigneeID)
	if err != nil {
		s.respondFail(c, failStatus(err), err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"taskCounts":  summary.TaskCounts,
		"recentTasks": withDerived(summary.RecentTasks),
	})
}
