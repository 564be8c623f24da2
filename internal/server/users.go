package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskhub/internal/models"
)

type createDeveloperRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// handleListDevelopers returns every developer account as a public
// reference, for assignment pickers.
func (s *Server) handleListDevelopers(c *gin.Context) {
	developers, err := s.store.ListUsersByRole(c.Request.Context(), models.RoleDeveloper)
	if err != nil {
		s.respondFail(c, failStatus(err), err)
		return
	}

	refs := make([]models.UserRef, len(developers))
	for i, d := range developers {
		refs[i] = d.Ref()
	}
	respondData(c, http.StatusOK, refs)
}

// handleCreateDeveloper provisions a developer account without a password
// and issues the single-use reset token for the welcome link. Mail delivery
// happens elsewhere; the token rides back in the envelope.
func (s *Server) handleCreateDeveloper(c *gin.Context) {
	var req createDeveloperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondFail(c, http.StatusBadRequest, err)
		return
	}

	var fieldErrs []models.FieldError
	if strings.TrimSpace(req.Name) == "" {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "name", Message: "required"})
	}
	if strings.TrimSpace(req.Email) == "" {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "email", Message: "required"})
	}
	if len(fieldErrs) > 0 {
		respondFieldErrors(c, fieldErrs)
		return
	}

	ctx := c.Request.Context()
	user, err := s.store.CreateUser(ctx, models.User{
		Name:  req.Name,
		Email: req.Email,
		Role:  models.RoleDeveloper,
	})
	if err != nil {
		s.respondFail(c, failStatus(err), err)
		return
	}

	token, err := s.auth.IssueResetToken(ctx, user.ID)
	if err != nil {
		s.respondFail(c, failStatus(err), err)
		return
	}
	respondData(c, http.StatusCreated, gin.H{"user": user.Ref(), "resetToken": token})
}
