package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskhub/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Password string `json:"password"`
}

// handleLogin checks the credentials and issues a session token.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondFail(c, http.StatusBadRequest, err)
		return
	}

	token, user, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondFail(c, failStatus(err), err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"token": token, "user": user})
}

// handleLogout revokes the presented session token.
func (s *Server) handleLogout(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if err := s.auth.Logout(c.Request.Context(), token); err != nil {
		s.respondFail(c, failStatus(err), err)
		return
	}
	respondMessage(c, http.StatusOK, "logged out")
}

// resetStatus keeps reset-token failures off the 401 channel: a bad reset
// token is a domain error, not a session expiry, and must not trigger the
// client-side token purge.
func resetStatus(err error) int {
	if errors.Is(err, auth.ErrInvalidToken) {
		return http.StatusBadRequest
	}
	return failStatus(err)
}

// handleValidateResetToken checks a reset token once per page load and
// returns the owning account's name and email for display. The token is not
// consumed here.
func (s *Server) handleValidateResetToken(c *gin.Context) {
	user, err := s.auth.ValidateResetToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		s.respondFail(c, resetStatus(err), err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"name": user.Name, "email": user.Email})
}

// handleResetPassword consumes the token and sets the new password. A second
// call with the same token fails.
func (s *Server) handleResetPassword(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondFail(c, http.StatusBadRequest, err)
		return
	}

	if err := s.auth.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		s.respondFail(c, resetStatus(err), err)
		return
	}
	respondMessage(c, http.StatusOK, "password updated")
}
