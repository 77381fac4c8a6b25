package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collaborative-story/internal/service"
)

// AuthHandler serves the admin login endpoint.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.Login: invalid input")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: password is required")
		return
	}
	tok, err := h.authService.Login(c.Request.Context(), req.Password)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	OKResponse(c, http.StatusOK, gin.H{"token": tok})
}
