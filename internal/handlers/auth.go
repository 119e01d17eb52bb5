package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/tchtranslate/portal/internal/middleware"
	"github.com/tchtranslate/portal/internal/services"
	"github.com/tchtranslate/portal/pkg/logger"
	"github.com/tchtranslate/portal/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
}

func NewAuthHandler(auth *services.AuthService, users *services.UserService) *AuthHandler {
	return &AuthHandler{
		authService: auth,
		userService: users,
	}
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		logger.FromGin(c).Info().Str("email", req.Email).Msg("[Auth] login rejected")
		services.LogWarning("Auth", "Login", "login rejected for "+req.Email, middleware.GetAudit(c), nil)
		response.Error(c, err)
		return
	}

	services.LogInfo("Auth", "Login", "login "+resp.User.Email, services.AuditEntry{
		UserID:    resp.User.ID,
		Tenant:    resp.User.Tenant,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}, nil)
	response.Success(c, resp)
}

// GetCurrentUser returns the account behind the token
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.userService.GetByID(c.Request.Context(), middleware.GetUID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

// ChangePassword
// POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), middleware.GetUID(c), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
