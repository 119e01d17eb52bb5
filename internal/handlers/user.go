package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/tchtranslate/portal/internal/middleware"
	"github.com/tchtranslate/portal/internal/services"
	"github.com/tchtranslate/portal/pkg/response"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{userService: users}
}

// List returns paginated users
// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	var req services.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.userService.List(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// GET /api/users/:id
func (h *UserHandler) GetByID(c *gin.Context) {
	user, err := h.userService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

// Save creates or updates a user
// POST /api/users
func (h *UserHandler) Save(c *gin.Context) {
	var req services.SaveUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.Save(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

// AssignClaims
// PUT /api/users/:id/claims
func (h *UserHandler) AssignClaims(c *gin.Context) {
	var req services.AssignClaimsRequest
	req.UID = c.Param("id")
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	req.UID = c.Param("id")

	user, err := h.userService.AssignClaims(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

// DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.userService.Remove(c.Request.Context(), c.Param("id"), middleware.GetCaller(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
