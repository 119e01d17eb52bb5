package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/tchtranslate/portal/internal/middleware"
	"github.com/tchtranslate/portal/internal/models"
	"github.com/tchtranslate/portal/internal/services"
	"github.com/tchtranslate/portal/pkg/logger"
	"github.com/tchtranslate/portal/pkg/response"
)

var errUnknownFunction = response.NewNotFound("unknown function")

// callable is one named operation of the function gateway. An empty roles
// list admits every authenticated caller.
type callable struct {
	roles []string
	call  func(c *gin.Context, caller services.Caller) (interface{}, error)
}

// FunctionsHandler serves the callable gateway: POST /api/functions/:name
// with a JSON payload, answered in the usual envelope.
type FunctionsHandler struct {
	queries *services.ProjectQueryService
	users   *services.UserService
	tenants *services.TenantService
	auth    *services.AuthService

	registry map[string]callable
}

func NewFunctionsHandler(queries *services.ProjectQueryService, users *services.UserService, tenants *services.TenantService, auth *services.AuthService) *FunctionsHandler {
	h := &FunctionsHandler{
		queries: queries,
		users:   users,
		tenants: tenants,
		auth:    auth,
	}
	h.registry = map[string]callable{
		"getProjects":        {call: h.getProjects},
		"getTenants":         {call: h.getTenants},
		"getUsersNames":      {call: h.getUsersNames},
		"getTranslatorUsers": {roles: []string{models.RoleAdmin, models.RoleClient}, call: h.getTranslatorUsers},
		"assignUserClaims":   {roles: []string{models.RoleAdmin}, call: h.assignUserClaims},
		"saveUser":           {roles: []string{models.RoleAdmin}, call: h.saveUser},
		"removeUser":         {roles: []string{models.RoleAdmin}, call: h.removeUser},
	}
	return h
}

// Names lists the functions served behind authentication.
func (h *FunctionsHandler) Names() []string {
	names := make([]string, 0, len(h.registry))
	for name := range h.registry {
		names = append(names, name)
	}
	return names
}

// Call dispatches an authenticated function call
// POST /api/functions/:name
func (h *FunctionsHandler) Call(c *gin.Context) {
	name := c.Param("name")
	fn, ok := h.registry[name]
	if !ok {
		response.Error(c, errUnknownFunction)
		return
	}

	caller := middleware.GetCaller(c)
	if !roleAllowed(caller.Role, fn.roles) {
		response.Forbidden(c, "insufficient role")
		return
	}

	data, err := fn.call(c, caller)
	if err != nil {
		logger.FromGin(c).Debug().Err(err).Str("function", name).Msg("[Functions] call failed")
		response.Error(c, err)
		return
	}
	response.Success(c, data)
}

func roleAllowed(role string, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

type verifyTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// VerifyToken answers whether a token is still accepted. It is served
// without authentication so a client can check a stored session.
// POST /api/functions/verifyToken
func (h *FunctionsHandler) VerifyToken(c *gin.Context) {
	var req verifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, gin.H{"valid": h.auth.VerifyToken(c.Request.Context(), req.Token)})
}

func (h *FunctionsHandler) getProjects(c *gin.Context, caller services.Caller) (interface{}, error) {
	var req services.GetProjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, response.NewBadRequest(err.Error())
	}
	return h.queries.GetProjects(c.Request.Context(), &req, caller)
}

func (h *FunctionsHandler) getTenants(c *gin.Context, caller services.Caller) (interface{}, error) {
	tenants, err := h.tenants.List(c.Request.Context(), caller)
	if err != nil {
		return nil, err
	}
	return gin.H{"tenants": tenants}, nil
}

type usersNamesRequest struct {
	Users []services.UserNameQuery `json:"users"`
}

func (h *FunctionsHandler) getUsersNames(c *gin.Context, caller services.Caller) (interface{}, error) {
	var req usersNamesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, response.NewBadRequest(err.Error())
	}
	names, err := h.users.UserNames(c.Request.Context(), req.Users, caller)
	if err != nil {
		return nil, err
	}
	return gin.H{"users": names}, nil
}

func (h *FunctionsHandler) getTranslatorUsers(c *gin.Context, caller services.Caller) (interface{}, error) {
	var req services.TranslatorUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, response.NewBadRequest(err.Error())
	}
	if !caller.IsAdmin() {
		req.Tenant = caller.Tenant
	}
	users, err := h.users.TranslatorUsers(c.Request.Context(), &req)
	if err != nil {
		return nil, err
	}
	return gin.H{"users": users}, nil
}

func (h *FunctionsHandler) assignUserClaims(c *gin.Context, _ services.Caller) (interface{}, error) {
	var req services.AssignClaimsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, response.NewBadRequest(err.Error())
	}
	return h.users.AssignClaims(c.Request.Context(), &req)
}

func (h *FunctionsHandler) saveUser(c *gin.Context, _ services.Caller) (interface{}, error) {
	var req services.SaveUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, response.NewBadRequest(err.Error())
	}
	return h.users.Save(c.Request.Context(), &req)
}

type removeUserRequest struct {
	UID string `json:"uid" binding:"required"`
}

func (h *FunctionsHandler) removeUser(c *gin.Context, caller services.Caller) (interface{}, error) {
	var req removeUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, response.NewBadRequest(err.Error())
	}
	if err := h.users.Remove(c.Request.Context(), req.UID, caller); err != nil {
		return nil, err
	}
	return gin.H{"uid": req.UID}, nil
}
