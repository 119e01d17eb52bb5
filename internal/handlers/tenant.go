package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/tchtranslate/portal/internal/middleware"
	"github.com/tchtranslate/portal/internal/services"
	"github.com/tchtranslate/portal/pkg/response"
)

const maxLogoSize = 5 << 20

type TenantHandler struct {
	tenantService *services.TenantService
}

func NewTenantHandler(tenants *services.TenantService) *TenantHandler {
	return &TenantHandler{tenantService: tenants}
}

// List returns the tenants visible to the caller
// GET /api/tenants
func (h *TenantHandler) List(c *gin.Context) {
	tenants, err := h.tenantService.List(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tenants)
}

// GET /api/tenants/:id
func (h *TenantHandler) GetByID(c *gin.Context) {
	tenant, err := h.tenantService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tenant)
}

// POST /api/tenants
func (h *TenantHandler) Create(c *gin.Context) {
	var req services.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	tenant, err := h.tenantService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tenant)
}

// PUT /api/tenants/:id
func (h *TenantHandler) Update(c *gin.Context) {
	var req services.UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	tenant, err := h.tenantService.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tenant)
}

// DELETE /api/tenants/:id
func (h *TenantHandler) Delete(c *gin.Context) {
	if err := h.tenantService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// UploadLogo replaces the tenant image with multipart field "file"
// POST /api/tenants/:id/logo
func (h *TenantHandler) UploadLogo(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if header.Size > maxLogoSize {
		response.BadRequest(c, "logo is too large")
		return
	}
	file, err := header.Open()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	defer file.Close()

	tenant, err := h.tenantService.UploadLogo(c.Request.Context(), c.Param("id"), header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tenant)
}
