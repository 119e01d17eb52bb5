package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/tchtranslate/portal/internal/middleware"
	"github.com/tchtranslate/portal/internal/services"
	"github.com/tchtranslate/portal/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
	queryService   *services.ProjectQueryService
}

func NewProjectHandler(projects *services.ProjectService, queries *services.ProjectQueryService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projects,
		queryService:   queries,
	}
}

type listProjectsQuery struct {
	Status     string `form:"status"`
	Month      int    `form:"month" binding:"omitempty,min=0,max=12"`
	Year       int    `form:"year"`
	Request    string `form:"requestNumber"`
	Tenant     string `form:"tenant"`
	Cursor     string `form:"cursor"`
	Pagination string `form:"pagination"`
}

// List returns one page of projects visible to the caller
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	var q listProjectsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var size services.PageSize
	if q.Pagination != "" {
		parsed, err := services.ParsePageSize(q.Pagination)
		if err != nil {
			response.Error(c, err)
			return
		}
		size = parsed
	}

	req := &services.GetProjectsRequest{
		FilterSelection: services.FilterSelection{
			StatusCategory: q.Status,
			Month:          q.Month,
			Year:           q.Year,
			RequestNumber:  q.Request,
			Tenant:         q.Tenant,
		},
		LastDoc:    q.Cursor,
		NewQuery:   q.Cursor == "",
		Pagination: size,
	}

	resp, err := h.queryService.GetProjects(c.Request.Context(), req, middleware.GetCaller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// GetByID returns a project
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	project, err := h.projectService.Get(c.Request.Context(), c.Param("id"), middleware.GetCaller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// Create submits a new project
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), &req, middleware.GetCaller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// Delete removes a project that is still Received
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.projectService.Delete(c.Request.Context(), c.Param("id"), middleware.GetCaller(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus changes the status of one project
// PUT /api/projects/:id/status
func (h *ProjectHandler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, middleware.GetCaller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

type bulkStatusRequest struct {
	IDs    []string `json:"ids" binding:"required"`
	Status string   `json:"status" binding:"required"`
}

// BulkUpdateStatus applies one status to many projects, all or nothing
// PUT /api/projects/status
func (h *ProjectHandler) BulkUpdateStatus(c *gin.Context) {
	var req bulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.projectService.BulkUpdateStatus(c.Request.Context(), req.IDs, req.Status, middleware.GetCaller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// StatusOptions lists the statuses the caller may set
// GET /api/projects/status-options?tenant=
func (h *ProjectHandler) StatusOptions(c *gin.Context) {
	statuses, err := h.projectService.StatusOptions(c.Request.Context(), middleware.GetCaller(c), c.Query("tenant"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"statuses": statuses})
}

type translatorRequest struct {
	TranslatorID *string `json:"translatorId"`
}

// AssignTranslator sets or clears the translator of a project
// PUT /api/projects/:id/translator
func (h *ProjectHandler) AssignTranslator(c *gin.Context) {
	var req translatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.AssignTranslator(c.Request.Context(), c.Param("id"), req.TranslatorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

type billingRequest struct {
	Billed *float64 `json:"billed" binding:"required"`
}

// UpdateBilling
// PUT /api/projects/:id/billing
func (h *ProjectHandler) UpdateBilling(c *gin.Context) {
	var req billingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.UpdateBilling(c.Request.Context(), c.Param("id"), *req.Billed)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

type wordCountRequest struct {
	WordCount *int `json:"wordCount" binding:"required"`
}

// UpdateWordCount
// PUT /api/projects/:id/wordcount
func (h *ProjectHandler) UpdateWordCount(c *gin.Context) {
	var req wordCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.UpdateWordCount(c.Request.Context(), c.Param("id"), *req.WordCount, middleware.GetCaller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

type commentsRequest struct {
	Comments string `json:"comments" binding:"max=5000"`
}

// UpdateComments
// PUT /api/projects/:id/comments
func (h *ProjectHandler) UpdateComments(c *gin.Context) {
	var req commentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.UpdateComments(c.Request.Context(), c.Param("id"), req.Comments, middleware.GetCaller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}
