package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/tchtranslate/portal/internal/middleware"
	"github.com/tchtranslate/portal/internal/services"
	"github.com/tchtranslate/portal/pkg/response"
)

// maxUploadSize bounds one document upload.
const maxUploadSize = 200 << 20

type DocumentHandler struct {
	documentService *services.DocumentService
}

func NewDocumentHandler(documents *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documents}
}

// List returns the project's documents grouped by source
// GET /api/projects/:id/documents
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documentService.List(c.Request.Context(), c.Param("id"), middleware.GetCaller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, docs)
}

// Upload stores one file sent as multipart field "file"
// POST /api/projects/:id/documents
func (h *DocumentHandler) Upload(c *gin.Context) {
	var req services.UploadDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if header.Size > maxUploadSize {
		response.BadRequest(c, "file is too large")
		return
	}
	file, err := header.Open()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	defer file.Close()

	upload := &services.FileUpload{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
	doc, err := h.documentService.Upload(c.Request.Context(), c.Param("id"), &req, upload, middleware.GetCaller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// Download returns a presigned link to the file
// GET /api/projects/:id/documents/:docId/url
func (h *DocumentHandler) Download(c *gin.Context) {
	url, err := h.documentService.DownloadURL(c.Request.Context(), c.Param("id"), c.Param("docId"), middleware.GetCaller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"url": url})
}

// Delete
// DELETE /api/projects/:id/documents/:docId
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documentService.Delete(c.Request.Context(), c.Param("id"), c.Param("docId"), middleware.GetCaller(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
