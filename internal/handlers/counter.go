package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/tchtranslate/portal/internal/services"
	"github.com/tchtranslate/portal/pkg/response"
)

type CounterHandler struct {
	counterService *services.CounterService
}

func NewCounterHandler(counters *services.CounterService) *CounterHandler {
	return &CounterHandler{counterService: counters}
}

// Get reads an advisory counter
// GET /api/counters/:key
func (h *CounterHandler) Get(c *gin.Context) {
	key := c.Param("key")
	value, err := h.counterService.Read(c.Request.Context(), key)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"key": key, "value": value})
}

// Reconcile recounts the rows behind a counter and stores the result
// POST /api/counters/:key/reconcile
func (h *CounterHandler) Reconcile(c *gin.Context) {
	key := c.Param("key")
	value, err := h.counterService.Reconcile(c.Request.Context(), key)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"key": key, "value": value})
}
