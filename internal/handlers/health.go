package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tchtranslate/portal/internal/services"
	"gorm.io/gorm"
)

// HealthHandler reports the state of the database and the task queue.
type HealthHandler struct {
	db    *gorm.DB
	queue services.TaskQueue
	blobs services.BlobStore
}

func NewHealthHandler(db *gorm.DB, queue services.TaskQueue, blobs services.BlobStore) *HealthHandler {
	return &HealthHandler{db: db, queue: queue, blobs: blobs}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	storage := "disabled"
	if h.blobs != nil {
		storage = "minio"
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "tch-portal",
		"components": gin.H{
			"database":   dbStatus,
			"queue_mode": queueMode,
			"storage":    storage,
		},
	})
}
