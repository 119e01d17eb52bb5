package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tchtranslate/portal/internal/models"
	"github.com/tchtranslate/portal/pkg/logger"
	"gorm.io/gorm"
)

var globalDB *gorm.DB

func InitSystemLogger(db *gorm.DB) {
	globalDB = db
}

// AuditEntry identifies who did something and from where.
type AuditEntry struct {
	UserID    string
	Tenant    string
	IP        string
	UserAgent string
}

func LogInfo(module, action, message string, who AuditEntry, extra interface{}) {
	writeLog("info", module, action, message, who, extra)
}

func LogWarning(module, action, message string, who AuditEntry, extra interface{}) {
	writeLog("warning", module, action, message, who, extra)
}

func LogError(module, action, message string, who AuditEntry, extra interface{}) {
	writeLog("error", module, action, message, who, extra)
}

func writeLog(level, module, action, message string, who AuditEntry, extra interface{}) {
	if globalDB == nil {
		return
	}

	var extraStr string
	if extra != nil {
		if b, err := json.Marshal(extra); err == nil {
			extraStr = string(b)
		}
	}

	entry := &models.SystemLog{
		Level:     level,
		Module:    module,
		Action:    action,
		Message:   message,
		UserID:    who.UserID,
		Tenant:    who.Tenant,
		IP:        who.IP,
		UserAgent: who.UserAgent,
		Extra:     extraStr,
		CreatedAt: time.Now().UTC(),
	}
	if err := globalDB.Create(entry).Error; err != nil {
		logger.Warn().Err(err).Str("module", module).Str("action", action).Msg("[SystemLog] write failed")
	}
}

type SystemLogService struct {
	db *gorm.DB
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db}
}

type SystemLogListRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Level     string `form:"level"`
	Module    string `form:"module"`
	Action    string `form:"action"`
	Tenant    string `form:"tenant"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

type SystemLogListResponse struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
	Items    []models.SystemLog `json:"items"`
}

func (s *SystemLogService) List(ctx context.Context, req *SystemLogListRequest) (*SystemLogListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.SystemLog{})
	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.Tenant != "" {
		query = query.Where("tenant = ?", req.Tenant)
	}
	if req.StartDate != "" {
		query = query.Where("created_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("created_at <= ?", req.EndDate+" 23:59:59")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var logs []models.SystemLog
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, err
	}

	return &SystemLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}
