package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project statuses. Transitions are not enforced as a state machine; the
// offered choices per role live in services.AvailableStatuses.
const (
	StatusReceived   = "Received"
	StatusAssigned   = "Assigned"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusArchived   = "Archived"
	StatusOnHold     = "On Hold"
	StatusQuoted     = "Quoted"
	StatusDelivered  = "Delivered"
)

// MultilingualTarget is stored in TargetLanguage when documents of one
// project request different target languages.
const MultilingualTarget = "Multilingual"

var (
	// AllStatuses is the closed status enumeration in display order.
	AllStatuses = []string{
		StatusReceived, StatusAssigned, StatusInProgress, StatusCompleted,
		StatusArchived, StatusOnHold, StatusQuoted, StatusDelivered,
	}
	// ActiveStatuses back the "Active" listing category.
	ActiveStatuses = []string{StatusReceived, StatusInProgress, StatusOnHold, StatusDelivered}
	// BillingStatuses back the "Billing" listing category.
	BillingStatuses = []string{StatusInProgress, StatusCompleted, StatusArchived}
	// TranslatorStatuses are the only statuses a translator sees or sets.
	TranslatorStatuses = []string{StatusAssigned, StatusInProgress, StatusCompleted}
	// NoTranslatorStatuses are offered when the tenant hides translators.
	NoTranslatorStatuses = []string{
		StatusReceived, StatusInProgress, StatusCompleted,
		StatusArchived, StatusOnHold, StatusQuoted,
	}
)

// IsValidStatus reports whether s belongs to the status enumeration.
func IsValidStatus(s string) bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Project is one translation request.
type Project struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ProjectCode    string    `gorm:"column:project_code;size:20;index" json:"projectId"`
	RequestNumber  string    `gorm:"size:200;index" json:"requestNumber"`
	Status         string    `gorm:"size:20;index;not null" json:"status"`
	Created        time.Time `gorm:"column:created;index;not null" json:"created"`
	TimeLine       time.Time `gorm:"column:time_line" json:"timeLine"`
	TranslatorID   *string   `gorm:"size:36;index" json:"translatorId"`
	Tenant         string    `gorm:"size:100;index" json:"tenant"`
	Department     string    `gorm:"size:100;index" json:"department"`
	SourceLanguage string    `gorm:"size:50" json:"sourceLanguage"`
	TargetLanguage string    `gorm:"size:50" json:"targetLanguage"`
	IsTranslation  bool      `json:"isTranslation"`
	IsEditing      bool      `json:"isEditing"`
	IsCertificate  bool      `json:"isCertificate"`
	IsBittext      bool      `json:"isBittext"`
	IsGlossary     bool      `json:"isGlossary"`
	IsStyleSheet   bool      `json:"isStyleSheet"`
	IsMemory       bool      `json:"isMemory"`
	IsUrgent       bool      `json:"isUrgent"`
	WordCount      int       `gorm:"default:0" json:"wordCount"`
	Billed         float64   `gorm:"default:0;index" json:"billed"`
	Comments       string    `gorm:"type:text" json:"comments"`
	AdditionalInfo string    `gorm:"type:text" json:"additionalInfo"`
	CreatedBy      string    `gorm:"size:36" json:"createdBy"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (Project) TableName() string { return "projects" }

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
