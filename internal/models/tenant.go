package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Translator visibility modes of a tenant.
const (
	TranslatorsDisabled = "Disabled"
	TranslatorsAdmin    = "Admin"
	TranslatorsClient   = "Client"
)

// Tenant is a client organization.
type Tenant struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	Name        string         `gorm:"size:200;not null" json:"name"`
	Slug        string         `gorm:"uniqueIndex;size:100;not null" json:"slug"`
	Code        string         `gorm:"size:20" json:"code"`
	Departments []string       `gorm:"serializer:json;type:text" json:"departments"`
	Image       string         `gorm:"size:500" json:"image"`
	Export      bool           `gorm:"default:false" json:"export"`
	Translators string         `gorm:"size:20;default:Disabled" json:"translators"`
	CreatedAt   time.Time      `json:"created"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Tenant) TableName() string { return "tenants" }

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// ShowsTranslatorsTo reports whether users of role see translator data. An
// unknown tenant shows nothing.
func (t *Tenant) ShowsTranslatorsTo(role string) bool {
	if t == nil {
		return false
	}
	switch t.Translators {
	case TranslatorsClient:
		return true
	case TranslatorsAdmin:
		return role == RoleAdmin
	}
	return false
}
