package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document categories; each maps to a folder under the project path.
const (
	CategorySource      = "Source"
	CategoryTarget      = "Target"
	CategoryCertificate = "Certificate"
	CategoryMemory      = "Memory"
	CategoryGlossary    = "Glossary"
	CategoryBittext     = "Bittext"
	CategoryStyleSheet  = "StyleSheet"
)

var DocumentCategories = []string{
	CategorySource, CategoryTarget, CategoryCertificate, CategoryMemory,
	CategoryGlossary, CategoryBittext, CategoryStyleSheet,
}

func IsValidCategory(c string) bool {
	for _, v := range DocumentCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Document is an uploaded file. Target documents hang under the source
// document they translate through ParentID.
type Document struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ProjectID string    `gorm:"size:36;index;not null" json:"projectId"`
	ParentID  *string   `gorm:"size:36;index" json:"parentId,omitempty"`
	Name      string    `gorm:"size:500;not null" json:"name"`
	Path      string    `gorm:"size:1000;not null" json:"path"`
	Category  string    `gorm:"size:20;not null" json:"category"`
	Target    []string  `gorm:"serializer:json;type:text" json:"target,omitempty"`
	Language  string    `gorm:"size:50" json:"language,omitempty"`
	Size      int64     `json:"size"`
	Created   time.Time `gorm:"column:created" json:"created"`
}

func (Document) TableName() string { return "documents" }

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Created.IsZero() {
		d.Created = time.Now().UTC()
	}
	return nil
}
