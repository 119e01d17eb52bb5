package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles carried in token claims.
const (
	RoleAdmin        = "admin"
	RoleClient       = "client"
	RoleTranslator   = "translator"
	RoleUnauthorized = "unauthorized"
)

// DepartmentAll disables department scoping for a user.
const DepartmentAll = "all"

func IsValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleClient, RoleTranslator, RoleUnauthorized:
		return true
	}
	return false
}

// User represents a portal account. ID doubles as the uid claim.
type User struct {
	ID            string     `gorm:"primaryKey;size:36" json:"uid"`
	Email         string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password      string     `gorm:"size:255" json:"-"`
	Name          string     `gorm:"size:200" json:"name"`
	PhotoURL      string     `gorm:"size:500" json:"photoUrl"`
	Role          string     `gorm:"size:20;default:unauthorized;index" json:"role"`
	Tenant        string     `gorm:"size:100;index" json:"tenant"`
	Department    string     `gorm:"size:100" json:"department"`
	ClaimsVersion int        `gorm:"default:1" json:"-"`
	IsActive      bool       `gorm:"default:true" json:"isActive"`
	LastLogin     *time.Time `json:"lastLogin"`
	CreatedAt     time.Time  `json:"created"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
