package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	VendorStatusPending   = "pending"
	VendorStatusApproved  = "approved"
	VendorStatusSuspended = "suspended"
)

type Vendor struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User            *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	BusinessName    string         `gorm:"column:business_name;not null" json:"business_name"`
	ContactEmail    string         `gorm:"column:contact_email;not null" json:"contact_email"`
	ContactPhone    string         `gorm:"column:contact_phone" json:"contact_phone"`
	ContactFax      string         `gorm:"column:contact_fax" json:"contact_fax"`
	Status          string         `gorm:"column:status;not null;default:pending;index" json:"status"`
	TermsAcceptedAt *time.Time     `gorm:"column:terms_accepted_at" json:"terms_accepted_at,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Vendor) TableName() string { return "vendor" }
