package types

import (
	"time"

	"github.com/google/uuid"
)

type MedicalCertification struct {
	ID               uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ApplicationID    uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex" json:"application_id"`
	Application      *Application `gorm:"constraint:OnDelete:CASCADE;foreignKey:ApplicationID;references:ID" json:"application,omitempty"`
	Status           string       `gorm:"column:status;not null;default:not_requested;index" json:"status"`
	ProviderName     string       `gorm:"column:provider_name;not null" json:"provider_name"`
	ProviderEmail    string       `gorm:"column:provider_email;not null" json:"provider_email"`
	SigningRequestID string       `gorm:"column:signing_request_id;index" json:"signing_request_id"`
	SigningURL       string       `gorm:"column:signing_url" json:"signing_url"`
	DocumentPath     string       `gorm:"column:document_path" json:"document_path"`
	DeclineReason    string       `gorm:"column:decline_reason" json:"decline_reason"`
	RequestedAt      *time.Time   `gorm:"column:requested_at" json:"requested_at,omitempty"`
	ReceivedAt       *time.Time   `gorm:"column:received_at" json:"received_at,omitempty"`
	ReviewedAt       *time.Time   `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	ReviewedBy       *uuid.UUID   `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	CreatedAt        time.Time    `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null;default:now()" json:"updated_at"`
}

func (MedicalCertification) TableName() string { return "medical_certification" }
