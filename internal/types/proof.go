package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProofKindIncome    = "income"
	ProofKindResidency = "residency"
)

type Proof struct {
	ID                uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ApplicationID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"application_id"`
	Application       *Application     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ApplicationID;references:ID" json:"application,omitempty"`
	Kind              string           `gorm:"column:kind;not null;index" json:"kind"`
	Status            string           `gorm:"column:status;not null;default:not_reviewed;index" json:"status"`
	FileName          string           `gorm:"column:file_name;not null" json:"file_name"`
	ContentType       string           `gorm:"column:content_type;not null" json:"content_type"`
	ByteSize          int64            `gorm:"column:byte_size;not null;default:0" json:"byte_size"`
	StoragePath       string           `gorm:"column:storage_path;not null" json:"storage_path"`
	SubmittedAt       time.Time        `gorm:"column:submitted_at;not null" json:"submitted_at"`
	ReviewedAt        *time.Time       `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	ReviewedBy        *uuid.UUID       `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	Reviewer          *User            `gorm:"constraint:OnDelete:SET NULL;foreignKey:ReviewedBy;references:ID" json:"reviewer,omitempty"`
	RejectionReasonID *uuid.UUID       `gorm:"type:uuid" json:"rejection_reason_id,omitempty"`
	RejectionReason   *RejectionReason `gorm:"constraint:OnDelete:SET NULL;foreignKey:RejectionReasonID;references:ID" json:"rejection_reason,omitempty"`
	CreatedAt         time.Time        `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"not null;default:now()" json:"updated_at"`
}

func (Proof) TableName() string { return "proof" }

func ValidProofKind(kind string) bool {
	return kind == ProofKindIncome || kind == ProofKindResidency
}
