package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RejectionCategoryIncome    = "income"
	RejectionCategoryResidency = "residency"
	RejectionCategoryMedical   = "medical"
)

type RejectionReason struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Code        string         `gorm:"column:code;uniqueIndex;not null" json:"code"`
	Category    string         `gorm:"column:category;not null;index" json:"category"`
	Description string         `gorm:"column:description;not null" json:"description"`
	Remedy      string         `gorm:"column:remedy" json:"remedy"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (RejectionReason) TableName() string { return "rejection_reason" }

func ValidRejectionCategory(c string) bool {
	switch c {
	case RejectionCategoryIncome, RejectionCategoryResidency, RejectionCategoryMedical:
		return true
	}
	return false
}

// CategoryForProofKind maps a proof kind to the rejection reason category a
// reviewer must choose from.
func CategoryForProofKind(kind string) string {
	switch kind {
	case ProofKindIncome:
		return RejectionCategoryIncome
	case ProofKindResidency:
		return RejectionCategoryResidency
	}
	return ""
}
