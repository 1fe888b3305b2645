package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	RelationshipParent        = "parent"
	RelationshipLegalGuardian = "legal_guardian"
	RelationshipCaretaker     = "caretaker"
	RelationshipOther         = "other"
)

type GuardianRelationship struct {
	ID               uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	GuardianID       uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_guardian_dependent" json:"guardian_id"`
	Guardian         *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:GuardianID;references:ID" json:"guardian,omitempty"`
	DependentID      uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_guardian_dependent" json:"dependent_id"`
	Dependent        *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:DependentID;references:ID" json:"dependent,omitempty"`
	RelationshipType string    `gorm:"column:relationship_type;not null" json:"relationship_type"`
	CreatedAt        time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (GuardianRelationship) TableName() string { return "guardian_relationship" }

func ValidRelationshipType(t string) bool {
	switch t {
	case RelationshipParent, RelationshipLegalGuardian, RelationshipCaretaker, RelationshipOther:
		return true
	}
	return false
}
