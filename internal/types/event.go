package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Event is the operator-visible audit trail. Webhook processing failures are
// recorded here instead of being surfaced to the caller.
type Event struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	User      *User          `gorm:"constraint:OnDelete:SET NULL;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Action    string         `gorm:"column:action;not null;index" json:"action"`
	Metadata  datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (Event) TableName() string { return "event" }
