package types

import (
	"time"

	"github.com/google/uuid"
)

type TotpCredential struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User       *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Secret     string     `gorm:"column:secret;not null" json:"-"`
	Nickname   string     `gorm:"column:nickname" json:"nickname"`
	Confirmed  bool       `gorm:"column:confirmed;not null;default:false" json:"confirmed"`
	LastUsedAt *time.Time `gorm:"column:last_used_at" json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (TotpCredential) TableName() string { return "totp_credential" }
