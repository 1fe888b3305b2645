package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelFax   = "fax"

	DeliveryQueued    = "queued"
	DeliveryDelivered = "delivered"
	DeliveryError     = "error"
)

type Notification struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RecipientID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Recipient      *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:RecipientID;references:ID" json:"recipient,omitempty"`
	ActorID        *uuid.UUID     `gorm:"type:uuid" json:"actor_id,omitempty"`
	Actor          *User          `gorm:"constraint:OnDelete:SET NULL;foreignKey:ActorID;references:ID" json:"actor,omitempty"`
	Action         string         `gorm:"column:action;not null;index" json:"action"`
	NotifiableType string         `gorm:"column:notifiable_type;not null" json:"notifiable_type"`
	NotifiableID   uuid.UUID      `gorm:"type:uuid;not null" json:"notifiable_id"`
	Channel        string         `gorm:"column:channel;not null;default:email" json:"channel"`
	Subject        string         `gorm:"column:subject" json:"subject"`
	Body           string         `gorm:"column:body" json:"body"`
	MessageID      string         `gorm:"column:message_id;index" json:"message_id"`
	DeliveryStatus string         `gorm:"column:delivery_status;not null;default:queued;index" json:"delivery_status"`
	DeliveredAt    *time.Time     `gorm:"column:delivered_at" json:"delivered_at,omitempty"`
	ReadAt         *time.Time     `gorm:"column:read_at" json:"read_at,omitempty"`
	Metadata       datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Notification) TableName() string { return "notification" }
