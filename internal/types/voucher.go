package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	VoucherStatusActive    = "active"
	VoucherStatusRedeemed  = "redeemed"
	VoucherStatusExpired   = "expired"
	VoucherStatusCancelled = "cancelled"
)

const (
	TransactionCompleted = "completed"
	TransactionVoided    = "voided"
)

type Voucher struct {
	ID                  uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Code                string       `gorm:"column:code;uniqueIndex;not null" json:"code"`
	ApplicationID       uuid.UUID    `gorm:"type:uuid;not null;index" json:"application_id"`
	Application         *Application `gorm:"constraint:OnDelete:CASCADE;foreignKey:ApplicationID;references:ID" json:"application,omitempty"`
	VendorID            *uuid.UUID   `gorm:"type:uuid;index" json:"vendor_id,omitempty"`
	Vendor              *Vendor      `gorm:"constraint:OnDelete:SET NULL;foreignKey:VendorID;references:ID" json:"vendor,omitempty"`
	InitialValueCents   int64        `gorm:"column:initial_value_cents;not null" json:"initial_value_cents"`
	RemainingValueCents int64        `gorm:"column:remaining_value_cents;not null" json:"remaining_value_cents"`
	Status              string       `gorm:"column:status;not null;default:active;index" json:"status"`
	IssuedAt            time.Time    `gorm:"column:issued_at;not null" json:"issued_at"`
	ExpiresAt           time.Time    `gorm:"column:expires_at;not null;index" json:"expires_at"`
	LastRedeemedAt      *time.Time   `gorm:"column:last_redeemed_at" json:"last_redeemed_at,omitempty"`
	CreatedAt           time.Time    `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt           time.Time    `gorm:"not null;default:now()" json:"updated_at"`
}

func (Voucher) TableName() string { return "voucher" }

type VoucherTransaction struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	VoucherID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"voucher_id"`
	Voucher         *Voucher       `gorm:"constraint:OnDelete:CASCADE;foreignKey:VoucherID;references:ID" json:"voucher,omitempty"`
	VendorID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"vendor_id"`
	Vendor          *Vendor        `gorm:"constraint:OnDelete:CASCADE;foreignKey:VendorID;references:ID" json:"vendor,omitempty"`
	ProcessedBy     *uuid.UUID     `gorm:"type:uuid" json:"processed_by,omitempty"`
	AmountCents     int64          `gorm:"column:amount_cents;not null" json:"amount_cents"`
	ReferenceNumber string         `gorm:"column:reference_number;uniqueIndex;not null" json:"reference_number"`
	Status          string         `gorm:"column:status;not null;default:completed" json:"status"`
	Metadata        datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (VoucherTransaction) TableName() string { return "voucher_transaction" }
