package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleConstituent = "constituent"
	RoleAdmin       = "admin"
	RoleEvaluator   = "evaluator"
	RoleVendor      = "vendor"

	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"

	CommPreferenceEmail = "email"
	CommPreferenceSMS   = "sms"
)

type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email          string         `gorm:"column:email;uniqueIndex;not null" json:"email"`
	Password       string         `gorm:"column:password;not null" json:"-"`
	FirstName      string         `gorm:"column:first_name;not null" json:"first_name"`
	LastName       string         `gorm:"column:last_name;not null" json:"last_name"`
	Phone          string         `gorm:"column:phone" json:"phone"`
	DateOfBirth    *time.Time     `gorm:"column:date_of_birth" json:"date_of_birth,omitempty"`
	Role           string         `gorm:"column:role;not null;default:constituent;index" json:"role"`
	Status         string         `gorm:"column:status;not null;default:active;index" json:"status"`
	CommPreference string         `gorm:"column:comm_preference;not null;default:email" json:"comm_preference"`
	Locale         string         `gorm:"column:locale;not null;default:en" json:"locale"`
	AvatarPath     string         `gorm:"column:avatar_path" json:"avatar_path,omitempty"`
	TotpEnabled    bool           `gorm:"column:totp_enabled;not null;default:false" json:"totp_enabled"`
	SMSTwoFactor   bool           `gorm:"column:sms_two_factor;not null;default:false" json:"sms_two_factor"`
	LastSignInAt   *time.Time     `gorm:"column:last_sign_in_at" json:"last_sign_in_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type UserToken struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User         *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	RefreshToken string    `gorm:"column:refresh_token;not null" json:"-"`
	ExpiresAt    time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserToken) TableName() string { return "user_token" }
