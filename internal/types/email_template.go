package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TemplateFormatText = "text"
	TemplateFormatHTML = "html"
)

// EmailTemplate bodies use printf-style named placeholders (%<name>s). The
// Variables column is the allow-list of placeholder names a body and subject
// may reference.
type EmailTemplate struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string         `gorm:"column:name;uniqueIndex;not null" json:"name"`
	Format    string         `gorm:"column:format;not null;default:text" json:"format"`
	Subject   string         `gorm:"column:subject;not null" json:"subject"`
	Body      string         `gorm:"column:body;not null" json:"body"`
	Version   int            `gorm:"column:version;not null;default:1" json:"version"`
	Variables datatypes.JSON `gorm:"column:variables;type:jsonb" json:"variables"`
	UpdatedBy *uuid.UUID     `gorm:"type:uuid" json:"updated_by,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (EmailTemplate) TableName() string { return "email_template" }
