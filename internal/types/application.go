package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Application statuses. Transitions between them are enforced by the
// application service's transition table, not ad hoc writes.
const (
	AppStatusInProgress            = "in_progress"
	AppStatusAwaitingDocuments     = "awaiting_documents"
	AppStatusNeedsInformation      = "needs_information"
	AppStatusInReview              = "in_review"
	AppStatusAwaitingCertification = "awaiting_certification"
	AppStatusApproved              = "approved"
	AppStatusRejected              = "rejected"
	AppStatusArchived              = "archived"
)

// Per-proof review statuses stored denormalized on the application row so
// auto-approval can evaluate a single record under one lock.
const (
	ProofStatusNotReviewed = "not_reviewed"
	ProofStatusApproved    = "approved"
	ProofStatusRejected    = "rejected"
)

const (
	CertStatusNotRequested = "not_requested"
	CertStatusRequested    = "requested"
	CertStatusReceived     = "received"
	CertStatusApproved     = "approved"
	CertStatusRejected     = "rejected"
)

// MaxProofRejections archives an application once its cumulative proof
// rejection count reaches this cap.
const MaxProofRejections = 8

type Application struct {
	ID                    uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID                uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User                  *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ManagingGuardianID    *uuid.UUID     `gorm:"type:uuid;index" json:"managing_guardian_id,omitempty"`
	ManagingGuardian      *User          `gorm:"constraint:OnDelete:SET NULL;foreignKey:ManagingGuardianID;references:ID" json:"managing_guardian,omitempty"`
	Status                string         `gorm:"column:status;not null;default:in_progress;index" json:"status"`
	HouseholdSize         int            `gorm:"column:household_size;not null;default:1" json:"household_size"`
	AnnualIncomeCents     int64          `gorm:"column:annual_income_cents;not null;default:0" json:"annual_income_cents"`
	StateResident         bool           `gorm:"column:state_resident;not null;default:false" json:"state_resident"`
	SelfCertifyDisability bool           `gorm:"column:self_certify_disability;not null;default:false" json:"self_certify_disability"`
	TermsAccepted         bool           `gorm:"column:terms_accepted;not null;default:false" json:"terms_accepted"`
	IncomeProofStatus     string         `gorm:"column:income_proof_status;not null;default:not_reviewed" json:"income_proof_status"`
	ResidencyProofStatus  string         `gorm:"column:residency_proof_status;not null;default:not_reviewed" json:"residency_proof_status"`
	MedicalCertStatus     string         `gorm:"column:medical_cert_status;not null;default:not_requested" json:"medical_cert_status"`
	ProviderName          string         `gorm:"column:provider_name" json:"provider_name"`
	ProviderEmail         string         `gorm:"column:provider_email" json:"provider_email"`
	ProviderPhone         string         `gorm:"column:provider_phone" json:"provider_phone"`
	ProviderFax           string         `gorm:"column:provider_fax" json:"provider_fax"`
	TotalRejectionCount   int            `gorm:"column:total_rejection_count;not null;default:0" json:"total_rejection_count"`
	LastActivityAt        *time.Time     `gorm:"column:last_activity_at" json:"last_activity_at,omitempty"`
	SubmittedAt           *time.Time     `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	DecidedAt             *time.Time     `gorm:"column:decided_at" json:"decided_at,omitempty"`
	Metadata              datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt             time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Application) TableName() string { return "application" }

// Terminal statuses accept no further transitions.
func (a *Application) Terminal() bool {
	switch a.Status {
	case AppStatusRejected, AppStatusArchived:
		return true
	}
	return false
}

// ReadyForAutoApproval reports whether all three eligibility sub-statuses
// have been approved.
func (a *Application) ReadyForAutoApproval() bool {
	return a.IncomeProofStatus == ProofStatusApproved &&
		a.ResidencyProofStatus == ProofStatusApproved &&
		a.MedicalCertStatus == CertStatusApproved
}
