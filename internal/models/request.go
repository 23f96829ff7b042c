// internal/models/request.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Request is a company-registration application.
type Request struct {
	BaseModel
	CompanyName           string         `json:"company_name" gorm:"size:255;not null"`
	NormalizedName        string         `json:"-" gorm:"size:255;index"`
	CompanyTypeID         uint           `json:"company_type_id" gorm:"not null;index"`
	ProvinceID            uint           `json:"province_id" gorm:"not null;index"`
	StatusID              StatusCode     `json:"status_id" gorm:"not null;index;default:1"`
	SubmittedByID         uuid.UUID      `json:"submitted_by_id" gorm:"type:uuid;not null;index"`
	LockedByID            *uuid.UUID     `json:"locked_by_id" gorm:"type:uuid;index"`
	LockedByName          string         `json:"locked_by_name,omitempty" gorm:"size:255"`
	IpExpertID            *uuid.UUID     `json:"ip_expert_id" gorm:"type:uuid"`
	IpExpertName          string         `json:"ip_expert_name,omitempty" gorm:"size:255"`
	IpFeedback            string         `json:"ip_feedback,omitempty" gorm:"type:text"`
	IpRespondedAt         *time.Time     `json:"ip_responded_at"`
	AuditorFeedback       string         `json:"auditor_feedback,omitempty" gorm:"type:text"`
	IsPaid                bool           `json:"is_paid" gorm:"default:false"`
	ReceiptNum            string         `json:"receipt_num,omitempty" gorm:"size:100"`
	ReceiptPath           string         `json:"receipt_path,omitempty" gorm:"size:512"`
	RegistryNumber        string         `json:"registry_number,omitempty" gorm:"size:100;index"`
	RegistryDate          *time.Time     `json:"registry_date"`
	ReservationExpiryDate *time.Time     `json:"reservation_expiry_date"`
	DocumentPaths         pq.StringArray `json:"document_paths" gorm:"type:text[]"`

	// Relationships
	Status           RequestStatus            `json:"status,omitempty" gorm:"foreignKey:StatusID"`
	Province         Province                 `json:"province,omitempty" gorm:"foreignKey:ProvinceID"`
	CompanyType      CompanyType              `json:"company_type,omitempty" gorm:"foreignKey:CompanyTypeID"`
	SubmittedBy      *User                    `json:"submitted_by,omitempty" gorm:"foreignKey:SubmittedByID"`
	Invoice          *Invoice                 `json:"invoice,omitempty" gorm:"foreignKey:RequestID"`
	BusinessPurposes []RequestBusinessPurpose `json:"business_purposes,omitempty" gorm:"foreignKey:RequestID"`
	ChecklistItems   []ChecklistItem          `json:"checklist_items,omitempty" gorm:"foreignKey:RequestID"`
	Actions          []RequestAction          `json:"actions,omitempty" gorm:"foreignKey:RequestID"`
}

// BeforeSave keeps the searchable name in step with CompanyName.
func (r *Request) BeforeSave(tx *gorm.DB) error {
	r.NormalizedName = NormalizeCompanyName(r.CompanyName)
	return nil
}

// IsLocked reports whether any actor currently holds the claim.
func (r *Request) IsLocked() bool {
	return r.LockedByID != nil
}

// LockedBy reports whether the given actor holds the claim.
func (r *Request) LockedBy(actorID uuid.UUID) bool {
	return r.LockedByID != nil && *r.LockedByID == actorID
}

// HasIpResponse reports whether an IP expert already answered.
func (r *Request) HasIpResponse() bool {
	return r.IpRespondedAt != nil
}

type RequestBusinessPurpose struct {
	BaseModel
	RequestID         uuid.UUID `json:"request_id" gorm:"type:uuid;not null;index"`
	BusinessPurposeID uint      `json:"business_purpose_id" gorm:"not null;index"`
	Complement        string    `json:"complement,omitempty" gorm:"type:text"`

	BusinessPurpose BusinessPurpose `json:"business_purpose,omitempty" gorm:"foreignKey:BusinessPurposeID"`
}

// ChecklistItem is one required supporting document for a request.
type ChecklistItem struct {
	BaseModel
	RequestID uuid.UUID `json:"request_id" gorm:"type:uuid;not null;index"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	FilePath  string    `json:"file_path,omitempty" gorm:"size:512"`
	Provided  bool      `json:"provided" gorm:"default:false"`
}
