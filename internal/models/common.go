// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate assigns the id on the application side so records created
// inside a transaction can be referenced before commit.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Role is the fixed staff/submitter role vocabulary.
type Role string

const (
	RoleAdmin               Role = "Admin"
	RoleCentralAuditor      Role = "CentralAuditor"
	RoleCentralAuditorAdmin Role = "CentralAuditorAdmin"
	RoleDirector            Role = "Director"
	RoleMinisterAssistant   Role = "MinisterAssistant"
	RoleIpExpert            Role = "IpExpert"
	RoleIpExpertAdmin       Role = "IpExpertAdmin"
	RoleProvinceAdmin       Role = "ProvinceAdmin"
	RoleProvinceEmployee    Role = "ProvinceEmployee"
	RoleRegistryOfficer     Role = "RegistryOfficer"
)

var AllRoles = []Role{
	RoleAdmin,
	RoleCentralAuditor,
	RoleCentralAuditorAdmin,
	RoleDirector,
	RoleMinisterAssistant,
	RoleIpExpert,
	RoleIpExpertAdmin,
	RoleProvinceAdmin,
	RoleProvinceEmployee,
	RoleRegistryOfficer,
}

func (r Role) Valid() bool {
	for _, role := range AllRoles {
		if role == r {
			return true
		}
	}
	return false
}

// IsProvince reports whether the role belongs to an external submitter.
func (r Role) IsProvince() bool {
	return r == RoleProvinceAdmin || r == RoleProvinceEmployee
}

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// ActionType tags one RequestAction row.
type ActionType string

const (
	ActionSubmitted            ActionType = "Submitted"
	ActionClaimed              ActionType = "Claimed"
	ActionReleased             ActionType = "Released"
	ActionPaymentRequested     ActionType = "PaymentRequested"
	ActionPaymentConfirmed     ActionType = "PaymentConfirmed"
	ActionForwardedToIp        ActionType = "ForwardedToIp"
	ActionIpResponded          ActionType = "IpResponded"
	ActionForwardedToDirector  ActionType = "ForwardedToDirector"
	ActionEscalatedToDirector  ActionType = "EscalatedToDirector"
	ActionEscalatedToMinister  ActionType = "EscalatedToMinisterAssistant"
	ActionDirectorResponded    ActionType = "DirectorResponded"
	ActionMinisterResponded    ActionType = "MinisterAssistantResponded"
	ActionAuditorAccepted      ActionType = "AuditorAccepted"
	ActionAuditorRejected      ActionType = "AuditorRejected"
	ActionReservationGranted   ActionType = "ReservationGranted"
	ActionReservationFinalized ActionType = "ReservationFinalized"
	ActionReservationCancelled ActionType = "ReservationCancelled"
	ActionStruckOff            ActionType = "StruckOff"
)
