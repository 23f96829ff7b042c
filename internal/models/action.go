// internal/models/action.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestAction is an append-only audit record of one workflow event.
type RequestAction struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	RequestID  uuid.UUID  `json:"request_id" gorm:"type:uuid;not null;index"`
	ActorID    uuid.UUID  `json:"actor_id" gorm:"type:uuid;not null;index"`
	ActorName  string     `json:"actor_name" gorm:"size:255"`
	ActorRole  Role       `json:"actor_role" gorm:"type:varchar(32);not null"`
	ActionType ActionType `json:"action_type" gorm:"type:varchar(64);not null;index"`
	FromStatus StatusCode `json:"from_status"`
	ToStatus   StatusCode `json:"to_status"`
	Note       string     `json:"note,omitempty" gorm:"type:text"`
	IsInternal bool       `json:"is_internal" gorm:"default:false"`
	CreatedAt  time.Time  `json:"created_at" gorm:"not null;index"`
}

type Notification struct {
	BaseModel
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	RequestID *uuid.UUID `json:"request_id" gorm:"type:uuid;index"`
	Title     string     `json:"title" gorm:"size:255;not null"`
	Message   string     `json:"message" gorm:"type:text;not null"`
	IsRead    bool       `json:"is_read" gorm:"default:false;index"`
	ReadAt    *time.Time `json:"read_at"`
}

// AuditLog records HTTP mutations for operational forensics.
type AuditLog struct {
	BaseModel
	UserID       *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"size:100;not null;index"`
	ResourceType string     `json:"resource_type" gorm:"size:50;not null;index"`
	ResourceID   *uuid.UUID `json:"resource_id" gorm:"type:uuid;index"`
	NewValues    JSONB      `json:"new_values" gorm:"type:jsonb"`
	Status       int        `json:"status"`
	IPAddress    string     `json:"ip_address" gorm:"size:45"`
	UserAgent    string     `json:"user_agent" gorm:"type:text"`
}

func (a *RequestAction) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return nil
}
