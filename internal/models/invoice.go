// internal/models/invoice.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Invoice struct {
	BaseModel
	RequestID        uuid.UUID  `json:"request_id" gorm:"type:uuid;not null;uniqueIndex"`
	Amount           float64    `json:"amount" gorm:"type:decimal(12,2);not null"`
	Currency         string     `json:"currency" gorm:"size:8;default:'iqd'"`
	IsPaid           bool       `json:"is_paid" gorm:"default:false;index"`
	ReceiptReference string     `json:"receipt_reference,omitempty" gorm:"size:255"`
	PaymentIntentID  string     `json:"payment_intent_id,omitempty" gorm:"size:255"`
	PaidAt           *time.Time `json:"paid_at"`
}
