// internal/store/request_store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/trade-registry/internal/models"
	"github.com/javajoker/trade-registry/internal/workflow"
)

// RequestStore persists workflow state through gorm.
type RequestStore struct {
	db   *gorm.DB
	inTx bool
}

func NewRequestStore(db *gorm.DB) *RequestStore {
	return &RequestStore{db: db}
}

func (s *RequestStore) WithinTx(ctx context.Context, fn func(tx workflow.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&RequestStore{db: tx, inTx: true})
	})
}

func (s *RequestStore) GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	query := s.db.WithContext(ctx)
	if s.inTx {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var req models.Request
	if err := query.First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("request %s: %w", id, workflow.ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	var invoice models.Invoice
	err := s.db.WithContext(ctx).Where("request_id = ?", id).First(&invoice).Error
	switch {
	case err == nil:
		req.Invoice = &invoice
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := s.db.WithContext(ctx).First(&req.CompanyType, req.CompanyTypeID).Error; err != nil &&
		!errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &req, nil
}

// WithDetail preloads everything the request detail view renders.
func WithDetail(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Province").
		Preload("CompanyType").
		Preload("Invoice").
		Preload("BusinessPurposes.BusinessPurpose").
		Preload("ChecklistItems").
		Preload("Actions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
}

func (s *RequestStore) LoadDetail(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	var req models.Request
	if err := WithDetail(s.db.WithContext(ctx)).First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("request %s: %w", id, workflow.ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &req, nil
}

func (s *RequestStore) CreateRequest(ctx context.Context, req *models.Request) error {
	err := s.db.WithContext(ctx).
		Omit("Status", "Province", "CompanyType", "SubmittedBy", "Invoice", "Actions").
		Create(req).Error
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

// workflowColumns are the request columns owned by the engine.
var workflowColumns = []string{
	"status_id", "locked_by_id", "locked_by_name",
	"ip_expert_id", "ip_expert_name", "ip_feedback", "ip_responded_at",
	"auditor_feedback", "is_paid", "receipt_num", "receipt_path",
	"registry_number", "registry_date", "reservation_expiry_date", "updated_at",
}

func (s *RequestStore) CompareAndSwap(ctx context.Context, req *models.Request, expect workflow.Expectation) (bool, error) {
	now := time.Now().UTC()
	values := map[string]interface{}{
		"status_id":               req.StatusID,
		"locked_by_id":            req.LockedByID,
		"locked_by_name":          req.LockedByName,
		"ip_expert_id":            req.IpExpertID,
		"ip_expert_name":          req.IpExpertName,
		"ip_feedback":             req.IpFeedback,
		"ip_responded_at":         req.IpRespondedAt,
		"auditor_feedback":        req.AuditorFeedback,
		"is_paid":                 req.IsPaid,
		"receipt_num":             req.ReceiptNum,
		"receipt_path":            req.ReceiptPath,
		"registry_number":         req.RegistryNumber,
		"registry_date":           req.RegistryDate,
		"reservation_expiry_date": req.ReservationExpiryDate,
		"updated_at":              now,
	}

	query := s.db.WithContext(ctx).
		Session(&gorm.Session{SkipHooks: true}).
		Model(&models.Request{}).
		Where("id = ? AND status_id = ?", req.ID, expect.Status)
	if expect.HolderID == nil {
		query = query.Where("locked_by_id IS NULL")
	} else {
		query = query.Where("locked_by_id = ?", *expect.HolderID)
	}

	result := query.Select(workflowColumns).Updates(values)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update request: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		req.UpdatedAt = now
	}
	return result.RowsAffected == 1, nil
}

func (s *RequestStore) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	if err := s.db.WithContext(ctx).Create(invoice).Error; err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

func (s *RequestStore) MarkInvoicePaid(ctx context.Context, invoiceID uuid.UUID, reference, paymentIntentID string, paidAt time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ? AND is_paid = ?", invoiceID, false).
		Updates(map[string]interface{}{
			"is_paid":           true,
			"receipt_reference": reference,
			"payment_intent_id": paymentIntentID,
			"paid_at":           paidAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark invoice paid: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *RequestStore) AppendAction(ctx context.Context, action *models.RequestAction) error {
	if err := s.db.WithContext(ctx).Create(action).Error; err != nil {
		return fmt.Errorf("failed to append action: %w", err)
	}
	return nil
}

func (s *RequestStore) AppendNotification(ctx context.Context, notification *models.Notification) error {
	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("failed to append notification: %w", err)
	}
	return nil
}

var _ workflow.Store = (*RequestStore)(nil)
