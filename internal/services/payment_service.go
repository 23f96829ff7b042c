// internal/services/payment_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"gorm.io/gorm"

	"github.com/javajoker/trade-registry/internal/config"
	"github.com/javajoker/trade-registry/internal/models"
	"github.com/javajoker/trade-registry/internal/workflow"
)

var (
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrInvoiceAlreadyPaid   = errors.New("invoice is already paid")
	ErrPaymentPending       = errors.New("payment has not succeeded")
	ErrPaymentMismatch      = errors.New("payment intent does not belong to this invoice")
	ErrPaymentNotConfigured = errors.New("online payment is not configured")
)

// IntentGateway is the slice of the Stripe API the registry uses.
type IntentGateway interface {
	Create(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string) (*stripe.PaymentIntent, error)
}

type stripeGateway struct{}

func (stripeGateway) Create(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return paymentintent.New(params)
}

func (stripeGateway) Get(id string) (*stripe.PaymentIntent, error) {
	return paymentintent.Get(id, nil)
}

type PaymentService struct {
	db      *gorm.DB
	config  *config.Config
	engine  *workflow.Engine
	gateway IntentGateway
}

type PaymentIntentResponse struct {
	ClientSecret string  `json:"client_secret"`
	PaymentID    string  `json:"payment_id"`
	Status       string  `json:"status"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

type ReceiptRequest struct {
	ReceiptReference string `json:"receipt_reference" validate:"required,max=100"`
	ReceiptPath      string `json:"receipt_path" validate:"omitempty,max=500"`
}

func NewPaymentService(db *gorm.DB, config *config.Config, engine *workflow.Engine) *PaymentService {
	stripe.Key = config.Payment.StripeSecretKey

	return &PaymentService{
		db:      db,
		config:  config,
		engine:  engine,
		gateway: stripeGateway{},
	}
}

// WithGateway swaps the Stripe client, mostly for tests.
func (s *PaymentService) WithGateway(g IntentGateway) *PaymentService {
	s.gateway = g
	return s
}

// GetInvoice loads an invoice. A non-nil scope limits the lookup to
// invoices whose request belongs to that province; anything else is
// reported as not found.
func (s *PaymentService) GetInvoice(invoiceID uuid.UUID, scope *uint) (*models.Invoice, error) {
	var invoice models.Invoice
	query := s.db
	if scope != nil {
		query = query.
			Joins("JOIN requests ON requests.id = invoices.request_id AND requests.deleted_at IS NULL").
			Where("requests.province_id = ?", *scope)
	}
	if err := query.First(&invoice, "invoices.id = ?", invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &invoice, nil
}

// CreatePaymentIntent opens a Stripe payment for an unpaid invoice.
func (s *PaymentService) CreatePaymentIntent(invoiceID uuid.UUID, actor workflow.Actor, scope *uint) (*PaymentIntentResponse, error) {
	if s.config.Payment.StripeSecretKey == "" {
		return nil, ErrPaymentNotConfigured
	}

	invoice, err := s.GetInvoice(invoiceID, scope)
	if err != nil {
		return nil, err
	}
	if invoice.IsPaid {
		return nil, ErrInvoiceAlreadyPaid
	}

	currency := strings.ToLower(invoice.Currency)
	if currency == "" {
		currency = s.config.Payment.Currency
	}

	// Stripe takes amounts in the currency's minor unit
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(invoice.Amount * 100)),
		Currency: stripe.String(currency),
	}
	params.AddMetadata("invoice_id", invoice.ID.String())
	params.AddMetadata("request_id", invoice.RequestID.String())
	params.AddMetadata("user_id", actor.ID.String())

	pi, err := s.gateway.Create(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	if err := s.db.Model(&models.Invoice{}).Where("id = ?", invoice.ID).
		Update("payment_intent_id", pi.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to record payment intent: %w", err)
	}

	return &PaymentIntentResponse{
		ClientSecret: pi.ClientSecret,
		PaymentID:    pi.ID,
		Status:       string(pi.Status),
		Amount:       invoice.Amount,
		Currency:     currency,
	}, nil
}

// ConfirmPayment checks the intent with Stripe and, once it has succeeded,
// moves the request back to the auditor queue.
func (s *PaymentService) ConfirmPayment(ctx context.Context, invoiceID uuid.UUID, actor workflow.Actor, scope *uint, req *ConfirmPaymentRequest) (*models.Request, error) {
	invoice, err := s.GetInvoice(invoiceID, scope)
	if err != nil {
		return nil, err
	}
	if invoice.IsPaid {
		return nil, ErrInvoiceAlreadyPaid
	}

	pi, err := s.gateway.Get(req.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	if pi.Metadata["invoice_id"] != invoice.ID.String() {
		return nil, ErrPaymentMismatch
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, ErrPaymentPending
	}

	return s.engine.ConfirmPayment(ctx, actor, invoice.RequestID, workflow.Input{
		ReceiptReference: pi.ID,
		PaymentIntentID:  pi.ID,
	})
}

// RecordReceipt confirms a payment made at a cashier's office.
func (s *PaymentService) RecordReceipt(ctx context.Context, invoiceID uuid.UUID, actor workflow.Actor, scope *uint, req *ReceiptRequest) (*models.Request, error) {
	invoice, err := s.GetInvoice(invoiceID, scope)
	if err != nil {
		return nil, err
	}
	if invoice.IsPaid {
		return nil, ErrInvoiceAlreadyPaid
	}

	return s.engine.ConfirmPayment(ctx, actor, invoice.RequestID, workflow.Input{
		ReceiptReference: strings.TrimSpace(req.ReceiptReference),
		ReceiptPath:      req.ReceiptPath,
	})
}
