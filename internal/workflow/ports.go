package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/trade-registry/internal/models"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role models.Role
}

// Expectation is the compare part of a compare-and-swap on a request row.
// A nil HolderID means the row must be unclaimed.
type Expectation struct {
	Status   models.StatusCode
	HolderID *uuid.UUID
}

// Store is the persistence port of the engine. Implementations must make
// WithinTx atomic: either every write inside fn commits or none does.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	// GetRequest returns the request with its invoice and company type, or
	// an error wrapping ErrNotFound. Inside a transaction the row is locked.
	GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error)
	CreateRequest(ctx context.Context, req *models.Request) error

	// CompareAndSwap writes the workflow-owned columns of req only if the
	// stored row still matches expect. It reports whether a row was updated.
	CompareAndSwap(ctx context.Context, req *models.Request, expect Expectation) (bool, error)

	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	MarkInvoicePaid(ctx context.Context, invoiceID uuid.UUID, reference, paymentIntentID string, paidAt time.Time) (bool, error)

	AppendAction(ctx context.Context, action *models.RequestAction) error
	AppendNotification(ctx context.Context, notification *models.Notification) error

	// LoadDetail returns the committed request with its province, company
	// type, invoice, purposes, checklist and ordered action history.
	LoadDetail(ctx context.Context, id uuid.UUID) (*models.Request, error)
}

type EventKind string

const (
	EventRequestCreated EventKind = "RequestCreated"
	EventRequestUpdated EventKind = "RequestUpdated"
)

// EventPublisher receives committed request changes. Delivery is best effort.
type EventPublisher interface {
	PublishRequestEvent(ctx context.Context, kind EventKind, req *models.Request)
}

// NotificationDispatcher delivers a committed notification through
// out-of-band channels such as email.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, notification *models.Notification)
}

// Observer records workflow outcomes, typically as metrics.
type Observer interface {
	ObserveTransition(action string, outcome string, elapsed time.Duration)
}
