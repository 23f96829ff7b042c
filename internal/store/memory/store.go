// Package memory is an in-process implementation of the workflow store.
// Transactions are serialized by a single mutex and rolled back from a
// snapshot, which is enough for tests and single-instance demos.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/trade-registry/internal/models"
	"github.com/javajoker/trade-registry/internal/workflow"
)

type state struct {
	requests      map[uuid.UUID]models.Request
	invoices      map[uuid.UUID]models.Invoice
	companyTypes  map[uint]models.CompanyType
	provinces     map[uint]models.Province
	actions       []models.RequestAction
	notifications []models.Notification
}

func (s *state) clone() *state {
	c := &state{
		requests:      make(map[uuid.UUID]models.Request, len(s.requests)),
		invoices:      make(map[uuid.UUID]models.Invoice, len(s.invoices)),
		companyTypes:  s.companyTypes,
		provinces:     s.provinces,
		actions:       append([]models.RequestAction(nil), s.actions...),
		notifications: append([]models.Notification(nil), s.notifications...),
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.invoices {
		c.invoices[k] = v
	}
	return c
}

type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: &state{
		requests:     make(map[uuid.UUID]models.Request),
		invoices:     make(map[uuid.UUID]models.Invoice),
		companyTypes: make(map[uint]models.CompanyType),
		provinces:    make(map[uint]models.Province),
	}}
}

// AddCompanyType registers a company type so requests pick up its fee.
func (s *Store) AddCompanyType(ct models.CompanyType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.companyTypes[ct.ID] = ct
}

func (s *Store) AddProvince(p models.Province) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.provinces[p.ID] = p
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx workflow.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(&txStore{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&txStore{st: s.st}).GetRequest(ctx, id)
}

func (s *Store) CreateRequest(ctx context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&txStore{st: s.st}).CreateRequest(ctx, req)
}

func (s *Store) CompareAndSwap(ctx context.Context, req *models.Request, expect workflow.Expectation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&txStore{st: s.st}).CompareAndSwap(ctx, req, expect)
}

func (s *Store) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&txStore{st: s.st}).CreateInvoice(ctx, invoice)
}

func (s *Store) MarkInvoicePaid(ctx context.Context, invoiceID uuid.UUID, reference, paymentIntentID string, paidAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&txStore{st: s.st}).MarkInvoicePaid(ctx, invoiceID, reference, paymentIntentID, paidAt)
}

func (s *Store) AppendAction(ctx context.Context, action *models.RequestAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&txStore{st: s.st}).AppendAction(ctx, action)
}

func (s *Store) AppendNotification(ctx context.Context, notification *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&txStore{st: s.st}).AppendNotification(ctx, notification)
}

func (s *Store) LoadDetail(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&txStore{st: s.st}).LoadDetail(ctx, id)
}

// Actions returns the audit trail of a request in insertion order.
func (s *Store) Actions(requestID uuid.UUID) []models.RequestAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RequestAction
	for _, a := range s.st.actions {
		if a.RequestID == requestID {
			out = append(out, a)
		}
	}
	return out
}

// Notifications returns the notifications addressed to a user, newest first.
func (s *Store) Notifications(userID uuid.UUID) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.st.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// txStore operates on state while the owning Store's mutex is held.
type txStore struct {
	st *state
}

func (t *txStore) WithinTx(ctx context.Context, fn func(tx workflow.Store) error) error {
	return fn(t)
}

func (t *txStore) GetRequest(_ context.Context, id uuid.UUID) (*models.Request, error) {
	req, ok := t.st.requests[id]
	if !ok || req.DeletedAt.Valid {
		return nil, fmt.Errorf("request %s: %w", id, workflow.ErrNotFound)
	}
	req.Invoice = nil
	for _, inv := range t.st.invoices {
		if inv.RequestID == id {
			invoice := inv
			req.Invoice = &invoice
			break
		}
	}
	if ct, ok := t.st.companyTypes[req.CompanyTypeID]; ok {
		req.CompanyType = ct
	}
	return &req, nil
}

func (t *txStore) CreateRequest(_ context.Context, req *models.Request) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if _, exists := t.st.requests[req.ID]; exists {
		return fmt.Errorf("request %s already exists", req.ID)
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	req.NormalizedName = models.NormalizeCompanyName(req.CompanyName)
	stored := *req
	stored.Invoice = nil
	stored.Actions = nil
	t.st.requests[req.ID] = stored
	return nil
}

func (t *txStore) CompareAndSwap(_ context.Context, req *models.Request, expect workflow.Expectation) (bool, error) {
	current, ok := t.st.requests[req.ID]
	if !ok || current.DeletedAt.Valid {
		return false, nil
	}
	if current.StatusID != expect.Status {
		return false, nil
	}
	switch {
	case expect.HolderID == nil && current.LockedByID != nil:
		return false, nil
	case expect.HolderID != nil && (current.LockedByID == nil || *current.LockedByID != *expect.HolderID):
		return false, nil
	}

	current.StatusID = req.StatusID
	current.LockedByID = req.LockedByID
	current.LockedByName = req.LockedByName
	current.IpExpertID = req.IpExpertID
	current.IpExpertName = req.IpExpertName
	current.IpFeedback = req.IpFeedback
	current.IpRespondedAt = req.IpRespondedAt
	current.AuditorFeedback = req.AuditorFeedback
	current.IsPaid = req.IsPaid
	current.ReceiptNum = req.ReceiptNum
	current.ReceiptPath = req.ReceiptPath
	current.RegistryNumber = req.RegistryNumber
	current.RegistryDate = req.RegistryDate
	current.ReservationExpiryDate = req.ReservationExpiryDate
	current.UpdatedAt = time.Now().UTC()
	t.st.requests[req.ID] = current
	req.UpdatedAt = current.UpdatedAt
	return true, nil
}

func (t *txStore) CreateInvoice(_ context.Context, invoice *models.Invoice) error {
	for _, inv := range t.st.invoices {
		if inv.RequestID == invoice.RequestID {
			return fmt.Errorf("invoice for request %s already exists", invoice.RequestID)
		}
	}
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	invoice.CreatedAt = time.Now().UTC()
	t.st.invoices[invoice.ID] = *invoice
	return nil
}

func (t *txStore) MarkInvoicePaid(_ context.Context, invoiceID uuid.UUID, reference, paymentIntentID string, paidAt time.Time) (bool, error) {
	inv, ok := t.st.invoices[invoiceID]
	if !ok || inv.IsPaid {
		return false, nil
	}
	inv.IsPaid = true
	inv.ReceiptReference = reference
	inv.PaymentIntentID = paymentIntentID
	inv.PaidAt = &paidAt
	t.st.invoices[invoiceID] = inv
	return true, nil
}

func (t *txStore) AppendAction(_ context.Context, action *models.RequestAction) error {
	if action.ID == uuid.Nil {
		action.ID = uuid.New()
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now().UTC()
	}
	t.st.actions = append(t.st.actions, *action)
	return nil
}

func (t *txStore) LoadDetail(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	req, err := t.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if p, ok := t.st.provinces[req.ProvinceID]; ok {
		req.Province = p
	}
	req.Actions = nil
	for _, a := range t.st.actions {
		if a.RequestID == id {
			req.Actions = append(req.Actions, a)
		}
	}
	return req, nil
}

func (t *txStore) AppendNotification(_ context.Context, notification *models.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	notification.CreatedAt = time.Now().UTC()
	t.st.notifications = append(t.st.notifications, *notification)
	return nil
}

var (
	_ workflow.Store = (*Store)(nil)
	_ workflow.Store = (*txStore)(nil)
)
