package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/trade-registry/internal/models"
)

// Input carries the free-form data attached to an action.
type Input struct {
	Note             string
	RegistryNumber   string
	ReceiptReference string
	ReceiptPath      string
	PaymentIntentID  string
}

// LeadershipTarget selects the authority a request is escalated to.
type LeadershipTarget string

const (
	LeadershipDirector          LeadershipTarget = "Director"
	LeadershipMinisterAssistant LeadershipTarget = "MinisterAssistant"
)

// Engine owns request status, claims and the audit trail.
type Engine struct {
	store          Store
	publisher      EventPublisher
	dispatcher     NotificationDispatcher
	observer       Observer
	logger         logrus.FieldLogger
	now            func() time.Time
	reservationTTL time.Duration
	defaultFee     float64
}

type Option func(*Engine)

func WithPublisher(p EventPublisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func WithDispatcher(d NotificationDispatcher) Option {
	return func(e *Engine) { e.dispatcher = d }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithReservationTTL sets how long a granted name reservation stays valid.
func WithReservationTTL(ttl time.Duration) Option {
	return func(e *Engine) { e.reservationTTL = ttl }
}

// WithDefaultFee sets the invoice amount used when the company type has no fee.
func WithDefaultFee(fee float64) Option {
	return func(e *Engine) { e.defaultFee = fee }
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:          store,
		logger:         logrus.StandardLogger(),
		now:            func() time.Time { return time.Now().UTC() },
		reservationTTL: 30 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit files a new request in the Submitted state.
func (e *Engine) Submit(ctx context.Context, actor Actor, req *models.Request) (*models.Request, error) {
	start := e.now()
	if !CanSubmit(actor.Role) {
		return nil, e.fail("submit", start, invalidTransition("role %s may not submit requests", actor.Role))
	}
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	if req.CompanyName == "" {
		return nil, e.fail("submit", start, validationError("company name is required"))
	}
	if req.ProvinceID == 0 || req.CompanyTypeID == 0 {
		return nil, e.fail("submit", start, validationError("province and company type are required"))
	}

	req.StatusID = models.StatusSubmitted
	req.SubmittedByID = actor.ID
	req.LockedByID = nil
	req.LockedByName = ""
	req.IsPaid = false
	req.IpExpertID = nil
	req.IpRespondedAt = nil

	err := e.store.WithinTx(ctx, func(tx Store) error {
		if err := tx.CreateRequest(ctx, req); err != nil {
			return err
		}
		return tx.AppendAction(ctx, e.newAction(req.ID, actor, models.ActionSubmitted, 0, models.StatusSubmitted, "", false))
	})
	if err != nil {
		return nil, e.fail("submit", start, err)
	}

	e.succeed("submit", start)
	created := e.detail(ctx, req)
	e.publish(ctx, EventRequestCreated, created)
	return created, nil
}

// Claim locks the request for actor. Re-claiming one's own request is a no-op.
func (e *Engine) Claim(ctx context.Context, actor Actor, requestID uuid.UUID) (*models.Request, error) {
	start := e.now()
	var (
		result *models.Request
		fresh  bool
	)
	err := e.store.WithinTx(ctx, func(tx Store) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.LockedBy(actor.ID) {
			result = req
			return nil
		}
		if req.IsLocked() {
			return newError(ErrAlreadyLocked, "claimed by %s", req.LockedByName)
		}
		if !CanClaim(req.StatusID, actor.Role) {
			return invalidTransition("role %s may not claim a request in %s", actor.Role, req.StatusID)
		}

		next := *req
		holder := actor.ID
		next.LockedByID = &holder
		next.LockedByName = actor.Name
		ok, err := tx.CompareAndSwap(ctx, &next, Expectation{Status: req.StatusID})
		if err != nil {
			return err
		}
		if !ok {
			return newError(ErrAlreadyLocked, "claimed concurrently")
		}
		if err := tx.AppendAction(ctx, e.newAction(req.ID, actor, models.ActionClaimed, req.StatusID, req.StatusID, "", true)); err != nil {
			return err
		}
		result = &next
		fresh = true
		return nil
	})
	if err != nil {
		return nil, e.fail("claim", start, err)
	}

	e.succeed("claim", start)
	result = e.detail(ctx, result)
	if fresh {
		e.publish(ctx, EventRequestUpdated, result)
	}
	return result, nil
}

// Release drops a claim. Holders release their own; supervisors may release any.
func (e *Engine) Release(ctx context.Context, actor Actor, requestID uuid.UUID) (*models.Request, error) {
	start := e.now()
	var (
		result  *models.Request
		changed bool
	)
	err := e.store.WithinTx(ctx, func(tx Store) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if !req.IsLocked() {
			result = req
			return nil
		}
		if !req.LockedBy(actor.ID) && !containsRole(releaseRoles, actor.Role) {
			return newError(ErrAlreadyLocked, "claimed by %s", req.LockedByName)
		}

		next := *req
		next.LockedByID = nil
		next.LockedByName = ""
		ok, err := tx.CompareAndSwap(ctx, &next, Expectation{Status: req.StatusID, HolderID: req.LockedByID})
		if err != nil {
			return err
		}
		if !ok {
			return invalidTransition("request changed concurrently")
		}
		if err := tx.AppendAction(ctx, e.newAction(req.ID, actor, models.ActionReleased, req.StatusID, req.StatusID, "", true)); err != nil {
			return err
		}
		result = &next
		changed = true
		return nil
	})
	if err != nil {
		return nil, e.fail("release", start, err)
	}

	e.succeed("release", start)
	result = e.detail(ctx, result)
	if changed {
		e.publish(ctx, EventRequestUpdated, result)
	}
	return result, nil
}

// Perform runs one table-driven status transition atomically: status,
// claim release, audit row and notification commit together or not at all.
func (e *Engine) Perform(ctx context.Context, actor Actor, requestID uuid.UUID, action Action, in Input) (*models.Request, error) {
	start := e.now()
	op := string(action)

	t, ok := TransitionFor(action)
	if !ok {
		return nil, e.fail(op, start, invalidTransition("unknown action %q", action))
	}
	in.Note = strings.TrimSpace(in.Note)
	if err := validateInput(t, in); err != nil {
		return nil, e.fail(op, start, err)
	}

	var (
		result *models.Request
		notice *models.Notification
	)
	err := e.store.WithinTx(ctx, func(tx Store) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if err := t.authorize(req, actor); err != nil {
			return err
		}
		if err := t.check(req); err != nil {
			return err
		}

		from := req.StatusID
		expect := Expectation{Status: from, HolderID: req.LockedByID}
		next := *req
		next.StatusID = t.To
		next.LockedByID = nil
		next.LockedByName = ""
		if err := e.applyEffects(ctx, tx, t, actor, &next, in); err != nil {
			return err
		}

		swapped, err := tx.CompareAndSwap(ctx, &next, expect)
		if err != nil {
			return err
		}
		if !swapped {
			return invalidTransition("request changed concurrently")
		}
		if err := tx.AppendAction(ctx, e.newAction(next.ID, actor, t.Tag, from, t.To, in.Note, t.Internal)); err != nil {
			return err
		}
		if next.SubmittedByID != actor.ID {
			notice = e.statusNotification(&next)
			if err := tx.AppendNotification(ctx, notice); err != nil {
				return err
			}
		}
		result = &next
		return nil
	})
	if err != nil {
		return nil, e.fail(op, start, err)
	}

	e.succeed(op, start)
	result = e.detail(ctx, result)
	e.logger.WithFields(logrus.Fields{
		"request_id": result.ID,
		"action":     action,
		"actor_id":   actor.ID,
		"status":     result.StatusID.String(),
	}).Info("Request transitioned")
	e.publish(ctx, EventRequestUpdated, result)
	if notice != nil && e.dispatcher != nil {
		e.dispatcher.Dispatch(ctx, notice)
	}
	return result, nil
}

func validateInput(t Transition, in Input) error {
	if t.Note == NoteRequired && in.Note == "" {
		return validationError("a note is required for %s", t.Action)
	}
	switch t.Action {
	case ActionFinalizeReservation:
		if strings.TrimSpace(in.RegistryNumber) == "" {
			return validationError("registry number is required")
		}
	case ActionConfirmPayment:
		if strings.TrimSpace(in.ReceiptReference) == "" {
			return validationError("receipt reference is required")
		}
	}
	return nil
}

// applyEffects sets the action-specific fields on next and performs any
// extra writes inside the same transaction.
func (e *Engine) applyEffects(ctx context.Context, tx Store, t Transition, actor Actor, next *models.Request, in Input) error {
	now := e.now()
	switch t.Action {
	case ActionRequestPayment:
		amount := next.CompanyType.Fee
		if amount <= 0 {
			amount = e.defaultFee
		}
		invoice := &models.Invoice{RequestID: next.ID, Amount: amount}
		if err := tx.CreateInvoice(ctx, invoice); err != nil {
			return err
		}
		next.Invoice = invoice
	case ActionConfirmPayment:
		ok, err := tx.MarkInvoicePaid(ctx, next.Invoice.ID, in.ReceiptReference, in.PaymentIntentID, now)
		if err != nil {
			return err
		}
		if !ok {
			return invalidTransition("invoice is already paid")
		}
		invoice := *next.Invoice
		invoice.IsPaid = true
		invoice.ReceiptReference = in.ReceiptReference
		invoice.PaymentIntentID = in.PaymentIntentID
		invoice.PaidAt = &now
		next.Invoice = &invoice
		next.IsPaid = true
		next.ReceiptNum = in.ReceiptReference
		next.ReceiptPath = in.ReceiptPath
	case ActionSubmitIpReport:
		expert := actor.ID
		next.IpExpertID = &expert
		next.IpExpertName = actor.Name
		next.IpFeedback = in.Note
		next.IpRespondedAt = &now
	case ActionAccept, ActionReject:
		next.AuditorFeedback = in.Note
	case ActionGrantReservation:
		expiry := now.Add(e.reservationTTL)
		next.AuditorFeedback = in.Note
		next.ReservationExpiryDate = &expiry
	case ActionFinalizeReservation:
		next.RegistryNumber = strings.TrimSpace(in.RegistryNumber)
		next.RegistryDate = &now
	}
	return nil
}

// Accept approves the request. A non-empty comment is mandatory.
func (e *Engine) Accept(ctx context.Context, actor Actor, requestID uuid.UUID, comment string) (*models.Request, error) {
	return e.Perform(ctx, actor, requestID, ActionAccept, Input{Note: comment})
}

// Reject declines the request. A non-empty comment is mandatory.
func (e *Engine) Reject(ctx context.Context, actor Actor, requestID uuid.UUID, comment string) (*models.Request, error) {
	return e.Perform(ctx, actor, requestID, ActionReject, Input{Note: comment})
}

// ForwardToIP refers the request to the IP office. No comment is required.
func (e *Engine) ForwardToIP(ctx context.Context, actor Actor, requestID uuid.UUID, note string) (*models.Request, error) {
	return e.Perform(ctx, actor, requestID, ActionForwardToIp, Input{Note: note})
}

func (e *Engine) SubmitIPReport(ctx context.Context, actor Actor, requestID uuid.UUID, feedback string) (*models.Request, error) {
	return e.Perform(ctx, actor, requestID, ActionSubmitIpReport, Input{Note: feedback})
}

func (e *Engine) ForwardToDirector(ctx context.Context, actor Actor, requestID uuid.UUID, note string) (*models.Request, error) {
	return e.Perform(ctx, actor, requestID, ActionForwardToDirector, Input{Note: note})
}

// ForwardToLeadership escalates with a mandatory internal justification.
func (e *Engine) ForwardToLeadership(ctx context.Context, actor Actor, requestID uuid.UUID, target LeadershipTarget, note string) (*models.Request, error) {
	switch target {
	case LeadershipDirector:
		return e.Perform(ctx, actor, requestID, ActionEscalateToDirector, Input{Note: note})
	case LeadershipMinisterAssistant:
		return e.Perform(ctx, actor, requestID, ActionEscalateToMinister, Input{Note: note})
	}
	return nil, e.fail("escalate", e.now(), validationError("unknown leadership target %q", target))
}

// RespondAsLeadership records the director's or minister assistant's answer
// and hands the request back to the auditors.
func (e *Engine) RespondAsLeadership(ctx context.Context, actor Actor, requestID uuid.UUID, note string) (*models.Request, error) {
	switch actor.Role {
	case models.RoleDirector:
		return e.Perform(ctx, actor, requestID, ActionDirectorResponse, Input{Note: note})
	case models.RoleMinisterAssistant:
		return e.Perform(ctx, actor, requestID, ActionMinisterResponse, Input{Note: note})
	}
	return nil, invalidTransition("role %s has no leadership response", actor.Role)
}

func (e *Engine) RequestPayment(ctx context.Context, actor Actor, requestID uuid.UUID, note string) (*models.Request, error) {
	return e.Perform(ctx, actor, requestID, ActionRequestPayment, Input{Note: note})
}

func (e *Engine) ConfirmPayment(ctx context.Context, actor Actor, requestID uuid.UUID, in Input) (*models.Request, error) {
	return e.Perform(ctx, actor, requestID, ActionConfirmPayment, in)
}

func (e *Engine) GrantReservation(ctx context.Context, actor Actor, requestID uuid.UUID, comment string) (*models.Request, error) {
	return e.Perform(ctx, actor, requestID, ActionGrantReservation, Input{Note: comment})
}

func (e *Engine) FinalizeReservation(ctx context.Context, actor Actor, requestID uuid.UUID, registryNumber, note string) (*models.Request, error) {
	return e.Perform(ctx, actor, requestID, ActionFinalizeReservation, Input{Note: note, RegistryNumber: registryNumber})
}

func (e *Engine) CancelReservation(ctx context.Context, actor Actor, requestID uuid.UUID, note string) (*models.Request, error) {
	return e.Perform(ctx, actor, requestID, ActionCancelReservation, Input{Note: note})
}

func (e *Engine) StrikeOff(ctx context.Context, actor Actor, requestID uuid.UUID, note string) (*models.Request, error) {
	return e.Perform(ctx, actor, requestID, ActionStrikeOff, Input{Note: note})
}

func (e *Engine) newAction(requestID uuid.UUID, actor Actor, tag models.ActionType, from, to models.StatusCode, note string, internal bool) *models.RequestAction {
	return &models.RequestAction{
		ID:         uuid.New(),
		RequestID:  requestID,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  actor.Role,
		ActionType: tag,
		FromStatus: from,
		ToStatus:   to,
		Note:       note,
		IsInternal: internal,
		CreatedAt:  e.now(),
	}
}

// statusNotification tells the submitter about a status change. Internal
// notes never leave the staff side, so only the status name is included.
func (e *Engine) statusNotification(req *models.Request) *models.Notification {
	requestID := req.ID
	return &models.Notification{
		UserID:    req.SubmittedByID,
		RequestID: &requestID,
		Title:     "تحديث حالة الطلب",
		Message:   fmt.Sprintf("طلب تسجيل الشركة \"%s\" أصبح بحالة: %s", req.CompanyName, req.StatusID.ArabicName()),
	}
}

// detail re-reads the committed request so callers and subscribers get the
// whole record. If the read fails the in-transaction copy is used.
func (e *Engine) detail(ctx context.Context, req *models.Request) *models.Request {
	full, err := e.store.LoadDetail(ctx, req.ID)
	if err != nil {
		e.logger.WithError(err).WithField("request_id", req.ID).Warn("Failed to reload request")
		return req
	}
	return full
}

func (e *Engine) publish(ctx context.Context, kind EventKind, req *models.Request) {
	if e.publisher == nil {
		return
	}
	e.publisher.PublishRequestEvent(ctx, kind, req)
}

func (e *Engine) succeed(op string, start time.Time) {
	if e.observer != nil {
		e.observer.ObserveTransition(op, "success", e.now().Sub(start))
	}
}

func (e *Engine) fail(op string, start time.Time, err error) error {
	outcome := "error"
	if kind := KindOf(err); kind != nil {
		outcome = outcomeLabel(kind)
	} else {
		e.logger.WithError(err).WithField("operation", op).Error("Workflow operation failed")
	}
	if e.observer != nil {
		e.observer.ObserveTransition(op, outcome, e.now().Sub(start))
	}
	return err
}

func outcomeLabel(kind error) string {
	switch kind {
	case ErrNotFound:
		return "not_found"
	case ErrAlreadyLocked:
		return "already_locked"
	case ErrInvalidStateTransition:
		return "invalid_transition"
	case ErrValidation:
		return "validation"
	}
	return "error"
}
