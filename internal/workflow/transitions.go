package workflow

import (
	"fmt"

	"github.com/javajoker/trade-registry/internal/models"
)

// Action names a status-changing operation.
type Action string

const (
	ActionRequestPayment      Action = "request-payment"
	ActionConfirmPayment      Action = "confirm-payment"
	ActionForwardToIp         Action = "forward-to-ip"
	ActionSubmitIpReport      Action = "ip-report"
	ActionForwardToDirector   Action = "forward-to-director"
	ActionEscalateToDirector  Action = "escalate-director"
	ActionEscalateToMinister  Action = "escalate-minister-assistant"
	ActionDirectorResponse    Action = "director-response"
	ActionMinisterResponse    Action = "minister-assistant-response"
	ActionAccept              Action = "accept"
	ActionReject              Action = "reject"
	ActionGrantReservation    Action = "grant-reservation"
	ActionFinalizeReservation Action = "finalize-reservation"
	ActionCancelReservation   Action = "cancel-reservation"
	ActionStrikeOff           Action = "strike-off"
)

type NotePolicy int

const (
	NoteOptional NotePolicy = iota
	NoteRequired
)

// Guard inspects the loaded request and returns a reason when the
// transition must not happen.
type Guard func(req *models.Request) string

// Transition is one row of the state table.
type Transition struct {
	Action        Action
	From          []models.StatusCode
	To            models.StatusCode
	Roles         []models.Role
	RequiresClaim bool
	Note          NotePolicy
	Internal      bool
	Tag           models.ActionType
	Guard         Guard
}

var (
	auditorRoles  = []models.Role{models.RoleAdmin, models.RoleCentralAuditor, models.RoleCentralAuditorAdmin}
	ipRoles       = []models.Role{models.RoleIpExpert, models.RoleIpExpertAdmin}
	registryRoles = []models.Role{models.RoleRegistryOfficer}
	payerRoles    = []models.Role{
		models.RoleAdmin, models.RoleCentralAuditor, models.RoleCentralAuditorAdmin,
		models.RoleProvinceAdmin, models.RoleProvinceEmployee,
	}
	submitterRoles = []models.Role{models.RoleAdmin, models.RoleProvinceAdmin, models.RoleProvinceEmployee}
	releaseRoles   = []models.Role{models.RoleAdmin, models.RoleCentralAuditorAdmin}

	// States in which the central auditor owns the request.
	auditorStates = []models.StatusCode{
		models.StatusSubmitted,
		models.StatusIpResponded,
		models.StatusDirectorResponded,
		models.StatusMinisterResponded,
	}
)

func guardDecision(req *models.Request) string {
	if !req.IsPaid {
		return "registration fee is unpaid"
	}
	if !req.HasIpResponse() {
		return "intellectual property review is outstanding"
	}
	return ""
}

func guardForwardToIp(req *models.Request) string {
	if !req.IsPaid {
		return "registration fee is unpaid"
	}
	if req.IpExpertID != nil {
		return "an IP expert is already assigned"
	}
	return ""
}

func guardForwardToDirector(req *models.Request) string {
	if req.IsPaid && !req.HasIpResponse() {
		return "intellectual property review is outstanding"
	}
	return ""
}

func guardRequestPayment(req *models.Request) string {
	if req.Invoice != nil {
		return "an invoice was already issued"
	}
	if req.IsPaid {
		return "registration fee is already paid"
	}
	return ""
}

func guardConfirmPayment(req *models.Request) string {
	if req.Invoice == nil {
		return "no invoice was issued"
	}
	if req.Invoice.IsPaid {
		return "invoice is already paid"
	}
	return ""
}

// Transitions is the single source of truth for status changes. Both the
// engine and AvailableActions read it.
var Transitions = []Transition{
	{
		Action: ActionRequestPayment, From: []models.StatusCode{models.StatusSubmitted},
		To: models.StatusPendingPayment, Roles: auditorRoles, RequiresClaim: true,
		Tag: models.ActionPaymentRequested, Guard: guardRequestPayment,
	},
	{
		Action: ActionConfirmPayment, From: []models.StatusCode{models.StatusPendingPayment},
		To: models.StatusSubmitted, Roles: payerRoles,
		Tag: models.ActionPaymentConfirmed, Guard: guardConfirmPayment,
	},
	{
		Action: ActionForwardToIp,
		From:   []models.StatusCode{models.StatusSubmitted, models.StatusDirectorResponded, models.StatusMinisterResponded},
		To:     models.StatusPendingIpReview, Roles: auditorRoles, RequiresClaim: true,
		Tag: models.ActionForwardedToIp, Guard: guardForwardToIp,
	},
	{
		Action: ActionSubmitIpReport, From: []models.StatusCode{models.StatusPendingIpReview},
		To: models.StatusIpResponded, Roles: ipRoles, RequiresClaim: true, Note: NoteRequired,
		Tag: models.ActionIpResponded,
	},
	{
		Action: ActionForwardToDirector, From: auditorStates,
		To: models.StatusPendingDirectorReview, Roles: auditorRoles, RequiresClaim: true,
		Tag: models.ActionForwardedToDirector, Guard: guardForwardToDirector,
	},
	{
		Action: ActionEscalateToDirector, From: auditorStates,
		To: models.StatusPendingDirectorReview, Roles: auditorRoles, RequiresClaim: true,
		Note: NoteRequired, Internal: true, Tag: models.ActionEscalatedToDirector,
	},
	{
		Action: ActionEscalateToMinister, From: auditorStates,
		To: models.StatusPendingMinisterReview, Roles: auditorRoles, RequiresClaim: true,
		Note: NoteRequired, Internal: true, Tag: models.ActionEscalatedToMinister,
	},
	{
		Action: ActionDirectorResponse, From: []models.StatusCode{models.StatusPendingDirectorReview},
		To: models.StatusDirectorResponded, Roles: []models.Role{models.RoleDirector}, RequiresClaim: true,
		Note: NoteRequired, Internal: true, Tag: models.ActionDirectorResponded,
	},
	{
		Action: ActionMinisterResponse, From: []models.StatusCode{models.StatusPendingMinisterReview},
		To: models.StatusMinisterResponded, Roles: []models.Role{models.RoleMinisterAssistant}, RequiresClaim: true,
		Note: NoteRequired, Internal: true, Tag: models.ActionMinisterResponded,
	},
	{
		Action: ActionAccept, From: auditorStates,
		To: models.StatusAccepted, Roles: auditorRoles, RequiresClaim: true, Note: NoteRequired,
		Tag: models.ActionAuditorAccepted, Guard: guardDecision,
	},
	{
		Action: ActionReject, From: auditorStates,
		To: models.StatusRejected, Roles: auditorRoles, RequiresClaim: true, Note: NoteRequired,
		Tag: models.ActionAuditorRejected, Guard: guardDecision,
	},
	{
		Action: ActionGrantReservation, From: auditorStates,
		To: models.StatusReservationGranted, Roles: auditorRoles, RequiresClaim: true, Note: NoteRequired,
		Tag: models.ActionReservationGranted, Guard: guardDecision,
	},
	{
		Action: ActionFinalizeReservation, From: []models.StatusCode{models.StatusReservationGranted},
		To: models.StatusReservationFinal, Roles: registryRoles, RequiresClaim: true,
		Tag: models.ActionReservationFinalized,
	},
	{
		Action: ActionCancelReservation, From: []models.StatusCode{models.StatusReservationGranted},
		To: models.StatusReservationCancelledIncomplete, Roles: registryRoles, RequiresClaim: true,
		Note: NoteRequired, Tag: models.ActionReservationCancelled,
	},
	{
		Action: ActionStrikeOff, From: []models.StatusCode{models.StatusReservationCancelledIncomplete},
		To: models.StatusReservationCancelledStruckOff, Roles: registryRoles, RequiresClaim: true,
		Note: NoteRequired, Tag: models.ActionStruckOff,
	},
}

var transitionIndex = func() map[Action]Transition {
	idx := make(map[Action]Transition, len(Transitions))
	for _, t := range Transitions {
		idx[t.Action] = t
	}
	return idx
}()

// TransitionFor looks up the table row of an action.
func TransitionFor(action Action) (Transition, bool) {
	t, ok := transitionIndex[action]
	return t, ok
}

func (t Transition) allowsFrom(status models.StatusCode) bool {
	return containsStatus(t.From, status)
}

func (t Transition) allowsRole(role models.Role) bool {
	return containsRole(t.Roles, role)
}

// authorize checks role and claim ownership, in that order.
func (t Transition) authorize(req *models.Request, actor Actor) error {
	if !t.allowsRole(actor.Role) {
		return invalidTransition("role %s may not perform %s", actor.Role, t.Action)
	}
	if !t.RequiresClaim {
		return nil
	}
	if req.LockedBy(actor.ID) {
		return nil
	}
	if req.IsLocked() {
		return newError(ErrAlreadyLocked, "claimed by %s", req.LockedByName)
	}
	return invalidTransition("%s requires claiming the request first", t.Action)
}

// check runs the source-state and guard rules against req.
func (t Transition) check(req *models.Request) error {
	if !t.allowsFrom(req.StatusID) {
		return invalidTransition("%s is not allowed from %s", t.Action, req.StatusID)
	}
	if t.Guard != nil {
		if reason := t.Guard(req); reason != "" {
			return invalidTransition("%s: %s", t.Action, reason)
		}
	}
	return nil
}

// claimRoles maps a status to the roles allowed to claim it.
var claimRoles = map[models.StatusCode][]models.Role{
	models.StatusSubmitted:                      auditorRoles,
	models.StatusIpResponded:                    auditorRoles,
	models.StatusDirectorResponded:              auditorRoles,
	models.StatusMinisterResponded:              auditorRoles,
	models.StatusPendingIpReview:                ipRoles,
	models.StatusPendingDirectorReview:          {models.RoleDirector},
	models.StatusPendingMinisterReview:          {models.RoleMinisterAssistant},
	models.StatusReservationGranted:             registryRoles,
	models.StatusReservationCancelledIncomplete: registryRoles,
}

// CanClaim reports whether role may claim a request sitting in status.
func CanClaim(status models.StatusCode, role models.Role) bool {
	return containsRole(claimRoles[status], role)
}

// ClaimableStatuses lists the statuses a role works on. The "available to
// claim" listing combines these with an unlocked filter.
func ClaimableStatuses(role models.Role) []models.StatusCode {
	var out []models.StatusCode
	for _, status := range models.AllStatusCodes() {
		if CanClaim(status, role) {
			out = append(out, status)
		}
	}
	return out
}

// CanSubmit reports whether role may file new requests.
func CanSubmit(role models.Role) bool {
	return containsRole(submitterRoles, role)
}

// AvailableActions lists the actions actor could perform on req right now.
func AvailableActions(req *models.Request, actor Actor) []Action {
	var out []Action
	for _, t := range Transitions {
		if t.authorize(req, actor) != nil {
			continue
		}
		if t.check(req) != nil {
			continue
		}
		out = append(out, t.Action)
	}
	return out
}

// ValidateStatusLookup confirms the persisted status lookup covers the
// enumeration with live rows.
func ValidateStatusLookup(rows []models.RequestStatus) error {
	seen := make(map[models.StatusCode]models.RequestStatus, len(rows))
	for _, row := range rows {
		seen[row.ID] = row
	}
	for _, code := range models.AllStatusCodes() {
		row, ok := seen[code]
		if !ok {
			return fmt.Errorf("status %d (%s) missing from lookup", code, code)
		}
		if row.IsDeleted {
			return fmt.Errorf("status %d (%s) is deleted in lookup", code, code)
		}
		if row.Name != code.String() {
			return fmt.Errorf("status %d is named %q in lookup, expected %q", code, row.Name, code.String())
		}
	}
	return nil
}

func containsStatus(list []models.StatusCode, s models.StatusCode) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsRole(list []models.Role, r models.Role) bool {
	for _, v := range list {
		if v == r {
			return true
		}
	}
	return false
}
