package workflow

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/trade-registry/internal/models"
)

func TestTransitions_TableIsConsistent(t *testing.T) {
	seen := map[Action]bool{}
	for _, tr := range Transitions {
		assert.False(t, seen[tr.Action], "duplicate action %s", tr.Action)
		seen[tr.Action] = true

		assert.True(t, tr.To.Valid(), "%s targets unknown status", tr.Action)
		assert.NotEmpty(t, tr.From, "%s has no source state", tr.Action)
		assert.NotEmpty(t, tr.Roles, "%s has no roles", tr.Action)
		assert.NotEmpty(t, tr.Tag, "%s has no audit tag", tr.Action)
		for _, from := range tr.From {
			assert.False(t, from.IsTerminal(), "%s leaves terminal status %s", tr.Action, from)
		}

		got, ok := TransitionFor(tr.Action)
		require.True(t, ok)
		assert.Equal(t, tr.To, got.To)
	}

	_, ok := TransitionFor("publish")
	assert.False(t, ok)
}

func TestTransitions_TerminalStatusesHaveNoClaimants(t *testing.T) {
	for _, status := range models.AllStatusCodes() {
		if !status.IsTerminal() {
			continue
		}
		for _, role := range models.AllRoles {
			assert.False(t, CanClaim(status, role), "%s may claim terminal %s", role, status)
		}
	}
}

func TestClaimableStatuses(t *testing.T) {
	assert.ElementsMatch(t, []models.StatusCode{
		models.StatusSubmitted,
		models.StatusIpResponded,
		models.StatusDirectorResponded,
		models.StatusMinisterResponded,
	}, ClaimableStatuses(models.RoleCentralAuditor))

	assert.Equal(t, []models.StatusCode{models.StatusPendingIpReview}, ClaimableStatuses(models.RoleIpExpert))
	assert.Empty(t, ClaimableStatuses(models.RoleProvinceEmployee))
}

func TestCanSubmit(t *testing.T) {
	assert.True(t, CanSubmit(models.RoleProvinceEmployee))
	assert.True(t, CanSubmit(models.RoleProvinceAdmin))
	assert.False(t, CanSubmit(models.RoleCentralAuditor))
	assert.False(t, CanSubmit(models.RoleIpExpert))
}

func TestAvailableActions(t *testing.T) {
	auditor := Actor{ID: uuid.New(), Name: "a", Role: models.RoleCentralAuditor}
	holder := auditor.ID
	responded := time.Now()

	req := &models.Request{StatusID: models.StatusSubmitted}
	assert.Empty(t, AvailableActions(req, auditor), "nothing without a claim")

	req.LockedByID = &holder
	assert.ElementsMatch(t, []Action{
		ActionRequestPayment,
		ActionForwardToDirector,
		ActionEscalateToDirector,
		ActionEscalateToMinister,
	}, AvailableActions(req, auditor))

	req.IsPaid = true
	req.Invoice = &models.Invoice{IsPaid: true}
	req.IpRespondedAt = &responded
	req.StatusID = models.StatusIpResponded
	actions := AvailableActions(req, auditor)
	assert.Contains(t, actions, ActionAccept)
	assert.Contains(t, actions, ActionReject)
	assert.Contains(t, actions, ActionGrantReservation)
	assert.NotContains(t, actions, ActionRequestPayment)

	submitter := Actor{ID: uuid.New(), Role: models.RoleProvinceEmployee}
	pending := &models.Request{StatusID: models.StatusPendingPayment, Invoice: &models.Invoice{}}
	assert.Equal(t, []Action{ActionConfirmPayment}, AvailableActions(pending, submitter))
}

func TestValidateStatusLookup(t *testing.T) {
	rows := models.StatusLookupRows()
	require.NoError(t, ValidateStatusLookup(rows))

	renamed := models.StatusLookupRows()
	renamed[0].Name = "New"
	assert.Error(t, ValidateStatusLookup(renamed))

	deleted := models.StatusLookupRows()
	deleted[3].IsDeleted = true
	assert.Error(t, ValidateStatusLookup(deleted))

	assert.Error(t, ValidateStatusLookup(rows[:5]))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrValidation, KindOf(validationError("x")))
	assert.Equal(t, ErrAlreadyLocked, KindOf(newError(ErrAlreadyLocked, "held by %s", "b")))
	assert.Nil(t, KindOf(assert.AnError))

	err := invalidTransition("accept is not allowed from %s", models.StatusAccepted)
	assert.Contains(t, err.Error(), "Accepted")
}
