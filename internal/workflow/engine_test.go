package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/trade-registry/internal/events"
	"github.com/javajoker/trade-registry/internal/models"
	"github.com/javajoker/trade-registry/internal/store/memory"
	"github.com/javajoker/trade-registry/internal/workflow"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishRequestEvent(ctx context.Context, kind workflow.EventKind, req *models.Request) {
	m.Called(ctx, kind, req)
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, n *models.Notification) {
	m.Called(ctx, n)
}

type mockObserver struct {
	mock.Mock
}

func (m *mockObserver) ObserveTransition(action string, outcome string, elapsed time.Duration) {
	m.Called(action, outcome, elapsed)
}

type fixture struct {
	store      *memory.Store
	engine     *workflow.Engine
	publisher  *mockPublisher
	dispatcher *mockDispatcher

	submitter workflow.Actor
	auditor   workflow.Actor
	auditor2  workflow.Actor
	ipExpert  workflow.Actor
	director  workflow.Actor
	registrar workflow.Actor
}

func actor(name string, role models.Role) workflow.Actor {
	return workflow.Actor{ID: uuid.New(), Name: name, Role: role}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:      memory.NewStore(),
		publisher:  &mockPublisher{},
		dispatcher: &mockDispatcher{},
		submitter:  actor("province clerk", models.RoleProvinceEmployee),
		auditor:    actor("auditor one", models.RoleCentralAuditor),
		auditor2:   actor("auditor two", models.RoleCentralAuditor),
		ipExpert:   actor("ip expert", models.RoleIpExpert),
		director:   actor("director", models.RoleDirector),
		registrar:  actor("registrar", models.RoleRegistryOfficer),
	}
	f.publisher.On("PublishRequestEvent", mock.Anything, mock.Anything, mock.Anything).Return()
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return()
	f.store.AddCompanyType(models.CompanyType{ID: 1, Name: "LLC", Fee: 250000})
	f.engine = workflow.NewEngine(f.store,
		workflow.WithPublisher(f.publisher),
		workflow.WithDispatcher(f.dispatcher),
		workflow.WithDefaultFee(50000),
	)
	return f
}

func (f *fixture) submit(t *testing.T) *models.Request {
	t.Helper()
	req, err := f.engine.Submit(context.Background(), f.submitter, &models.Request{
		CompanyName:   "شركة النور للتجارة العامة",
		ProvinceID:    1,
		CompanyTypeID: 1,
	})
	require.NoError(t, err)
	return req
}

func (f *fixture) status(t *testing.T, id uuid.UUID) models.StatusCode {
	t.Helper()
	req, err := f.store.GetRequest(context.Background(), id)
	require.NoError(t, err)
	return req.StatusID
}

// pay runs the fee loop and leaves the request Submitted, paid and unclaimed.
func (f *fixture) pay(t *testing.T, id uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	_, err := f.engine.Claim(ctx, f.auditor, id)
	require.NoError(t, err)
	req, err := f.engine.RequestPayment(ctx, f.auditor, id, "")
	require.NoError(t, err)
	require.NotNil(t, req.Invoice)
	assert.Equal(t, 250000.0, req.Invoice.Amount)

	req, err = f.engine.ConfirmPayment(ctx, f.submitter, id, workflow.Input{ReceiptReference: "RCPT-1"})
	require.NoError(t, err)
	require.True(t, req.IsPaid)
	require.Equal(t, models.StatusSubmitted, req.StatusID)
}

func countActions(actions []models.RequestAction, tag models.ActionType) int {
	n := 0
	for _, a := range actions {
		if a.ActionType == tag {
			n++
		}
	}
	return n
}

func TestSubmit_StartsSubmittedAndUnclaimed(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	assert.Equal(t, models.StatusSubmitted, req.StatusID)
	assert.Nil(t, req.LockedByID)
	assert.False(t, req.IsPaid)

	actions := f.store.Actions(req.ID)
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionSubmitted, actions[0].ActionType)
	f.publisher.AssertCalled(t, "PublishRequestEvent", mock.Anything, workflow.EventRequestCreated, mock.Anything)
}

func TestSubmit_RejectsStaffRoles(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Submit(context.Background(), f.auditor, &models.Request{
		CompanyName: "x", ProvinceID: 1, CompanyTypeID: 1,
	})
	assert.ErrorIs(t, err, workflow.ErrInvalidStateTransition)
}

func TestAccept_UnpaidRequestIsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t)

	_, err := f.engine.Claim(ctx, f.auditor, req.ID)
	require.NoError(t, err)

	_, err = f.engine.Accept(ctx, f.auditor, req.ID, "موافق")
	assert.ErrorIs(t, err, workflow.ErrInvalidStateTransition)
	assert.Equal(t, models.StatusSubmitted, f.status(t, req.ID))
	assert.Zero(t, countActions(f.store.Actions(req.ID), models.ActionAuditorAccepted))
}

func TestFullFlow_PayReviewAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t)
	f.pay(t, req.ID)

	_, err := f.engine.Claim(ctx, f.auditor, req.ID)
	require.NoError(t, err)
	out, err := f.engine.ForwardToIP(ctx, f.auditor, req.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingIpReview, out.StatusID)
	assert.Nil(t, out.LockedByID)

	_, err = f.engine.Claim(ctx, f.ipExpert, req.ID)
	require.NoError(t, err)
	out, err = f.engine.SubmitIPReport(ctx, f.ipExpert, req.ID, "no conflicting marks")
	require.NoError(t, err)
	assert.Equal(t, models.StatusIpResponded, out.StatusID)
	require.NotNil(t, out.IpExpertID)
	assert.Equal(t, f.ipExpert.ID, *out.IpExpertID)

	_, err = f.engine.Claim(ctx, f.auditor, req.ID)
	require.NoError(t, err)
	out, err = f.engine.Accept(ctx, f.auditor, req.ID, "موافق")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, out.StatusID)
	assert.Equal(t, "موافق", out.AuditorFeedback)
	assert.Nil(t, out.LockedByID)

	actions := f.store.Actions(req.ID)
	assert.Equal(t, 1, countActions(actions, models.ActionAuditorAccepted))
	last := actions[len(actions)-1]
	assert.Equal(t, models.StatusIpResponded, last.FromStatus)
	assert.Equal(t, models.StatusAccepted, last.ToStatus)

	assert.NotEmpty(t, f.store.Notifications(f.submitter.ID))
	f.dispatcher.AssertCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestClaim_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	const n = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		locked int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(a workflow.Actor) {
			defer wg.Done()
			_, err := f.engine.Claim(context.Background(), a, req.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, workflow.ErrAlreadyLocked):
				locked++
			}
		}(actor("auditor", models.RoleCentralAuditor))
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, locked)
	assert.Equal(t, 1, countActions(f.store.Actions(req.ID), models.ActionClaimed))
}

func TestClaim_IsIdempotentForHolder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t)

	first, err := f.engine.Claim(ctx, f.auditor, req.ID)
	require.NoError(t, err)
	second, err := f.engine.Claim(ctx, f.auditor, req.ID)
	require.NoError(t, err)

	assert.Equal(t, first.LockedByID, second.LockedByID)
	assert.Equal(t, 1, countActions(f.store.Actions(req.ID), models.ActionClaimed))

	_, err = f.engine.Claim(ctx, f.auditor2, req.ID)
	assert.ErrorIs(t, err, workflow.ErrAlreadyLocked)
}

func TestClaim_WrongRoleForStatus(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	_, err := f.engine.Claim(context.Background(), f.ipExpert, req.ID)
	assert.ErrorIs(t, err, workflow.ErrInvalidStateTransition)
}

func TestClaim_UnknownRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Claim(context.Background(), f.auditor, uuid.New())
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t)

	_, err := f.engine.Claim(ctx, f.auditor, req.ID)
	require.NoError(t, err)

	_, err = f.engine.Release(ctx, f.auditor2, req.ID)
	assert.ErrorIs(t, err, workflow.ErrAlreadyLocked)

	supervisor := actor("supervisor", models.RoleCentralAuditorAdmin)
	out, err := f.engine.Release(ctx, supervisor, req.ID)
	require.NoError(t, err)
	assert.Nil(t, out.LockedByID)

	_, err = f.engine.Claim(ctx, f.auditor2, req.ID)
	assert.NoError(t, err)
}

func TestAccept_EmptyCommentIsValidationError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t)
	f.pay(t, req.ID)
	_, err := f.engine.Claim(ctx, f.auditor, req.ID)
	require.NoError(t, err)

	for _, comment := range []string{"", "   "} {
		_, err = f.engine.Accept(ctx, f.auditor, req.ID, comment)
		assert.ErrorIs(t, err, workflow.ErrValidation)
	}
	// Validation comes before any lookup.
	_, err = f.engine.Reject(ctx, f.auditor, uuid.New(), "")
	assert.ErrorIs(t, err, workflow.ErrValidation)

	assert.Equal(t, models.StatusSubmitted, f.status(t, req.ID))
}

func TestForwardToLeadership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t)
	_, err := f.engine.Claim(ctx, f.auditor, req.ID)
	require.NoError(t, err)

	_, err = f.engine.ForwardToLeadership(ctx, f.auditor, req.ID, workflow.LeadershipDirector, "")
	assert.ErrorIs(t, err, workflow.ErrValidation)
	_, err = f.engine.ForwardToLeadership(ctx, f.auditor, req.ID, "Mayor", "please advise")
	assert.ErrorIs(t, err, workflow.ErrValidation)

	out, err := f.engine.ForwardToLeadership(ctx, f.auditor, req.ID, workflow.LeadershipDirector, "similar name exists")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingDirectorReview, out.StatusID)

	actions := f.store.Actions(req.ID)
	last := actions[len(actions)-1]
	assert.Equal(t, models.ActionEscalatedToDirector, last.ActionType)
	assert.True(t, last.IsInternal)

	_, err = f.engine.Claim(ctx, f.director, req.ID)
	require.NoError(t, err)
	out, err = f.engine.RespondAsLeadership(ctx, f.director, req.ID, "proceed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDirectorResponded, out.StatusID)

	// The submitter never sees the internal note.
	for _, n := range f.store.Notifications(f.submitter.ID) {
		assert.NotContains(t, n.Message, "similar name exists")
	}
}

func TestReservationLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t)
	f.pay(t, req.ID)

	_, err := f.engine.Claim(ctx, f.auditor, req.ID)
	require.NoError(t, err)
	_, err = f.engine.ForwardToIP(ctx, f.auditor, req.ID, "")
	require.NoError(t, err)
	_, err = f.engine.Claim(ctx, f.ipExpert, req.ID)
	require.NoError(t, err)
	_, err = f.engine.SubmitIPReport(ctx, f.ipExpert, req.ID, "clear")
	require.NoError(t, err)
	_, err = f.engine.Claim(ctx, f.auditor, req.ID)
	require.NoError(t, err)

	out, err := f.engine.GrantReservation(ctx, f.auditor, req.ID, "reserved")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReservationGranted, out.StatusID)
	require.NotNil(t, out.ReservationExpiryDate)

	_, err = f.engine.Claim(ctx, f.registrar, req.ID)
	require.NoError(t, err)
	_, err = f.engine.FinalizeReservation(ctx, f.registrar, req.ID, "", "")
	assert.ErrorIs(t, err, workflow.ErrValidation)

	out, err = f.engine.FinalizeReservation(ctx, f.registrar, req.ID, "REG-2026-001", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReservationFinal, out.StatusID)
	assert.Equal(t, "REG-2026-001", out.RegistryNumber)
	assert.NotNil(t, out.RegistryDate)
}

func TestInvalidTransitionsLeaveStatusUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t)

	cases := []struct {
		name string
		run  func() error
	}{
		{"finalize from submitted", func() error {
			_, err := f.engine.FinalizeReservation(ctx, f.registrar, req.ID, "REG-1", "")
			return err
		}},
		{"ip report from submitted", func() error {
			_, err := f.engine.SubmitIPReport(ctx, f.ipExpert, req.ID, "text")
			return err
		}},
		{"strike off from submitted", func() error {
			_, err := f.engine.StrikeOff(ctx, f.registrar, req.ID, "gone")
			return err
		}},
		{"accept without claim", func() error {
			_, err := f.engine.Accept(ctx, f.auditor, req.ID, "ok")
			return err
		}},
		{"confirm payment without invoice", func() error {
			_, err := f.engine.ConfirmPayment(ctx, f.submitter, req.ID, workflow.Input{ReceiptReference: "R"})
			return err
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			assert.ErrorIs(t, err, workflow.ErrInvalidStateTransition)
			assert.Equal(t, models.StatusSubmitted, f.status(t, req.ID))
		})
	}
	assert.Len(t, f.store.Actions(req.ID), 1)
}

func TestPerform_ClaimedBySomeoneElse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t)
	f.pay(t, req.ID)

	_, err := f.engine.Claim(ctx, f.auditor, req.ID)
	require.NoError(t, err)

	_, err = f.engine.ForwardToIP(ctx, f.auditor2, req.ID, "")
	assert.ErrorIs(t, err, workflow.ErrAlreadyLocked)
}

func TestConfirmPayment_TwiceFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t)
	f.pay(t, req.ID)

	_, err := f.engine.ConfirmPayment(ctx, f.submitter, req.ID, workflow.Input{ReceiptReference: "RCPT-2"})
	assert.ErrorIs(t, err, workflow.ErrInvalidStateTransition)
}

func TestForwardToLeadership_UnknownTargetIsObserved(t *testing.T) {
	f := newFixture(t)
	observer := &mockObserver{}
	observer.On("ObserveTransition", mock.Anything, mock.Anything, mock.Anything).Return()
	engine := workflow.NewEngine(f.store, workflow.WithObserver(observer))

	_, err := engine.ForwardToLeadership(context.Background(), f.auditor, uuid.New(), "Mayor", "please advise")
	assert.ErrorIs(t, err, workflow.ErrValidation)
	observer.AssertCalled(t, "ObserveTransition", "escalate", "validation", mock.Anything)
}

func TestPublishedRecordCarriesHistory(t *testing.T) {
	f := newFixture(t)
	f.store.AddProvince(models.Province{ID: 1, Name: "بغداد"})
	hub := events.NewHub(8, nil)
	engine := workflow.NewEngine(f.store, workflow.WithPublisher(hub))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := hub.Subscribe(ctx)

	req, err := engine.Submit(ctx, f.submitter, &models.Request{CompanyName: "Alpha", ProvinceID: 1, CompanyTypeID: 1})
	require.NoError(t, err)
	_, err = engine.Claim(ctx, f.auditor, req.ID)
	require.NoError(t, err)
	out, err := engine.RequestPayment(ctx, f.auditor, req.ID, "")
	require.NoError(t, err)

	stored := f.store.Actions(req.ID)
	require.Len(t, stored, 3)
	assert.Len(t, out.Actions, len(stored), "the returned record carries the full history")
	assert.Equal(t, "بغداد", out.Province.Name)

	var last events.Event
	for i := 0; i < 3; i++ {
		select {
		case last = <-ch:
		case <-time.After(time.Second):
			t.Fatalf("expected 3 events, got %d", i)
		}
	}
	assert.Equal(t, workflow.EventRequestUpdated, last.Kind)
	assert.Equal(t, models.StatusPendingPayment.String(), last.Request.StatusName)
	assert.Equal(t, "بغداد", last.Request.ProvinceName)

	// The push payload omits internal entries such as the claim.
	var public []string
	for _, a := range stored {
		if !a.IsInternal {
			public = append(public, string(a.ActionType))
		}
	}
	var pushed []string
	for _, h := range last.Request.History {
		pushed = append(pushed, h.ActionType)
	}
	assert.Equal(t, public, pushed)
	assert.Len(t, pushed, 2)
}
