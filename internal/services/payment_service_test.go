package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"

	"github.com/javajoker/trade-registry/internal/models"
	"github.com/javajoker/trade-registry/internal/store/memory"
	"github.com/javajoker/trade-registry/internal/workflow"
)

type fakeGateway struct {
	created *stripe.PaymentIntentParams
	intent  *stripe.PaymentIntent
	err     error
}

func (g *fakeGateway) Create(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	g.created = params
	if g.err != nil {
		return nil, g.err
	}
	return &stripe.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret", Status: stripe.PaymentIntentStatusRequiresPaymentMethod}, nil
}

func (g *fakeGateway) Get(id string) (*stripe.PaymentIntent, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.intent, nil
}

var invoiceColumns = []string{"id", "request_id", "amount", "currency", "is_paid"}

// pendingRequest drives a request into PendingPayment on the memory store.
func pendingRequest(t *testing.T) (*workflow.Engine, *memory.Store, *models.Request, workflow.Actor) {
	t.Helper()
	ctx := context.Background()
	st := memory.NewStore()
	st.AddCompanyType(models.CompanyType{ID: 1, Fee: 250000})
	engine := workflow.NewEngine(st)

	clerk := workflow.Actor{ID: uuid.New(), Name: "clerk", Role: models.RoleProvinceEmployee}
	auditor := workflow.Actor{ID: uuid.New(), Name: "auditor", Role: models.RoleCentralAuditor}

	req, err := engine.Submit(ctx, clerk, &models.Request{CompanyName: "Alpha", ProvinceID: 1, CompanyTypeID: 1})
	require.NoError(t, err)
	_, err = engine.Claim(ctx, auditor, req.ID)
	require.NoError(t, err)
	req, err = engine.RequestPayment(ctx, auditor, req.ID, "")
	require.NoError(t, err)
	return engine, st, req, clerk
}

func TestCreatePaymentIntent_NotConfigured(t *testing.T) {
	db, _ := newMockDB(t)
	s := NewPaymentService(db, testConfig(), nil).WithGateway(&fakeGateway{})

	_, err := s.CreatePaymentIntent(uuid.New(), workflow.Actor{ID: uuid.New()}, nil)
	assert.ErrorIs(t, err, ErrPaymentNotConfigured)
}

func TestCreatePaymentIntent(t *testing.T) {
	db, mock := newMockDB(t)
	cfg := testConfig()
	cfg.Payment.StripeSecretKey = "sk_test_123"
	gateway := &fakeGateway{}
	s := NewPaymentService(db, cfg, nil).WithGateway(gateway)

	invoiceID, requestID := uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "invoices"`).
		WillReturnRows(sqlmock.NewRows(invoiceColumns).AddRow(invoiceID.String(), requestID.String(), 250000.0, "iqd", false))
	mock.ExpectExec(`UPDATE "invoices" SET "payment_intent_id"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	resp, err := s.CreatePaymentIntent(invoiceID, workflow.Actor{ID: uuid.New()}, nil)
	require.NoError(t, err)
	assert.Equal(t, "pi_123", resp.PaymentID)
	assert.Equal(t, "pi_123_secret", resp.ClientSecret)
	assert.Equal(t, "iqd", resp.Currency)

	require.NotNil(t, gateway.created)
	assert.Equal(t, int64(25000000), *gateway.created.Amount)
	assert.Equal(t, invoiceID.String(), gateway.created.Metadata["invoice_id"])
	assert.Equal(t, requestID.String(), gateway.created.Metadata["request_id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePaymentIntent_AlreadyPaid(t *testing.T) {
	db, mock := newMockDB(t)
	cfg := testConfig()
	cfg.Payment.StripeSecretKey = "sk_test_123"
	s := NewPaymentService(db, cfg, nil).WithGateway(&fakeGateway{})

	mock.ExpectQuery(`SELECT \* FROM "invoices"`).
		WillReturnRows(sqlmock.NewRows(invoiceColumns).AddRow(uuid.NewString(), uuid.NewString(), 1.0, "iqd", true))

	_, err := s.CreatePaymentIntent(uuid.New(), workflow.Actor{ID: uuid.New()}, nil)
	assert.ErrorIs(t, err, ErrInvoiceAlreadyPaid)
}

func TestGetInvoice_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPaymentService(db, testConfig(), nil)

	mock.ExpectQuery(`SELECT \* FROM "invoices"`).WillReturnRows(sqlmock.NewRows(invoiceColumns))

	_, err := s.GetInvoice(uuid.New(), nil)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestGetInvoice_OutsideScope(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPaymentService(db, testConfig(), nil)

	mock.ExpectQuery(`SELECT .* FROM "invoices" JOIN requests ON requests.id = invoices.request_id .* WHERE requests.province_id = \$1 AND invoices.id = \$2`).
		WillReturnRows(sqlmock.NewRows(invoiceColumns))

	province := uint(3)
	_, err := s.GetInvoice(uuid.New(), &province)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPayment(t *testing.T) {
	engine, st, req, clerk := pendingRequest(t)
	invoiceID := uuid.New()

	cases := []struct {
		name    string
		intent  *stripe.PaymentIntent
		wantErr error
	}{
		{
			name: "foreign intent",
			intent: &stripe.PaymentIntent{ID: "pi_x", Status: stripe.PaymentIntentStatusSucceeded,
				Metadata: map[string]string{"invoice_id": uuid.NewString()}},
			wantErr: ErrPaymentMismatch,
		},
		{
			name: "still processing",
			intent: &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusProcessing,
				Metadata: map[string]string{"invoice_id": invoiceID.String()}},
			wantErr: ErrPaymentPending,
		},
		{
			name: "succeeded",
			intent: &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusSucceeded,
				Metadata: map[string]string{"invoice_id": invoiceID.String()}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			s := NewPaymentService(db, testConfig(), engine).WithGateway(&fakeGateway{intent: tc.intent})

			mock.ExpectQuery(`SELECT \* FROM "invoices"`).
				WillReturnRows(sqlmock.NewRows(invoiceColumns).AddRow(invoiceID.String(), req.ID.String(), 250000.0, "iqd", false))

			out, err := s.ConfirmPayment(context.Background(), invoiceID, clerk, nil, &ConfirmPaymentRequest{PaymentIntentID: tc.intent.ID})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, out.IsPaid)
			assert.Equal(t, models.StatusSubmitted, out.StatusID)
			assert.Equal(t, "pi_1", out.Invoice.PaymentIntentID)
		})
	}

	stored, err := st.GetRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid)
}

func TestConfirmPayment_GatewayError(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPaymentService(db, testConfig(), nil).WithGateway(&fakeGateway{err: errors.New("stripe down")})

	mock.ExpectQuery(`SELECT \* FROM "invoices"`).
		WillReturnRows(sqlmock.NewRows(invoiceColumns).AddRow(uuid.NewString(), uuid.NewString(), 1.0, "iqd", false))

	_, err := s.ConfirmPayment(context.Background(), uuid.New(), workflow.Actor{}, nil, &ConfirmPaymentRequest{PaymentIntentID: "pi_1"})
	assert.Error(t, err)
}

func TestRecordReceipt(t *testing.T) {
	engine, _, req, clerk := pendingRequest(t)
	db, mock := newMockDB(t)
	s := NewPaymentService(db, testConfig(), engine)

	mock.ExpectQuery(`SELECT \* FROM "invoices"`).
		WillReturnRows(sqlmock.NewRows(invoiceColumns).AddRow(uuid.NewString(), req.ID.String(), 250000.0, "iqd", false))

	out, err := s.RecordReceipt(context.Background(), uuid.New(), clerk, nil, &ReceiptRequest{
		ReceiptReference: "  CASH-778 ",
		ReceiptPath:      "receipts/20261015_ab12cd34.pdf",
	})
	require.NoError(t, err)
	assert.True(t, out.IsPaid)
	assert.Equal(t, "CASH-778", out.ReceiptNum)
	assert.Equal(t, "receipts/20261015_ab12cd34.pdf", out.ReceiptPath)
}
