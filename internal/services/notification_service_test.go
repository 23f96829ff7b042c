package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/trade-registry/internal/models"
)

func TestNotificationService_UnreadCount(t *testing.T) {
	db, mock := newMockDB(t)
	logger, _ := testLogger()
	s := NewNotificationService(db, testConfig(), logger)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "notifications"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := s.UnreadCount(uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationService_MarkRead(t *testing.T) {
	db, mock := newMockDB(t)
	logger, _ := testLogger()
	s := NewNotificationService(db, testConfig(), logger)
	userID := uuid.New()

	mock.ExpectExec(`UPDATE "notifications" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, s.MarkRead(userID, uuid.New()))

	// Someone else's notification looks the same as a missing one.
	mock.ExpectExec(`UPDATE "notifications" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.MarkRead(userID, uuid.New()), ErrNotificationNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	db, mock := newMockDB(t)
	logger, _ := testLogger()
	s := NewNotificationService(db, testConfig(), logger)

	mock.ExpectExec(`UPDATE "notifications" SET`).WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := s.MarkAllRead(uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestNotificationService_DeliverRendersEmail(t *testing.T) {
	db, mock := newMockDB(t)
	logger, _ := testLogger()

	var to, subject, body string
	s := NewNotificationService(db, testConfig(), logger).WithSender(func(rcpt, sub, b string) error {
		to, subject, body = rcpt, sub, b
		return nil
	})

	userID := uuid.New()
	requestID := uuid.New()
	mock.ExpectQuery(`FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email"}).
			AddRow(userID.String(), "Zainab Ali", "zainab@example.com"))

	err := s.deliver(models.Notification{
		UserID:    userID,
		RequestID: &requestID,
		Title:     "تحديث حالة الطلب",
		Message:   "أصبح الطلب مقبولاً",
	})
	require.NoError(t, err)

	assert.Equal(t, "zainab@example.com", to)
	assert.Equal(t, "تحديث حالة الطلب", subject)
	assert.Contains(t, body, "Zainab Ali")
	assert.Contains(t, body, "https://registry.example.gov/requests/"+requestID.String())
	assert.True(t, strings.Contains(body, `dir="rtl"`))
}

func TestNotificationService_DeliverSkipsUsersWithoutEmail(t *testing.T) {
	db, mock := newMockDB(t)
	logger, _ := testLogger()

	called := false
	s := NewNotificationService(db, testConfig(), logger).WithSender(func(string, string, string) error {
		called = true
		return nil
	})

	mock.ExpectQuery(`FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email"}).AddRow(uuid.NewString(), "No Mail", ""))

	require.NoError(t, s.deliver(models.Notification{UserID: uuid.New(), Title: "t", Message: "m"}))
	assert.False(t, called)
}

func TestNotificationService_DispatchDoesNotBlock(t *testing.T) {
	db, mock := newMockDB(t)
	logger, hook := testLogger()
	s := NewNotificationService(db, testConfig(), logger)

	mock.ExpectQuery(`FROM "users"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	s.Dispatch(context.Background(), &models.Notification{UserID: uuid.New(), Title: "t", Message: "m"})

	assert.Eventually(t, func() bool {
		return len(hook.AllEntries()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "Failed to email notification", hook.LastEntry().Message)
}
