package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/trade-registry/internal/models"
)

func TestUserService_CreateRejectsDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewUserService(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err := s.Create(&CreateUserRequest{
		Username: "auditor.one",
		FullName: "Auditor One",
		Password: "long-enough",
		Role:     models.RoleCentralAuditor,
	})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestUserService_ProvinceRoleNeedsProvince(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewUserService(db)

	_, err := s.Create(&CreateUserRequest{
		Username: "clerk",
		FullName: "Clerk",
		Password: "long-enough",
		Role:     models.RoleProvinceEmployee,
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_SetStatus(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewUserService(db)

	mock.ExpectExec(`UPDATE "users" SET "status"`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.SetStatus(uuid.New(), models.UserStatusSuspended), ErrUserNotFound)

	mock.ExpectExec(`UPDATE "users" SET "status"`).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.SetStatus(uuid.New(), models.UserStatusActive))
}
