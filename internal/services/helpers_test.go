package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/trade-registry/internal/config"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Payment:     config.PaymentConfig{Currency: "iqd"},
		Workflow:    config.WorkflowConfig{ReservationDays: 30, DefaultFee: 50000},
		Frontend:    config.FrontendConfig{BaseURL: "https://registry.example.gov"},
	}
}

func testLogger() (*logrus.Logger, *test.Hook) {
	return test.NewNullLogger()
}
