// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/javajoker/trade-registry/internal/config"
	"github.com/javajoker/trade-registry/internal/models"
	"github.com/javajoker/trade-registry/internal/workflow"
)

var DB *gorm.DB

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func Initialize(cfg config.DatabaseConfig, log logrus.FieldLogger) (*gorm.DB, error) {
	var err error
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	}

	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB, log logrus.FieldLogger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.WithError(err).Error("Error closing database connection")
	} else {
		log.Info("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB, log logrus.FieldLogger) error {
	log.Info("Running database migrations...")

	// gen_random_uuid() ships with pgcrypto before PostgreSQL 13
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS pgcrypto").Error; err != nil {
		return fmt.Errorf("failed to create pgcrypto extension: %w", err)
	}

	err := db.AutoMigrate(
		&models.RequestStatus{},
		&models.Province{},
		&models.CompanyType{},
		&models.BusinessPurpose{},
		&models.User{},
		&models.Request{},
		&models.RequestBusinessPurpose{},
		&models.ChecklistItem{},
		&models.Invoice{},
		&models.RequestAction{},
		&models.Notification{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	createIndexes(db, log)

	log.Info("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB, log logrus.FieldLogger) {
	indexes := []string{
		// Work queues: unclaimed requests by status, oldest first
		"CREATE INDEX IF NOT EXISTS idx_requests_queue ON requests(status_id, created_at) WHERE locked_by_id IS NULL AND deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_requests_province_status ON requests(province_id, status_id)",
		"CREATE INDEX IF NOT EXISTS idx_requests_updated_at ON requests(updated_at DESC)",

		// Name check substring search
		"CREATE EXTENSION IF NOT EXISTS pg_trgm",
		"CREATE INDEX IF NOT EXISTS idx_requests_normalized_name_trgm ON requests USING GIN(normalized_name gin_trgm_ops)",

		"CREATE INDEX IF NOT EXISTS idx_request_actions_request ON request_actions(request_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id, is_read, created_at DESC)",

		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			// Continue with other indexes instead of failing completely
			log.WithError(err).WithField("statement", index).Warn("Failed to create index")
		}
	}
}

var defaultProvinces = []string{
	"بغداد", "البصرة", "نينوى", "أربيل", "النجف", "كربلاء", "بابل", "الأنبار", "ديالى",
	"ذي قار", "القادسية", "المثنى", "ميسان", "واسط", "صلاح الدين", "كركوك", "دهوك", "السليمانية",
}

var defaultCompanyTypes = []models.CompanyType{
	{ID: 1, Name: "شركة محدودة المسؤولية", Fee: 250000},
	{ID: 2, Name: "شركة مساهمة خاصة", Fee: 500000},
	{ID: 3, Name: "شركة تضامنية", Fee: 150000},
	{ID: 4, Name: "مشروع فردي", Fee: 100000},
}

var defaultBusinessPurposes = []models.BusinessPurpose{
	{ID: 1, Code: "G4610", Name: "التجارة العامة"},
	{ID: 2, Code: "F4100", Name: "المقاولات الإنشائية"},
	{ID: 3, Code: "H4923", Name: "النقل البري للبضائع"},
	{ID: 4, Code: "J6201", Name: "البرمجيات وتقنية المعلومات"},
	{ID: 5, Code: "C1079", Name: "الصناعات الغذائية"},
	{ID: 6, Code: "M7020", Name: "الاستشارات الإدارية"},
}

// SeedInitialData writes the lookups and the first admin account. It is
// safe to run on every start.
func SeedInitialData(db *gorm.DB, log logrus.FieldLogger) error {
	log.Info("Seeding initial data...")

	err := WithTransaction(db, func(tx *gorm.DB) error {
		// The status table mirrors models.StatusCode and is rewritten on start.
		statuses := models.StatusLookupRows()
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "name_ar", "color", "is_terminal", "is_deleted"}),
		}).Create(&statuses).Error
		if err != nil {
			return fmt.Errorf("failed to seed statuses: %w", err)
		}

		provinces := make([]models.Province, 0, len(defaultProvinces))
		for i, name := range defaultProvinces {
			provinces = append(provinces, models.Province{ID: uint(i + 1), Name: name})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&provinces).Error; err != nil {
			return fmt.Errorf("failed to seed provinces: %w", err)
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaultCompanyTypes).Error; err != nil {
			return fmt.Errorf("failed to seed company types: %w", err)
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaultBusinessPurposes).Error; err != nil {
			return fmt.Errorf("failed to seed business purposes: %w", err)
		}

		var adminCount int64
		tx.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&adminCount)

		if adminCount == 0 {
			admin := &models.User{
				Username: "admin",
				FullName: "System Administrator",
				Role:     models.RoleAdmin,
				Status:   models.UserStatusActive,
			}

			if err := admin.SetPassword("admin123!@#"); err != nil {
				return fmt.Errorf("failed to set admin password: %w", err)
			}

			if err := tx.Create(admin).Error; err != nil {
				return fmt.Errorf("failed to create admin user: %w", err)
			}

			log.Warn("Default admin user created, change its password")
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("Initial data seeding completed")
	return nil
}

// VerifyStatusLookup fails start-up when the persisted status table does
// not match the enumeration the workflow is compiled against.
func VerifyStatusLookup(db *gorm.DB) error {
	var rows []models.RequestStatus
	if err := db.Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to load status lookup: %w", err)
	}
	return workflow.ValidateStatusLookup(rows)
}

// WithTransaction runs fn in a transaction, rolling back on error or panic.
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
