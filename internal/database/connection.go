// internal/database/connection.go
package database

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/arborvest/arbor-backend/internal/config"
	"github.com/arborvest/arbor-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.User{},
		&models.Tree{},
		&models.Transaction{},
		&models.Investment{},
		&models.FraudAlert{},
		&models.AuditLog{},
		&models.WebhookEvent{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	// The audit ledger is append-only. Hooks enforce that in Go code; this
	// trigger enforces it against anything that talks to the table directly.
	if err := installAuditGuard(db); err != nil {
		return fmt.Errorf("failed to install audit guard: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)",
		"CREATE INDEX IF NOT EXISTS idx_users_type_status ON users(user_type, status)",
		"CREATE INDEX IF NOT EXISTS idx_users_verification_level ON users(verification_level)",

		// Tree indexes
		"CREATE INDEX IF NOT EXISTS idx_trees_farm ON trees(farm_id)",
		"CREATE INDEX IF NOT EXISTS idx_trees_status ON trees(status)",
		"CREATE INDEX IF NOT EXISTS idx_trees_species ON trees(species)",

		// Investment indexes
		"CREATE INDEX IF NOT EXISTS idx_investments_user ON investments(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_investments_tree_status ON investments(tree_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_investments_created_at ON investments(created_at DESC)",

		// Transaction indexes
		"CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_type_status ON transactions(transaction_type, status)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at DESC)",

		// Fraud alert indexes
		"CREATE INDEX IF NOT EXISTS idx_fraud_alerts_user_rule ON fraud_alerts(user_id, rule_id, detected_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_fraud_alerts_unresolved ON fraud_alerts(resolved_at) WHERE resolved_at IS NULL",

		// Audit ledger indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_actor_event ON audit_logs(actor_id, event_type)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC, id)",

		// Webhook event indexes
		"CREATE INDEX IF NOT EXISTS idx_webhook_events_created ON webhook_events(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

func installAuditGuard(db *gorm.DB) error {
	guard := []string{
		`CREATE OR REPLACE FUNCTION reject_audit_log_mutation() RETURNS trigger AS $$
		BEGIN
			RAISE EXCEPTION 'audit log entries are immutable';
		END;
		$$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS audit_logs_immutable ON audit_logs`,
		`CREATE TRIGGER audit_logs_immutable
			BEFORE UPDATE OR DELETE ON audit_logs
			FOR EACH ROW EXECUTE FUNCTION reject_audit_log_mutation()`,
	}

	for _, stmt := range guard {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	// Create default admin user
	var adminCount int64
	db.Model(&models.User{}).Where("user_type = ?", models.UserTypeAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.User{
			Username:          "admin",
			Email:             "admin@arborvest.com",
			UserType:          models.UserTypeAdmin,
			VerificationLevel: models.VerificationLevelPremium,
			Status:            models.UserStatusActive,
			ProfileData: models.JSONB{
				"first_name": "System",
				"last_name":  "Administrator",
				"role":       "super_admin",
			},
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("Default admin user created successfully")
	}

	// Create demo trees for development environments
	var treeCount int64
	db.Model(&models.Tree{}).Count(&treeCount)

	if treeCount == 0 {
		farmID := uuid.MustParse("7b8a2f10-4f4e-4a73-9f51-1f4b2a8c9d01")
		demoTrees := []models.Tree{
			{
				FarmID:        farmID,
				Species:       "mahogany",
				Name:          "Mahogany Grove A",
				Description:   "Mature mahogany stand on the northern slope",
				MinInvestment: 10000,
				MaxInvestment: 100000,
				Currency:      "usd",
				Status:        models.TreeStatusAvailable,
			},
			{
				FarmID:        farmID,
				Species:       "teak",
				Name:          "Teak Row 12",
				Description:   "Young teak planting, second season",
				MinInvestment: 5000,
				MaxInvestment: 50000,
				Currency:      "usd",
				Status:        models.TreeStatusAvailable,
			},
		}

		for i := range demoTrees {
			if err := db.Create(&demoTrees[i]).Error; err != nil {
				log.Printf("Warning: Failed to seed tree %s: %v", demoTrees[i].Name, err)
			}
		}
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
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

// LockForUpdate adds a FOR UPDATE row lock on dialects that support it.
// SQLite serializes writers on its own and rejects the clause, so it is
// omitted there.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// IsUniqueViolation reports whether err is a uniqueness-constraint failure.
// Postgres reports SQLSTATE 23505; the sqlite driver used in tests reports a
// message-only error.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
