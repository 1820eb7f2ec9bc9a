package database

import (
	"fmt"
	"strings"

	"pgstay/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

func Connect(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	if isPostgres(dsn) {
		log.Info("connecting to PostgreSQL")
		return gorm.Open(postgres.Open(dsn), cfg)
	}

	log.WithField("dsn", dsn).Info("using SQLite for local development")

	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		cfg,
	)
	if err != nil {
		return nil, err
	}

	// SQLite has no row locks; one connection serializes writers instead.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, err
	}
	return db, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Migrate creates or updates every table the service owns, then the partial
// unique index guarding active tenancies.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Property{},
		&domain.Booking{},
		&domain.Tenancy{},
		&domain.Agreement{},
		&domain.PaymentOrder{},
		&domain.WebhookDelivery{},
		&domain.OwnerPayoutAccount{},
		&domain.Notification{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	stmt := `CREATE UNIQUE INDEX IF NOT EXISTS idx_tenancies_one_active
ON tenancies (tenant_id, property_id) WHERE status = 'ACTIVE'`
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create active tenancy index: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
