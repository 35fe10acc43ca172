package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/onegreenvn/stockplus-backend/internal/config"
	"github.com/onegreenvn/stockplus-backend/internal/models"
)

// InitDB opens the configured database and performs migrations
func InitDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	// Configure GORM logger
	gormLogger := logger.New(
		logrus.StandardLogger(),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Error,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Set connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logrus.WithField("driver", cfg.Driver).Info("Database connection established and migrations completed")
	return db, nil
}

func openDialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "postgres":
		if cfg.Host == "" || cfg.Port == "" || cfg.User == "" || cfg.Password == "" || cfg.Name == "" {
			return nil, fmt.Errorf("missing required database environment variables. Please check your .env file")
		}
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := cfg.DSN
		if dsn == "" {
			if cfg.Host == "" || cfg.User == "" || cfg.Name == "" {
				return nil, fmt.Errorf("missing DB_DSN or DB_HOST/DB_USER/DB_NAME for mysql")
			}
			port := cfg.Port
			if port == "" {
				port = "3306"
			}
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
				cfg.User, cfg.Password, cfg.Host, port, cfg.Name)
		}
		return mysql.Open(dsn), nil
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "stockplus.db?_foreign_keys=1"
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

// Migrate creates or updates the schema and seeds the rows the application relies on
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Location{},
		&models.User{},
		&models.RecoveryContact{},
		&models.OTP{},
		&models.RefreshToken{},
		&models.InventoryCategory{},
		&models.ProductGroup{},
		&models.ProductSubGroup{},
		&models.StockBatch{},
		&models.BarcodedUnit{},
		&models.Sale{},
		&models.SaleItem{},
		&models.BillCounter{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// At most one superuser. MySQL has no partial indexes, there the service check in the
	// bootstrap transaction is the only guard.
	switch db.Dialector.Name() {
	case "postgres", "sqlite":
		err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_single_superuser ON users(role) WHERE role = 'superuser'`).Error
		if err != nil {
			return fmt.Errorf("failed to create superuser index: %w", err)
		}
	}

	// Seed the bill number sequence from existing sales so numbering continues after upgrades
	var counter models.BillCounter
	err = db.Where("name = ?", models.SaleBillCounter).First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var maxID int64
		if err := db.Model(&models.Sale{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
			return fmt.Errorf("failed to read last sale id: %w", err)
		}
		counter = models.BillCounter{Name: models.SaleBillCounter, Value: maxID}
		if err := db.Create(&counter).Error; err != nil {
			return fmt.Errorf("failed to seed bill counter: %w", err)
		}
		logrus.Infof("Seeded bill counter at %d", maxID)
	} else if err != nil {
		return fmt.Errorf("failed to read bill counter: %w", err)
	}

	return nil
}
