package db

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"escrow-ledger/internal/domain/disbursement"
	"escrow-ledger/internal/domain/ledger"
	"escrow-ledger/internal/domain/loan"
	"escrow-ledger/internal/domain/payout"
	"escrow-ledger/internal/infrastructure/logging"
)

func OpenGorm(dsn string, log *logging.Logger) (*gorm.DB, error) {
	db, err := OpenGormWithDialector(mysql.Open(dsn))
	if err != nil {
		return nil, err
	}
	logging.OrNop(log).Info("gorm: connected", zap.String("dialect", db.Dialector.Name()))
	return db, nil
}

// OpenGormWithDialector opens, tunes the pool and pings.
func OpenGormWithDialector(dial gorm.Dialector) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// balance rows are always written explicitly inside the unit of work
		SkipDefaultTransaction: true,
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// Models lists every table the ledger owns.
func Models() []any {
	return []any{
		&ledger.EscrowAccount{},
		&ledger.Transaction{},
		&ledger.PaymentMethod{},
		&payout.Request{},
		&disbursement.Disbursement{},
		&loan.Loan{},
	}
}

func Migrate(db *gorm.DB) error { return db.AutoMigrate(Models()...) }
