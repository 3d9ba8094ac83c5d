package database

import (
	"fmt"
	"time"

	"itemledger/internal/config"
	"itemledger/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection opens a connection pool for the configured driver and brings
// the schema up to date.
func NewConnection(cfg config.DBConfig, log *logrus.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == config.DriverSQLite {
		// one writer at a time; the ledger assumes a single pen holder
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns >= 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := Migrate(db, log); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}

func dialectorFor(cfg config.DBConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	case config.DriverMySQL:
		return mysql.Open(cfg.DSN), nil
	case config.DriverSQLite, "":
		return sqlite.Open(sqliteDSN(cfg.DSN)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func sqliteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return "file:" + path + "?_busy_timeout=5000&_foreign_keys=1"
}

// Migrate creates missing tables and repairs legacy layouts.
func Migrate(db *gorm.DB, log *logrus.Logger) error {
	start := time.Now()
	m := db.Migrator()

	if m.HasTable(&model.OperationLog{}) {
		if err := ensureLegacyLogColumns(db, log); err != nil {
			return err
		}
	}
	if m.HasTable(&model.InventoryRow{}) {
		removed, err := DedupInventory(db)
		if err != nil {
			return fmt.Errorf("dedup legacy inventory: %w", err)
		}
		if removed > 0 && log != nil {
			log.WithField("removed", removed).Warn("removed duplicate inventory rows")
		}
	}

	err := db.AutoMigrate(
		&model.Item{},
		&model.StockIn{},
		&model.StockOut{},
		&model.InventoryRow{},
		&model.TradeMonitor{},
		&model.OperationLog{},
		&model.SilverMonitor{},
	)
	if err != nil {
		return err
	}

	if log != nil {
		log.WithField("elapsed", time.Since(start).String()).Info("schema ready")
	}
	return nil
}

// ensureLegacyLogColumns adds operation_category and can_revert to an
// operation_logs table created before they existed.
func ensureLegacyLogColumns(db *gorm.DB, log *logrus.Logger) error {
	m := db.Migrator()
	for _, col := range []string{"OperationCategory", "CanRevert"} {
		if m.HasColumn(&model.OperationLog{}, col) {
			continue
		}
		if err := m.AddColumn(&model.OperationLog{}, col); err != nil {
			return fmt.Errorf("add operation_logs.%s: %w", col, err)
		}
		if log != nil {
			log.WithField("column", col).Info("added legacy operation_logs column")
		}
	}
	return nil
}

// DedupInventory deletes projection rows sharing an item name, keeping the
// most recently written id for each item.
func DedupInventory(db *gorm.DB) (int64, error) {
	res := db.Exec(`
		DELETE FROM inventory
		WHERE id NOT IN (
			SELECT keep_id FROM (
				SELECT MAX(id) AS keep_id FROM inventory GROUP BY item_name
			) AS keep_rows
		)`)
	return res.RowsAffected, res.Error
}
