package app

import (
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hvacmart/storefront/config"
)

// getDatabase opens postgres, or a sqlite file under workdir/data when
// Type is "sqlite". Connection errors are fatal at startup.
func getDatabase(cfg config.DBConfig, workdir string) *gorm.DB {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
	if cfg.Debug {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case "sqlite":
		dsn := cfg.Url
		if dsn == "" {
			name := cfg.Name
			if name == "" {
				name = "storefront"
			}
			dsn = path.Join(workdir, "data", name+".db") + "?_busy_timeout=5000"
		}
		dialector = sqlite.Open(dsn)
	default:
		dsn := cfg.Url
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
				cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name)
		}
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		zap.S().Fatalf("open database error: %s", err.Error())
	}
	sqlDB, err := db.DB()
	if err != nil {
		zap.S().Fatalf("database handle error: %s", err.Error())
	}
	if cfg.Type == "sqlite" {
		// sqlite allows one writer at a time
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxConn)
		sqlDB.SetMaxIdleConns(cfg.IdleConn)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	return db
}
