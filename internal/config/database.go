package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DBConfig selects and addresses the database.
type DBConfig struct {
	Driver   string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	// URL overrides the individual postgres fields when set.
	URL string
	// Path is the sqlite file, or ":memory:". Query parameters are passed
	// to the driver unchanged.
	Path string
}

func LoadDBConfig() DBConfig {
	return DBConfig{
		Driver:   strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		Name:     getEnv("DB_NAME", "cash_posting"),
		User:     getEnv("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		URL:      os.Getenv("DATABASE_URL"),
		Path:     getEnv("DB_PATH", "cash_posting.db"),
	}
}

// DSN returns the connection string for the configured driver.
func (c DBConfig) DSN() string {
	if c.Driver == DriverSQLite {
		if strings.Contains(c.Path, "?") {
			return c.Path
		}
		// Writers queue on the database lock instead of failing with SQLITE_BUSY.
		return c.Path + "?_pragma=busy_timeout(5000)&_txlock=immediate"
	}
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s",
		url.QueryEscape(c.User), url.QueryEscape(c.Password), c.Host, c.Port, c.Name)
}

// InitDB opens the database. Callers run AutoMigrate themselves.
func InitDB(cfg DBConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres, "postgresql":
		dialector = postgres.Open(cfg.DSN())
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}
	return db, nil
}
