// Package config loads process configuration from the environment (with
// .env support) and the user-scoped settings files kept in the config dir.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// MinOCRTimeout is the shortest request timeout accepted for the OCR service.
const MinOCRTimeout = 20 * time.Second

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	Mode         string // gin mode: debug | release | test
	AllowOrigins []string
}

// DBConfig holds connection settings for the backing store.
type DBConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OCRConfig points at the external recognition service.
type OCRConfig struct {
	URL     string
	Timeout time.Duration
}

// Config is the root configuration object.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	OCR       OCRConfig
	APISecret string // empty disables bearer auth on the API
	ConfigDir string
	LogLevel  string
}

// Validate checks the loaded values and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.DB.Driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be one of sqlite, postgres, mysql, got %q", c.DB.Driver))
	}
	if c.DB.DSN == "" {
		errs = append(errs, errors.New("database DSN is empty"))
	}
	if c.OCR.Timeout < MinOCRTimeout {
		errs = append(errs, fmt.Errorf("OCR_TIMEOUT must be at least %s, got %s", MinOCRTimeout, c.OCR.Timeout))
	}
	if c.Server.Mode == "release" && c.APISecret == "" {
		errs = append(errs, errors.New("API_SECRET must be set in release mode"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Load reads configs/.env and .env when present, then builds the Config
// from the environment. Settings in <config dir>/database.json take
// precedence over DB_* variables.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Mode:         getEnv("GIN_MODE", "debug"),
			AllowOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		},
		APISecret: os.Getenv("API_SECRET"),
		ConfigDir: getEnv("LEDGER_CONFIG_DIR", defaultConfigDir()),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		Driver:          strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
	cfg.DB.DSN = os.Getenv("DB_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.DSN = buildDSN(cfg.DB.Driver, cfg.ConfigDir)
	}

	cfg.OCR = OCRConfig{
		URL:     getEnv("OCR_URL", "http://127.0.0.1:1224/api/ocr"),
		Timeout: getDuration("OCR_TIMEOUT", MinOCRTimeout),
	}

	settings, err := LoadDatabaseSettings(cfg.ConfigDir)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		settings.apply(&cfg.DB)
	}

	return cfg, nil
}

// MustLoad loads and validates configuration, panicking on any error so a
// misconfiguration is caught at boot.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("config: failed to load: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

func buildDSN(driver, configDir string) string {
	switch driver {
	case DriverPostgres:
		return "postgres://" + getEnv("DB_USER", "postgres") + ":" + getEnv("DB_PASSWORD", "postgres") +
			"@" + getEnv("DB_HOST", "localhost") + ":" + getEnv("DB_PORT", "5432") +
			"/" + getEnv("DB_NAME", "itemledger") + "?sslmode=" + getEnv("DB_SSLMODE", "disable")
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=Local",
			getEnv("DB_USER", "root"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "3306"),
			getEnv("DB_NAME", "itemledger"),
		)
	default:
		return filepath.Join(configDir, "ledger.db")
	}
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".itemledger"
	}
	return filepath.Join(dir, "itemledger")
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
