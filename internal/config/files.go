package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings file names inside the config dir
const (
	DatabaseFile       = "database.json"
	EmailFile          = "email.json"
	BackupFile         = "backup.json"
	ServersFile        = "servers.json"
	EmailTemplatesFile = "email_templates.json"
)

// DatabaseSettings is the user-editable database connection.
type DatabaseSettings struct {
	Driver   string `json:"driver" yaml:"driver"`
	DSN      string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     string `json:"port,omitempty" yaml:"port,omitempty"`
	User     string `json:"user,omitempty" yaml:"user,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
}

func (s *DatabaseSettings) apply(db *DBConfig) {
	if s.Driver != "" {
		db.Driver = strings.ToLower(s.Driver)
	}
	if s.DSN != "" {
		db.DSN = s.DSN
		return
	}
	if s.Host == "" {
		return
	}
	switch db.Driver {
	case DriverPostgres:
		db.DSN = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", s.User, s.Password, s.Host, s.Port, s.Database)
	case DriverMySQL:
		db.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=Local", s.User, s.Password, s.Host, s.Port, s.Database)
	}
}

// EmailSettings configures outbound notification mail.
type EmailSettings struct {
	SMTPHost   string   `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort   int      `json:"smtp_port" yaml:"smtp_port"`
	Username   string   `json:"username" yaml:"username"`
	Password   string   `json:"password" yaml:"password"`
	From       string   `json:"from" yaml:"from"`
	Recipients []string `json:"recipients" yaml:"recipients"`
	Enabled    bool     `json:"enabled" yaml:"enabled"`
}

// BackupSettings configures the backup scheduler.
type BackupSettings struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Directory string `json:"directory" yaml:"directory"`
	Interval  string `json:"interval" yaml:"interval"` // e.g. "24h"
	Keep      int    `json:"keep" yaml:"keep"`
}

// ServerNames maps a server id to its display name.
type ServerNames map[string]string

// DisplayName returns the configured name of server, or server itself.
func (n ServerNames) DisplayName(server string) string {
	if name, ok := n[server]; ok && name != "" {
		return name
	}
	return server
}

// EmailTemplates holds custom subject/body templates keyed by event name.
type EmailTemplates map[string]EmailTemplate

type EmailTemplate struct {
	Subject string `json:"subject" yaml:"subject"`
	Body    string `json:"body" yaml:"body"`
}

// LoadFile decodes path into v. YAML is used for .yaml/.yml files, JSON
// otherwise. A missing file is reported with fs.ErrNotExist.
func LoadFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return nil
}

// SaveFile writes v to path atomically: the data goes to a temp file in the
// same directory which is synced and then renamed over path.
func SaveFile(path string, v any) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(v)
	default:
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	return os.Rename(tmpName, path)
}

// loadOptional is LoadFile that treats a missing file as "no settings".
func loadOptional(path string, v any) (bool, error) {
	if err := LoadFile(path, v); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// LoadDatabaseSettings returns nil when no database.json exists.
func LoadDatabaseSettings(dir string) (*DatabaseSettings, error) {
	var s DatabaseSettings
	ok, err := loadOptional(filepath.Join(dir, DatabaseFile), &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

func SaveDatabaseSettings(dir string, s DatabaseSettings) error {
	return SaveFile(filepath.Join(dir, DatabaseFile), s)
}

func LoadEmailSettings(dir string) (EmailSettings, error) {
	var s EmailSettings
	_, err := loadOptional(filepath.Join(dir, EmailFile), &s)
	return s, err
}

func SaveEmailSettings(dir string, s EmailSettings) error {
	return SaveFile(filepath.Join(dir, EmailFile), s)
}

func LoadBackupSettings(dir string) (BackupSettings, error) {
	s := BackupSettings{Interval: "24h", Keep: 7}
	_, err := loadOptional(filepath.Join(dir, BackupFile), &s)
	return s, err
}

func SaveBackupSettings(dir string, s BackupSettings) error {
	return SaveFile(filepath.Join(dir, BackupFile), s)
}

func LoadServerNames(dir string) (ServerNames, error) {
	names := ServerNames{}
	_, err := loadOptional(filepath.Join(dir, ServersFile), &names)
	return names, err
}

func SaveServerNames(dir string, names ServerNames) error {
	return SaveFile(filepath.Join(dir, ServersFile), names)
}

func LoadEmailTemplates(dir string) (EmailTemplates, error) {
	tpl := EmailTemplates{}
	_, err := loadOptional(filepath.Join(dir, EmailTemplatesFile), &tpl)
	return tpl, err
}

func SaveEmailTemplates(dir string, tpl EmailTemplates) error {
	return SaveFile(filepath.Join(dir, EmailTemplatesFile), tpl)
}
