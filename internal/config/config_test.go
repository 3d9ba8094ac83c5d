package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveFileIsAtomicAndRoundTrips(t *testing.T) {
	dir := t.TempDir()

	names := ServerNames{"s1": "Northern Realm", "s2": ""}
	require.NoError(t, SaveServerNames(dir, names))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file must not be left behind")
	assert.Equal(t, ServersFile, entries[0].Name())

	loaded, err := LoadServerNames(dir)
	require.NoError(t, err)
	assert.Equal(t, "Northern Realm", loaded.DisplayName("s1"))
	assert.Equal(t, "s2", loaded.DisplayName("s2"))
	assert.Equal(t, "s9", loaded.DisplayName("s9"))
}

func TestLoadFileReadsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backup.yaml")
	require.NoError(t, os.WriteFile(path, []byte("enabled: true\ndirectory: /tmp/bk\nkeep: 3\n"), 0o600))

	var s BackupSettings
	require.NoError(t, LoadFile(path, &s))
	assert.True(t, s.Enabled)
	assert.Equal(t, "/tmp/bk", s.Directory)
	assert.Equal(t, 3, s.Keep)
}

func TestMissingSettingsUseDefaults(t *testing.T) {
	dir := t.TempDir()

	db, err := LoadDatabaseSettings(dir)
	require.NoError(t, err)
	assert.Nil(t, db)

	bk, err := LoadBackupSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, "24h", bk.Interval)
	assert.Equal(t, 7, bk.Keep)
}

func TestLoadPrefersDatabaseSettingsFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LEDGER_CONFIG_DIR", dir)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "")

	require.NoError(t, SaveDatabaseSettings(dir, DatabaseSettings{
		Driver: "postgres", Host: "db", Port: "5432", User: "u", Password: "p", Database: "ledger",
	}))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, "postgres://u:p@db:5432/ledger?sslmode=disable", cfg.DB.DSN)
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Mode: "release"},
		DB:     DBConfig{Driver: "oracle"},
		OCR:    OCRConfig{Timeout: 5 * time.Second},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
	assert.Contains(t, err.Error(), "DSN")
	assert.Contains(t, err.Error(), "OCR_TIMEOUT")
	assert.Contains(t, err.Error(), "API_SECRET")
}
