package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{
		Legacy: LegacyConfig{
			BaseURL: "https://admin.example.org",
			Email:   "ops@example.org",
		},
		Database: DatabaseConfig{
			Driver: "postgres",
			URL:    "postgres://localhost:5432/volunteers",
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	err := Validate(validConfig())
	assert.NoError(t, err)
}

func TestValidate_MissingBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.Legacy.BaseURL = ""

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidate_InvalidDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "mysql"

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidate_InvalidTimezone(t *testing.T) {
	cfg := validConfig()
	cfg.Migration.Timezone = "Middle/Earth"

	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidate_ShortDefaultPassword(t *testing.T) {
	cfg := validConfig()
	cfg.Migration.DefaultPassword = "short"

	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidate_RequestTimeoutTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.Legacy.RequestTimeout = 10 * time.Millisecond

	err := Validate(cfg)
	assert.Error(t, err)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "LEGACY_PASSWORD", cfg.Legacy.PasswordEnv)
	assert.Equal(t, "/nova/login", cfg.Legacy.LoginPath)
	assert.Equal(t, "/nova-api", cfg.Legacy.APIPath)
	assert.Equal(t, 100, cfg.Legacy.PageSize)
	assert.Equal(t, 30*time.Second, cfg.Legacy.RequestTimeout)
	assert.Equal(t, "users", cfg.Legacy.Resources.Users)
	assert.Equal(t, "events", cfg.Legacy.Resources.Events)
	assert.Equal(t, "signups", cfg.Legacy.Resources.Signups)

	require.NotNil(t, cfg.Migration.SkipExistingUsers)
	assert.True(t, *cfg.Migration.SkipExistingUsers)
	require.NotNil(t, cfg.Migration.SkipExistingShifts)
	assert.True(t, *cfg.Migration.SkipExistingShifts)
	require.NotNil(t, cfg.Migration.MarkAsMigrated)
	assert.True(t, *cfg.Migration.MarkAsMigrated)
	assert.Equal(t, 400, cfg.Migration.PhotoSize)
	assert.Equal(t, 85, cfg.Migration.PhotoQuality)
	assert.Equal(t, "UTC", cfg.Migration.Timezone)
}

func TestLoadFromPath_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.yaml")

	validYAML := `
legacy:
  baseURL: "https://admin.example.org"
  email: "ops@example.org"
  pageSize: 50
  requestTimeout: 45s
  resources:
    events: "shifts"
database:
  driver: "sqlite"
  url: "rehearsal.db"
migration:
  dryRun: true
  skipExistingUsers: false
  timezone: "Pacific/Auckland"
  importConcurrency: 2
`

	err := os.WriteFile(configPath, []byte(validYAML), 0644)
	require.NoError(t, err)

	cfg, err := LoadFromPath(configPath)
	require.NoError(t, err)

	assert.Equal(t, "https://admin.example.org", cfg.Legacy.BaseURL)
	assert.Equal(t, 50, cfg.Legacy.PageSize)
	assert.Equal(t, 45*time.Second, cfg.Legacy.RequestTimeout)
	assert.Equal(t, "shifts", cfg.Legacy.Resources.Events)
	assert.Equal(t, "users", cfg.Legacy.Resources.Users)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.True(t, cfg.Migration.DryRun)
	require.NotNil(t, cfg.Migration.SkipExistingUsers)
	assert.False(t, *cfg.Migration.SkipExistingUsers)
	assert.True(t, *cfg.Migration.SkipExistingShifts)
	assert.Equal(t, 2, cfg.Migration.ImportConcurrency)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Pacific/Auckland", loc.String())
}

func TestLoadFromPath_MissingRequiredField(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.yaml")

	invalidYAML := `
legacy:
  baseURL: "https://admin.example.org"
  # Missing email
database:
  driver: "postgres"
  url: "postgres://localhost/volunteers"
`

	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	_, err = LoadFromPath(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadFromPath_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_yaml.yaml")

	invalidYAML := `
legacy:
  baseURL: "https://admin.example.org"
    invalid indentation
`

	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	_, err = LoadFromPath(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadFromPath_FileNotFound(t *testing.T) {
	_, err := LoadFromPath("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLegacyPassword(t *testing.T) {
	cfg := validConfig()
	cfg.Legacy.PasswordEnv = "MIGRATOR_TEST_PASSWORD"

	t.Setenv("MIGRATOR_TEST_PASSWORD", "")
	_, err := cfg.LegacyPassword()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "MIGRATOR_TEST_PASSWORD")

	t.Setenv("MIGRATOR_TEST_PASSWORD", "s3cret-pass")
	password, err := cfg.LegacyPassword()
	require.NoError(t, err)
	assert.Equal(t, "s3cret-pass", password)
}
