package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// LegacyConfig describes how to reach the legacy admin panel
type LegacyConfig struct {
	BaseURL           string        `yaml:"baseURL" validate:"required,url"`
	Email             string        `yaml:"email" validate:"required,email"`
	PasswordEnv       string        `yaml:"passwordEnv,omitempty"`
	LoginPath         string        `yaml:"loginPath,omitempty" validate:"omitempty,startswith=/"`
	APIPath           string        `yaml:"apiPath,omitempty" validate:"omitempty,startswith=/"`
	UserAgent         string        `yaml:"userAgent,omitempty"`
	PageSize          int           `yaml:"pageSize,omitempty" validate:"min=1,max=500"`
	MaxPages          int           `yaml:"maxPages,omitempty" validate:"min=1"`
	RequestTimeout    time.Duration `yaml:"requestTimeout,omitempty" validate:"min=1s"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond,omitempty" validate:"gt=0"`
	RetryCount        int           `yaml:"retryCount,omitempty" validate:"min=0,max=10"`
	Resources         Resources     `yaml:"resources,omitempty"`
}

// Resources names the legacy API resources for each record type
type Resources struct {
	Users   string `yaml:"users,omitempty"`
	Events  string `yaml:"events,omitempty"`
	Signups string `yaml:"signups,omitempty"`
}

// DatabaseConfig selects the target store
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"required,oneof=postgres sqlite"`
	URL    string `yaml:"url" validate:"required"`
}

// MigrationConfig holds the default migration options; CLI flags may override them
type MigrationConfig struct {
	DryRun             bool   `yaml:"dryRun,omitempty"`
	SkipExistingUsers  *bool  `yaml:"skipExistingUsers,omitempty"`
	SkipExistingShifts *bool  `yaml:"skipExistingShifts,omitempty"`
	MarkAsMigrated     *bool  `yaml:"markAsMigrated,omitempty"`
	DefaultPassword    string `yaml:"defaultPassword,omitempty" validate:"omitempty,min=8"`
	PasswordHashCost   int    `yaml:"passwordHashCost,omitempty" validate:"min=4,max=31"`
	Timezone           string `yaml:"timezone,omitempty" validate:"timezone"`
	ImportConcurrency  int    `yaml:"importConcurrency,omitempty" validate:"min=1,max=32"`
	PhotoConcurrency   int    `yaml:"photoConcurrency,omitempty" validate:"min=1,max=32"`
	SkipPhotos         bool   `yaml:"skipPhotos,omitempty"`
	PhotoSize          int    `yaml:"photoSize,omitempty" validate:"min=16,max=2048"`
	PhotoQuality       int    `yaml:"photoQuality,omitempty" validate:"min=1,max=100"`
	DatasetPath        string `yaml:"datasetPath,omitempty"`
}

// Config represents the application configuration
type Config struct {
	Legacy    LegacyConfig    `yaml:"legacy"`
	Database  DatabaseConfig  `yaml:"database"`
	Migration MigrationConfig `yaml:"migration,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from migrate_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	configPath, err := findConfigFile("migrate_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadWithEnv loads and validates migrate_config.<env>.yaml
func LoadWithEnv(env string) (*Config, error) {
	if env == "" {
		return Load()
	}

	configPath, err := findConfigFile(fmt.Sprintf("migrate_config.%s.yaml", env))
	if err != nil {
		return nil, fmt.Errorf("failed to find config file for env %q: %w", env, err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills in every optional setting left unset
func ApplyDefaults(cfg *Config) {
	l := &cfg.Legacy
	if l.PasswordEnv == "" {
		l.PasswordEnv = "LEGACY_PASSWORD"
	}
	if l.LoginPath == "" {
		l.LoginPath = "/nova/login"
	}
	if l.APIPath == "" {
		l.APIPath = "/nova-api"
	}
	if l.UserAgent == "" {
		l.UserAgent = "legacy-migrator/1.0"
	}
	if l.PageSize == 0 {
		l.PageSize = 100
	}
	if l.MaxPages == 0 {
		l.MaxPages = 1000
	}
	if l.RequestTimeout == 0 {
		l.RequestTimeout = 30 * time.Second
	}
	if l.RequestsPerSecond == 0 {
		l.RequestsPerSecond = 5
	}
	if l.Resources.Users == "" {
		l.Resources.Users = "users"
	}
	if l.Resources.Events == "" {
		l.Resources.Events = "events"
	}
	if l.Resources.Signups == "" {
		l.Resources.Signups = "signups"
	}

	m := &cfg.Migration
	if m.SkipExistingUsers == nil {
		m.SkipExistingUsers = boolPtr(true)
	}
	if m.SkipExistingShifts == nil {
		m.SkipExistingShifts = boolPtr(true)
	}
	if m.MarkAsMigrated == nil {
		m.MarkAsMigrated = boolPtr(true)
	}
	if m.PasswordHashCost == 0 {
		m.PasswordHashCost = 10
	}
	if m.Timezone == "" {
		m.Timezone = "UTC"
	}
	if m.ImportConcurrency == 0 {
		m.ImportConcurrency = 4
	}
	if m.PhotoConcurrency == 0 {
		m.PhotoConcurrency = 4
	}
	if m.PhotoSize == 0 {
		m.PhotoSize = 400
	}
	if m.PhotoQuality == 0 {
		m.PhotoQuality = 85
	}
}

// Validate validates the configuration struct
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// LegacyPassword reads the operator password from the configured environment variable
func (c *Config) LegacyPassword() (string, error) {
	password := os.Getenv(c.Legacy.PasswordEnv)
	if password == "" {
		return "", fmt.Errorf("legacy password not set: export %s", c.Legacy.PasswordEnv)
	}
	return password, nil
}

// Location returns the timezone legacy dates are interpreted in
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Migration.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Migration.Timezone, err)
	}
	return loc, nil
}

func boolPtr(b bool) *bool {
	return &b
}

// findConfigFile searches for the named config file in current directory and home directory
func findConfigFile(configFileName string) (string, error) {
	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
