// Package container provides dependency injection and lifecycle management
// for the procurement service.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container
type Config struct {
	Database     DatabaseConfig
	Auth         AuthConfig
	Lark         LarkConfig
	Storage      StorageConfig
	Notification NotificationConfig
	Server       ServerConfig

	// SeedPath is an optional YAML file of users and templates applied at start
	SeedPath string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
}

// AuthConfig holds bearer token settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// LarkConfig holds Lark API settings
type LarkConfig struct {
	// AppID is the Lark application ID; empty disables Lark delivery
	AppID     string
	AppSecret string
	BaseURL   string

	// RateLimit is messages per second sent to Lark
	RateLimit float64
	RateBurst int
}

// StorageConfig holds proof storage and export settings
type StorageConfig struct {
	// BaseDir is the root directory for BAST proofs
	BaseDir string

	MaxProofBytes int64
	MaxProofPages int

	// CompanyName is printed on exported documents
	CompanyName string
}

// NotificationConfig holds event fan-out settings
type NotificationConfig struct {
	// LinkBaseURL prefixes document links in notifications
	LinkBaseURL string

	// PoolSize bounds concurrently running async handlers
	PoolSize int

	// ReminderInterval is how often stale approvals are checked; zero disables reminders
	ReminderInterval time.Duration

	// ReminderAfter is how long a document may wait in approval before a reminder
	ReminderAfter time.Duration
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/procurement.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Auth: AuthConfig{
			Issuer:   "procurement",
			TokenTTL: 24 * time.Hour,
		},
		Lark: LarkConfig{
			RateLimit: 5,
			RateBurst: 1,
		},
		Storage: StorageConfig{
			BaseDir:       "data/proofs",
			MaxProofBytes: 20 << 20,
			MaxProofPages: 50,
		},
		Notification: NotificationConfig{
			PoolSize:         16,
			ReminderInterval: time.Hour,
			ReminderAfter:    24 * time.Hour,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}
	if c.Lark.AppID != "" && c.Lark.AppSecret == "" {
		return fmt.Errorf("lark.app_secret is required when lark.app_id is set")
	}
	return nil
}
