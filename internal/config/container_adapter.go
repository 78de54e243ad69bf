package config

import (
	"github.com/garyjia/procurement/internal/container"
)

// ToContainerConfig converts the file-based Config into the container's
// configuration structure
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Auth: container.AuthConfig{
			JWTSecret: c.Auth.JWTSecret,
			Issuer:    c.Auth.Issuer,
			TokenTTL:  c.Auth.TokenTTL,
		},
		Lark: container.LarkConfig{
			AppID:     c.Lark.AppID,
			AppSecret: c.Lark.AppSecret,
			BaseURL:   c.Lark.BaseURL,
			RateLimit: c.Lark.RateLimit,
			RateBurst: c.Lark.RateBurst,
		},
		Storage: container.StorageConfig{
			BaseDir:       c.Storage.BaseDir,
			MaxProofBytes: c.Storage.MaxProofBytes,
			MaxProofPages: c.Storage.MaxProofPages,
			CompanyName:   c.Export.CompanyName,
		},
		Notification: container.NotificationConfig{
			LinkBaseURL:      c.Notification.LinkBaseURL,
			PoolSize:         c.Notification.PoolSize,
			ReminderInterval: c.Notification.ReminderInterval,
			ReminderAfter:    c.Notification.ReminderAfter,
		},
		Server: container.ServerConfig{
			Host:           c.Server.Host,
			Port:           c.Server.Port,
			ReadTimeout:    c.Server.ReadTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			AllowedOrigins: c.Server.AllowedOrigins,
		},
		SeedPath: c.Seed.Path,
	}
}
