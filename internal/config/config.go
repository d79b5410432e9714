package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server" reload:"true"`
	Database DatabaseConfig `mapstructure:"database"`
	App      AppConfig      `mapstructure:"app" reload:"true"`
}

type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Production bool   `mapstructure:"production" reload:"true"`
	OpsAPIKey  string `mapstructure:"ops-api-key" reload:"true"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	DatabaseName string `mapstructure:"database-name"`
	SSLMode      string `mapstructure:"ssl-mode"`
	MaxTries     int    `mapstructure:"max-tries"`
}

type AppConfig struct {
	NotifierURL     string        `mapstructure:"notifier-url"`
	SweepInterval   time.Duration `mapstructure:"sweep-interval" reload:"true"`
	NotifyTimeout   time.Duration `mapstructure:"notify-timeout" reload:"true"`
	MaxTempBan      time.Duration `mapstructure:"max-temp-ban" reload:"true"`
	TopBalanceLimit int           `mapstructure:"top-balance-limit" reload:"true"`

	AppCache CacheConfig `mapstructure:"cache"`
}

type CacheConfig struct {
	InApp                 bool          `mapstructure:"in-app"`
	ServiceUrl            string        `mapstructure:"service-url"`
	ServiceType           string        `mapstructure:"service-type"`
	InternalCacheSize     int           `mapstructure:"internal-cache-size"`
	InternalCacheDuration time.Duration `mapstructure:"internal-cache-duration"`
}

func (cfg *Config) Validate() error {
	cache := cfg.App.AppCache
	if !cache.InApp {
		if cache.ServiceType != "redis" {
			return fmt.Errorf("only supported cache service is redis")
		} else if cache.ServiceUrl == "" {
			return fmt.Errorf("service-url cannot be empty")
		}
	}
	if cfg.Server.OpsAPIKey == "" {
		return fmt.Errorf("server.ops-api-key cannot be empty")
	}
	if cfg.App.SweepInterval <= 0 {
		cfg.App.SweepInterval = 5 * time.Minute
	}
	if cfg.App.NotifyTimeout <= 0 {
		cfg.App.NotifyTimeout = 10 * time.Second
	}
	if cfg.App.MaxTempBan < 0 {
		return fmt.Errorf("max-temp-ban cannot be negative")
	}
	if cfg.App.TopBalanceLimit <= 0 {
		cfg.App.TopBalanceLimit = 10
	}
	return nil
}
