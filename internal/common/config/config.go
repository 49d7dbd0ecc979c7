// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Scanner ScannerConfig `mapstructure:"scanner"`
	CRM     CRMConfig     `mapstructure:"crm"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // seconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // seconds
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ScannerConfig holds settings for the ID-scanner export file.
type ScannerConfig struct {
	ExportPath string `mapstructure:"export_path"`
	Watch      struct {
		Enabled    bool `mapstructure:"enabled"`
		DebounceMs int  `mapstructure:"debounce_ms"`
	} `mapstructure:"watch"`
}

// CRMConfig holds settings for the remote member directory API.
type CRMConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	OAuthToken string `mapstructure:"oauth_token"`
	Timeout    int    `mapstructure:"timeout"` // seconds

	Modules struct {
		Members       string `mapstructure:"members"`
		Contacts      string `mapstructure:"contacts"`
		Subscriptions string `mapstructure:"subscriptions"`
		PlanOrders    string `mapstructure:"plan_orders"`
	} `mapstructure:"modules"`

	PageSize int `mapstructure:"page_size"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
