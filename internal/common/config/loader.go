// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like CRM_OAUTH_TOKEN
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored when absent
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the first location where one exists. Paths
// cover running from the repo root, cmd/ directories, and test packages.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "checkin-server"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Scanner.Watch.DebounceMs == 0 {
		cfg.Scanner.Watch.DebounceMs = 500
	}
	if cfg.CRM.Timeout == 0 {
		cfg.CRM.Timeout = 30
	}
	if cfg.CRM.PageSize == 0 {
		cfg.CRM.PageSize = 200
	}
	if cfg.CRM.Modules.Members == "" {
		cfg.CRM.Modules.Members = "Members"
	}
	if cfg.CRM.Modules.Contacts == "" {
		cfg.CRM.Modules.Contacts = "Contacts"
	}
	if cfg.CRM.Modules.Subscriptions == "" {
		cfg.CRM.Modules.Subscriptions = "Subscriptions"
	}
	if cfg.CRM.Modules.PlanOrders == "" {
		cfg.CRM.Modules.PlanOrders = "Plan_Orders"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	// ENV fallbacks for secrets that should not live in config files
	if cfg.CRM.OAuthToken == "" {
		cfg.CRM.OAuthToken = os.Getenv("CRM_OAUTH_TOKEN")
	}
	if envPath := os.Getenv("SCANNER_EXPORT_PATH"); envPath != "" {
		cfg.Scanner.ExportPath = envPath
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Scanner.ExportPath == "" {
		return fmt.Errorf("scanner.export_path is required")
	}
	if cfg.CRM.BaseURL == "" {
		return fmt.Errorf("crm.base_url is required")
	}
	return nil
}
