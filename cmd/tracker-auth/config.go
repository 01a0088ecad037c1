package main

import (
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-tracker-auth"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "TRACKER"

// Config is the service configuration
type Config struct {
	Auth     auth.Options       `mapstructure:"auth"`
	Database DatabaseConfig     `mapstructure:"database"`
	HTTP     HTTPConfig         `mapstructure:"http"`
	Log      auth.LoggerOptions `mapstructure:"log"`
}

type DatabaseConfig struct {
	// Driver is sqlite or postgres
	Driver      string `mapstructure:"driver"`
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	MetricsPath     string        `mapstructure:"metrics_path"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

var configSearchPaths = []string{
	"./cmd/tracker-auth/config.yml",
	"./config/config.yml",
	"./config.yml",
}

var envSearchPaths = []string{
	"./cmd/tracker-auth/.env",
	"./.env",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.issuer", "tracker-auth")
	v.SetDefault("auth.audience", []string{})
	v.SetDefault("auth.access_token_ttl", auth.DefaultAccessTokenTTL)
	v.SetDefault("auth.refresh_token_ttl", auth.DefaultRefreshTokenTTL)
	v.SetDefault("auth.password_hash_cost", auth.DefaultPasswordHashCost)
	v.SetDefault("auth.previous_signing_keys", []string{})
	v.SetDefault("auth.derived_user_ids", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:tracker.db?cache=shared")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.metrics_path", "/metrics")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// loadConfig reads config.yml, then the .env file, then TRACKER_* variables.
// Explicit paths win over the search paths.
func loadConfig(cfgPath, envPath string) (Config, error) {
	var cfg Config

	if envPath == "" {
		envPath = firstExisting(envSearchPaths)
	}
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return cfg, err
		}
	}

	v := viper.New()
	setDefaults(v)

	if cfgPath == "" {
		cfgPath = firstExisting(configSearchPaths)
	}
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return cfg, err
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	cfg.Auth.ApplyDefaults()
	if err := cfg.Auth.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
