package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"host":      "server.host",
	"port":      "server.port",
	"http-port": "server.http_port",
	"schema":    "schema.path",
	"watch":     "schema.watch",
	"db-url":    "database.url",
}

// LoadConfig loads configuration using viper.
// CLI flags > environment > config file > defaults precedence. flags may be nil; only the
// flags present in the set are bound.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*ServiceConfig, error) {
	v := viper.New()

	d := DefaultServiceConfig()
	v.SetDefault("server.host", d.Host)
	v.SetDefault("server.port", d.Port)
	v.SetDefault("server.http_port", d.HTTPPort)
	v.SetDefault("server.request_timeout", d.RequestTimeout.String())
	v.SetDefault("schema.path", d.SchemaPath)
	v.SetDefault("schema.watch", d.WatchSchema)
	v.SetDefault("database.url", d.DatabaseURL)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Checked before the environment is bound so only file values are seen.
	if err := validateNoCredentialsInConfig(v); err != nil {
		return nil, err
	}

	v.SetEnvPrefix("QB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &ServiceConfig{
		Host:           v.GetString("server.host"),
		Port:           v.GetInt("server.port"),
		HTTPPort:       v.GetInt("server.http_port"),
		RequestTimeout: v.GetDuration("server.request_timeout"),
		SchemaPath:     v.GetString("schema.path"),
		WatchSchema:    v.GetBool("schema.watch"),
		DatabaseURL:    v.GetString("database.url"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port ranges, a positive timeout and a database URL.
func validateConfig(cfg *ServiceConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.HTTPPort < 0 || cfg.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 0 and 65535, got %d", cfg.HTTPPort)
	}
	if cfg.HTTPPort != 0 && cfg.HTTPPort == cfg.Port {
		return fmt.Errorf("http_port must differ from port, both are %d", cfg.Port)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database url must not be empty")
	}
	return nil
}

// validateNoCredentialsInConfig keeps database passwords out of config files.
func validateNoCredentialsInConfig(v *viper.Viper) error {
	if v.InConfig("database.url") && hasCredentials(v.GetString("database.url")) {
		return fmt.Errorf("database credentials not allowed in config files (use QB_DATABASE_URL environment variable)")
	}
	return nil
}
