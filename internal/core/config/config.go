// Package config provides configuration management for querybuilder services.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// ServiceConfig holds configuration for the compile services and the saved-query store.
type ServiceConfig struct {
	Host           string
	Port           int // gRPC
	HTTPPort       int // 0 disables the HTTP listener
	RequestTimeout time.Duration
	SchemaPath     string
	WatchSchema    bool
	DatabaseURL    string
}

// DefaultServiceConfig returns configuration with default values.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Host:           "0.0.0.0",
		Port:           50051,
		HTTPPort:       8080,
		RequestTimeout: 30 * time.Second,
		DatabaseURL:    "sqlite://querybuilder.db",
	}
}

// GRPCAddr returns host:port for the gRPC listener.
func (c *ServiceConfig) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HTTPAddr returns host:port for the HTTP listener.
func (c *ServiceConfig) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// RequireSchema reports an error when no schema file is configured.
// Only commands that compile need one; migrate and queries list do not.
func (c *ServiceConfig) RequireSchema() error {
	if c.SchemaPath == "" {
		return fmt.Errorf("schema path is required (use --schema or QB_SCHEMA_PATH)")
	}
	return nil
}

// hasCredentials reports whether a database URL embeds a password.
func hasCredentials(dbURL string) bool {
	u, err := url.Parse(dbURL)
	if err != nil || u.User == nil {
		return false
	}
	_, ok := u.User.Password()
	return ok
}
