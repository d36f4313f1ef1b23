// Package config handles daemon configuration: development defaults, an
// optional YAML file overlay, and an environment variable overlay, applied in
// that order.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds runtime settings for the WealthOS store daemon.
type Config struct {
	// DataDir is the directory holding one JSON container per collection.
	DataDir string `yaml:"dataDir"`
	// HTTPAddr is the bind address of the HTTP API.
	HTTPAddr string `yaml:"httpAddr"`
	// AdminToken gates the administrative surface (seed reset). Empty disables it.
	AdminToken string `yaml:"adminToken"`
	// JWTSecret signs portal access tokens (HS256). Override outside dev.
	JWTSecret string `yaml:"jwtSecret"`
	// SessionTTLHours bounds every portal session's absolute lifetime.
	SessionTTLHours int `yaml:"sessionTtlHours"`
	// AuditRetentionDays is surfaced to operators as the intended retention
	// window. The core never deletes audit events; enforcement is external.
	AuditRetentionDays int `yaml:"auditRetentionDays"`
	// EnableTLS serves the API over a self-signed certificate.
	EnableTLS bool `yaml:"enableTls"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`
}

// LoadDefaults populates development defaults. Insecure for production.
func (c *Config) LoadDefaults() {
	c.DataDir = "./data"
	c.HTTPAddr = ":7080"
	c.AdminToken = ""
	c.JWTSecret = "dev-secret"
	c.SessionTTLHours = 24
	c.AuditRetentionDays = 365
	c.EnableTLS = false
	c.LogLevel = "info"
}

// Load builds a Config from defaults, an optional YAML file named by
// WEALTHOS_CONFIG, and finally environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path := os.Getenv("WEALTHOS_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(content, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("WEALTHOS_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("WEALTHOS_HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("WEALTHOS_ADMIN_TOKEN"); v != "" {
		c.AdminToken = v
	}
	if v := os.Getenv("WEALTHOS_JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("WEALTHOS_SESSION_TTL_HOURS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WEALTHOS_SESSION_TTL_HOURS: %w", err)
		}
		c.SessionTTLHours = n
	}
	if v := os.Getenv("WEALTHOS_AUDIT_RETENTION_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WEALTHOS_AUDIT_RETENTION_DAYS: %w", err)
		}
		c.AuditRetentionDays = n
	}
	if v := os.Getenv("WEALTHOS_ENABLE_TLS"); v != "" {
		c.EnableTLS = v == "true" || v == "1"
	}
	if v := os.Getenv("WEALTHOS_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}
