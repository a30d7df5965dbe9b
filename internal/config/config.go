// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

// Package config loads server configuration from YAML files, command-line
// flags, and environment variables, in that order of precedence reversed:
// flags beat the file, env vars beat both for the secrets they cover.
package config

import (
	"net/url"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/tourbase/tourbase/internal/auth"
)

// Environment names accepted by Server.Environment.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the root configuration for the tourbase server.
type Config struct {
	Server   ServerConfig   `koanf:"server" yaml:"server"`
	Database DatabaseConfig `koanf:"database" yaml:"database"`
	Auth     AuthConfig     `koanf:"auth" yaml:"auth"`
	SMTP     SMTPConfig     `koanf:"smtp" yaml:"smtp"`
	Log      LogConfig      `koanf:"log" yaml:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr        string `koanf:"addr" yaml:"addr"`
	BaseURL     string `koanf:"base_url" yaml:"base_url"`
	Environment string `koanf:"environment" yaml:"environment"`
	MetricsAddr string `koanf:"metrics_addr" yaml:"metrics_addr"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string `koanf:"url" yaml:"url"`
}

// AuthConfig holds token and password hashing settings.
type AuthConfig struct {
	JWTSecret  string        `koanf:"jwt_secret" yaml:"jwt_secret"`
	TokenTTL   time.Duration `koanf:"token_ttl" yaml:"token_ttl"`
	BcryptCost int           `koanf:"bcrypt_cost" yaml:"bcrypt_cost"`
}

// SMTPConfig holds the outbound mail relay settings. With an empty Host the
// server logs emails instead of sending them.
type SMTPConfig struct {
	Host     string `koanf:"host" yaml:"host"`
	Port     int    `koanf:"port" yaml:"port"`
	Username string `koanf:"username" yaml:"username"`
	Password string `koanf:"password" yaml:"password"`
	From     string `koanf:"from" yaml:"from"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format"`
}

// Defaults returns the development defaults.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:        "localhost:8080",
			BaseURL:     "http://localhost:8080",
			Environment: EnvDevelopment,
			MetricsAddr: "127.0.0.1:9100",
		},
		Auth: AuthConfig{
			TokenTTL:   auth.DefaultTokenTTL,
			BcryptCost: auth.DefaultBcryptCost,
		},
		Log: LogConfig{
			Format: "json",
		},
	}
}

// Load builds the configuration from an optional YAML file and an optional
// flag set. Flag names use dotted keys (e.g. --server.addr). DATABASE_URL,
// TOURBASE_JWT_SECRET, and TOURBASE_SMTP_PASSWORD env vars override their
// file and flag counterparts so secrets stay out of files and process lists.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("TOURBASE_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("TOURBASE_SMTP_PASSWORD"); v != "" {
		cfg.SMTP.Password = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server.addr is required")
	}
	if c.Server.BaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server.base_url is required")
	}
	if c.Server.Environment != EnvDevelopment && c.Server.Environment != EnvProduction {
		return oops.Code("CONFIG_INVALID").
			Errorf("server.environment must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Server.Environment)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if c.Auth.TokenTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth.token_ttl must be positive")
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() Config {
	out := *c
	if out.Auth.JWTSecret != "" {
		out.Auth.JWTSecret = "[redacted]"
	}
	if out.SMTP.Password != "" {
		out.SMTP.Password = "[redacted]"
	}
	if out.Database.URL != "" {
		out.Database.URL = redactURL(out.Database.URL)
	}
	return out
}

// redactURL masks the password component of a connection URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}
	if _, has := u.User.Password(); has {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
