package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wboard/connector"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML layout of the connector configuration file. Zero
// values keep the library defaults.
type fileConfig struct {
	Listen    string          `yaml:"listen"`
	Log       logConfig       `yaml:"log"`
	Redis     redisConfig     `yaml:"redis"`
	Store     storeConfig     `yaml:"store"`
	Auth      authConfig      `yaml:"auth"`
	Autologin autologinConfig `yaml:"autologin"`
	ClientIP  clientIPConfig  `yaml:"client_ip"`
	Secret    secretConfig    `yaml:"secret"`
	Audit     auditConfig     `yaml:"audit"`
	Metrics   metricsConfig   `yaml:"metrics"`
	Session   sessionConfig   `yaml:"session"`
	Tenancy   tenancyConfig   `yaml:"tenancy"`
}

type logConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type redisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// Embedded runs an in-process miniredis. Development only.
	Embedded bool `yaml:"embedded"`
}

type storeConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

type authConfig struct {
	TimestampTolerance   time.Duration `yaml:"timestamp_tolerance"`
	RateLimitMaxRequests int           `yaml:"rate_limit_max_requests"`
	RateLimitWindow      time.Duration `yaml:"rate_limit_window"`
	LastRequestTTL       time.Duration `yaml:"last_request_ttl"`
}

type autologinConfig struct {
	SiteURL  string        `yaml:"site_url"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type clientIPConfig struct {
	TrustedHeaders []string `yaml:"trusted_headers"`
}

type secretConfig struct {
	Initial string `yaml:"initial"`
}

type auditConfig struct {
	Enabled      bool          `yaml:"enabled"`
	BufferSize   int           `yaml:"buffer_size"`
	DrainTimeout time.Duration `yaml:"drain_timeout"`
	// SiteFiles appends each site's events as JSON lines to its own file
	// instead of the log.
	SiteFiles map[string]string `yaml:"site_files"`
}

type metricsConfig struct {
	Enabled           bool       `yaml:"enabled"`
	LatencyHistograms bool       `yaml:"latency_histograms"`
	OTel              otelConfig `yaml:"otel"`
}

// otelConfig pushes engine metrics to an OTLP/HTTP collector.
type otelConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Endpoint    string            `yaml:"endpoint"`
	Insecure    bool              `yaml:"insecure"`
	Headers     map[string]string `yaml:"headers"`
	Interval    time.Duration     `yaml:"interval"`
	ServiceName string            `yaml:"service_name"`
}

type sessionConfig struct {
	Key    string        `yaml:"key"`
	TTL    time.Duration `yaml:"ttl"`
	Secure bool          `yaml:"secure"`
}

type tenancyConfig struct {
	Multisite       bool         `yaml:"multisite"`
	AdminURL        string       `yaml:"admin_url"`
	NetworkAdminURL string       `yaml:"network_admin_url"`
	Users           []userConfig `yaml:"users"`
	SuperAdmins     []int64      `yaml:"super_admins"`
}

type userConfig struct {
	ID    int64    `yaml:"id"`
	Login string   `yaml:"login"`
	Roles []string `yaml:"roles"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Listen:  ":8080",
		Log:     logConfig{Level: "info", Format: "text"},
		Metrics: metricsConfig{
			Enabled:           true,
			LatencyHistograms: true,
			OTel:              otelConfig{Interval: 10 * time.Second, ServiceName: "wboard-connector"},
		},
		Session: sessionConfig{TTL: 12 * time.Hour, Secure: true},
	}
}

// loadConfig reads path over the defaults. An empty path yields the
// defaults. Unknown keys are rejected.
func loadConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// engineConfig overlays the file settings on connector.DefaultConfig.
func (c fileConfig) engineConfig() connector.Config {
	cfg := connector.DefaultConfig()

	if c.Auth.TimestampTolerance != 0 {
		cfg.Auth.TimestampTolerance = c.Auth.TimestampTolerance
	}
	if c.Auth.RateLimitMaxRequests != 0 {
		cfg.Auth.RateLimitMaxRequests = c.Auth.RateLimitMaxRequests
	}
	if c.Auth.RateLimitWindow != 0 {
		cfg.Auth.RateLimitWindow = c.Auth.RateLimitWindow
	}
	if c.Auth.LastRequestTTL != 0 {
		cfg.Auth.LastRequestTTL = c.Auth.LastRequestTTL
	}
	if c.Autologin.SiteURL != "" {
		cfg.Autologin.SiteURL = c.Autologin.SiteURL
	}
	if c.Autologin.TokenTTL != 0 {
		cfg.Autologin.TokenTTL = c.Autologin.TokenTTL
	}
	if c.ClientIP.TrustedHeaders != nil {
		cfg.ClientIP.TrustedHeaders = append([]string{}, c.ClientIP.TrustedHeaders...)
	}
	if c.Store.KeyPrefix != "" {
		cfg.Store.KeyPrefix = c.Store.KeyPrefix
	}
	cfg.Secret.Initial = c.Secret.Initial

	cfg.Audit.Enabled = c.Audit.Enabled
	if c.Audit.BufferSize != 0 {
		cfg.Audit.BufferSize = c.Audit.BufferSize
	}
	if c.Audit.DrainTimeout != 0 {
		cfg.Audit.DrainTimeout = c.Audit.DrainTimeout
	}
	cfg.Metrics.Enabled = c.Metrics.Enabled || c.Metrics.OTel.Enabled
	cfg.Metrics.EnableLatencyHistograms = cfg.Metrics.Enabled && c.Metrics.LatencyHistograms

	return cfg
}

func (c fileConfig) tenancy() (*connector.StaticTenancy, error) {
	users := make([]connector.User, 0, len(c.Tenancy.Users))
	for _, u := range c.Tenancy.Users {
		users = append(users, connector.User{ID: u.ID, Login: u.Login, Roles: u.Roles})
	}

	return connector.NewStaticTenancy(connector.StaticTenancyConfig{
		MultiTenant:     c.Tenancy.Multisite,
		AdminURL:        c.Tenancy.AdminURL,
		NetworkAdminURL: c.Tenancy.NetworkAdminURL,
		Users:           users,
		SuperAdmins:     c.Tenancy.SuperAdmins,
	})
}

func newLogger(cfg logConfig) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return logger, nil
}
