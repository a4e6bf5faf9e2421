package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the service configuration. All values are read from
// environment variables with the PLANWISE_ prefix, e.g. PLANWISE_DB_DSN.
type Config struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`
	BaseURL    string `envconfig:"BASE_URL" default:"http://localhost:8080"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`

	DB struct {
		DSN string `envconfig:"DSN"`
	}

	OIDC struct {
		ClientID     string `envconfig:"CLIENT_ID"`
		ClientSecret string `envconfig:"CLIENT_SECRET"`
		IssuerURL    string `envconfig:"ISSUER_URL"`
		RedirectPath string `envconfig:"REDIRECT_PATH" default:"/auth/callback"`
	}

	Session struct {
		Secret string        `envconfig:"SECRET"`
		TTL    time.Duration `envconfig:"TTL" default:"168h"`
	}

	AI struct {
		BaseURL string        `envconfig:"BASE_URL"`
		APIKey  string        `envconfig:"API_KEY"`
		Model   string        `envconfig:"MODEL" default:"gpt-4o-mini"`
		Timeout time.Duration `envconfig:"TIMEOUT" default:"60s"`
	}

	Quota struct {
		Limit  int           `envconfig:"LIMIT" default:"10"`
		Window time.Duration `envconfig:"WINDOW" default:"1h"`
	}

	PrometheusEnabled bool     `envconfig:"PROMETHEUS_ENDPOINT_ENABLED" default:"false"`
	TrustedProxies    []string `envconfig:"TRUSTED_PROXIES"`
}

// Load parses and validates the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("PLANWISE", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if cfg.DB.DSN == "" {
		return nil, errors.New("PLANWISE_DB_DSN is required")
	}
	if cfg.OIDC.ClientID == "" || cfg.OIDC.ClientSecret == "" {
		return nil, errors.New("oidc configuration is required: client id and secret")
	}
	if cfg.OIDC.IssuerURL == "" {
		return nil, errors.New("PLANWISE_OIDC_ISSUER_URL is required")
	}
	if cfg.Session.Secret == "" {
		return nil, errors.New("PLANWISE_SESSION_SECRET is required")
	}
	if len(cfg.Session.Secret) < 32 {
		return nil, fmt.Errorf("PLANWISE_SESSION_SECRET must be at least 32 characters long (got %d)", len(cfg.Session.Secret))
	}
	if cfg.AI.BaseURL == "" {
		return nil, errors.New("PLANWISE_AI_BASE_URL is required")
	}
	if cfg.Quota.Limit <= 0 {
		return nil, fmt.Errorf("PLANWISE_QUOTA_LIMIT must be positive (got %d)", cfg.Quota.Limit)
	}

	return &cfg, nil
}
