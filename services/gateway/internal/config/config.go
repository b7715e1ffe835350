package config

import (
	"fmt"
	"strings"
	"time"

	shared "github.com/matapang/platform/libs/shared/config"
)

// Config captures the gateway's runtime knobs.
type Config struct {
	Port                string
	FormServiceURL      string
	IdentityServiceURL  string
	RequestTimeout      time.Duration
	ShutdownGracePeriod time.Duration
}

const (
	defaultPort          = "8000"
	defaultShutdownGrace = 5 * time.Second
)

// FromApp derives the gateway configuration from the shared environment and
// checks that every upstream is set.
func FromApp(app *shared.AppConfig) (Config, error) {
	if app == nil {
		return Config{}, fmt.Errorf("gateway: missing configuration")
	}
	cfg := Config{
		Port:                app.ResolveServiceHTTPPort("gateway", defaultPort),
		FormServiceURL:      strings.TrimRight(strings.TrimSpace(app.FormServiceURL), "/"),
		IdentityServiceURL:  strings.TrimRight(strings.TrimSpace(app.IdentityServiceURL), "/"),
		RequestTimeout:      app.HTTPClientTimeout,
		ShutdownGracePeriod: defaultShutdownGrace,
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	if cfg.FormServiceURL == "" {
		return Config{}, fmt.Errorf("FORM_SERVICE_URL is required")
	}
	if cfg.IdentityServiceURL == "" {
		return Config{}, fmt.Errorf("IDENTITY_SERVICE_URL is required")
	}
	return cfg, nil
}
