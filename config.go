package stitch

import (
	"net/http"
	"time"

	"github.com/stitchkit/stitch.go/pkg/constants"
	"github.com/stitchkit/stitch.go/pkg/logger"
	"github.com/stitchkit/stitch.go/pkg/store"
)

// Config is read once by New. Zero fields take the defaults NewConfig sets.
type Config struct {
	// AppID is the client app id, e.g. "myapp-abcde".
	AppID string
	// BaseURL is the client API endpoint.
	BaseURL string
	// ServiceName is the linked MongoDB data source used by Mongo.
	ServiceName string
	// Timeout applies to every HTTP request. Ignored when HTTPClient is set.
	Timeout time.Duration
	// HTTPClient replaces the default HTTP client.
	HTTPClient *http.Client
	// DeviceID identifies this installation to the backend. One is
	// generated when empty and nothing was persisted.
	DeviceID string
	Logger   logger.Logger
	Store    store.Store
}

// NewConfig creates a Config for appID with every default filled in.
// BaseURL can be overridden with STITCH_BASE_URL.
func NewConfig(appID string) *Config {
	return &Config{
		AppID:       appID,
		BaseURL:     GetEnvOrDefault("STITCH_BASE_URL", constants.DefaultBaseURL),
		ServiceName: constants.DefaultServiceName,
		Timeout:     constants.DefaultTimeout,
		Logger:      logger.Nop(),
		Store:       store.NewMemory(),
	}
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = constants.DefaultBaseURL
	}
	if out.ServiceName == "" {
		out.ServiceName = constants.DefaultServiceName
	}
	if out.Timeout <= 0 {
		out.Timeout = constants.DefaultTimeout
	}
	if out.Logger == nil {
		out.Logger = logger.Nop()
	}
	if out.Store == nil {
		out.Store = store.NewMemory()
	}
	return &out
}
