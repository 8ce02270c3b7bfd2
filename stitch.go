package stitch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stitchkit/stitch.go/internal/codec"
	"github.com/stitchkit/stitch.go/pkg/connection"
	"github.com/stitchkit/stitch.go/pkg/constants"
	"github.com/stitchkit/stitch.go/pkg/logger"
	"github.com/stitchkit/stitch.go/pkg/remotemongo"
	"github.com/stitchkit/stitch.go/pkg/store"
)

// Client is one session with the app. It is safe for concurrent use:
// initialization, and login/logout, are each serialized.
type Client struct {
	config *Config
	conn   connection.Connection
	log    logger.Logger
	store  store.Store

	// initMu is held for the whole of Initialize, authMu for the whole of
	// Login, Logout and token refresh, network calls included.
	initMu sync.Mutex
	authMu sync.Mutex

	mu       sync.RWMutex
	ready    bool
	location *connection.Location
	mongo    *remotemongo.Client
	deviceID string
	auth     *authState
}

// New creates an uninitialized Client. It does no I/O.
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg = cfg.withDefaults()

	jsonCodec := codec.JSON{}
	conn := connection.NewHTTPConnection(connection.NewConnectionParams{
		Marshaler:   jsonCodec,
		Unmarshaler: jsonCodec,
		BaseURL:     cfg.BaseURL,
		AppID:       cfg.AppID,
		Logger:      cfg.Logger,
	})
	if cfg.HTTPClient != nil {
		conn.SetHTTPClient(cfg.HTTPClient)
	} else {
		conn.SetTimeout(cfg.Timeout)
	}

	return newClient(cfg, conn)
}

func newClient(cfg *Config, conn connection.Connection) *Client {
	return &Client{
		config:   cfg,
		conn:     conn,
		log:      cfg.Logger,
		store:    cfg.Store,
		deviceID: cfg.DeviceID,
	}
}

// Connect creates a Client and initializes it.
func Connect(ctx context.Context, cfg *Config) (*Client, error) {
	c := New(cfg)
	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Initialize resolves the app, derives the data client and restores a
// persisted login. Calling it again after it succeeded does nothing; after a
// failure it tries again. Concurrent callers wait for the one in progress.
func (c *Client) Initialize(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.isReady() {
		return nil
	}

	appID := c.config.AppID
	if appID == "" {
		return &InitializationError{AppID: appID, Err: constants.ErrNoAppID}
	}

	loc, err := c.conn.Location(ctx)
	if err != nil {
		c.log.Error("initialization failed", "app_id", appID, "error", err.Error())
		return &InitializationError{AppID: appID, Err: err}
	}

	restored := c.restore(ctx)

	c.mu.Lock()
	c.location = loc
	c.mongo = remotemongo.New(c, c.config.ServiceName)
	if c.deviceID == "" && restored != nil {
		c.deviceID = restored.user.DeviceID
	}
	if c.deviceID == "" {
		c.deviceID = uuid.NewString()
	}
	c.auth = restored
	c.ready = true
	c.mu.Unlock()

	c.log.Info("initialized", "app_id", appID, "location", loc.Location, "logged_in", restored != nil)
	return nil
}

func (c *Client) restore(ctx context.Context) *authState {
	info, err := c.store.Load(ctx, c.config.AppID)
	if errors.Is(err, constants.ErrAuthInfoNotFound) {
		return nil
	}
	if err != nil {
		c.log.Warn("failed to load persisted login", "error", err.Error())
		return nil
	}
	if info.UserID == "" || info.RefreshToken == "" {
		return nil
	}

	auth := authStateFromInfo(info)
	if !auth.expired(time.Now()) {
		return auth
	}
	access, err := c.conn.RefreshAccessToken(ctx, auth.refreshToken)
	switch {
	case errors.Is(err, errInvalidSession):
		c.log.Warn("persisted login has expired", "user_id", auth.user.ID)
		c.clearLogin(ctx)
		return nil
	case err != nil:
		// Kept; the next call retries the refresh.
		c.log.Warn("failed to refresh persisted login", "user_id", auth.user.ID, "error", err.Error())
		return auth
	}
	auth = auth.withAccessToken(access)
	c.saveLogin(ctx, auth)
	return auth
}

func (c *Client) isReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Mongo returns the data client derived during Initialize. It is the same
// value for the life of the Client.
func (c *Client) Mongo() (*remotemongo.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.ready {
		return nil, &NotInitializedError{Op: "mongo"}
	}
	return c.mongo, nil
}

// AppID is the configured app id.
func (c *Client) AppID() string {
	return c.config.AppID
}

// Close releases idle connections. Session state is kept.
func (c *Client) Close() error {
	return c.conn.Close()
}
