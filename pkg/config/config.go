// Package config loads client settings from a YAML file and the environment
// and turns them into a stitch.Config and a login credential.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stitchkit/stitch.go"
	"github.com/stitchkit/stitch.go/pkg/constants"
	"github.com/stitchkit/stitch.go/pkg/credential"
	"github.com/stitchkit/stitch.go/pkg/logger"
	"github.com/stitchkit/stitch.go/pkg/store"
	"github.com/stitchkit/stitch.go/pkg/store/redisstore"
)

// Auth strategies accepted in auth.strategy.
const (
	StrategyAnonymous = "anonymous"
	StrategyEmail     = "email"
	StrategyAPIKey    = "apikey"
	StrategyGoogle    = "google"
	StrategyFacebook  = "facebook"
	StrategyCustom    = "custom"
)

// Store kinds accepted in store.kind.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the on-disk layout.
type Config struct {
	AppID       string        `yaml:"app_id"`
	BaseURL     string        `yaml:"base_url"`
	ServiceName string        `yaml:"service_name"`
	Timeout     time.Duration `yaml:"timeout"`
	DeviceID    string        `yaml:"device_id"`

	Log   LogConfig   `yaml:"log"`
	Store StoreConfig `yaml:"store"`
	Auth  AuthConfig  `yaml:"auth"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// Path appends logs to a file instead of stderr.
	Path string `yaml:"path"`
}

type StoreConfig struct {
	Kind string `yaml:"kind"`
	// Path is the file store location; ~/.stitch/auth.json when empty.
	Path        string        `yaml:"path"`
	RedisAddr   string        `yaml:"redis_addr"`
	RedisDB     int           `yaml:"redis_db"`
	RedisPrefix string        `yaml:"redis_prefix"`
	TTL         time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	Strategy string `yaml:"strategy"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	APIKey   string `yaml:"api_key"`
	// Token is the OAuth code or token, or the custom JWT.
	Token string `yaml:"token"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		BaseURL:     constants.DefaultBaseURL,
		ServiceName: constants.DefaultServiceName,
		Timeout:     constants.DefaultTimeout,
		Log:         LogConfig{Level: "info"},
		Store:       StoreConfig{Kind: StoreMemory},
		Auth:        AuthConfig{Strategy: StrategyAnonymous},
	}
}

// Load reads path like Read and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read decodes path over the defaults and applies STITCH_* environment
// overrides. An empty path skips the file. The result is not validated.
func Read(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if err := DecodeStrict(f, cfg); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from STITCH_* variables that are set.
func (c *Config) ApplyEnv() {
	c.AppID = stitch.GetEnvOrDefault("STITCH_APP_ID", c.AppID)
	c.BaseURL = stitch.GetEnvOrDefault("STITCH_BASE_URL", c.BaseURL)
	c.ServiceName = stitch.GetEnvOrDefault("STITCH_SERVICE_NAME", c.ServiceName)
	c.Log.Level = stitch.GetEnvOrDefault("STITCH_LOG_LEVEL", c.Log.Level)
	c.Store.Kind = stitch.GetEnvOrDefault("STITCH_STORE", c.Store.Kind)
	c.Store.RedisAddr = stitch.GetEnvOrDefault("STITCH_REDIS_ADDR", c.Store.RedisAddr)
	c.Auth.Strategy = stitch.GetEnvOrDefault("STITCH_AUTH_STRATEGY", c.Auth.Strategy)
	c.Auth.Email = stitch.GetEnvOrDefault("STITCH_EMAIL", c.Auth.Email)
	c.Auth.Password = stitch.GetEnvOrDefault("STITCH_PASSWORD", c.Auth.Password)
	c.Auth.APIKey = stitch.GetEnvOrDefault("STITCH_API_KEY", c.Auth.APIKey)
	c.Auth.Token = stitch.GetEnvOrDefault("STITCH_TOKEN", c.Auth.Token)
	if v := os.Getenv("STITCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.AppID == "" {
		errs = append(errs, fmt.Errorf("%w: app_id must not be empty", ErrInvalidConfig))
	}
	switch strings.ToLower(c.Store.Kind) {
	case "", StoreMemory, StoreFile:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, fmt.Errorf("%w: store.redis_addr is required for the redis store", ErrInvalidConfig))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown store.kind %q", ErrInvalidConfig, c.Store.Kind))
	}
	if _, err := c.Credential(); err != nil {
		errs = append(errs, fmt.Errorf("%w: auth: %w", ErrInvalidConfig, err))
	}
	return errors.Join(errs...)
}

// Credential builds the login credential for auth.strategy.
func (c *Config) Credential() (credential.Credential, error) {
	var (
		cred credential.Credential
		err  error
	)
	a := c.Auth
	switch strings.ToLower(a.Strategy) {
	case "", StrategyAnonymous:
		cred = credential.NewAnonymous()
	case StrategyEmail:
		cred, err = credential.NewEmailPassword(a.Email, a.Password)
	case StrategyAPIKey:
		cred, err = credential.NewAPIKey(a.APIKey)
	case StrategyGoogle:
		cred, err = credential.NewOAuth(credential.Google, a.Token)
	case StrategyFacebook:
		cred, err = credential.NewOAuth(credential.Facebook, a.Token)
	case StrategyCustom:
		cred, err = credential.NewCustomToken(a.Token)
	default:
		err = fmt.Errorf("%w: unknown strategy %q", credential.ErrInvalidCredential, a.Strategy)
	}
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// Build creates the stitch.Config with its logger and store. The returned
// func releases the log file and redis client.
func (c *Config) Build(ctx context.Context) (*stitch.Config, func() error, error) {
	log, err := logger.New().FromPath(c.Log.Path).Level(c.Log.Level).Make()
	if err != nil {
		return nil, nil, fmt.Errorf("opening log: %w", err)
	}
	closers := []func() error{log.Close}
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	var st store.Store
	switch strings.ToLower(c.Store.Kind) {
	case StoreFile:
		path := c.Store.Path
		if path == "" {
			if path, err = store.DefaultPath(); err != nil {
				_ = cleanup()
				return nil, nil, err
			}
		}
		st = store.NewFile(path)
	case StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: c.Store.RedisAddr, DB: c.Store.RedisDB})
		closers = append(closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = cleanup()
			return nil, nil, fmt.Errorf("%w: %w", redisstore.ErrRedisUnavailable, err)
		}
		st = redisstore.New(rdb, c.Store.RedisPrefix, c.Store.TTL)
	default:
		st = store.NewMemory()
	}

	cfg := stitch.NewConfig(c.AppID)
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	if c.ServiceName != "" {
		cfg.ServiceName = c.ServiceName
	}
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
	}
	cfg.DeviceID = c.DeviceID
	cfg.Logger = log
	cfg.Store = st
	return cfg, cleanup, nil
}
