// Package store persists the logged-in user's auth info between runs, so a
// restarted client comes back logged in.
package store

import (
	"context"
	"time"
)

// AuthInfo is everything needed to resume a session.
type AuthInfo struct {
	UserID       string    `json:"user_id"`
	DeviceID     string    `json:"device_id,omitempty"`
	ProviderType string    `json:"provider_type"`
	ProviderName string    `json:"provider_name"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	LoggedInAt   time.Time `json:"logged_in_at"`
}

// Store keeps at most one AuthInfo per app id.
type Store interface {
	// Load returns constants.ErrAuthInfoNotFound when nothing is stored.
	Load(ctx context.Context, appID string) (*AuthInfo, error)
	Save(ctx context.Context, appID string, info *AuthInfo) error
	// Clear is a no-op when nothing is stored.
	Clear(ctx context.Context, appID string) error
}
