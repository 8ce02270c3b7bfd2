package stitch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stitchkit/stitch.go/pkg/connection"
	"github.com/stitchkit/stitch.go/pkg/constants"
	"github.com/stitchkit/stitch.go/pkg/credential"
	"github.com/stitchkit/stitch.go/pkg/store"
	"github.com/stitchkit/stitch.go/pkg/token"
)

// UserIdentity is the logged-in user.
type UserIdentity struct {
	ID           string
	ProviderType credential.ProviderType
	ProviderName string
	DeviceID     string
	LoggedInAt   time.Time
	// ExpiresAt is when the current access token expires; zero if unknown.
	ExpiresAt time.Time
}

type authState struct {
	user         UserIdentity
	accessToken  string
	refreshToken string
	// claims of accessToken; nil when it is not a JWT.
	claims *token.Claims
}

func authStateFromInfo(info *store.AuthInfo) *authState {
	s := &authState{
		user: UserIdentity{
			ID:           info.UserID,
			ProviderType: credential.ProviderType(info.ProviderType),
			ProviderName: info.ProviderName,
			DeviceID:     info.DeviceID,
			LoggedInAt:   info.LoggedInAt,
		},
		refreshToken: info.RefreshToken,
	}
	s.setAccessToken(info.AccessToken)
	return s
}

func (s *authState) setAccessToken(access string) {
	s.accessToken = access
	s.claims = nil
	s.user.ExpiresAt = time.Time{}
	if claims, err := token.Parse(access); err == nil {
		s.claims = claims
		s.user.ExpiresAt = claims.ExpiresAt
	}
}

// withAccessToken returns a copy of s carrying a new access token.
func (s *authState) withAccessToken(access string) *authState {
	next := *s
	next.setAccessToken(access)
	return &next
}

func (s *authState) expired(now time.Time) bool {
	return s.claims != nil && s.claims.Expired(now)
}

func (s *authState) info() *store.AuthInfo {
	return &store.AuthInfo{
		UserID:       s.user.ID,
		DeviceID:     s.user.DeviceID,
		ProviderType: string(s.user.ProviderType),
		ProviderName: s.user.ProviderName,
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
		LoggedInAt:   s.user.LoggedInAt,
	}
}

var errInvalidSession = &connection.ServiceError{Code: constants.CodeInvalidSession}

// Login authenticates with cred and makes the result the current user.
//
// Logging in while already logged in replaces the current user once the new
// login succeeds, and revokes the old session on the server. If the new
// login fails the current user stays logged in. An anonymous login while
// logged in anonymously returns the current user.
func (c *Client) Login(ctx context.Context, cred credential.Credential) (*UserIdentity, error) {
	if cred == nil {
		return nil, &AuthError{Reason: "no credential given", Err: credential.ErrInvalidCredential}
	}
	if !c.isReady() {
		return nil, &NotInitializedError{Op: "login"}
	}

	c.authMu.Lock()
	defer c.authMu.Unlock()

	c.mu.RLock()
	prev := c.auth
	deviceID := c.deviceID
	c.mu.RUnlock()

	if prev != nil && prev.user.ProviderType == credential.ProviderAnonymous &&
		cred.ProviderType() == credential.ProviderAnonymous {
		user := prev.user
		return &user, nil
	}

	res, err := c.conn.Login(ctx, cred.ProviderName(), connection.LoginRequest{
		Material: cred.Material(),
		DeviceID: deviceID,
	})
	if err != nil {
		c.log.Error("login failed", "provider", cred.ProviderName(), "error", err.Error())
		return nil, &AuthError{Reason: reason(err), Err: err}
	}

	next := &authState{
		user: UserIdentity{
			ID:           res.UserID,
			ProviderType: cred.ProviderType(),
			ProviderName: cred.ProviderName(),
			DeviceID:     res.DeviceID,
			LoggedInAt:   time.Now(),
		},
		refreshToken: res.RefreshToken,
	}
	next.setAccessToken(res.AccessToken)
	if next.user.DeviceID == "" {
		next.user.DeviceID = deviceID
	}

	c.mu.Lock()
	c.auth = next
	c.deviceID = next.user.DeviceID
	c.mu.Unlock()
	c.saveLogin(ctx, next)

	if prev != nil {
		c.log.Info("replacing logged in user", "previous_user_id", prev.user.ID, "user_id", next.user.ID)
		if err := c.conn.Logout(ctx, prev.refreshToken); err != nil {
			c.log.Warn("failed to revoke previous session", "user_id", prev.user.ID, "error", err.Error())
		}
	}

	c.log.Info("logged in", "user_id", next.user.ID, "provider", next.user.ProviderName)
	user := next.user
	return &user, nil
}

// Logout ends the current session. Local state and the persisted login are
// cleared before the server is told, and stay cleared whatever it answers;
// a server failure is logged, not returned. Logging out while logged out is
// a no-op.
func (c *Client) Logout(ctx context.Context) error {
	c.authMu.Lock()
	defer c.authMu.Unlock()

	c.mu.Lock()
	prev := c.auth
	c.auth = nil
	c.mu.Unlock()

	if prev == nil {
		return nil
	}
	c.clearLogin(ctx)

	if err := c.conn.Logout(ctx, prev.refreshToken); err != nil {
		c.log.Warn("failed to log out on the server", "user_id", prev.user.ID, "error", err.Error())
	}

	c.log.Info("logged out", "user_id", prev.user.ID)
	return nil
}

// session returns the current login with an access token that has not
// expired, refreshing it first if it has.
func (c *Client) session(ctx context.Context) (*authState, error) {
	c.mu.RLock()
	auth := c.auth
	c.mu.RUnlock()

	if auth == nil {
		return nil, constants.ErrNotLoggedIn
	}
	if !auth.expired(time.Now()) {
		return auth, nil
	}
	return c.refresh(ctx, auth)
}

// refresh exchanges the refresh token of stale for a new access token,
// unless the login changed in the meantime. A refresh token the server
// rejects ends the login locally.
func (c *Client) refresh(ctx context.Context, stale *authState) (*authState, error) {
	c.authMu.Lock()
	defer c.authMu.Unlock()

	c.mu.RLock()
	cur := c.auth
	c.mu.RUnlock()

	if cur == nil {
		return nil, constants.ErrNotLoggedIn
	}
	if cur != stale {
		return cur, nil
	}

	access, err := c.conn.RefreshAccessToken(ctx, cur.refreshToken)
	if errors.Is(err, errInvalidSession) {
		c.log.Warn("session expired", "user_id", cur.user.ID)
		c.mu.Lock()
		c.auth = nil
		c.mu.Unlock()
		c.clearLogin(ctx)
		return nil, fmt.Errorf("%w: %w", constants.ErrNotLoggedIn, err)
	}
	if err != nil {
		return nil, err
	}

	next := cur.withAccessToken(access)
	c.mu.Lock()
	c.auth = next
	c.mu.Unlock()
	c.saveLogin(ctx, next)

	c.log.Debug("refreshed access token", "user_id", next.user.ID)
	return next, nil
}

// saveLogin and clearLogin ignore cancellation of ctx.
func (c *Client) saveLogin(ctx context.Context, auth *authState) {
	if err := c.store.Save(context.WithoutCancel(ctx), c.config.AppID, auth.info()); err != nil {
		c.log.Warn("failed to persist login", "error", err.Error())
	}
}

func (c *Client) clearLogin(ctx context.Context) {
	if err := c.store.Clear(context.WithoutCancel(ctx), c.config.AppID); err != nil {
		c.log.Warn("failed to clear persisted login", "error", err.Error())
	}
}

// CurrentUser returns a copy of the logged-in user, or nil.
func (c *Client) CurrentUser() *UserIdentity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.auth == nil {
		return nil
	}
	user := c.auth.user
	return &user
}

func (c *Client) IsLoggedIn() bool {
	return c.CurrentUser() != nil
}
