package connection

import (
	"context"

	"github.com/stitchkit/stitch.go/internal/codec"
	"github.com/stitchkit/stitch.go/pkg/logger"
)

// Connection is the client API of one app.
type Connection interface {
	// Location resolves the app, failing when it does not exist or the
	// backend cannot be reached.
	Location(ctx context.Context) (*Location, error)
	Login(ctx context.Context, providerName string, req LoginRequest) (*LoginResponse, error)
	// Logout revokes the session the refresh token belongs to.
	Logout(ctx context.Context, refreshToken string) error
	// RefreshAccessToken returns a new access token for the session the
	// refresh token belongs to.
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
	// CallFunction returns the undecoded JSON result.
	CallFunction(ctx context.Context, accessToken string, call *FunctionCall) ([]byte, error)
	GetUnmarshaler() codec.Unmarshaler
	Close() error
}

type NewConnectionParams struct {
	Marshaler   codec.Marshaler
	Unmarshaler codec.Unmarshaler
	BaseURL     string
	AppID       string
	Logger      logger.Logger
}
