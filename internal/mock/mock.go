// Package mock is an in-memory connection.Connection with canned answers.
package mock

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/stitchkit/stitch.go/internal/codec"
	"github.com/stitchkit/stitch.go/pkg/connection"
	"github.com/stitchkit/stitch.go/pkg/constants"
)

// Conn answers every login with User and every function call from Results.
// Errors set on it are returned instead.
type Conn struct {
	mu sync.Mutex

	User        connection.LoginResponse
	Results     map[string]any
	LocationErr error
	LoginErr    error
	LogoutErr   error
	CallErr     error
	// NextCallErr fails only the next call.
	NextCallErr error
	RefreshErr  error
	// RefreshedToken is the access token handed out by RefreshAccessToken.
	RefreshedToken string

	Logins    []connection.LoginRequest
	Logouts   []string
	Refreshes []string
	Calls     []connection.FunctionCall
	// CallTokens holds the access token of each entry in Calls.
	CallTokens []string
	closed     bool
}

var _ connection.Connection = (*Conn)(nil)

func Create() *Conn {
	return &Conn{
		User: connection.LoginResponse{
			AccessToken:  "access",
			RefreshToken: "refresh",
			UserID:       "mock-user",
			DeviceID:     "mock-device",
		},
		Results:        make(map[string]any),
		RefreshedToken: "refreshed-access",
	}
}

func (c *Conn) Location(context.Context) (*connection.Location, error) {
	if c.LocationErr != nil {
		return nil, c.LocationErr
	}
	return &connection.Location{DeploymentModel: "GLOBAL", Location: "US-VA"}, nil
}

func (c *Conn) Login(_ context.Context, _ string, req connection.LoginRequest) (*connection.LoginResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Logins = append(c.Logins, req)
	if c.LoginErr != nil {
		return nil, c.LoginErr
	}
	res := c.User
	return &res, nil
}

func (c *Conn) Logout(_ context.Context, refreshToken string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Logouts = append(c.Logouts, refreshToken)
	return c.LogoutErr
}

func (c *Conn) RefreshAccessToken(_ context.Context, refreshToken string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Refreshes = append(c.Refreshes, refreshToken)
	if c.RefreshErr != nil {
		return "", c.RefreshErr
	}
	return c.RefreshedToken, nil
}

func (c *Conn) CallFunction(_ context.Context, accessToken string, call *connection.FunctionCall) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls = append(c.Calls, *call)
	c.CallTokens = append(c.CallTokens, accessToken)
	if err := c.NextCallErr; err != nil {
		c.NextCallErr = nil
		return nil, err
	}
	if c.CallErr != nil {
		return nil, c.CallErr
	}

	key := call.Name
	if call.Service != "" {
		key = call.Service + "/" + call.Name
	}
	res, ok := c.Results[key]
	if !ok {
		return nil, &connection.ServiceError{
			StatusCode: http.StatusNotFound,
			Code:       constants.CodeFunctionNotFound,
			Message:    fmt.Sprintf("function not found: '%s'", call.Name),
		}
	}
	if raw, ok := res.([]byte); ok {
		return raw, nil
	}
	return codec.JSON{}.Marshal(res)
}

func (c *Conn) GetUnmarshaler() codec.Unmarshaler {
	return codec.JSON{}
}

func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
