// Package testenv picks the backend tests run against.
//
// By default tests get an in-process fake seeded with the starter app's
// data. Setting STITCH_TEST_BASE_URL and STITCH_TEST_APP_ID points them at
// a real app instead; that app must expose the same SayHello function,
// HR.employees collection and API key.
package testenv

import (
	"fmt"
	"os"
	"testing"

	"github.com/stitchkit/stitch.go/internal/fakestitch"
)

const (
	// EnvBaseURL is the client API endpoint of a live app.
	EnvBaseURL = "STITCH_TEST_BASE_URL"
	// EnvAppID is the client app id of a live app.
	EnvAppID = "STITCH_TEST_APP_ID"
	// EnvAPIKey is a user API key valid on the live app.
	EnvAPIKey = "STITCH_TEST_API_KEY"

	DefaultAppID  = "starter-app-abcde"
	DefaultAPIKey = "starter-api-key"
	// DefaultUserID is the user DefaultAPIKey logs in as on the fake.
	DefaultUserID = "5b7d2c0e1f4a3b0012345678"
)

// Employees is the fake's HR.employees collection.
var Employees = []map[string]any{
	{"_id": "e1", "name": "Alice", "dept": "eng", "salary": 120000},
	{"_id": "e2", "name": "Bob", "dept": "ops", "salary": 95000},
	{"_id": "e3", "name": "Carol", "dept": "eng", "salary": 135000},
}

// Backend is where a test sends its requests.
type Backend struct {
	AppID   string
	BaseURL string
	APIKey  string
	// Fake is nil for a live backend.
	Fake *fakestitch.Server
}

// New returns the live backend when configured and a seeded fake otherwise.
func New(tb testing.TB) *Backend {
	tb.Helper()

	if url, app := os.Getenv(EnvBaseURL), os.Getenv(EnvAppID); url != "" && app != "" {
		return &Backend{AppID: app, BaseURL: url, APIKey: os.Getenv(EnvAPIKey)}
	}
	return NewFake(tb)
}

// NewFake always starts a seeded fake, closed when the test ends.
func NewFake(tb testing.TB) *Backend {
	tb.Helper()

	s := fakestitch.NewServer(DefaultAppID)
	s.Start()
	tb.Cleanup(s.Close)

	s.AddAPIKey(DefaultAPIKey, DefaultUserID)
	s.AddFunction("SayHello", func(_ fakestitch.FunctionContext, args []any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("SayHello takes 2 arguments, got %d", len(args))
		}
		return fmt.Sprintf("Hello, %v and %v!", args[0], args[1]), nil
	})
	if err := s.AddCollection("HR", "employees", Employees...); err != nil {
		tb.Fatalf("seeding HR.employees: %v", err)
	}

	return &Backend{AppID: s.AppID, BaseURL: s.URL(), APIKey: DefaultAPIKey, Fake: s}
}

// IsLive reports whether the backend is a real app.
func (b *Backend) IsLive() bool {
	return b.Fake == nil
}

// RequireFake skips the test on a live backend.
func (b *Backend) RequireFake(tb testing.TB) *fakestitch.Server {
	tb.Helper()
	if b.IsLive() {
		tb.Skip("needs the fake backend")
	}
	return b.Fake
}
