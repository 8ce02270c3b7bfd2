package stitch

import (
	"fmt"
	"testing"

	"github.com/stitchkit/stitch.go/internal/fakestitch"
	"github.com/stitchkit/stitch.go/internal/testenv"
	"github.com/stitchkit/stitch.go/pkg/store"
)

const testAppID = testenv.DefaultAppID

var employees = testenv.Employees

// newTestServer starts a seeded fake with a few extra users and functions.
func newTestServer(t *testing.T) *fakestitch.Server {
	t.Helper()

	s := testenv.NewFake(t).Fake
	s.AddAPIKey("K1", "u1")
	s.AddAPIKey("K2", "u2")
	s.AddUser("myemail@mongodb.com", "sekritpassword", "u3")
	s.AddOAuthToken("oauth2-google", "google-code", "u4")
	s.AddOAuthToken("oauth2-facebook", "fb-token", "u5")
	s.AddFunction("Fail", func(fakestitch.FunctionContext, []any) (any, error) {
		return nil, fmt.Errorf("boom")
	})
	return s
}

type testClient struct {
	*Client
	logs  *testenv.Recorder
	store *store.Memory
}

func newTestClient(t *testing.T, s *fakestitch.Server) *testClient {
	t.Helper()

	logs := testenv.NewRecorder()
	st := store.NewMemory()
	cfg := NewConfig(testAppID)
	cfg.BaseURL = s.URL()
	cfg.Logger = logs
	cfg.Store = st

	c := New(cfg)
	t.Cleanup(func() { _ = c.Close() })
	return &testClient{Client: c, logs: logs, store: st}
}
