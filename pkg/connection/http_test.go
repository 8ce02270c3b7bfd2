package connection

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/suite"

	"github.com/stitchkit/stitch.go/internal/codec"
	"github.com/stitchkit/stitch.go/pkg/constants"
)

type RoundTripFunc func(req *http.Request) *http.Response

func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

// NewTestClient returns *http.Client with Transport replaced to avoid making real calls
func NewTestClient(fn RoundTripFunc) *http.Client {
	return &http.Client{
		Transport: fn,
	}
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		// Must be set to non-nil value or it panics
		Header: make(http.Header),
	}
}

type HTTPTestSuite struct {
	suite.Suite
}

func TestHttpTestSuite(t *testing.T) {
	suite.Run(t, new(HTTPTestSuite))
}

func (s *HTTPTestSuite) newConnection(fn RoundTripFunc) *HTTPConnection {
	c := NewHTTPConnection(NewConnectionParams{
		BaseURL:     "http://test.stitch",
		AppID:       "demo-app",
		Marshaler:   codec.JSON{},
		Unmarshaler: codec.JSON{},
	})
	c.SetHTTPClient(NewTestClient(fn))
	return c
}

func (s *HTTPTestSuite) TestLocation() {
	c := s.newConnection(func(req *http.Request) *http.Response {
		s.Equal(http.MethodGet, req.Method)
		s.Equal("http://test.stitch/api/client/v2.0/app/demo-app/location", req.URL.String())
		s.Len(req.Header.Get(constants.RequestIDHeader), constants.RequestIDLength)
		return respond(200, `{"deployment_model":"GLOBAL","location":"US-VA","hostname":"http://test.stitch"}`)
	})

	loc, err := c.Location(context.Background())
	s.Require().NoError(err)
	s.Equal("US-VA", loc.Location)
}

func (s *HTTPTestSuite) TestLogin() {
	c := s.newConnection(func(req *http.Request) *http.Response {
		s.Equal(http.MethodPost, req.Method)
		s.Equal("/api/client/v2.0/app/demo-app/auth/providers/api-key/login", req.URL.Path)
		s.Equal("application/json", req.Header.Get("Content-Type"))

		var body map[string]any
		s.Require().NoError(json.NewDecoder(req.Body).Decode(&body))
		s.Equal("K1", body["key"])
		s.Equal(map[string]any{"device": map[string]any{"deviceId": "dev-1"}}, body["options"])

		return respond(200, `{"access_token":"a","refresh_token":"r","user_id":"u1","device_id":"dev-1"}`)
	})

	res, err := c.Login(context.Background(), "api-key", LoginRequest{
		Material: map[string]any{"key": "K1"},
		DeviceID: "dev-1",
	})
	s.Require().NoError(err)
	s.Equal("u1", res.UserID)
	s.Equal("r", res.RefreshToken)
}

func (s *HTTPTestSuite) TestLoginWithoutUserID() {
	c := s.newConnection(func(req *http.Request) *http.Response {
		return respond(200, `{"access_token":"a"}`)
	})

	_, err := c.Login(context.Background(), "anon-user", LoginRequest{})
	s.Require().ErrorIs(err, constants.ErrInvalidResponse)
}

func (s *HTTPTestSuite) TestLogout() {
	c := s.newConnection(func(req *http.Request) *http.Response {
		s.Equal(http.MethodDelete, req.Method)
		s.Equal("/api/client/v2.0/auth/session", req.URL.Path)
		s.Equal("Bearer refresh-1", req.Header.Get("Authorization"))
		return respond(204, "")
	})

	s.Require().NoError(c.Logout(context.Background(), "refresh-1"))
}

func (s *HTTPTestSuite) TestRefreshAccessToken() {
	c := s.newConnection(func(req *http.Request) *http.Response {
		s.Equal(http.MethodPost, req.Method)
		s.Equal("/api/client/v2.0/auth/session", req.URL.Path)
		s.Equal("Bearer refresh-1", req.Header.Get("Authorization"))
		return respond(201, `{"access_token":"access-2"}`)
	})

	access, err := c.RefreshAccessToken(context.Background(), "refresh-1")
	s.Require().NoError(err)
	s.Equal("access-2", access)
}

func (s *HTTPTestSuite) TestRefreshAccessTokenFailures() {
	c := s.newConnection(func(req *http.Request) *http.Response {
		return respond(201, `{}`)
	})
	_, err := c.RefreshAccessToken(context.Background(), "refresh-1")
	s.ErrorIs(err, constants.ErrInvalidResponse)

	c = s.newConnection(func(req *http.Request) *http.Response {
		return respond(401, `{"error":"invalid session","error_code":"InvalidSession"}`)
	})
	_, err = c.RefreshAccessToken(context.Background(), "refresh-1")
	s.ErrorIs(err, &ServiceError{Code: constants.CodeInvalidSession})
}

func (s *HTTPTestSuite) TestCallFunction() {
	c := s.newConnection(func(req *http.Request) *http.Response {
		s.Equal("/api/client/v2.0/app/demo-app/functions/call", req.URL.Path)
		s.Equal("Bearer access-1", req.Header.Get("Authorization"))

		data, err := io.ReadAll(req.Body)
		s.Require().NoError(err)
		s.JSONEq(`{"name":"SayHello","arguments":["arg1","arg2"]}`, string(data))

		return respond(200, `"Hello arg1 and arg2"`)
	})

	res, err := Send[string](context.Background(), c, "access-1", &FunctionCall{
		Name:      "SayHello",
		Arguments: []any{"arg1", "arg2"},
	})
	s.Require().NoError(err)
	s.Equal("Hello arg1 and arg2", res)
}

func (s *HTTPTestSuite) TestCallFunctionNilArguments() {
	c := s.newConnection(func(req *http.Request) *http.Response {
		data, _ := io.ReadAll(req.Body)
		s.JSONEq(`{"name":"ping","arguments":[]}`, string(data))
		return respond(200, "")
	})

	res, err := Send[any](context.Background(), c, "access-1", &FunctionCall{Name: "ping"})
	s.Require().NoError(err)
	s.Nil(res)
}

func (s *HTTPTestSuite) TestSendDecodeError() {
	c := s.newConnection(func(req *http.Request) *http.Response {
		return respond(200, `{"not":"a number"}`)
	})

	_, err := Send[int](context.Background(), c, "access-1", &FunctionCall{Name: "Count"})
	s.Require().ErrorIs(err, constants.ErrInvalidResponse)
	s.Contains(err.Error(), "Count")
}

func (s *HTTPTestSuite) TestServiceError() {
	c := s.newConnection(func(req *http.Request) *http.Response {
		return respond(404, `{"error":"function not found: 'Nope'","error_code":"FunctionNotFound","link":"http://logs"}`)
	})

	_, err := c.CallFunction(context.Background(), "access-1", &FunctionCall{Name: "Nope"})

	var se *ServiceError
	s.Require().True(errors.As(err, &se))
	s.Equal(404, se.StatusCode)
	s.Equal(constants.CodeFunctionNotFound, se.Code)
	s.Equal("http://logs", se.Link)
	s.Equal("FunctionNotFound: function not found: 'Nope'", se.Error())
	s.ErrorIs(err, &ServiceError{Code: constants.CodeFunctionNotFound})
	s.ErrorIs(err, &ServiceError{})
	s.NotErrorIs(err, &ServiceError{Code: constants.CodeInvalidSession})
}

func (s *HTTPTestSuite) TestServiceErrorPlainText() {
	c := s.newConnection(func(req *http.Request) *http.Response {
		return respond(502, "Bad Gateway\n")
	})

	_, err := c.Location(context.Background())

	var se *ServiceError
	s.Require().True(errors.As(err, &se))
	s.Equal("Bad Gateway", se.Message)
	s.Empty(se.Code)
}

func (s *HTTPTestSuite) TestTransportError() {
	c := NewHTTPConnection(NewConnectionParams{
		BaseURL:     "http://test.stitch",
		AppID:       "demo-app",
		Marshaler:   codec.JSON{},
		Unmarshaler: codec.JSON{},
	})
	c.SetHTTPClient(&http.Client{Transport: failingTransport{}})

	_, err := c.Location(context.Background())
	s.Require().ErrorIs(err, errUnreachable)
}

func (s *HTTPTestSuite) TestPreConnectionChecks() {
	c := NewHTTPConnection(NewConnectionParams{BaseURL: "http://test.stitch", Marshaler: codec.JSON{}, Unmarshaler: codec.JSON{}})
	_, err := c.Location(context.Background())
	s.Require().ErrorIs(err, constants.ErrNoAppID)

	c = NewHTTPConnection(NewConnectionParams{AppID: "demo-app", Marshaler: codec.JSON{}, Unmarshaler: codec.JSON{}})
	_, err = c.Location(context.Background())
	s.Require().ErrorIs(err, constants.ErrNoBaseURL)

	c = NewHTTPConnection(NewConnectionParams{AppID: "demo-app", BaseURL: "http://test.stitch", Unmarshaler: codec.JSON{}})
	_, err = c.Location(context.Background())
	s.Require().ErrorIs(err, constants.ErrNoMarshaler)
}

func (s *HTTPTestSuite) TestAppIDIsEscaped() {
	c := NewHTTPConnection(NewConnectionParams{
		BaseURL:     "http://test.stitch",
		AppID:       "demo app/x",
		Marshaler:   codec.JSON{},
		Unmarshaler: codec.JSON{},
	})
	c.SetHTTPClient(NewTestClient(func(req *http.Request) *http.Response {
		s.Equal("/api/client/v2.0/app/demo%20app%2Fx/location", req.URL.EscapedPath())
		return respond(200, `{}`)
	}))

	_, err := c.Location(context.Background())
	s.Require().NoError(err)
}

var errUnreachable = errors.New("connection refused")

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errUnreachable
}
