// Package fakestitch provides a fake backend for testing the client. It speaks
// the client API over HTTP, keeps users, functions and collections in memory,
// and can inject failures per route.
//
// The router is built with gorilla/mux and served with net/http/httptest.
package fakestitch

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/stitchkit/stitch.go/internal/codec"
	"github.com/stitchkit/stitch.go/pkg/constants"
)

// Route names a client API endpoint for failure injection.
type Route string

const (
	RouteLocation     Route = "location"
	RouteLogin        Route = "login"
	RouteLogout       Route = "logout"
	RouteRefresh      Route = "refresh"
	RouteFunctionCall Route = "functions/call"
)

// FailureType represents the type of failure to inject during request processing
type FailureType string

const (
	// FailureRequestDelay delays before processing the request
	FailureRequestDelay FailureType = "request_delay"
	// FailureStatus answers with StatusCode and an error body instead of processing
	FailureStatus FailureType = "status"
	// FailureInvalidResponse answers 200 with a body that is not JSON
	FailureInvalidResponse FailureType = "invalid_response"
	// FailureDropConnection closes the underlying connection without answering
	FailureDropConnection FailureType = "drop_connection"
)

// FailureConfig defines how and when to inject a specific failure type
type FailureConfig struct {
	Type FailureType
	// Probability of triggering this failure. Values outside (0, 1) always trigger.
	Probability float64
	Delay       time.Duration
	StatusCode  int
	ErrorCode   string
	Message     string
}

// FunctionContext is passed to registered functions.
type FunctionContext struct {
	UserID string
}

// Function is a server-side function. A returned error is reported to the
// caller as a FunctionExecutionError.
type Function func(fc FunctionContext, args []any) (any, error)

type session struct {
	id           string
	userID       string
	providerType string
	refreshToken string
}

type userPass struct {
	password string
	userID   string
}

// Server is a fake backend for a single app.
type Server struct {
	AppID string

	mu             sync.RWMutex
	accessTokenTTL time.Duration
	signingKey     []byte
	apiKeys        map[string]string
	userPass       map[string]userPass
	oauthTokens    map[string]string
	functions      map[string]Function
	collections    map[string]map[string][]map[string]any
	sessions       map[string]*session
	failures       map[Route][]FailureConfig
	requests       map[Route]int

	codec  codec.Codec
	router *mux.Router
	http   *httptest.Server
}

// NewServer creates a fake backend for appID. Call Start to serve it.
func NewServer(appID string) *Server {
	s := &Server{
		AppID:          appID,
		accessTokenTTL: 30 * time.Minute,
		signingKey:     []byte(uuid.NewString()),
		apiKeys:        make(map[string]string),
		userPass:       make(map[string]userPass),
		oauthTokens:    make(map[string]string),
		functions:      make(map[string]Function),
		collections:    make(map[string]map[string][]map[string]any),
		sessions:       make(map[string]*session),
		failures:       make(map[Route][]FailureConfig),
		requests:       make(map[Route]int),
		codec:          codec.JSON{},
	}

	r := mux.NewRouter()
	r.Use(s.failureMiddleware)
	r.HandleFunc("/api/client/v2.0/app/{app}/location", s.handleLocation).
		Methods(http.MethodGet).Name(string(RouteLocation))
	r.HandleFunc("/api/client/v2.0/app/{app}/auth/providers/{provider}/login", s.handleLogin).
		Methods(http.MethodPost).Name(string(RouteLogin))
	r.HandleFunc("/api/client/v2.0/auth/session", s.handleLogout).
		Methods(http.MethodDelete).Name(string(RouteLogout))
	r.HandleFunc("/api/client/v2.0/auth/session", s.handleRefresh).
		Methods(http.MethodPost).Name(string(RouteRefresh))
	r.HandleFunc("/api/client/v2.0/app/{app}/functions/call", s.handleFunctionCall).
		Methods(http.MethodPost).Name(string(RouteFunctionCall))
	s.router = r

	return s
}

// Start serves the fake backend on a random local port and returns its URL.
func (s *Server) Start() string {
	s.http = httptest.NewServer(s.router)
	return s.http.URL
}

// Close shuts the server down.
func (s *Server) Close() {
	if s.http != nil {
		s.http.Close()
	}
}

// URL returns the base URL of a started server.
func (s *Server) URL() string {
	if s.http == nil {
		return ""
	}
	return s.http.URL
}

// Handler exposes the router, e.g. for a custom http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) AddAPIKey(key, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKeys[key] = userID
}

func (s *Server) AddUser(email, password, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userPass[email] = userPass{password: password, userID: userID}
}

// AddOAuthToken accepts token for the given provider type, e.g.
// "oauth2-google", as belonging to userID.
func (s *Server) AddOAuthToken(providerType, token, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oauthTokens[providerType+"/"+token] = userID
}

func (s *Server) AddFunction(name string, fn Function) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.functions[name] = fn
}

// AddCollection creates the collection if needed and appends docs to it.
// Documents are stored the way they would come back over the wire.
func (s *Server) AddCollection(database, collection string, docs ...map[string]any) error {
	stored := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		data, err := s.codec.Marshal(doc)
		if err != nil {
			return err
		}
		var normalized map[string]any
		if err := s.codec.Unmarshal(data, &normalized); err != nil {
			return err
		}
		stored = append(stored, normalized)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[database] == nil {
		s.collections[database] = make(map[string][]map[string]any)
	}
	s.collections[database][collection] = append(s.collections[database][collection], stored...)
	return nil
}

// InjectFailure adds a failure to every request on route until ClearFailures.
func (s *Server) InjectFailure(route Route, f FailureConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], f)
}

func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[Route][]FailureConfig)
}

// ActiveSessions is the number of sessions that have not been logged out.
func (s *Server) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Requests is the number of requests received on route, failed ones included.
func (s *Server) Requests(route Route) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests[route]
}

func (s *Server) failureMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := Route("")
		if cur := mux.CurrentRoute(r); cur != nil {
			route = Route(cur.GetName())
		}

		s.mu.Lock()
		s.requests[route]++
		failures := append([]FailureConfig(nil), s.failures[route]...)
		s.mu.Unlock()

		for _, f := range failures {
			if !shouldTriggerFailure(f.Probability) {
				continue
			}
			if handled := s.applyFailure(w, f); handled {
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func shouldTriggerFailure(probability float64) bool {
	if probability <= 0 || probability >= 1 {
		return true
	}
	//nolint:gosec // test server
	return rand.Float64() < probability
}

// applyFailure reports whether it answered the request.
func (s *Server) applyFailure(w http.ResponseWriter, f FailureConfig) bool {
	switch f.Type {
	case FailureRequestDelay:
		time.Sleep(f.Delay)
		return false
	case FailureStatus:
		status := f.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		s.writeError(w, status, f.ErrorCode, f.Message)
		return true
	case FailureInvalidResponse:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("\x00\x01not json"))
		return true
	case FailureDropConnection:
		hj, ok := w.(http.Hijacker)
		if !ok {
			s.writeError(w, http.StatusInternalServerError, "", "connection cannot be hijacked")
			return true
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			if tcp, ok := conn.(*net.TCPConn); ok {
				_ = tcp.SetLinger(0)
			}
			_ = conn.Close()
		}
		return true
	}
	return false
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := s.codec.Marshal(v)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	body := map[string]string{"error": message}
	if code != "" {
		body["error_code"] = code
	}
	data, _ := s.codec.Marshal(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *Server) checkApp(w http.ResponseWriter, r *http.Request) bool {
	if mux.Vars(r)["app"] != s.AppID {
		s.writeError(w, http.StatusNotFound, constants.CodeAppNotFound,
			fmt.Sprintf("cannot find app using Client App ID '%s'", mux.Vars(r)["app"]))
		return false
	}
	return true
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	if !s.checkApp(w, r) {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"deployment_model": "GLOBAL",
		"location":         "US-VA",
		"hostname":         s.URL(),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.checkApp(w, r) {
		return
	}

	var body map[string]any
	if err := s.codec.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, constants.CodeBadRequest, "invalid login body")
		return
	}

	provider := mux.Vars(r)["provider"]
	userID, err := s.authenticate(provider, body)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, constants.CodeInvalidCredentials, err.Error())
		return
	}

	sess := &session{
		id:           uuid.NewString(),
		userID:       userID,
		providerType: provider,
		refreshToken: uuid.NewString(),
	}
	access, err := s.signAccessToken(sess)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}

	s.mu.Lock()
	s.sessions[sess.refreshToken] = sess
	s.mu.Unlock()

	deviceID := ""
	if opts, ok := body["options"].(map[string]any); ok {
		if device, ok := opts["device"].(map[string]any); ok {
			deviceID, _ = device["deviceId"].(string)
		}
	}
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"access_token":  access,
		"refresh_token": sess.refreshToken,
		"user_id":       userID,
		"device_id":     deviceID,
	})
}

var errInvalidCredentials = errors.New("invalid username/password")

func (s *Server) authenticate(provider string, body map[string]any) (string, error) {
	str := func(key string) string {
		v, _ := body[key].(string)
		return v
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	switch provider {
	case "anon-user":
		return uuid.NewString(), nil
	case "local-userpass":
		up, ok := s.userPass[str("username")]
		if !ok || up.password != str("password") {
			return "", errInvalidCredentials
		}
		return up.userID, nil
	case "api-key":
		if id, ok := s.apiKeys[str("key")]; ok {
			return id, nil
		}
		return "", errors.New("invalid API key")
	case "oauth2-google":
		if id, ok := s.oauthTokens[provider+"/"+str("authCode")]; ok {
			return id, nil
		}
		return "", errors.New("invalid google auth code")
	case "oauth2-facebook":
		if id, ok := s.oauthTokens[provider+"/"+str("accessToken")]; ok {
			return id, nil
		}
		return "", errors.New("invalid facebook access token")
	case "custom-token":
		var rc jwt.RegisteredClaims
		if _, _, err := jwt.NewParser().ParseUnverified(str("token"), &rc); err != nil || rc.Subject == "" {
			return "", errors.New("invalid custom token")
		}
		return "custom|" + rc.Subject, nil
	}
	return "", fmt.Errorf("auth provider %q not found", provider)
}

// SetAccessTokenTTL sets the lifetime of access tokens issued from now on.
func (s *Server) SetAccessTokenTTL(ttl time.Duration) {
	s.mu.Lock()
	s.accessTokenTTL = ttl
	s.mu.Unlock()
}

func (s *Server) signAccessToken(sess *session) (string, error) {
	s.mu.RLock()
	ttl := s.accessTokenTTL
	s.mu.RUnlock()

	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        sess.id,
		Subject:   sess.userID,
		Audience:  jwt.ClaimStrings{s.AppID},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	sess, ok := s.sessions[bearer(r)]
	s.mu.RUnlock()

	if !ok {
		s.writeError(w, http.StatusUnauthorized, constants.CodeInvalidSession, "invalid session")
		return
	}
	access, err := s.signAccessToken(sess)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"access_token": access})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	refresh := bearer(r)

	s.mu.Lock()
	_, ok := s.sessions[refresh]
	delete(s.sessions, refresh)
	s.mu.Unlock()

	if !ok {
		s.writeError(w, http.StatusUnauthorized, constants.CodeInvalidSession, "invalid session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sessionFor validates an access token and returns its live session.
func (s *Server) sessionFor(access string) (*session, error) {
	var rc jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(access, &rc, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.id == rc.ID {
			return sess, nil
		}
	}
	return nil, errors.New("session revoked")
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments []any  `json:"arguments"`
	Service   string `json:"service"`
}

func (s *Server) handleFunctionCall(w http.ResponseWriter, r *http.Request) {
	if !s.checkApp(w, r) {
		return
	}

	sess, err := s.sessionFor(bearer(r))
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, constants.CodeInvalidSession, "invalid session: "+err.Error())
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, constants.CodeBadRequest, err.Error())
		return
	}
	var call functionCall
	if err := s.codec.Unmarshal(body, &call); err != nil {
		s.writeError(w, http.StatusBadRequest, constants.CodeBadRequest, "invalid function call body")
		return
	}

	switch call.Service {
	case "":
		s.callFunction(w, sess, &call)
	case constants.DefaultServiceName:
		s.callMongo(w, &call, body)
	default:
		s.writeError(w, http.StatusNotFound, constants.CodeServiceNotFound,
			fmt.Sprintf("service not found: '%s'", call.Service))
	}
}

func (s *Server) callFunction(w http.ResponseWriter, sess *session, call *functionCall) {
	s.mu.RLock()
	fn, ok := s.functions[call.Name]
	s.mu.RUnlock()

	if !ok {
		s.writeError(w, http.StatusNotFound, constants.CodeFunctionNotFound,
			fmt.Sprintf("function not found: '%s'", call.Name))
		return
	}

	res, err := fn(FunctionContext{UserID: sess.userID}, call.Arguments)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, constants.CodeFunctionExecution, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}
