package connection

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/buger/jsonparser"

	"github.com/stitchkit/stitch.go/internal/codec"
	"github.com/stitchkit/stitch.go/internal/rand"
	"github.com/stitchkit/stitch.go/pkg/constants"
	"github.com/stitchkit/stitch.go/pkg/logger"
)

type HTTPConnection struct {
	baseURL     string
	appID       string
	marshaler   codec.Marshaler
	unmarshaler codec.Unmarshaler
	logger      logger.Logger

	httpClient *http.Client
}

var _ Connection = (*HTTPConnection)(nil)

func NewHTTPConnection(p NewConnectionParams) *HTTPConnection {
	con := HTTPConnection{
		baseURL:     p.BaseURL,
		appID:       p.AppID,
		marshaler:   p.Marshaler,
		unmarshaler: p.Unmarshaler,
		logger:      p.Logger,
		httpClient: &http.Client{
			Timeout: constants.DefaultTimeout,
		},
	}
	if con.logger == nil {
		con.logger = logger.Nop()
	}

	return &con
}

func (h *HTTPConnection) SetTimeout(timeout time.Duration) *HTTPConnection {
	h.httpClient.Timeout = timeout
	return h
}

func (h *HTTPConnection) SetHTTPClient(client *http.Client) *HTTPConnection {
	h.httpClient = client
	return h
}

func (h *HTTPConnection) GetUnmarshaler() codec.Unmarshaler {
	return h.unmarshaler
}

func (h *HTTPConnection) Close() error {
	h.httpClient.CloseIdleConnections()
	return nil
}

func (h *HTTPConnection) preConnectionChecks() error {
	if h.baseURL == "" {
		return constants.ErrNoBaseURL
	}

	if h.appID == "" {
		return constants.ErrNoAppID
	}

	if h.marshaler == nil {
		return constants.ErrNoMarshaler
	}

	if h.unmarshaler == nil {
		return constants.ErrNoUnmarshaler
	}

	return nil
}

func (h *HTTPConnection) appRoute(format string, args ...any) string {
	escaped := make([]any, 0, len(args)+1)
	escaped = append(escaped, url.PathEscape(h.appID))
	for _, a := range args {
		escaped = append(escaped, url.PathEscape(fmt.Sprint(a)))
	}
	return fmt.Sprintf(format, escaped...)
}

func (h *HTTPConnection) Location(ctx context.Context) (*Location, error) {
	if err := h.preConnectionChecks(); err != nil {
		return nil, err
	}

	var loc Location
	if err := h.do(ctx, http.MethodGet, h.appRoute(constants.RouteLocation), "", nil, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

func (h *HTTPConnection) Login(ctx context.Context, providerName string, req LoginRequest) (*LoginResponse, error) {
	if err := h.preConnectionChecks(); err != nil {
		return nil, err
	}

	var res LoginResponse
	route := h.appRoute(constants.RouteLogin, providerName)
	if err := h.do(ctx, http.MethodPost, route, "", req.body(), &res); err != nil {
		return nil, err
	}
	if res.UserID == "" || res.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response without user id or access token", constants.ErrInvalidResponse)
	}
	return &res, nil
}

func (h *HTTPConnection) Logout(ctx context.Context, refreshToken string) error {
	if err := h.preConnectionChecks(); err != nil {
		return err
	}
	return h.do(ctx, http.MethodDelete, constants.RouteSession, refreshToken, nil, nil)
}

func (h *HTTPConnection) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	if err := h.preConnectionChecks(); err != nil {
		return "", err
	}

	var res refreshResponse
	if err := h.do(ctx, http.MethodPost, constants.RouteSession, refreshToken, nil, &res); err != nil {
		return "", err
	}
	if res.AccessToken == "" {
		return "", fmt.Errorf("%w: session response without access token", constants.ErrInvalidResponse)
	}
	return res.AccessToken, nil
}

func (h *HTTPConnection) CallFunction(ctx context.Context, accessToken string, call *FunctionCall) ([]byte, error) {
	if err := h.preConnectionChecks(); err != nil {
		return nil, err
	}
	if call.Arguments == nil {
		call.Arguments = []any{}
	}

	req, err := h.newRequest(ctx, http.MethodPost, h.appRoute(constants.RouteFunctionCall), accessToken, call)
	if err != nil {
		return nil, err
	}
	return h.MakeRequest(req)
}

func (h *HTTPConnection) do(ctx context.Context, method, route, bearer string, body, res any) error {
	req, err := h.newRequest(ctx, method, route, bearer, body)
	if err != nil {
		return err
	}

	respData, err := h.MakeRequest(req)
	if err != nil {
		return err
	}

	if res == nil || len(bytes.TrimSpace(respData)) == 0 {
		return nil
	}
	if err := h.unmarshaler.Unmarshal(respData, res); err != nil {
		return fmt.Errorf("%w: %v", constants.ErrInvalidResponse, err)
	}
	return nil
}

func (h *HTTPConnection) newRequest(ctx context.Context, method, route, bearer string, body any) (*http.Request, error) {
	reqBody := io.Reader(http.NoBody)
	if body != nil {
		data, err := h.marshaler.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+route, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set(constants.RequestIDHeader, rand.NewRequestID(constants.RequestIDLength))

	return req, nil
}

// MakeRequest sends req and returns the body of a 2xx response. Any other
// status is returned as a *ServiceError.
func (h *HTTPConnection) MakeRequest(req *http.Request) ([]byte, error) {
	h.logger.Debug("sending request",
		"method", req.Method,
		"path", req.URL.Path,
		"request_id", req.Header.Get(constants.RequestIDHeader))

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			h.logger.Warn("failed to close response body", "error", err.Error())
		}
	}(resp.Body)

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBytes, nil
	}

	return nil, decodeServiceError(resp.StatusCode, respBytes)
}

func decodeServiceError(status int, body []byte) *ServiceError {
	se := &ServiceError{StatusCode: status}

	if msg, err := jsonparser.GetString(body, "error"); err == nil {
		se.Message = msg
	} else if len(body) > 0 && !isJSON(body) {
		se.Message = string(bytes.TrimSpace(body))
	}
	if code, err := jsonparser.GetString(body, "error_code"); err == nil {
		se.Code = code
	}
	if link, err := jsonparser.GetString(body, "link"); err == nil {
		se.Link = link
	}

	return se
}

func isJSON(body []byte) bool {
	_, dataType, _, err := jsonparser.Get(body)
	return err == nil && dataType != jsonparser.NotExist
}
