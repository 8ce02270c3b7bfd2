package connection

import (
	"fmt"
	"net/http"
)

// ServiceError is an error reported by the backend in a non-2xx response.
type ServiceError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error_code,omitempty"`
	Message    string `json:"error,omitempty"`
	Link       string `json:"link,omitempty"`
}

func (e *ServiceError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Is matches any *ServiceError target with an empty Code, or one with the
// same Code.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Location describes where the app is deployed.
type Location struct {
	DeploymentModel string `json:"deployment_model"`
	Location        string `json:"location"`
	Hostname        string `json:"hostname"`
}

// LoginRequest is the body of a login call. Credential material is merged in
// at the top level next to options.
type LoginRequest struct {
	Material map[string]any
	DeviceID string
}

func (r LoginRequest) body() map[string]any {
	body := make(map[string]any, len(r.Material)+1)
	for k, v := range r.Material {
		body[k] = v
	}
	if r.DeviceID != "" {
		body["options"] = map[string]any{
			"device": map[string]any{"deviceId": r.DeviceID},
		}
	}
	return body
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	DeviceID     string `json:"device_id"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

// FunctionCall is the body of a functions/call request. Service is empty for
// app functions and names the service for service actions such as "find".
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments []any  `json:"arguments"`
	Service   string `json:"service,omitempty"`
}
