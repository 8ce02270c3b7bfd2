// Package credential holds the closed set of ways a user can log in.
//
// Each constructor validates its input, so a Credential that exists is always
// well formed. Credentials are immutable; Material returns a fresh map on
// every call.
package credential

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/stitchkit/stitch.go/pkg/token"
)

var ErrInvalidCredential = errors.New("invalid credential")

// ProviderType names the auth provider on the backend.
type ProviderType string

const (
	ProviderAnonymous     ProviderType = "anon-user"
	ProviderUserPass      ProviderType = "local-userpass"
	ProviderAPIKey        ProviderType = "api-key"
	ProviderOAuthGoogle   ProviderType = "oauth2-google"
	ProviderOAuthFacebook ProviderType = "oauth2-facebook"
	ProviderCustomToken   ProviderType = "custom-token"
)

// OAuthProvider selects the identity provider behind an OAuth credential.
type OAuthProvider string

const (
	Google   OAuthProvider = "google"
	Facebook OAuthProvider = "facebook"
)

type Credential interface {
	// ProviderType is the backend's name for the auth provider kind.
	ProviderType() ProviderType
	// ProviderName is the name of the configured provider instance. The
	// backend creates each provider under its type name by default.
	ProviderName() string
	// Material is the login request body.
	Material() map[string]any
	String() string

	isCredential()
}

type Anonymous struct{}

func NewAnonymous() Anonymous {
	return Anonymous{}
}

func (Anonymous) ProviderType() ProviderType { return ProviderAnonymous }
func (Anonymous) ProviderName() string       { return string(ProviderAnonymous) }
func (Anonymous) Material() map[string]any   { return map[string]any{} }
func (Anonymous) String() string             { return "anonymous" }
func (Anonymous) isCredential()              {}

type EmailPassword struct {
	email    string
	password string
}

func NewEmailPassword(email, password string) (EmailPassword, error) {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return EmailPassword{}, fmt.Errorf("%w: %q is not an email address", ErrInvalidCredential, email)
	}
	if password == "" {
		return EmailPassword{}, fmt.Errorf("%w: empty password", ErrInvalidCredential)
	}
	return EmailPassword{email: email, password: password}, nil
}

func (EmailPassword) ProviderType() ProviderType { return ProviderUserPass }
func (EmailPassword) ProviderName() string       { return string(ProviderUserPass) }

func (c EmailPassword) Material() map[string]any {
	return map[string]any{"username": c.email, "password": c.password}
}

func (c EmailPassword) Email() string  { return c.email }
func (c EmailPassword) String() string { return "email/password(" + c.email + ")" }
func (EmailPassword) isCredential()    {}

type APIKey struct {
	key string
}

func NewAPIKey(key string) (APIKey, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return APIKey{}, fmt.Errorf("%w: empty api key", ErrInvalidCredential)
	}
	return APIKey{key: key}, nil
}

func (APIKey) ProviderType() ProviderType { return ProviderAPIKey }
func (APIKey) ProviderName() string       { return string(ProviderAPIKey) }

func (c APIKey) Material() map[string]any {
	return map[string]any{"key": c.key}
}

func (APIKey) String() string { return "api-key(redacted)" }
func (APIKey) isCredential()  {}

// OAuth carries a token obtained from a third-party identity provider:
// a server auth code for Google, an access token for Facebook.
type OAuth struct {
	provider OAuthProvider
	token    string
}

func NewOAuth(provider OAuthProvider, token string) (OAuth, error) {
	switch provider {
	case Google, Facebook:
	default:
		return OAuth{}, fmt.Errorf("%w: unsupported oauth provider %q", ErrInvalidCredential, provider)
	}
	if strings.TrimSpace(token) == "" {
		return OAuth{}, fmt.Errorf("%w: empty %s token", ErrInvalidCredential, provider)
	}
	return OAuth{provider: provider, token: token}, nil
}

func (c OAuth) ProviderType() ProviderType {
	if c.provider == Facebook {
		return ProviderOAuthFacebook
	}
	return ProviderOAuthGoogle
}

func (c OAuth) ProviderName() string { return string(c.ProviderType()) }

func (c OAuth) Material() map[string]any {
	if c.provider == Facebook {
		return map[string]any{"accessToken": c.token}
	}
	return map[string]any{"authCode": c.token}
}

func (c OAuth) Provider() OAuthProvider { return c.provider }
func (c OAuth) String() string          { return "oauth(" + string(c.provider) + ")" }
func (OAuth) isCredential()             {}

// CustomToken is a JWT minted by the application's own auth system.
type CustomToken struct {
	token   string
	subject string
}

func NewCustomToken(raw string) (CustomToken, error) {
	claims, err := token.Parse(raw)
	if err != nil {
		return CustomToken{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	return CustomToken{token: raw, subject: claims.Subject}, nil
}

func (CustomToken) ProviderType() ProviderType { return ProviderCustomToken }
func (CustomToken) ProviderName() string       { return string(ProviderCustomToken) }

func (c CustomToken) Material() map[string]any {
	return map[string]any{"token": c.token}
}

// Subject is the `sub` claim of the token, which may be empty.
func (c CustomToken) Subject() string { return c.subject }
func (c CustomToken) String() string  { return "custom-token(" + c.subject + ")" }
func (CustomToken) isCredential()     {}
