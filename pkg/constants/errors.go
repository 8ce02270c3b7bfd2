package constants

import "errors"

// Errors
var (
	ErrNotInitialized   = errors.New("client is not initialized")
	ErrNotLoggedIn      = errors.New("no user is logged in")
	ErrNoAppID          = errors.New("app id not set")
	ErrNoBaseURL        = errors.New("base url not set")
	ErrNoMarshaler      = errors.New("marshaler is not set")
	ErrNoUnmarshaler    = errors.New("unmarshaler is not set")
	ErrInvalidResponse  = errors.New("invalid backend response")
	ErrEmptyFunction    = errors.New("function name is empty")
	ErrEmptyNamespace   = errors.New("database or collection name is empty")
	ErrNoDocuments      = errors.New("no documents in result")
	ErrAuthInfoNotFound = errors.New("auth info not found")
)
