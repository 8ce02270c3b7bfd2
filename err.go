package stitch

import (
	"errors"
	"fmt"

	"github.com/stitchkit/stitch.go/pkg/connection"
	"github.com/stitchkit/stitch.go/pkg/constants"
	"github.com/stitchkit/stitch.go/pkg/remotemongo"
)

// InitializationError is returned by Initialize when the app cannot be
// reached or is misconfigured.
type InitializationError struct {
	AppID string
	Err   error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("failed to initialize app %q: %v", e.AppID, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// NotInitializedError is returned by every operation attempted before
// Initialize succeeded. It matches constants.ErrNotInitialized.
type NotInitializedError struct {
	Op string
}

func (e *NotInitializedError) Error() string {
	return e.Op + ": " + constants.ErrNotInitialized.Error()
}

func (e *NotInitializedError) Unwrap() error {
	return constants.ErrNotInitialized
}

// AuthError is returned by Login. Reason is the backend's message when there
// is one.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Reason
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RemoteCallError wraps any failure of a function call.
type RemoteCallError struct {
	Name string
	Err  error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("function %q failed: %v", e.Name, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// QueryError wraps any failure of a document read.
type QueryError = remotemongo.QueryError

// reason is the human readable part of err.
func reason(err error) string {
	var se *connection.ServiceError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return err.Error()
}
