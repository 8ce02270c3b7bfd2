package remotemongo

import (
	"errors"
	"fmt"

	"github.com/stitchkit/stitch.go/pkg/constants"
)

// QueryError wraps any failure of a read against a collection.
type QueryError struct {
	Database   string
	Collection string
	Err        error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s.%s failed: %v", e.Database, e.Collection, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func (c *Collection) wrap(err error) error {
	if err == nil {
		return nil
	}
	var qe *QueryError
	if errors.As(err, &qe) || errors.Is(err, constants.ErrNotInitialized) {
		return err
	}
	return &QueryError{Database: c.database, Collection: c.name, Err: err}
}
