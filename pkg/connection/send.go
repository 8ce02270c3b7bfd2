package connection

import (
	"bytes"
	"context"
	"fmt"

	"github.com/stitchkit/stitch.go/pkg/constants"
)

// Send calls a function and decodes its result into a T. An empty body
// leaves the zero value.
func Send[T any](ctx context.Context, c Connection, accessToken string, call *FunctionCall) (T, error) {
	var res T
	err := SendInto(ctx, c, accessToken, call, &res)
	return res, err
}

// SendInto is Send for a caller-supplied destination. A nil res discards
// the result.
func SendInto(ctx context.Context, c Connection, accessToken string, call *FunctionCall, res any) error {
	data, err := c.CallFunction(ctx, accessToken, call)
	if err != nil {
		return err
	}
	if res == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := c.GetUnmarshaler().Unmarshal(data, res); err != nil {
		return fmt.Errorf("%w: decoding %s result: %v", constants.ErrInvalidResponse, call.Name, err)
	}
	return nil
}
