package stitch

import (
	"context"
	"errors"

	"github.com/stitchkit/stitch.go/pkg/connection"
	"github.com/stitchkit/stitch.go/pkg/constants"
)

// CallFunction calls the named function with args and decodes its result
// into a T. Failures other than *NotInitializedError are *RemoteCallError.
func CallFunction[T any](ctx context.Context, c *Client, name string, args ...any) (T, error) {
	var res T
	if err := c.callFunction(ctx, name, args, &res); err != nil {
		return res, err
	}
	return res, nil
}

// CallFunction calls the named function with args. Numbers in the result are
// json.Number.
func (c *Client) CallFunction(ctx context.Context, name string, args ...any) (any, error) {
	return CallFunction[any](ctx, c, name, args...)
}

func (c *Client) callFunction(ctx context.Context, name string, args []any, res any) error {
	err := c.CallServiceFunction(ctx, "", name, args, res)
	if err == nil {
		return nil
	}

	var notInit *NotInitializedError
	if errors.As(err, &notInit) {
		return err
	}
	c.log.Error("function call failed", "function", name, "error", err.Error())
	return &RemoteCallError{Name: name, Err: err}
}

// CallServiceFunction calls a function as the current user. An empty service
// calls an app function; otherwise name is an action of that service. The
// result is decoded into res unless res is nil.
func (c *Client) CallServiceFunction(ctx context.Context, service, name string, args []any, res any) error {
	if !c.isReady() {
		return &NotInitializedError{Op: "call " + name}
	}
	if name == "" {
		return constants.ErrEmptyFunction
	}
	auth, err := c.session(ctx)
	if err != nil {
		return err
	}

	if args == nil {
		args = []any{}
	}
	call := &connection.FunctionCall{
		Name:      name,
		Arguments: args,
		Service:   service,
	}
	err = connection.SendInto(ctx, c.conn, auth.accessToken, call, res)
	if !errors.Is(err, errInvalidSession) {
		return err
	}

	// The access token was rejected before its expiry; try once more with a
	// fresh one.
	if auth, err = c.refresh(ctx, auth); err != nil {
		return err
	}
	return connection.SendInto(ctx, c.conn, auth.accessToken, call, res)
}
