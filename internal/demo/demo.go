// Package demo runs the starter app flow: initialize, log in, call a
// function, read a collection, log out.
package demo

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/goccy/go-json"

	"github.com/stitchkit/stitch.go"
	"github.com/stitchkit/stitch.go/pkg/credential"
)

// Options selects what the flow reads and calls.
type Options struct {
	Function   string
	Args       []any
	Database   string
	Collection string
	// KeepSession skips the final logout so the next run restores the login.
	KeepSession bool
}

// DefaultOptions match the starter app.
func DefaultOptions() Options {
	return Options{
		Function:   "SayHello",
		Args:       []any{"arg1", "arg2"},
		Database:   "HR",
		Collection: "employees",
	}
}

type printer struct {
	out   io.Writer
	title *color.Color
	ok    *color.Color
	fail  *color.Color
	data  *color.Color
}

func newPrinter(out io.Writer) *printer {
	return &printer{
		out:   out,
		title: color.New(color.Bold),
		ok:    color.New(color.FgGreen),
		fail:  color.New(color.FgRed),
		data:  color.New(color.FgCyan),
	}
}

func (p *printer) status(c *stitch.Client) {
	if u := c.CurrentUser(); u != nil {
		p.ok.Fprintf(p.out, "You are logged in as user '%s'.\n", u.ID)
		return
	}
	fmt.Fprintln(p.out, "You are currently logged out.")
}

// Run executes the flow against cfg. Initialization and login failures stop
// the flow; function and query failures are printed and collected into the
// returned error.
func Run(ctx context.Context, cfg *stitch.Config, cred credential.Credential, opts Options, out io.Writer) error {
	p := newPrinter(out)
	p.title.Fprintln(out, "Stitch Starter App")

	client, err := stitch.Connect(ctx, cfg)
	if err != nil {
		p.fail.Fprintln(out, "Stitch failed to initialize")
		return err
	}
	defer client.Close()

	p.status(client)
	if !client.IsLoggedIn() {
		if _, err := client.Login(ctx, cred); err != nil {
			p.fail.Fprintln(out, err.Error())
			return err
		}
		p.status(client)
	}

	var errs []error

	if opts.Function != "" {
		res, err := client.CallFunction(ctx, opts.Function, opts.Args...)
		if err != nil {
			p.fail.Fprintf(out, "function call failed: %v\n", err)
			errs = append(errs, err)
		} else {
			p.data.Fprintln(out, fmt.Sprint(res))
		}
	}

	if opts.Database != "" && opts.Collection != "" {
		if err := printDocs(ctx, client, opts, p); err != nil {
			p.fail.Fprintf(out, "atlas call failed: %v\n", err)
			errs = append(errs, err)
		}
	}

	if !opts.KeepSession {
		if err := client.Logout(ctx); err != nil {
			p.fail.Fprintf(out, "Failed to log out: %v\n", err)
		}
		p.status(client)
	}

	return errors.Join(errs...)
}

func printDocs(ctx context.Context, client *stitch.Client, opts Options, p *printer) error {
	mongo, err := client.Mongo()
	if err != nil {
		return err
	}
	docs, err := mongo.Database(opts.Database).Collection(opts.Collection).Find(ctx, nil)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(docs, "", "   ")
	if err != nil {
		return err
	}
	p.data.Fprintln(p.out, string(data))
	return nil
}
