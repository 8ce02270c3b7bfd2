package remotemongo

import (
	"context"
	"fmt"

	"github.com/stitchkit/stitch.go/internal/codec"
	"github.com/stitchkit/stitch.go/pkg/constants"
)

// Document is one document as decoded from the wire. Numbers are json.Number.
type Document map[string]any

// Filter is a query document. A nil Filter matches every document.
type Filter map[string]any

// MatchAll returns the filter that matches every document.
func MatchAll() Filter {
	return Filter{}
}

// ServiceCaller runs a service function on behalf of the logged-in user and
// decodes its result into res.
type ServiceCaller interface {
	CallServiceFunction(ctx context.Context, service, name string, args []any, res any) error
}

type Client struct {
	caller      ServiceCaller
	service     string
	unmarshaler codec.Unmarshaler
}

// New is used by the session to derive its data client.
func New(caller ServiceCaller, service string) *Client {
	if service == "" {
		service = constants.DefaultServiceName
	}
	return &Client{caller: caller, service: service, unmarshaler: codec.JSON{}}
}

// ServiceName is the name of the linked data source.
func (c *Client) ServiceName() string {
	return c.service
}

func (c *Client) Database(name string) *Database {
	return &Database{client: c, name: name}
}

type Database struct {
	client *Client
	name   string
}

func (d *Database) Name() string {
	return d.name
}

func (d *Database) Collection(name string) *Collection {
	return &Collection{client: d.client, database: d.name, name: name}
}

type Collection struct {
	client   *Client
	database string
	name     string
}

func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) Namespace() string {
	return c.database + "." + c.name
}

func (c *Collection) args(filter Filter, o *findOptions) map[string]any {
	if filter == nil {
		filter = MatchAll()
	}
	args := map[string]any{
		"database":   c.database,
		"collection": c.name,
		"query":      map[string]any(filter),
	}
	if o == nil {
		return args
	}
	if o.limit > 0 {
		args["limit"] = o.limit
	}
	if len(o.sort) > 0 {
		args["sort"] = o.sort
	}
	if len(o.projection) > 0 {
		args["project"] = o.projection
	}
	return args
}

func (c *Collection) call(ctx context.Context, action string, args map[string]any, res any) error {
	if c.database == "" || c.name == "" {
		return c.wrap(constants.ErrEmptyNamespace)
	}
	return c.wrap(c.client.caller.CallServiceFunction(ctx, c.client.service, action, []any{args}, res))
}

// Find returns every document matching filter. Without a Limit option the
// whole match set is returned in one response.
func (c *Collection) Find(ctx context.Context, filter Filter, opts ...FindOption) ([]Document, error) {
	var docs []Document
	if err := c.call(ctx, "find", c.args(filter, newFindOptions(opts)), &docs); err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}

// FindOne returns the first document matching filter, or a *QueryError
// wrapping constants.ErrNoDocuments.
func (c *Collection) FindOne(ctx context.Context, filter Filter, opts ...FindOption) (Document, error) {
	var doc Document
	if err := c.call(ctx, "findOne", c.args(filter, newFindOptions(opts)), &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, c.wrap(constants.ErrNoDocuments)
	}
	return doc, nil
}

// Count returns the number of documents matching filter. Only the Limit
// option applies.
func (c *Collection) Count(ctx context.Context, filter Filter, opts ...FindOption) (int64, error) {
	o := newFindOptions(opts)
	args := c.args(filter, &findOptions{limit: o.limit})

	var n int64
	if err := c.call(ctx, "count", args, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// FindAs runs Find and decodes each document into a T.
func FindAs[T any](ctx context.Context, c *Collection, filter Filter, opts ...FindOption) ([]T, error) {
	docs, err := c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		data, err := codec.JSON{}.Marshal(doc)
		if err != nil {
			return nil, c.wrap(err)
		}
		var v T
		if err := c.client.unmarshaler.Unmarshal(data, &v); err != nil {
			return nil, c.wrap(fmt.Errorf("decoding document: %w", err))
		}
		out = append(out, v)
	}
	return out, nil
}
