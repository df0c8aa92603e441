// Package gql implements api.Backend over a project's GraphQL endpoints:
// the simple API for records and the system API for the schema.
package gql

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/machinebox/graphql"

	"github.com/vanderheijden86/gcbrowse/pkg/api"
	"github.com/vanderheijden86/gcbrowse/pkg/debug"
	"github.com/vanderheijden86/gcbrowse/pkg/metrics"
	"github.com/vanderheijden86/gcbrowse/pkg/model"
)

// DefaultTimeout bounds each request when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	Endpoint       string // simple API URL
	SystemEndpoint string // system API URL; schema operations fail when empty
	Token          string // sent as a bearer token when set
	Project        string // project name for system API lookups
	Timeout        time.Duration
	HTTPClient     *http.Client
}

// Client talks to the record and schema endpoints of one project.
type Client struct {
	opts      Options
	simple    *graphql.Client
	system    *graphql.Client
	projectID string
}

var _ api.Backend = (*Client)(nil)

// New creates a client. It performs no I/O.
func New(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("gql: endpoint is required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	c := &Client{opts: opts}
	c.simple = newGraphQLClient(opts.Endpoint, hc)
	if opts.SystemEndpoint != "" {
		c.system = newGraphQLClient(opts.SystemEndpoint, hc)
	}
	return c, nil
}

func newGraphQLClient(endpoint string, hc *http.Client) *graphql.Client {
	gc := graphql.NewClient(endpoint, graphql.WithHTTPClient(hc))
	gc.Log = func(s string) { debug.Log("gql: %s", s) }
	return gc
}

func (c *Client) run(ctx context.Context, gc *graphql.Client, query string, vars map[string]any, resp any) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req := graphql.NewRequest(query)
	for k, v := range vars {
		req.Var(k, v)
	}
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	return classify(gc.Run(ctx, req, resp))
}

// classify tags transport failures that machinebox reports with a
// "graphql:" prefix as network errors so they are not mistaken for
// server-side validation.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "non-200"), strings.Contains(msg, "decoding response"), strings.Contains(msg, "reading body"):
		return api.NewError(api.KindNetwork, "request", "", "", err)
	}
	return err
}

// FetchCount returns the number of records matching filter.
func (c *Client) FetchCount(ctx context.Context, m model.Model, filter model.Filter) (int, error) {
	defer metrics.Timer(metrics.FetchCount)()

	meta := "_all" + m.Plural() + "Meta"
	args := ""
	if f := filterLiteral(m, filter); f != "" {
		args = "(filter: " + f + ")"
	}
	q := fmt.Sprintf("query { %s%s { count } }", meta, args)

	var resp map[string]struct {
		Count int `json:"count"`
	}
	if err := c.run(ctx, c.simple, q, nil, &resp); err != nil {
		if api.IsKind(err, api.KindNotFound) {
			return 0, nil
		}
		return 0, api.Wrap("count", m.Name, "", err)
	}
	return resp[meta].Count, nil
}

// FetchPage returns up to first records starting at skip.
func (c *Client) FetchPage(ctx context.Context, m model.Model, filter model.Filter, order model.OrderBy, skip, first int) ([]*model.Record, error) {
	defer metrics.Timer(metrics.FetchPage)()

	all := "all" + m.Plural()
	args := []string{}
	if f := filterLiteral(m, filter); f != "" {
		args = append(args, "filter: "+f)
	}
	if order.FieldName != "" {
		args = append(args, "orderBy: "+order.String())
	}
	args = append(args, "skip: $skip", "first: $first")
	q := fmt.Sprintf("query ($skip: Int, $first: Int) { %s(%s) { %s } }", all, strings.Join(args, ", "), selection(m))

	var resp map[string][]map[string]any
	err := c.run(ctx, c.simple, q, map[string]any{"skip": skip, "first": first}, &resp)
	if err != nil {
		if api.IsKind(err, api.KindNotFound) {
			return nil, nil
		}
		return nil, api.Wrap("fetch", m.Name, "", err)
	}
	rows := resp[all]
	out := make([]*model.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, decodeRecord(row, m))
	}
	return out, nil
}

// Create inserts one record and returns the server's copy.
func (c *Client) Create(ctx context.Context, m model.Model, values map[string]any) (*model.Record, error) {
	defer metrics.Timer(metrics.Mutation)()

	op := "create" + m.Name
	q := fmt.Sprintf("mutation { %s%s { %s } }", op, wrapArgs(mutationArgs(m, values)), selection(m))
	var resp map[string]map[string]any
	if err := c.run(ctx, c.simple, q, nil, &resp); err != nil {
		return nil, api.Wrap("create", m.Name, "", err)
	}
	obj, ok := resp[op]
	if !ok || obj == nil {
		return nil, api.NewError(api.KindValidation, "create", m.Name, "", errors.New("empty response"))
	}
	return decodeRecord(obj, m), nil
}

// Update sets one field and returns the acknowledged record.
func (c *Client) Update(ctx context.Context, m model.Model, id, field string, value any) (*model.Record, error) {
	defer metrics.Timer(metrics.Mutation)()

	f, ok := m.Field(field)
	if !ok {
		return nil, api.NewError(api.KindValidation, "update", m.Name, id, fmt.Errorf("unknown field %q", field))
	}
	if !f.IsEditable() {
		return nil, api.NewError(api.KindValidation, "update", m.Name, id, fmt.Errorf("field %q is read-only", field))
	}
	op := "update" + m.Name
	q := fmt.Sprintf("mutation { %s(id: %s, %s: %s) { %s } }", op, quote(id), argName(f), argLiteral(value, f), selection(m))
	var resp map[string]map[string]any
	if err := c.run(ctx, c.simple, q, nil, &resp); err != nil {
		return nil, api.Wrap("update", m.Name, id, err)
	}
	obj, ok := resp[op]
	if !ok || obj == nil {
		return nil, api.NewError(api.KindNotFound, "update", m.Name, id, nil)
	}
	return decodeRecord(obj, m), nil
}

// Delete removes one record.
func (c *Client) Delete(ctx context.Context, m model.Model, id string) error {
	defer metrics.Timer(metrics.Mutation)()

	op := "delete" + m.Name
	q := fmt.Sprintf("mutation { %s(id: %s) { id } }", op, quote(id))
	var resp map[string]map[string]any
	if err := c.run(ctx, c.simple, q, nil, &resp); err != nil {
		return api.Wrap("delete", m.Name, id, err)
	}
	if resp[op] == nil {
		return api.NewError(api.KindNotFound, "delete", m.Name, id, nil)
	}
	return nil
}

// CreateMany inserts records with one request of aliased create mutations.
func (c *Client) CreateMany(ctx context.Context, m model.Model, records []map[string]any) error {
	if len(records) == 0 {
		return nil
	}
	defer metrics.Timer(metrics.ImportChunk)()

	var b strings.Builder
	b.WriteString("mutation {")
	for i, values := range records {
		fmt.Fprintf(&b, " n%d: create%s%s { id }", i, m.Name, wrapArgs(mutationArgs(m, values)))
	}
	b.WriteString(" }")

	var resp map[string]map[string]any
	if err := c.run(ctx, c.simple, b.String(), nil, &resp); err != nil {
		return api.Wrap("import", m.Name, "", err)
	}
	return nil
}

func wrapArgs(args string) string {
	if args == "" {
		return ""
	}
	return "(" + args + ")"
}

// Close is a no-op; the HTTP client owns no resources that need releasing.
func (c *Client) Close() error { return nil }
