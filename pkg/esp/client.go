// Package esp is a client for the platform's ESP web services.
//
// Operations are declared in a Registry and issued through one generic Call.
// Typed helpers wrap the calls the workunit lifecycle depends on.
package esp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hpcc-systems/gohpcc/internal/shared/logging"
	"github.com/hpcc-systems/gohpcc/pkg/auth"
	"github.com/hpcc-systems/gohpcc/pkg/hpccerr"
)

// DefaultTimeout bounds every request unless overridden.
const DefaultTimeout = 1200 * time.Second

// Param is one named call parameter. Nil values are skipped.
type Param struct {
	Name  string
	Value any
}

// P is shorthand for Param{Name: name, Value: value}.
func P(name string, value any) Param {
	return Param{Name: name, Value: value}
}

// Response is a completed ESP call.
type Response struct {
	StatusCode int
	Body       []byte
}

// JSON decodes the body into v. An ESP exception envelope is returned as an
// *ExceptionError.
func (r *Response) JSON(v any) error {
	var env exceptionsEnvelope
	if err := json.Unmarshal(r.Body, &env); err == nil && env.Exceptions != nil && len(env.Exceptions.Exception) > 0 {
		return env.Exceptions.toError()
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.StatusCode)
}

// Client issues ESP calls for one server.
type Client struct {
	auth     *auth.Auth
	http     *http.Client
	registry *Registry
	logger   logging.Logger
	debug    bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request logging.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithRegistry replaces the default endpoint table.
func WithRegistry(r *Registry) Option {
	return func(c *Client) {
		c.registry = r
	}
}

// WithDebug logs call parameters at debug level. Secrets are never logged.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// NewClient creates a client for the server described by a. Requests go
// through a's HTTP client transport wrapped in a LoggingTransport.
func NewClient(a *auth.Auth, opts ...Option) *Client {
	base := a.Client()
	c := &Client{
		auth: a,
		http: &http.Client{
			Transport:     base.Transport,
			CheckRedirect: base.CheckRedirect,
			Jar:           base.Jar,
			Timeout:       DefaultTimeout,
		},
		registry: DefaultRegistry(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.Transport = &LoggingTransport{Base: c.http.Transport, Logger: c.logger}
	return c
}

// Endpoints returns the registry the client resolves names against.
func (c *Client) Endpoints() *Registry {
	return c.registry
}

// Call issues the named operation with params. Unknown endpoints, undeclared
// parameters and duplicate parameters fail before any request is made.
func (c *Client) Call(ctx context.Context, name string, params ...Param) (*Response, error) {
	endpoint, ok := c.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", hpccerr.ErrUnknownEndpoint, name)
	}
	values, err := encodeParams(endpoint, params)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, endpoint, values)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", name, err)
	}
	if c.debug {
		c.logger.Debug("ESP call", "endpoint", name, "params", paramNames(params))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Endpoint: name, StatusCode: resp.StatusCode}
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func (c *Client) newRequest(ctx context.Context, endpoint Endpoint, values url.Values) (*http.Request, error) {
	target := c.auth.URL() + "/" + strings.TrimPrefix(endpoint.Path, "/") + ".json"

	var (
		req *http.Request
		err error
	)
	if endpoint.Method == http.MethodGet {
		if len(values) > 0 {
			target += "?" + values.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, endpoint.Method, target, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, endpoint.Method, target, strings.NewReader(values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	c.auth.Apply(req)
	return req, nil
}

func encodeParams(endpoint Endpoint, params []Param) (url.Values, error) {
	values := make(url.Values, len(params))
	for _, p := range params {
		if p.Value == nil {
			continue
		}
		if !endpoint.Accepts(p.Name) {
			return nil, fmt.Errorf("%w: %s does not accept %q", hpccerr.ErrInvalidParam, endpoint.Name, p.Name)
		}
		if values.Has(p.Name) {
			return nil, fmt.Errorf("%w: duplicate %q for %s", hpccerr.ErrInvalidParam, p.Name, endpoint.Name)
		}
		values.Set(p.Name, formatValue(p.Value))
	}
	return values, nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		if val {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(val)
	}
}

func paramNames(params []Param) []string {
	names := make([]string, 0, len(params))
	for _, p := range params {
		names = append(names, p.Name)
	}
	return names
}
