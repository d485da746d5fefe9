package xhttp

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Method is the HTTP verb of a request
type Method string

// Supported methods
const (
	GET    Method = http.MethodGet
	POST   Method = http.MethodPost
	PUT    Method = http.MethodPut
	HEAD   Method = http.MethodHead
	DELETE Method = http.MethodDelete
)

var supportedMethods = map[Method]bool{
	GET:    true,
	POST:   true,
	PUT:    true,
	HEAD:   true,
	DELETE: true,
}

// ParseMethod returns the method matching the given name, case-insensitive
func ParseMethod(name string) (Method, error) {
	method := Method(strings.ToUpper(strings.TrimSpace(name)))
	if !supportedMethods[method] {
		return "", errors.Errorf("unsupported method: %s", name)
	}
	return method, nil
}

func (m Method) allowsBody() bool {
	return m == GET || m == POST || m == PUT
}

// Request is an immutable description of one call against a cluster.
// Path may carry a query string, Host may be empty to use the base URL of the client.
type Request struct {
	Host   string
	Path   string
	Body   string
	Method Method
}

// NewRequest is a function that returns a new request with the given options
func NewRequest(method Method, path string, opts ...RequestOption) Request {
	req := Request{Method: method, Path: path}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// WithHost is a function that sets the host for the request
func WithHost(host string) RequestOption {
	return func(r *Request) {
		r.Host = strings.TrimRight(host, "/")
	}
}

// WithBody is a function that sets the body for the request
func WithBody(body string) RequestOption {
	return func(r *Request) {
		r.Body = body
	}
}

// WithQueryParam is a function that sets a query parameter for the request
func WithQueryParam(key, value string) RequestOption {
	return func(r *Request) {
		*r = r.WithQueryParam(key, value)
	}
}

// URL returns host and path joined by exactly one slash
func (r Request) URL() string {
	if r.Host == "" {
		return r.Path
	}
	if r.Path == "" {
		return r.Host
	}
	return strings.TrimRight(r.Host, "/") + "/" + strings.TrimLeft(r.Path, "/")
}

// PathOnly returns the path without the query string
func (r Request) PathOnly() string {
	p, _, _ := strings.Cut(r.Path, "?")
	return p
}

// RawQuery returns the query string of the path, without the leading '?'
func (r Request) RawQuery() string {
	_, q, _ := strings.Cut(r.Path, "?")
	return q
}

// QueryParams returns the decoded query parameters, malformed pairs are skipped
func (r Request) QueryParams() url.Values {
	values, _ := url.ParseQuery(r.RawQuery())
	if values == nil {
		values = url.Values{}
	}
	return values
}

// QueryParam returns the first value of the named query parameter
func (r Request) QueryParam(name string) (string, bool) {
	values := r.QueryParams()
	if _, ok := values[name]; !ok {
		return "", false
	}
	return values.Get(name), true
}

// WithPath returns a copy of the request with the given path
func (r Request) WithPath(path string) Request {
	r.Path = path
	return r
}

// WithBody returns a copy of the request with the given body
func (r Request) WithBody(body string) Request {
	r.Body = body
	return r
}

// WithQueryParam returns a copy with the parameter set to value.
// The first occurrence keeps its position, further occurrences are dropped
// and the remaining parameters are kept byte for byte.
func (r Request) WithQueryParam(name, value string) Request {
	pair := url.QueryEscape(name) + "=" + url.QueryEscape(value)
	pairs := make([]string, 0)
	replaced := false
	for _, raw := range splitQuery(r.RawQuery()) {
		if queryParamName(raw) != name {
			pairs = append(pairs, raw)
			continue
		}
		if !replaced {
			pairs = append(pairs, pair)
			replaced = true
		}
	}
	if !replaced {
		pairs = append(pairs, pair)
	}
	return r.withRawQuery(pairs)
}

// WithoutQueryParams returns a copy without the named parameters
func (r Request) WithoutQueryParams(names ...string) Request {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}
	return r.FilterQueryParams(func(name string) bool { return !drop[name] })
}

// FilterQueryParams returns a copy keeping only the parameters accepted by keep
func (r Request) FilterQueryParams(keep func(name string) bool) Request {
	pairs := make([]string, 0)
	for _, raw := range splitQuery(r.RawQuery()) {
		if keep(queryParamName(raw)) {
			pairs = append(pairs, raw)
		}
	}
	return r.withRawQuery(pairs)
}

func (r Request) withHost(host string) Request {
	r.Host = host
	return r
}

func (r Request) withRawQuery(pairs []string) Request {
	if len(pairs) == 0 {
		r.Path = r.PathOnly()
		return r
	}
	r.Path = r.PathOnly() + "?" + strings.Join(pairs, "&")
	return r
}

func splitQuery(rawQuery string) []string {
	pairs := make([]string, 0)
	for _, raw := range strings.Split(rawQuery, "&") {
		if raw != "" {
			pairs = append(pairs, raw)
		}
	}
	return pairs
}

func queryParamName(raw string) string {
	name, _, _ := strings.Cut(raw, "=")
	if unescaped, err := url.QueryUnescape(name); err == nil {
		return unescaped
	}
	return name
}
