package xhttp

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	defaultTimeout        = 60 * time.Second
	defaultConnectTimeout = 5 * time.Second
)

// ErrClientClosed is returned when a request is issued on a closed client
var ErrClientClosed = errors.New("http client is closed")

// Client is a struct that holds the options and base URL for the client
type Client struct {
	clientOptions ClientOptions
	log           logrus.FieldLogger

	init    sync.Once
	client  *http.Client
	initErr error
	closed  atomic.Bool
}

// NewClient is a function that returns a new client with the given options and base URL.
// The underlying connection pool and TLS material are created on first use.
func NewClient(opts ...ClientOption) *Client {
	cOpts := ClientOptions{
		Timeout:        defaultTimeout,
		ConnectTimeout: defaultConnectTimeout,
		Headers:        http.Header{},
		BaseURL:        "",
	}
	for _, opt := range opts {
		opt(&cOpts)
	}

	log := cOpts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Client{
		clientOptions: cOpts,
		log:           log.WithField("base_url", cOpts.BaseURL),
	}
}

// BaseURL returns the host every request without an explicit host is sent to
func (c *Client) BaseURL() string {
	return c.clientOptions.BaseURL
}

// Execute executes the request and returns the response or an error.
// When checkSuccess is set any non-2xx status is returned as *ElasticsearchError.
func (c *Client) Execute(ctx context.Context, req Request, checkSuccess bool) (*Response, error) {
	return execute(ctx, c, req, checkSuccess)
}

// Perform sends a prepared request to the base URL of the client.
// It satisfies the transport contract of esapi and opensearchapi.
func (c *Client) Perform(req *http.Request) (*http.Response, error) {
	httpClient, err := c.httpClient()
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(c.clientOptions.BaseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid base url %q", c.clientOptions.BaseURL)
	}

	req.URL.Scheme = base.Scheme
	req.URL.Host = base.Host
	if base.Path != "" && base.Path != "/" {
		req.URL.Path = path.Join(base.Path, req.URL.Path)
	}
	if req.Header == nil {
		req.Header = http.Header{}
	}
	applyClientHeaders(req, c.clientOptions)
	if req.Body != nil && req.Header.Get(headerContentType) == "" {
		req.Header.Set(headerContentType, contentTypeJSON)
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	c.observe(req.Method, resp, start)
	return resp, err
}

// Close releases idle connections, errors are ignored
func (c *Client) Close() {
	defer func() { _ = recover() }()

	c.closed.Store(true)
	c.init.Do(func() {
		c.initErr = ErrClientClosed
	})
	if c.client != nil {
		c.client.CloseIdleConnections()
	}
}

// httpClient returns the lazily created http client
func (c *Client) httpClient() (*http.Client, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	c.init.Do(func() {
		c.client, c.initErr = buildHTTPClient(c.clientOptions)
	})
	return c.client, c.initErr
}

func (c *Client) observe(method string, resp *http.Response, start time.Time) {
	if c.clientOptions.Observer == nil {
		return
	}
	code := 0
	if resp != nil {
		code = resp.StatusCode
	}
	c.clientOptions.Observer.ObserveRequest(method, code, time.Since(start))
}

func buildHTTPClient(opts ClientOptions) (*http.Client, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: opts.ConnectTimeout,
		MaxIdleConnsPerHost: 4,
	}

	if opts.TLS != nil && strings.HasPrefix(strings.ToLower(opts.BaseURL), "https") {
		tlsConfig, err := opts.TLS()
		if err != nil {
			return nil, errors.Wrap(err, "failed to build tls configuration")
		}
		transport.TLSClientConfig = tlsConfig
	}

	return &http.Client{Timeout: opts.Timeout, Transport: transport}, nil
}

// WithDefaultTimeout is a function that sets the timeout for the client
func WithDefaultTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientOptions) {
		c.Timeout = timeout
	}
}

// WithConnectTimeout sets the dial and TLS handshake timeout
func WithConnectTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientOptions) {
		c.ConnectTimeout = timeout
	}
}

// WithDefaultBaseURL is a function that sets the base URL for the client
func WithDefaultBaseURL(baseURL string) ClientOption {
	return func(c *ClientOptions) {
		c.BaseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithBasicAuth sets the credentials sent with every request
func WithBasicAuth(username, password string) ClientOption {
	return func(c *ClientOptions) {
		c.BasicAuth = BasicAuth{Username: username, Password: password}
	}
}

// WithTLS sets the provider used to build the TLS configuration lazily
func WithTLS(provider TLSProvider) ClientOption {
	return func(c *ClientOptions) {
		c.TLS = provider
	}
}

// WithLogger sets the logger of the client
func WithLogger(log logrus.FieldLogger) ClientOption {
	return func(c *ClientOptions) {
		c.Logger = log
	}
}

// WithObserver sets the observer notified after each round-trip
func WithObserver(observer Observer) ClientOption {
	return func(c *ClientOptions) {
		c.Observer = observer
	}
}

// WithDefaultHeaders is a function that sets the headers for the client
func WithDefaultHeaders(headers http.Header) ClientOption {
	return func(c *ClientOptions) {
		if headers == nil {
			return
		}

		for k, v := range headers {
			c.Headers[k] = v
		}
	}
}

// WithDefaultHeader is a function that sets the headers for the client
func WithDefaultHeader(key string, values ...string) ClientOption {
	return func(c *ClientOptions) {
		if cur, ok := c.Headers[key]; ok {
			c.Headers[key] = append(cur, values...)
			return
		}
		c.Headers[key] = values
	}
}
