package esclient

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bdpiprava/esquery/config"
	"github.com/bdpiprava/esquery/execution"
	"github.com/bdpiprava/esquery/logger"
	"github.com/bdpiprava/esquery/search"
	"github.com/bdpiprava/esquery/xhttp"
)

// Options configure a Client
type Options struct {
	Logger   logrus.FieldLogger
	Observer xhttp.Observer
	Timeout  time.Duration
	Pool     *execution.Pool
}

// Option is a function that modifies Options
type Option func(*Options)

// WithLogger sets the logger of the client
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *Options) {
		o.Logger = log
	}
}

// WithObserver sets the observer notified after each HTTP round-trip
func WithObserver(observer xhttp.Observer) Option {
	return func(o *Options) {
		o.Observer = observer
	}
}

// WithTimeout sets the overall timeout of one HTTP call
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithPool sets the pool executions are scheduled on
func WithPool(pool *execution.Pool) Option {
	return func(o *Options) {
		o.Pool = pool
	}
}

// Client performs calls against the single cluster it was created for
type Client struct {
	config  config.ClusterConfiguration
	http    *xhttp.Client
	indices indicesAPI
	pool    *execution.Pool
	log     logrus.FieldLogger
}

// New returns a client bound to the given configuration.
// No connection or TLS material is created before the first call.
func New(cfg config.ClusterConfiguration, opts ...Option) *Client {
	options := Options{Pool: execution.SharedPool()}
	for _, opt := range opts {
		opt(&options)
	}

	log := logger.OrNew(options.Logger, "esclient").WithFields(logrus.Fields{
		"cluster": cfg.Label,
		"flavor":  cfg.Flavor,
	})

	clientOpts := []xhttp.ClientOption{
		xhttp.WithDefaultBaseURL(cfg.Host()),
		xhttp.WithLogger(log),
	}
	if cfg.Credentials != nil {
		clientOpts = append(clientOpts, xhttp.WithBasicAuth(cfg.Credentials.User, cfg.Credentials.Password))
	}
	if cfg.SSL != nil {
		clientOpts = append(clientOpts, xhttp.WithTLS(xhttp.TLSFromMaterial(cfg.TLSMaterial())))
	}
	if options.Observer != nil {
		clientOpts = append(clientOpts, xhttp.WithObserver(options.Observer))
	}
	if options.Timeout > 0 {
		clientOpts = append(clientOpts, xhttp.WithDefaultTimeout(options.Timeout))
	}

	httpClient := xhttp.NewClient(clientOpts...)
	return &Client{
		config:  cfg,
		http:    httpClient,
		indices: newIndicesAPI(cfg, httpClient, log),
		pool:    options.Pool,
		log:     log,
	}
}

// Config returns the configuration the client is bound to
func (c *Client) Config() config.ClusterConfiguration {
	return c.config
}

// Execute runs the request on the calling goroutine
func (c *Client) Execute(ctx context.Context, req xhttp.Request, checkSuccess bool) (*xhttp.Response, error) {
	return c.http.Execute(ctx, req, checkSuccess)
}

// PrepareExecute returns an execution of the request, aborting it interrupts the call
func (c *Client) PrepareExecute(req xhttp.Request, checkSuccess bool) *execution.Execution[*xhttp.Response] {
	return execution.New(func(ctx context.Context) (*xhttp.Response, error) {
		return c.http.Execute(ctx, req, checkSuccess)
	}, c.executionOptions()...)
}

// PrepareGetIndices lists the indices matching pattern, all indices when pattern is empty
func (c *Client) PrepareGetIndices(pattern string) *execution.Execution[search.Indices] {
	path := "/_cat/indices"
	if pattern != "" {
		path += "/" + pattern
	}
	req := xhttp.NewRequest(xhttp.GET, path, xhttp.WithQueryParam("v", "true"))
	return execution.Map(c.PrepareExecute(req, true), func(resp *xhttp.Response) (search.Indices, error) {
		return search.ParseIndices(resp.Content)
	}, c.executionOptions()...)
}

// PrepareGetIndex returns the _cat/indices entry of one index
func (c *Client) PrepareGetIndex(index string) *execution.Execution[search.Index] {
	return execution.Map(c.PrepareGetIndices(index), func(indices search.Indices) (search.Index, error) {
		if found, ok := indices.Find(index); ok {
			return found, nil
		}
		return search.Index{}, errIndexNotFound(index)
	}, c.executionOptions()...)
}

// PrepareGetIndexInfo returns aliases, mappings and settings of one index
func (c *Client) PrepareGetIndexInfo(index string) *execution.Execution[search.IndexInfo] {
	req := xhttp.NewRequest(xhttp.GET, "/"+index)
	return execution.Map(c.PrepareExecute(req, true), func(resp *xhttp.Response) (search.IndexInfo, error) {
		return search.ParseIndexInfo(resp.Content, index)
	}, c.executionOptions()...)
}

// PrepareGetClusterStats returns the _cluster/stats summary
func (c *Client) PrepareGetClusterStats() *execution.Execution[search.ClusterStats] {
	req := xhttp.NewRequest(xhttp.GET, "/_cluster/stats")
	return execution.Map(c.PrepareExecute(req, true), func(resp *xhttp.Response) (search.ClusterStats, error) {
		return search.ParseClusterStats(resp.Content)
	}, c.executionOptions()...)
}

// PrepareTestConnection calls the root endpoint and checks that a node answered
func (c *Client) PrepareTestConnection() *execution.Execution[search.ServerInfo] {
	req := xhttp.NewRequest(xhttp.GET, "/")
	return execution.Map(c.PrepareExecute(req, true), func(resp *xhttp.Response) (search.ServerInfo, error) {
		return search.ParseServerInfo(resp.Content)
	}, c.executionOptions()...)
}

// Close releases the connections of the client, errors are ignored
func (c *Client) Close() {
	c.log.Debug("closing client")
	c.http.Close()
}

func (c *Client) executionOptions() []execution.Option {
	return []execution.Option{
		execution.WithPool(c.pool),
		execution.WithLogger(c.log),
	}
}
