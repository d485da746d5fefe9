package esclient

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bdpiprava/esquery/config"
	"github.com/bdpiprava/esquery/execution"
	"github.com/bdpiprava/esquery/search"
	"github.com/bdpiprava/esquery/xhttp"
)

// ErrIndexNotFound is returned when a single index lookup matches nothing
var ErrIndexNotFound = errors.New("index not found")

// ForceMergeOptions are the parameters of a force merge
type ForceMergeOptions struct {
	MaxNumSegments     int
	OnlyExpungeDeletes bool
	Flush              bool
}

// DefaultForceMergeOptions merges down to one segment and flushes afterwards
func DefaultForceMergeOptions() ForceMergeOptions {
	return ForceMergeOptions{MaxNumSegments: 1, Flush: true}
}

// indicesAPI is the index management surface, implemented on top of esapi or opensearchapi
type indicesAPI interface {
	create(ctx context.Context, index string, body string) (*xhttp.Response, error)
	delete(ctx context.Context, index string) (*xhttp.Response, error)
	open(ctx context.Context, index string) (*xhttp.Response, error)
	close(ctx context.Context, index string) (*xhttp.Response, error)
	refresh(ctx context.Context, index string) (*xhttp.Response, error)
	flush(ctx context.Context, index string) (*xhttp.Response, error)
	forceMerge(ctx context.Context, index string, opts ForceMergeOptions) (*xhttp.Response, error)
	putAlias(ctx context.Context, index, alias string) (*xhttp.Response, error)
}

func newIndicesAPI(cfg config.ClusterConfiguration, transport *xhttp.Client, log logrus.FieldLogger) indicesAPI {
	if cfg.IsOpenSearch() {
		return &openSearch{transport: transport, log: log}
	}
	return &elasticSearch{transport: transport, log: log}
}

// PrepareCreateIndex creates index with the given settings
func (c *Client) PrepareCreateIndex(index string, settings search.CreateIndexSettings) *execution.Execution[*xhttp.Response] {
	return c.prepareIndexOperation(index, "creating index", func(ctx context.Context) (*xhttp.Response, error) {
		body, err := settings.GetBody()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to build settings of index %s", index)
		}
		return c.indices.create(ctx, index, body)
	})
}

// PrepareDeleteIndex deletes index
func (c *Client) PrepareDeleteIndex(index string) *execution.Execution[*xhttp.Response] {
	return c.prepareIndexOperation(index, "deleting index", func(ctx context.Context) (*xhttp.Response, error) {
		return c.indices.delete(ctx, index)
	})
}

// PrepareOpenIndex opens a closed index
func (c *Client) PrepareOpenIndex(index string) *execution.Execution[*xhttp.Response] {
	return c.prepareIndexOperation(index, "opening index", func(ctx context.Context) (*xhttp.Response, error) {
		return c.indices.open(ctx, index)
	})
}

// PrepareCloseIndex closes an open index
func (c *Client) PrepareCloseIndex(index string) *execution.Execution[*xhttp.Response] {
	return c.prepareIndexOperation(index, "closing index", func(ctx context.Context) (*xhttp.Response, error) {
		return c.indices.close(ctx, index)
	})
}

// PrepareRefreshIndex refreshes index
func (c *Client) PrepareRefreshIndex(index string) *execution.Execution[*xhttp.Response] {
	return c.prepareIndexOperation(index, "refreshing index", func(ctx context.Context) (*xhttp.Response, error) {
		return c.indices.refresh(ctx, index)
	})
}

// PrepareFlushIndex flushes index
func (c *Client) PrepareFlushIndex(index string) *execution.Execution[*xhttp.Response] {
	return c.prepareIndexOperation(index, "flushing index", func(ctx context.Context) (*xhttp.Response, error) {
		return c.indices.flush(ctx, index)
	})
}

// PrepareForceMerge force merges the segments of index
func (c *Client) PrepareForceMerge(index string, opts ForceMergeOptions) *execution.Execution[*xhttp.Response] {
	return c.prepareIndexOperation(index, "force merging index", func(ctx context.Context) (*xhttp.Response, error) {
		return c.indices.forceMerge(ctx, index, opts)
	})
}

// PrepareCreateAlias adds alias to index
func (c *Client) PrepareCreateAlias(index, alias string) *execution.Execution[*xhttp.Response] {
	return c.prepareIndexOperation(index, "creating alias", func(ctx context.Context) (*xhttp.Response, error) {
		if alias == "" {
			return nil, errors.New("alias name is required")
		}
		return c.indices.putAlias(ctx, index, alias)
	})
}

func (c *Client) prepareIndexOperation(index, step string, work execution.Work[*xhttp.Response]) *execution.Execution[*xhttp.Response] {
	log := c.log.WithField("index", index)
	return execution.New(func(ctx context.Context) (*xhttp.Response, error) {
		if index == "" {
			return nil, errors.New("index name is required")
		}
		log.Debug(step)
		resp, err := work(ctx)
		if err != nil {
			log.WithError(err).Debugf("failed %s", step)
			return nil, err
		}
		return resp, nil
	}, c.executionOptions()...)
}

// readAPIResponse turns the result of an esapi or opensearchapi call into a Response
func readAPIResponse(statusCode int, body io.ReadCloser, err error, action string) (*xhttp.Response, error) {
	if err != nil {
		return nil, errors.Wrapf(err, "failed to execute %s request", action)
	}
	return xhttp.ReadResponse("", statusCode, body, true)
}

func errIndexNotFound(index string) error {
	return errors.Wrapf(ErrIndexNotFound, "index %s", index)
}

func boolPtr(v bool) *bool {
	return &v
}
