package cluster

import (
	"context"

	"github.com/bdpiprava/esquery/esclient"
	"github.com/bdpiprava/esquery/execution"
	"github.com/bdpiprava/esquery/search"
	"github.com/bdpiprava/esquery/xhttp"
)

// CreateIndex returns an execution creating index, the cluster is fetched again afterwards
func (r *Registry) CreateIndex(label, index string, settings search.CreateIndexSettings) (*execution.Execution[*xhttp.Response], error) {
	return r.indexOperation(label, true, func(client *esclient.Client) *execution.Execution[*xhttp.Response] {
		return client.PrepareCreateIndex(index, settings)
	})
}

// DeleteIndex returns an execution deleting index, the cluster is fetched again afterwards
func (r *Registry) DeleteIndex(label, index string) (*execution.Execution[*xhttp.Response], error) {
	return r.indexOperation(label, true, func(client *esclient.Client) *execution.Execution[*xhttp.Response] {
		return client.PrepareDeleteIndex(index)
	})
}

// OpenIndex returns an execution opening index, the cluster is fetched again afterwards
func (r *Registry) OpenIndex(label, index string) (*execution.Execution[*xhttp.Response], error) {
	return r.indexOperation(label, true, func(client *esclient.Client) *execution.Execution[*xhttp.Response] {
		return client.PrepareOpenIndex(index)
	})
}

// CloseIndex returns an execution closing index, the cluster is fetched again afterwards
func (r *Registry) CloseIndex(label, index string) (*execution.Execution[*xhttp.Response], error) {
	return r.indexOperation(label, true, func(client *esclient.Client) *execution.Execution[*xhttp.Response] {
		return client.PrepareCloseIndex(index)
	})
}

// RefreshIndex returns an execution refreshing index
func (r *Registry) RefreshIndex(label, index string) (*execution.Execution[*xhttp.Response], error) {
	return r.indexOperation(label, false, func(client *esclient.Client) *execution.Execution[*xhttp.Response] {
		return client.PrepareRefreshIndex(index)
	})
}

// FlushIndex returns an execution flushing index
func (r *Registry) FlushIndex(label, index string) (*execution.Execution[*xhttp.Response], error) {
	return r.indexOperation(label, false, func(client *esclient.Client) *execution.Execution[*xhttp.Response] {
		return client.PrepareFlushIndex(index)
	})
}

// ForceMergeIndex returns an execution force merging index
func (r *Registry) ForceMergeIndex(label, index string, opts esclient.ForceMergeOptions) (*execution.Execution[*xhttp.Response], error) {
	return r.indexOperation(label, false, func(client *esclient.Client) *execution.Execution[*xhttp.Response] {
		return client.PrepareForceMerge(index, opts)
	})
}

// CreateAlias returns an execution adding alias to index
func (r *Registry) CreateAlias(label, index, alias string) (*execution.Execution[*xhttp.Response], error) {
	return r.indexOperation(label, false, func(client *esclient.Client) *execution.Execution[*xhttp.Response] {
		return client.PrepareCreateAlias(index, alias)
	})
}

// ExecuteRequest returns an execution of an arbitrary request, non-2xx responses are not errors
func (r *Registry) ExecuteRequest(label string, req xhttp.Request) (*execution.Execution[*xhttp.Response], error) {
	client, err := r.Client(label)
	if err != nil {
		return nil, err
	}
	return client.PrepareExecute(req, false), nil
}

// indexOperation prepares an operation on the client of label.
// When refetch is set the cluster is fetched once the operation ended, unless it was aborted.
func (r *Registry) indexOperation(
	label string,
	refetch bool,
	prepare func(client *esclient.Client) *execution.Execution[*xhttp.Response],
) (*execution.Execution[*xhttp.Response], error) {
	client, err := r.Client(label)
	if err != nil {
		return nil, err
	}

	operation := prepare(client)
	if !refetch {
		return operation, nil
	}
	return operation.OnFinally(func(result execution.Result[*xhttp.Response]) {
		if result.IsAborted() {
			return
		}
		fetch, err := r.FetchCluster(label)
		if err != nil {
			r.log.WithError(err).WithField("cluster", label).Debug("cluster is gone, skipping fetch")
			return
		}
		fetch.Execute(context.Background())
	}), nil
}
