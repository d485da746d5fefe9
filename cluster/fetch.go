package cluster

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bdpiprava/esquery/config"
	"github.com/bdpiprava/esquery/esclient"
	"github.com/bdpiprava/esquery/execution"
	"github.com/bdpiprava/esquery/metrics"
	"github.com/bdpiprava/esquery/search"
)

// FetchCluster returns an execution loading the stats and the indices of the cluster concurrently.
// Running it marks the cluster Loading, a success merges the indices and marks it Loaded,
// a failure drops the indices and marks it NotLoaded. An abort restores the previous status.
// ClusterChanged fires when the run starts and when it ends, whatever the outcome.
func (r *Registry) FetchCluster(label string) (*execution.Execution[*Cluster], error) {
	return r.prepareFetch(label, true)
}

// FetchAllClusters fetches every configured cluster concurrently and waits for all of them
func (r *Registry) FetchAllClusters(ctx context.Context) []execution.Result[*Cluster] {
	labels := make([]string, 0)
	for _, cfg := range r.store.List() {
		labels = append(labels, cfg.Label)
	}
	return r.fetchClusters(ctx, labels, true)
}

// FetchClusters fetches the clusters with the given labels concurrently, unknown labels are skipped
func (r *Registry) FetchClusters(ctx context.Context, labels ...string) []execution.Result[*Cluster] {
	return r.fetchClusters(ctx, labels, true)
}

func (r *Registry) fetchClusters(ctx context.Context, labels []string, notify bool) []execution.Result[*Cluster] {
	futures := make([]*execution.Future[*Cluster], 0, len(labels))
	for _, label := range labels {
		fetch, err := r.prepareFetch(label, notify)
		if err != nil {
			r.log.WithError(err).WithField("cluster", label).Debug("skipping cluster")
			continue
		}
		futures = append(futures, fetch.ExecuteAsync(ctx))
	}

	results := make([]execution.Result[*Cluster], 0, len(futures))
	for _, future := range futures {
		results = append(results, future.Wait())
	}
	return results
}

func (r *Registry) prepareFetch(label string, notify bool) (*execution.Execution[*Cluster], error) {
	cluster, ok := r.Cluster(label)
	if !ok {
		return nil, errors.Wrapf(ErrClusterNotFound, "cluster %s", label)
	}
	client, err := r.Client(label)
	if err != nil {
		return nil, err
	}

	log := r.log.WithField("cluster", label)
	load := execution.Join(client.PrepareGetClusterStats(), client.PrepareGetIndices(""))
	work := func(ctx context.Context) (*Cluster, error) {
		cluster.fetchMu.Lock()
		defer cluster.fetchMu.Unlock()

		log.Debug("fetching cluster")
		previous := cluster.markLoading()
		if notify {
			r.notify(func(l Listener) { l.ClusterChanged(cluster) })
		}

		result := load.Execute(ctx)
		if result.IsAborted() || ctx.Err() != nil {
			cluster.restoreStatus(previous)
			return nil, execution.ErrAborted
		}
		if result.Err != nil {
			cluster.markFailed()
			log.WithError(result.Err).Debug("failed to fetch cluster")
			return nil, errors.Wrapf(result.Err, "failed to fetch cluster %s", label)
		}

		cluster.merge(result.Value.First, result.Value.Second)
		log.WithField("indices", len(result.Value.Second)).Debug("cluster loaded")
		return cluster, nil
	}

	fetch := execution.New(work,
		execution.WithAbort(load.Abort),
		execution.WithPool(r.options.Pool),
		execution.WithLogger(log),
	)
	fetch.OnFinally(func(result execution.Result[*Cluster]) {
		r.options.Metrics.ObserveFetch(fetchOutcome(result.Status))
		if notify {
			r.notify(func(l Listener) { l.ClusterChanged(cluster) })
		}
	})
	return fetch, nil
}

// ClusterInfo returns an execution building the info table of the cluster
func (r *Registry) ClusterInfo(label string) (*execution.Execution[[]search.TableEntry], error) {
	client, err := r.Client(label)
	if err != nil {
		return nil, err
	}
	return execution.Map(client.PrepareGetClusterStats(), func(stats search.ClusterStats) ([]search.TableEntry, error) {
		return search.ClusterInfo(stats), nil
	}), nil
}

// IndexInfo returns an execution building the info table of one index
func (r *Registry) IndexInfo(label, index string) (*execution.Execution[[]search.TableEntry], error) {
	client, err := r.Client(label)
	if err != nil {
		return nil, err
	}
	joined := execution.Join(client.PrepareGetIndex(index), client.PrepareGetIndexInfo(index))
	return execution.Map(joined, func(pair execution.Pair[search.Index, search.IndexInfo]) ([]search.TableEntry, error) {
		return search.IndexInfoEntries(pair.First, pair.Second), nil
	}), nil
}

// TestConnection returns an execution calling the cluster described by cfg with a throw-away client
func (r *Registry) TestConnection(cfg config.ClusterConfiguration) *execution.Execution[search.ServerInfo] {
	log := r.log.WithField("cluster", cfg.Label)
	return execution.New(func(ctx context.Context) (search.ServerInfo, error) {
		if err := cfg.Validate(); err != nil {
			return search.ServerInfo{}, err
		}

		client := esclient.New(cfg, r.clientOptions()...)
		defer client.Close()

		log.Debug("testing connection")
		return client.PrepareTestConnection().Execute(ctx).Get()
	}, execution.WithPool(r.options.Pool), execution.WithLogger(log))
}

func fetchOutcome(status execution.Status) string {
	switch status {
	case execution.Succeeded:
		return metrics.OutcomeLoaded
	case execution.Aborted:
		return metrics.OutcomeAborted
	default:
		return metrics.OutcomeFailed
	}
}
