package cluster

import (
	"slices"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bdpiprava/esquery/config"
	"github.com/bdpiprava/esquery/esclient"
	"github.com/bdpiprava/esquery/execution"
	"github.com/bdpiprava/esquery/logger"
	"github.com/bdpiprava/esquery/metrics"
)

// ErrClusterNotFound is returned for labels without configuration
var ErrClusterNotFound = errors.New("cluster not found")

// Options configure a Registry
type Options struct {
	Logger        logrus.FieldLogger
	Metrics       *metrics.Recorder
	Pool          *execution.Pool
	ClientOptions []esclient.Option
}

// Option is a function that modifies Options
type Option func(*Options)

// WithLogger sets the logger of the registry and its clients
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *Options) {
		o.Logger = log
	}
}

// WithMetrics records requests and fetch outcomes on recorder
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(o *Options) {
		o.Metrics = recorder
	}
}

// WithPool sets the pool fetches are scheduled on
func WithPool(pool *execution.Pool) Option {
	return func(o *Options) {
		o.Pool = pool
	}
}

// WithClientOptions adds options applied to every client the registry creates
func WithClientOptions(opts ...esclient.Option) Option {
	return func(o *Options) {
		o.ClientOptions = append(o.ClientOptions, opts...)
	}
}

type registeredListener struct {
	id       int
	listener Listener
}

// Registry owns the configured clusters, their live state and one client per label
type Registry struct {
	store   config.Store
	options Options
	log     logrus.FieldLogger

	mu       sync.RWMutex
	clusters map[string]*Cluster
	clients  map[string]*esclient.Client

	listenersMu    sync.RWMutex
	listeners      []registeredListener
	nextListenerID int

	refresh autoRefresher
}

// NewRegistry returns a registry holding one NotLoaded cluster per configuration of store
func NewRegistry(store config.Store, opts ...Option) *Registry {
	options := Options{Pool: execution.SharedPool()}
	for _, opt := range opts {
		opt(&options)
	}

	r := &Registry{
		store:    store,
		options:  options,
		log:      logger.OrNew(options.Logger, "cluster"),
		clusters: make(map[string]*Cluster),
		clients:  make(map[string]*esclient.Client),
	}
	for _, cfg := range store.List() {
		r.clusters[cfg.Label] = newCluster(cfg.Label, cfg.Host())
	}
	return r
}

// FromConfig returns a registry over the clusters of cfg with its auto refresh scheduled
func FromConfig(cfg config.Config, opts ...Option) (*Registry, error) {
	store, err := cfg.NewStore()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load clusters")
	}

	r := NewRegistry(store, opts...)
	r.ScheduleAutoRefresh(cfg.AutoRefresh)
	return r, nil
}

// AddListener registers a listener for cluster events, the returned function unregisters it
func (r *Registry) AddListener(listener Listener) (remove func()) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	r.nextListenerID++
	id := r.nextListenerID
	r.listeners = append(r.listeners, registeredListener{id: id, listener: listener})

	return func() {
		r.listenersMu.Lock()
		defer r.listenersMu.Unlock()
		r.listeners = slices.DeleteFunc(r.listeners, func(l registeredListener) bool { return l.id == id })
	}
}

// Clusters returns the clusters in configuration order
func (r *Registry) Clusters() []*Cluster {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clusters := make([]*Cluster, 0, len(r.clusters))
	for _, cfg := range r.store.List() {
		if cluster, ok := r.clusters[cfg.Label]; ok {
			clusters = append(clusters, cluster)
		}
	}
	return clusters
}

// Cluster returns the cluster with the given label
func (r *Registry) Cluster(label string) (*Cluster, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cluster, ok := r.clusters[label]
	return cluster, ok
}

// AddCluster stores the configuration, registers its cluster and returns the execution fetching it
func (r *Registry) AddCluster(cfg config.ClusterConfiguration) (*execution.Execution[*Cluster], error) {
	log := r.log.WithField("cluster", cfg.Label)
	if _, ok := r.store.Get(cfg.Label); ok {
		return nil, errors.Wrapf(config.ErrInvalidConfiguration, "cluster %s already exists", cfg.Label)
	}
	if err := r.store.Put(cfg); err != nil {
		log.WithError(err).Debug("failed to store configuration")
		return nil, err
	}

	stored, _ := r.store.Get(cfg.Label)
	cluster := newCluster(stored.Label, stored.Host())
	r.mu.Lock()
	r.clusters[stored.Label] = cluster
	r.mu.Unlock()

	log.Debug("cluster added")
	r.notify(func(l Listener) { l.ClusterAdded(cluster) })
	return r.FetchCluster(stored.Label)
}

// ChangeCluster replaces the configuration stored under previousLabel.
// A new label is handled as a removal followed by an addition.
func (r *Registry) ChangeCluster(previousLabel string, cfg config.ClusterConfiguration) (*execution.Execution[*Cluster], error) {
	previous, ok := r.store.Get(previousLabel)
	if !ok {
		return nil, errors.Wrapf(ErrClusterNotFound, "cluster %s", previousLabel)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Label != previousLabel {
		if _, exists := r.store.Get(cfg.Label); exists {
			return nil, errors.Wrapf(config.ErrInvalidConfiguration, "cluster %s already exists", cfg.Label)
		}
		if err := r.RemoveCluster(previousLabel); err != nil {
			return nil, err
		}
		return r.AddCluster(cfg)
	}

	if cfg.ID == "" {
		cfg.ID = previous.ID
	}
	if err := r.store.Put(cfg); err != nil {
		return nil, err
	}
	stored, _ := r.store.Get(cfg.Label)

	r.mu.Lock()
	cluster, ok := r.clusters[cfg.Label]
	if !ok {
		cluster = newCluster(stored.Label, stored.Host())
		r.clusters[cfg.Label] = cluster
	}
	client := r.clients[cfg.Label]
	delete(r.clients, cfg.Label)
	r.mu.Unlock()

	if client != nil {
		client.Close()
	}
	cluster.setHost(stored.Host())

	r.log.WithField("cluster", cfg.Label).Debug("cluster changed")
	r.notify(func(l Listener) { l.ClusterChanged(cluster) })
	return r.FetchCluster(cfg.Label)
}

// RemoveCluster deletes the configuration, the cluster and its client
func (r *Registry) RemoveCluster(label string) error {
	removed := r.store.Remove(label)

	r.mu.Lock()
	cluster, ok := r.clusters[label]
	delete(r.clusters, label)
	client := r.clients[label]
	delete(r.clients, label)
	r.mu.Unlock()

	if client != nil {
		client.Close()
	}
	if !ok && !removed {
		return errors.Wrapf(ErrClusterNotFound, "cluster %s", label)
	}

	r.log.WithField("cluster", label).Debug("cluster removed")
	if ok {
		r.notify(func(l Listener) { l.ClusterRemoved(cluster) })
	}
	return nil
}

// Client returns the client of label, creating it on first use
func (r *Registry) Client(label string) (*esclient.Client, error) {
	r.mu.RLock()
	client, ok := r.clients[label]
	r.mu.RUnlock()
	if ok {
		return client, nil
	}

	cfg, ok := r.store.Get(label)
	if !ok {
		return nil, errors.Wrapf(ErrClusterNotFound, "cluster %s", label)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if client, ok := r.clients[label]; ok {
		return client, nil
	}
	client = esclient.New(cfg, r.clientOptions()...)
	r.clients[label] = client
	return client, nil
}

// Close stops the auto refresh and closes every client
func (r *Registry) Close() {
	r.ScheduleAutoRefresh(0)

	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[string]*esclient.Client)
	r.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}

func (r *Registry) clientOptions() []esclient.Option {
	opts := []esclient.Option{
		esclient.WithLogger(r.log),
		esclient.WithPool(r.options.Pool),
	}
	if r.options.Metrics != nil {
		opts = append(opts, esclient.WithObserver(r.options.Metrics))
	}
	return append(opts, r.options.ClientOptions...)
}

func (r *Registry) notify(event func(Listener)) {
	r.listenersMu.RLock()
	listeners := append([]registeredListener(nil), r.listeners...)
	r.listenersMu.RUnlock()

	for _, registered := range listeners {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.log.WithField("panic", rec).Warn("cluster listener panicked")
				}
			}()
			event(registered.listener)
		}()
	}
}
