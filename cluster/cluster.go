package cluster

import (
	"sync"

	"github.com/bdpiprava/esquery/search"
)

// Status is the load state of a cluster
type Status string

const (
	NotLoaded Status = "NOT_LOADED"
	Loading   Status = "LOADING"
	Loaded    Status = "LOADED"
)

// Index is the live state of one index, entries keep their identity across refreshes
type Index struct {
	Name             string
	Health           search.HealthStatus
	Status           search.IndexStatus
	Primaries        string
	Replicas         string
	Documents        string
	DeletedDocuments string
	Size             string
}

func (i *Index) update(fetched search.Index) {
	i.Health = fetched.Health
	i.Status = fetched.Status
	i.Primaries = fetched.Primaries
	i.Replicas = fetched.Replicas
	i.Documents = fetched.Documents
	i.DeletedDocuments = fetched.DeletedDocuments
	i.Size = fetched.Size
}

// Cluster is the live state of one configured cluster.
// The indices are only trusted when the status is Loaded.
type Cluster struct {
	label string

	// fetchMu serializes fetches of the cluster
	fetchMu sync.Mutex

	mu      sync.RWMutex
	name    string
	host    string
	health  search.HealthStatus
	status  Status
	indices []*Index
}

// Snapshot is a copy of the state of a cluster
type Snapshot struct {
	Label   string
	Name    string
	Host    string
	Health  search.HealthStatus
	Status  Status
	Indices []Index
}

func newCluster(label, host string) *Cluster {
	return &Cluster{label: label, host: host, status: NotLoaded}
}

// Label is the stable key of the cluster
func (c *Cluster) Label() string {
	return c.label
}

// Name returns the cluster name reported by the last successful fetch
func (c *Cluster) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// Host returns the URL of the cluster
func (c *Cluster) Host() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.host
}

// Health returns the health reported by the last successful fetch
func (c *Cluster) Health() search.HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health
}

// Status returns the load state
func (c *Cluster) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// IsLoaded reports whether the last fetch succeeded
func (c *Cluster) IsLoaded() bool {
	return c.Status() == Loaded
}

// IsLoading reports whether a fetch is running
func (c *Cluster) IsLoading() bool {
	return c.Status() == Loading
}

// Indices returns the tracked indices in fetch order.
// The same *Index is returned for a name until the index disappears from the cluster.
// Fields change on every fetch, use Snapshot to read them while fetches may run.
func (c *Cluster) Indices() []*Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Index(nil), c.indices...)
}

// Index returns the tracked index with the given name
func (c *Cluster) Index(name string) (*Index, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, index := range c.indices {
		if index.Name == name {
			return index, true
		}
	}
	return nil, false
}

// Snapshot returns a copy of the cluster state
func (c *Cluster) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	indices := make([]Index, 0, len(c.indices))
	for _, index := range c.indices {
		indices = append(indices, *index)
	}
	return Snapshot{
		Label:   c.label,
		Name:    c.name,
		Host:    c.host,
		Health:  c.health,
		Status:  c.status,
		Indices: indices,
	}
}

func (c *Cluster) setHost(host string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.host = host
}

// markLoading sets the Loading status and returns the previous one
func (c *Cluster) markLoading() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	previous := c.status
	c.status = Loading
	return previous
}

func (c *Cluster) restoreStatus(status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

// markFailed drops the indices and sets NotLoaded
func (c *Cluster) markFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = NotLoaded
	c.indices = nil
}

// merge applies a successful fetch.
// Existing entries are updated in place, new ones appended and missing ones dropped.
func (c *Cluster) merge(stats search.ClusterStats, fetched search.Indices) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.name = stats.ClusterName
	c.health = stats.Status
	c.indices = mergeIndices(c.indices, fetched)
	c.status = Loaded
}

func mergeIndices(current []*Index, fetched search.Indices) []*Index {
	byName := make(map[string]*Index, len(current))
	for _, index := range current {
		byName[index.Name] = index
	}

	merged := make([]*Index, 0, len(fetched))
	for _, f := range fetched {
		index, ok := byName[f.Name]
		if !ok {
			index = &Index{Name: f.Name}
		}
		index.update(f)
		merged = append(merged, index)
	}
	return merged
}
