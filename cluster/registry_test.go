package cluster_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/bdpiprava/esquery/cluster"
	"github.com/bdpiprava/esquery/config"
	"github.com/bdpiprava/esquery/execution"
	"github.com/bdpiprava/esquery/internal/estest"
	"github.com/bdpiprava/esquery/metrics"
	"github.com/bdpiprava/esquery/search"
)

type event struct {
	name   string
	label  string
	status cluster.Status
}

type recordingListener struct {
	mu     sync.Mutex
	events []event
}

func (l *recordingListener) record(name string, c *cluster.Cluster) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := event{name: name}
	if c != nil {
		e.label = c.Label()
		e.status = c.Status()
	}
	l.events = append(l.events, e)
}

func (l *recordingListener) ClusterAdded(c *cluster.Cluster)   { l.record("added", c) }
func (l *recordingListener) ClusterChanged(c *cluster.Cluster) { l.record("changed", c) }
func (l *recordingListener) ClusterRemoved(c *cluster.Cluster) { l.record("removed", c) }
func (l *recordingListener) ClustersLoaded()                   { l.record("loaded", nil) }

func (l *recordingListener) recorded() []event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]event(nil), l.events...)
}

func (l *recordingListener) count(name string) int {
	count := 0
	for _, e := range l.recorded() {
		if e.name == name {
			count++
		}
	}
	return count
}

type RegistryTestSuite struct {
	suite.Suite
	server   *estest.Server
	store    *config.MemoryStore
	registry *cluster.Registry
	listener *recordingListener
	metrics  *prometheus.Registry
}

func TestRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (s *RegistryTestSuite) SetupTest() {
	s.server = estest.NewServer(s.T())
	s.store = config.NewMemoryStore()
	s.Require().NoError(s.store.Put(config.ClusterConfiguration{Label: "local", URL: s.server.URL}))

	s.metrics = prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(s.metrics)
	s.Require().NoError(err)

	s.registry = cluster.NewRegistry(s.store, cluster.WithMetrics(recorder))
	s.listener = &recordingListener{}
	s.registry.AddListener(s.listener)
}

func (s *RegistryTestSuite) TearDownTest() {
	s.registry.Close()
}

func (s *RegistryTestSuite) fetch(label string) execution.Result[*cluster.Cluster] {
	fetch, err := s.registry.FetchCluster(label)
	s.Require().NoError(err)
	return fetch.Execute(context.Background())
}

func (s *RegistryTestSuite) TestNewRegistryStartsNotLoaded() {
	clusters := s.registry.Clusters()

	s.Require().Len(clusters, 1)
	s.Equal("local", clusters[0].Label())
	s.Equal(cluster.NotLoaded, clusters[0].Status())
	s.Equal(s.server.URL, clusters[0].Host())
}

func (s *RegistryTestSuite) TestFetchEmptyGreenCluster() {
	// given
	s.server.Stub(estest.ClusterStats("docker-cluster", "green"), estest.CatIndices())

	// when
	result := s.fetch("local")

	// then
	s.Require().NoError(result.Err)
	snapshot := result.Value.Snapshot()
	s.Equal(cluster.Loaded, snapshot.Status)
	s.Equal(search.Green, snapshot.Health)
	s.Equal("docker-cluster", snapshot.Name)
	s.Empty(snapshot.Indices)
	s.Equal([]event{
		{name: "changed", label: "local", status: cluster.Loading},
		{name: "changed", label: "local", status: cluster.Loaded},
	}, s.listener.recorded())

	s.Equal(float64(1), s.fetchCount(metrics.OutcomeLoaded))
	requests, err := testutil.GatherAndCount(s.metrics, "esquery_http_requests_total")
	s.Require().NoError(err)
	s.Equal(1, requests)
}

func (s *RegistryTestSuite) TestFetchMergesIndicesByName() {
	// given
	s.server.Stub(
		estest.ClusterStats("docker-cluster", "yellow"),
		estest.CatIndices(
			estest.CatIndex("green", "open", "books", 1),
			estest.CatIndex("green", "open", "archive", 2),
		),
	)
	s.Require().NoError(s.fetch("local").Err)
	c, _ := s.registry.Cluster("local")
	books, ok := c.Index("books")
	s.Require().True(ok)

	// when
	s.server.Reset()
	s.server.Stub(
		estest.ClusterStats("docker-cluster", "green"),
		estest.CatIndices(
			estest.CatIndex("yellow", "open", "books", 5),
			estest.CatIndex("green", "open", "logs", 0),
		),
	)
	s.Require().NoError(s.fetch("local").Err)

	// then
	indices := c.Indices()
	s.Require().Len(indices, 2)
	s.Same(books, indices[0])
	s.Equal("5", books.Documents)
	s.Equal(search.Yellow, books.Health)
	s.Equal("logs", indices[1].Name)
	_, ok = c.Index("archive")
	s.False(ok)
	s.Equal(search.Green, c.Health())
}

func (s *RegistryTestSuite) TestFetchFailureClearsIndices() {
	// given
	s.server.Stub(estest.ClusterStats("docker-cluster", "green"), estest.CatIndices(estest.CatIndex("green", "open", "books", 1)))
	s.Require().NoError(s.fetch("local").Err)

	// when
	s.server.Reset()
	s.server.Stub(
		estest.Failure("GET", "/_cluster/stats", 500, "boom"),
		estest.CatIndices(estest.CatIndex("green", "open", "books", 1)),
	)
	result := s.fetch("local")

	// then
	s.Equal(execution.Failed, result.Status)
	s.ErrorContains(result.Err, "failed to fetch cluster local")
	c, _ := s.registry.Cluster("local")
	s.Equal(cluster.NotLoaded, c.Status())
	s.Empty(c.Indices())
	s.Equal(4, s.listener.count("changed"))
	s.Equal(float64(1), s.fetchCount(metrics.OutcomeFailed))
}

func (s *RegistryTestSuite) TestAbortFetch() {
	// given
	s.server.Stub(
		estest.Stub{
			Request:  estest.Request{Method: "GET", Path: "/_cluster/stats"},
			Response: estest.Response{Body: "{}", Delay: time.Minute},
		},
		estest.CatIndices(),
	)
	fetch, err := s.registry.FetchCluster("local")
	s.Require().NoError(err)
	succeeded := false
	fetch.OnSuccess(func(*cluster.Cluster) { succeeded = true })

	// when
	future := fetch.ExecuteAsync(context.Background())
	s.Eventually(func() bool { return len(s.server.CallsTo("GET", "/_cluster/stats")) == 1 }, 5*time.Second, 10*time.Millisecond)
	fetch.Abort()
	result := future.Wait()

	// then
	s.Equal(execution.Aborted, result.Status)
	s.False(succeeded)
	c, _ := s.registry.Cluster("local")
	s.Equal(cluster.NotLoaded, c.Status())
	s.Equal(2, s.listener.count("changed"))
	s.Equal(float64(1), s.fetchCount(metrics.OutcomeAborted))
}

func (s *RegistryTestSuite) TestFetchUnknownCluster() {
	_, err := s.registry.FetchCluster("unknown")

	s.ErrorIs(err, cluster.ErrClusterNotFound)
}

func (s *RegistryTestSuite) TestAddChangeRemoveCluster() {
	other := estest.NewServer(s.T(), estest.ClusterStats("other-cluster", "red"), estest.CatIndices())
	s.server.Stub(estest.ClusterStats("docker-cluster", "green"), estest.CatIndices())

	s.Run("should add and fetch", func() {
		fetch, err := s.registry.AddCluster(config.ClusterConfiguration{Label: "other", URL: other.URL})
		s.Require().NoError(err)
		result := fetch.Execute(context.Background())

		s.Require().NoError(result.Err)
		s.Equal(search.Red, result.Value.Health())
		s.Equal(1, s.listener.count("added"))
		s.Len(s.registry.Clusters(), 2)
	})

	s.Run("should reject duplicate label", func() {
		_, err := s.registry.AddCluster(config.ClusterConfiguration{Label: "other", URL: other.URL})

		s.ErrorIs(err, config.ErrInvalidConfiguration)
	})

	s.Run("should replace client when configuration changes", func() {
		before, err := s.registry.Client("other")
		s.Require().NoError(err)

		fetch, err := s.registry.ChangeCluster("other", config.ClusterConfiguration{Label: "other", URL: s.server.URL})
		s.Require().NoError(err)
		result := fetch.Execute(context.Background())

		s.Require().NoError(result.Err)
		after, err := s.registry.Client("other")
		s.Require().NoError(err)
		s.NotSame(before, after)
		s.Equal(s.server.URL, after.Config().URL)
		s.Equal("docker-cluster", result.Value.Name())
	})

	s.Run("should keep cluster when renamed onto an existing label", func() {
		_, err := s.registry.ChangeCluster("other", config.ClusterConfiguration{Label: "local", URL: other.URL})

		s.ErrorIs(err, config.ErrInvalidConfiguration)
		_, ok := s.registry.Cluster("other")
		s.True(ok)
		stored, ok := s.store.Get("other")
		s.Require().True(ok)
		s.Equal(s.server.URL, stored.URL)
		local, ok := s.store.Get("local")
		s.Require().True(ok)
		s.Equal(s.server.URL, local.URL)
		s.Equal(0, s.listener.count("removed"))
	})

	s.Run("should remove then add when label changes", func() {
		fetch, err := s.registry.ChangeCluster("other", config.ClusterConfiguration{Label: "renamed", URL: other.URL})
		s.Require().NoError(err)
		s.Require().NoError(fetch.Execute(context.Background()).Err)

		_, ok := s.registry.Cluster("other")
		s.False(ok)
		_, ok = s.store.Get("other")
		s.False(ok)
		renamed, ok := s.registry.Cluster("renamed")
		s.Require().True(ok)
		s.Equal(cluster.Loaded, renamed.Status())
		s.Equal(1, s.listener.count("removed"))
	})

	s.Run("should remove", func() {
		s.Require().NoError(s.registry.RemoveCluster("renamed"))

		s.Len(s.registry.Clusters(), 1)
		s.ErrorIs(s.registry.RemoveCluster("renamed"), cluster.ErrClusterNotFound)
		_, err := s.registry.Client("renamed")
		s.ErrorIs(err, cluster.ErrClusterNotFound)
	})
}

func (s *RegistryTestSuite) TestFetchAllClusters() {
	other := estest.NewServer(s.T(), estest.Failure("GET", "/_cluster/stats", 503, "unavailable"), estest.CatIndices())
	s.Require().NoError(s.store.Put(config.ClusterConfiguration{Label: "other", URL: other.URL}))
	s.registry.Close()
	s.registry = cluster.NewRegistry(s.store)
	s.server.Stub(estest.ClusterStats("docker-cluster", "green"), estest.CatIndices())

	results := s.registry.FetchAllClusters(context.Background())

	s.Require().Len(results, 2)
	local, _ := s.registry.Cluster("local")
	failed, _ := s.registry.Cluster("other")
	s.Equal(cluster.Loaded, local.Status())
	s.Equal(cluster.NotLoaded, failed.Status())

	s.Len(s.registry.FetchClusters(context.Background(), "local", "missing"), 1)
}

func (s *RegistryTestSuite) TestIndexOperations() {
	s.server.Stub(
		estest.ClusterStats("docker-cluster", "green"),
		estest.CatIndices(estest.CatIndex("green", "open", "books", 1)),
		estest.OK("PUT", "/books", `{"acknowledged": true}`),
		estest.OK("POST", "/books/_refresh", `{"_shards": {}}`),
	)

	s.Run("should fetch cluster after create", func() {
		create, err := s.registry.CreateIndex("local", "books", search.CreateIndexSettings{NumberOfShards: 1})
		s.Require().NoError(err)

		result := create.Execute(context.Background())

		s.Require().NoError(result.Err)
		c, _ := s.registry.Cluster("local")
		s.Equal(cluster.Loaded, c.Status())
		s.Len(s.server.CallsTo("GET", "/_cat/indices"), 1)
	})

	s.Run("should not fetch cluster after refresh", func() {
		refresh, err := s.registry.RefreshIndex("local", "books")
		s.Require().NoError(err)

		s.Require().NoError(refresh.Execute(context.Background()).Err)
		s.Len(s.server.CallsTo("GET", "/_cat/indices"), 1)
	})

	s.Run("should fetch cluster after failed delete", func() {
		remove, err := s.registry.DeleteIndex("local", "missing")
		s.Require().NoError(err)

		s.Error(remove.Execute(context.Background()).Err)
		s.Len(s.server.CallsTo("GET", "/_cat/indices"), 2)
	})

	s.Run("should fail for unknown cluster", func() {
		_, err := s.registry.CloseIndex("unknown", "books")

		s.ErrorIs(err, cluster.ErrClusterNotFound)
	})
}

func (s *RegistryTestSuite) TestClusterAndIndexInfo() {
	s.server.Stub(
		estest.ClusterStats("docker-cluster", "green"),
		estest.OK("GET", "/_cat/indices/books", estest.CatIndicesHeader+"\n"+estest.CatIndex("green", "open", "books", 3)),
		estest.OK("GET", "/books", `{"books": {"aliases": {"library": {}}, "mappings": {}, "settings": {"index": {"creation_date": "0"}}}}`),
	)

	s.Run("cluster info", func() {
		info, err := s.registry.ClusterInfo("local")
		s.Require().NoError(err)

		entries, err := info.Execute(context.Background()).Get()

		s.Require().NoError(err)
		s.Equal(search.TableEntry{Name: "name", Value: "docker-cluster"}, entries[0])
	})

	s.Run("index info", func() {
		info, err := s.registry.IndexInfo("local", "books")
		s.Require().NoError(err)

		entries, err := info.Execute(context.Background()).Get()

		s.Require().NoError(err)
		s.Contains(entries, search.TableEntry{Name: "aliases", Value: "library"})
		s.Contains(entries, search.TableEntry{Name: "documents", Value: "3"})
	})
}

func (s *RegistryTestSuite) TestTestConnection() {
	s.server.Stub(estest.Root("7.17.10"))

	s.Run("should reach the node", func() {
		info, err := s.registry.TestConnection(config.ClusterConfiguration{Label: "probe", URL: s.server.URL}).
			Execute(context.Background()).Get()

		s.Require().NoError(err)
		s.Equal("7.17.10", info.Version)
		_, ok := s.registry.Cluster("probe")
		s.False(ok)
	})

	s.Run("should reject invalid configuration", func() {
		_, err := s.registry.TestConnection(config.ClusterConfiguration{Label: "probe", URL: "localhost"}).
			Execute(context.Background()).Get()

		s.ErrorIs(err, config.ErrInvalidConfiguration)
	})
}

func (s *RegistryTestSuite) TestScheduleAutoRefresh() {
	s.server.Stub(estest.ClusterStats("docker-cluster", "green"), estest.CatIndices())

	s.registry.ScheduleAutoRefresh(10 * time.Millisecond)
	s.Equal(10*time.Millisecond, s.registry.AutoRefreshInterval())

	s.Eventually(func() bool { return s.listener.count("loaded") >= 2 }, 5*time.Second, 10*time.Millisecond)
	s.Zero(s.listener.count("changed"))

	s.registry.ScheduleAutoRefresh(0)
	loaded := s.listener.count("loaded")
	time.Sleep(50 * time.Millisecond)
	s.Equal(loaded, s.listener.count("loaded"))
	s.Zero(s.registry.AutoRefreshInterval())
}

func (s *RegistryTestSuite) TestRemoveListener() {
	listener := &recordingListener{}
	remove := s.registry.AddListener(listener)
	remove()

	s.Require().NoError(s.registry.RemoveCluster("local"))

	s.Empty(listener.recorded())
	s.Equal(1, s.listener.count("removed"))
}

func (s *RegistryTestSuite) TestListenerFuncs() {
	added := make([]string, 0)
	remove := s.registry.AddListener(cluster.ListenerFuncs{
		OnAdded: func(c *cluster.Cluster) { added = append(added, c.Label()) },
	})
	defer remove()

	_, err := s.registry.AddCluster(config.ClusterConfiguration{Label: "other", URL: "http://localhost:9201"})
	s.Require().NoError(err)
	s.Require().NoError(s.registry.RemoveCluster("other"))

	s.Equal([]string{"other"}, added)
}

func (s *RegistryTestSuite) fetchCount(outcome string) float64 {
	families, err := s.metrics.Gather()
	s.Require().NoError(err)
	for _, family := range families {
		if family.GetName() != "esquery_cluster_fetch_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestAutoRefreshOptions(t *testing.T) {
	options := cluster.AutoRefreshOptions()

	require.Len(t, options, 5)
	assert.Equal(t, cluster.AutoRefresh{Interval: 0, Description: "Disable auto-refresh"}, options[0])
	assert.Equal(t, "Auto-refresh every 1 second", options[1].Description)
	assert.Equal(t, cluster.AutoRefresh{Interval: time.Minute, Description: "Auto-refresh every 60 seconds"}, options[4])
}

func TestFromConfig(t *testing.T) {
	t.Run("should load clusters and schedule auto refresh", func(t *testing.T) {
		registry, err := cluster.FromConfig(config.Config{
			AutoRefresh: 30 * time.Second,
			Clusters: []config.ClusterConfiguration{
				{Label: "local", URL: "http://localhost:9200"},
				{Label: "staging", URL: "http://staging:9200"},
			},
		})
		require.NoError(t, err)
		defer registry.Close()

		labels := make([]string, 0)
		for _, c := range registry.Clusters() {
			labels = append(labels, c.Label())
		}
		assert.Equal(t, []string{"local", "staging"}, labels)
		assert.Equal(t, 30*time.Second, registry.AutoRefreshInterval())
	})

	t.Run("should fail on invalid cluster", func(t *testing.T) {
		_, err := cluster.FromConfig(config.Config{
			Clusters: []config.ClusterConfiguration{{URL: "http://localhost:9200"}},
		})

		assert.ErrorIs(t, err, config.ErrInvalidConfiguration)
	})
}
