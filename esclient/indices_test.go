package esclient_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/bdpiprava/esquery/config"
	"github.com/bdpiprava/esquery/esclient"
	"github.com/bdpiprava/esquery/internal/estest"
	"github.com/bdpiprava/esquery/search"
	"github.com/bdpiprava/esquery/xhttp"
)

type IndicesTestSuite struct {
	suite.Suite
	flavor config.Flavor
	server *estest.Server
	client *esclient.Client
}

func TestElasticsearchIndicesTestSuite(t *testing.T) {
	suite.Run(t, &IndicesTestSuite{flavor: config.Elasticsearch})
}

func TestOpenSearchIndicesTestSuite(t *testing.T) {
	suite.Run(t, &IndicesTestSuite{flavor: config.OpenSearch})
}

func (s *IndicesTestSuite) SetupTest() {
	s.server = estest.NewServer(s.T())
	s.client = esclient.New(config.ClusterConfiguration{
		Label:  "local",
		URL:    s.server.URL,
		Flavor: s.flavor,
	})
}

func (s *IndicesTestSuite) TearDownTest() {
	s.client.Close()
}

func (s *IndicesTestSuite) TestCreateIndex() {
	s.Run("should send settings", func() {
		s.server.Reset()
		s.server.Stub(estest.OK("PUT", "/books", `{"acknowledged": true, "index": "books"}`))
		replicas := 0

		resp, err := s.client.PrepareCreateIndex("books", search.CreateIndexSettings{
			NumberOfShards:   2,
			NumberOfReplicas: &replicas,
		}).Execute(context.Background()).Get()

		s.Require().NoError(err)
		s.Contains(resp.Content, "acknowledged")
		calls := s.server.CallsTo("PUT", "/books")
		s.Require().Len(calls, 1)
		s.JSONEq(`{"settings": {"index": {"number_of_shards": 2, "number_of_replicas": 0}}}`, calls[0].Body)
	})

	s.Run("should fail when index exists", func() {
		s.server.Reset()
		s.server.Stub(estest.Failure("PUT", "/books", 400, "resource_already_exists_exception"))

		_, err := s.client.PrepareCreateIndex("books", search.CreateIndexSettings{}).Execute(context.Background()).Get()

		var esErr *xhttp.ElasticsearchError
		s.Require().ErrorAs(err, &esErr)
		s.Equal(400, esErr.StatusCode)
		s.Contains(esErr.Body, "resource_already_exists_exception")
	})

	s.Run("should require an index name", func() {
		s.server.Reset()

		_, err := s.client.PrepareCreateIndex("", search.CreateIndexSettings{}).Execute(context.Background()).Get()

		s.ErrorContains(err, "index name is required")
		s.Empty(s.server.Calls())
	})
}

func (s *IndicesTestSuite) TestIndexOperations() {
	testCases := []struct {
		name    string
		method  string
		path    string
		execute func() error
	}{
		{
			name:   "delete",
			method: "DELETE",
			path:   "/books",
			execute: func() error {
				return s.client.PrepareDeleteIndex("books").Execute(context.Background()).Err
			},
		},
		{
			name:   "open",
			method: "POST",
			path:   "/books/_open",
			execute: func() error {
				return s.client.PrepareOpenIndex("books").Execute(context.Background()).Err
			},
		},
		{
			name:   "close",
			method: "POST",
			path:   "/books/_close",
			execute: func() error {
				return s.client.PrepareCloseIndex("books").Execute(context.Background()).Err
			},
		},
		{
			name:   "refresh",
			method: "POST",
			path:   "/books/_refresh",
			execute: func() error {
				return s.client.PrepareRefreshIndex("books").Execute(context.Background()).Err
			},
		},
		{
			name:   "flush",
			method: "POST",
			path:   "/books/_flush",
			execute: func() error {
				return s.client.PrepareFlushIndex("books").Execute(context.Background()).Err
			},
		},
		{
			name:   "alias",
			method: "PUT",
			path:   "/books/_alias/library",
			execute: func() error {
				return s.client.PrepareCreateAlias("books", "library").Execute(context.Background()).Err
			},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.server.Reset()
			s.server.Stub(estest.OK(tc.method, tc.path, `{"acknowledged": true}`))

			err := tc.execute()

			s.Require().NoError(err)
			s.Len(s.server.CallsTo(tc.method, tc.path), 1)
		})
	}
}

func (s *IndicesTestSuite) TestForceMerge() {
	s.server.Stub(estest.OK("POST", "/books/_forcemerge", `{"_shards": {"total": 2, "successful": 1, "failed": 0}}`))

	err := s.client.PrepareForceMerge("books", esclient.ForceMergeOptions{
		MaxNumSegments:     3,
		OnlyExpungeDeletes: true,
		Flush:              false,
	}).Execute(context.Background()).Err

	s.Require().NoError(err)
	calls := s.server.CallsTo("POST", "/books/_forcemerge")
	s.Require().Len(calls, 1)
	query, err := url.ParseQuery(calls[0].RawQuery)
	s.Require().NoError(err)
	s.Equal("3", query.Get("max_num_segments"))
	s.Equal("true", query.Get("only_expunge_deletes"))
	s.Equal("false", query.Get("flush"))
}

func (s *IndicesTestSuite) TestCreateAliasRequiresName() {
	err := s.client.PrepareCreateAlias("books", "").Execute(context.Background()).Err

	s.ErrorContains(err, "alias name is required")
	s.Empty(s.server.Calls())
}

func (s *IndicesTestSuite) TestDefaultForceMergeOptions() {
	s.Equal(esclient.ForceMergeOptions{MaxNumSegments: 1, Flush: true}, esclient.DefaultForceMergeOptions())
}
