package esclient

import (
	"context"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/sirupsen/logrus"

	"github.com/bdpiprava/esquery/xhttp"
)

// openSearch runs index management through opensearchapi requests
type openSearch struct {
	transport opensearchapi.Transport
	log       logrus.FieldLogger
}

func (s *openSearch) create(ctx context.Context, index string, body string) (*xhttp.Response, error) {
	req := opensearchapi.IndicesCreateRequest{
		Index: index,
		Body:  bodyReader(body),
	}
	return s.do(ctx, req, "create index")
}

func (s *openSearch) delete(ctx context.Context, index string) (*xhttp.Response, error) {
	req := opensearchapi.IndicesDeleteRequest{Index: []string{index}}
	return s.do(ctx, req, "delete index")
}

func (s *openSearch) open(ctx context.Context, index string) (*xhttp.Response, error) {
	req := opensearchapi.IndicesOpenRequest{Index: []string{index}}
	return s.do(ctx, req, "open index")
}

func (s *openSearch) close(ctx context.Context, index string) (*xhttp.Response, error) {
	req := opensearchapi.IndicesCloseRequest{Index: []string{index}}
	return s.do(ctx, req, "close index")
}

func (s *openSearch) refresh(ctx context.Context, index string) (*xhttp.Response, error) {
	req := opensearchapi.IndicesRefreshRequest{Index: []string{index}}
	return s.do(ctx, req, "refresh index")
}

func (s *openSearch) flush(ctx context.Context, index string) (*xhttp.Response, error) {
	req := opensearchapi.IndicesFlushRequest{Index: []string{index}}
	return s.do(ctx, req, "flush index")
}

func (s *openSearch) forceMerge(ctx context.Context, index string, opts ForceMergeOptions) (*xhttp.Response, error) {
	req := opensearchapi.IndicesForcemergeRequest{
		Index:              []string{index},
		OnlyExpungeDeletes: boolPtr(opts.OnlyExpungeDeletes),
		Flush:              boolPtr(opts.Flush),
	}
	if opts.MaxNumSegments > 0 {
		maxNumSegments := opts.MaxNumSegments
		req.MaxNumSegments = &maxNumSegments
	}
	return s.do(ctx, req, "force merge")
}

func (s *openSearch) putAlias(ctx context.Context, index, alias string) (*xhttp.Response, error) {
	req := opensearchapi.IndicesPutAliasRequest{
		Index: []string{index},
		Name:  alias,
	}
	return s.do(ctx, req, "put alias")
}

func (s *openSearch) do(ctx context.Context, req opensearchapi.Request, action string) (*xhttp.Response, error) {
	s.log.WithField("action", action).Debug("executing opensearch request")
	resp, err := req.Do(ctx, s.transport)
	if err != nil {
		return readAPIResponse(0, nil, err, action)
	}
	return readAPIResponse(resp.StatusCode, resp.Body, nil, action)
}
