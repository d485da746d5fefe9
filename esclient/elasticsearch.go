package esclient

import (
	"context"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/sirupsen/logrus"

	"github.com/bdpiprava/esquery/xhttp"
)

// elasticSearch runs index management through esapi requests
type elasticSearch struct {
	transport esapi.Transport
	log       logrus.FieldLogger
}

func (s *elasticSearch) create(ctx context.Context, index string, body string) (*xhttp.Response, error) {
	req := esapi.IndicesCreateRequest{
		Index: index,
		Body:  bodyReader(body),
	}
	return s.do(ctx, req, "create index")
}

func (s *elasticSearch) delete(ctx context.Context, index string) (*xhttp.Response, error) {
	req := esapi.IndicesDeleteRequest{Index: []string{index}}
	return s.do(ctx, req, "delete index")
}

func (s *elasticSearch) open(ctx context.Context, index string) (*xhttp.Response, error) {
	req := esapi.IndicesOpenRequest{Index: []string{index}}
	return s.do(ctx, req, "open index")
}

func (s *elasticSearch) close(ctx context.Context, index string) (*xhttp.Response, error) {
	req := esapi.IndicesCloseRequest{Index: []string{index}}
	return s.do(ctx, req, "close index")
}

func (s *elasticSearch) refresh(ctx context.Context, index string) (*xhttp.Response, error) {
	req := esapi.IndicesRefreshRequest{Index: []string{index}}
	return s.do(ctx, req, "refresh index")
}

func (s *elasticSearch) flush(ctx context.Context, index string) (*xhttp.Response, error) {
	req := esapi.IndicesFlushRequest{Index: []string{index}}
	return s.do(ctx, req, "flush index")
}

func (s *elasticSearch) forceMerge(ctx context.Context, index string, opts ForceMergeOptions) (*xhttp.Response, error) {
	req := esapi.IndicesForcemergeRequest{
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

func (s *elasticSearch) putAlias(ctx context.Context, index, alias string) (*xhttp.Response, error) {
	req := esapi.IndicesPutAliasRequest{
		Index: []string{index},
		Name:  alias,
	}
	return s.do(ctx, req, "put alias")
}

func (s *elasticSearch) do(ctx context.Context, req esapi.Request, action string) (*xhttp.Response, error) {
	s.log.WithField("action", action).Debug("executing elasticsearch request")
	resp, err := req.Do(ctx, s.transport)
	if err != nil {
		return readAPIResponse(0, nil, err, action)
	}
	return readAPIResponse(resp.StatusCode, resp.Body, nil, action)
}

func bodyReader(body string) io.Reader {
	if body == "" {
		return nil
	}
	return strings.NewReader(body)
}
