package query

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/bdpiprava/esquery/xhttp"
)

const (
	searchEndpoint  = "_search"
	countEndpoint   = "_count"
	mappingEndpoint = "_mapping"
)

// ErrUnsupportedMethod is returned when a search request cannot be rewritten for its method
var ErrUnsupportedMethod = errors.New("unsupported method for search request")

// countQueryParams are the query parameters _count accepts from a search
var countQueryParams = []string{
	"allow_no_indices",
	"analyzer",
	"analyze_wildcard",
	"default_operator",
	"df",
	"expand_wildcards",
	"ignore_throttled",
	"ignore_unavailable",
	"lenient",
	"min_score",
	"preference",
	"q",
	"routing",
	"terminate_after",
}

// IsSearchRequest reports whether the path of req targets _search
func IsSearchRequest(req xhttp.Request) bool {
	return strings.Contains(req.PathOnly(), searchEndpoint)
}

// MappingRequest returns the GET _mapping request for the indices a search request targets
func MappingRequest(req xhttp.Request) xhttp.Request {
	path := req.PathOnly()
	if i := strings.Index(path, searchEndpoint); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/") + "/" + mappingEndpoint
	return xhttp.NewRequest(xhttp.GET, path, xhttp.WithHost(req.Host))
}

// PagedRequest returns req with from and size applied.
// GET requests carry them as query parameters, POST requests in the body with the query parameters removed.
// A negative value removes the parameter. All other parameters and body fields are kept.
func PagedRequest(req xhttp.Request, from, size int64) (xhttp.Request, error) {
	switch req.Method {
	case xhttp.GET:
		req = withQueryValue(req, "from", from)
		return withQueryValue(req, "size", size), nil
	case xhttp.POST:
		body, err := bodyObject(req.Body)
		if err != nil {
			return xhttp.Request{}, err
		}
		if body, err = withBodyValue(body, "from", from); err != nil {
			return xhttp.Request{}, err
		}
		if body, err = withBodyValue(body, "size", size); err != nil {
			return xhttp.Request{}, err
		}
		return req.WithoutQueryParams("from", "size").WithBody(body), nil
	default:
		return xhttp.Request{}, errors.Wrapf(ErrUnsupportedMethod, "cannot page %s request", req.Method)
	}
}

// CountRequest returns the _count variant of a search request.
// Only the query parameters _count supports are kept and the body is reduced to its query.
func CountRequest(req xhttp.Request) (xhttp.Request, error) {
	if req.Method != xhttp.GET && req.Method != xhttp.POST {
		return xhttp.Request{}, errors.Wrapf(ErrUnsupportedMethod, "cannot count %s request", req.Method)
	}

	filtered := req.FilterQueryParams(func(name string) bool {
		return lo.Contains(countQueryParams, name)
	})
	path := strings.Replace(filtered.PathOnly(), searchEndpoint, countEndpoint, 1)
	if query := filtered.RawQuery(); query != "" {
		path += "?" + query
	}
	count := filtered.WithPath(path)

	if req.Method == xhttp.GET && strings.TrimSpace(req.Body) == "" {
		return count, nil
	}
	body, err := bodyObject(req.Body)
	if err != nil {
		return xhttp.Request{}, err
	}
	reduced := "{}"
	if query := gjson.Get(body, "query"); query.Exists() {
		if reduced, err = sjson.SetRaw(reduced, "query", query.Raw); err != nil {
			return xhttp.Request{}, errors.Wrap(err, "failed to build count body")
		}
	}
	return count.WithBody(reduced), nil
}

// ParseCount reads the count of a _count response
func ParseCount(content string) (int64, error) {
	count := gjson.Get(content, "count")
	if !gjson.Valid(content) || !count.Exists() {
		return 0, errors.New("count response has no count")
	}
	return count.Int(), nil
}

func bodyObject(body string) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "{}", nil
	}
	if !gjson.Valid(body) || !gjson.Parse(body).IsObject() {
		return "", errors.New("request body is not a JSON object")
	}
	return body, nil
}

func withQueryValue(req xhttp.Request, name string, value int64) xhttp.Request {
	if value < 0 {
		return req.WithoutQueryParams(name)
	}
	return req.WithQueryParam(name, strconv.FormatInt(value, 10))
}

func withBodyValue(body, name string, value int64) (string, error) {
	var err error
	if value < 0 {
		body, err = sjson.Delete(body, name)
	} else {
		body, err = sjson.Set(body, name, value)
	}
	return body, errors.Wrapf(err, "failed to set %s", name)
}
