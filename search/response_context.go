package search

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/bdpiprava/esquery/xhttp"
)

// ResponseContext is a completed request with its raw response and, for searches, the raw mapping response
type ResponseContext struct {
	IsNewRequest    bool
	Request         xhttp.Request
	Response        string
	MappingResponse string
	hasMapping      bool

	parseOnce sync.Once
	root      gjson.Result
	body      gjson.Result
	hits      []Hit

	mappingOnce sync.Once
	mappings    []Mapping
}

// NewResponseContext returns the context of a response, isNewRequest is false for page navigation replays
func NewResponseContext(isNewRequest bool, request xhttp.Request, response string) *ResponseContext {
	return &ResponseContext{
		IsNewRequest: isNewRequest,
		Request:      request,
		Response:     response,
	}
}

// WithMapping attaches the response of the companion _mapping request
func (c *ResponseContext) WithMapping(mappingResponse string) *ResponseContext {
	c.MappingResponse = mappingResponse
	c.hasMapping = true
	return c
}

// IsSearchRequest reports whether a mapping response was fetched along with the request
func (c *ResponseContext) IsSearchRequest() bool {
	return c.hasMapping
}

func (c *ResponseContext) parse() {
	c.parseOnce.Do(func() {
		if gjson.Valid(c.Response) {
			c.root = gjson.Parse(c.Response)
		}
		if body := strings.TrimSpace(c.Request.Body); body != "" && gjson.Valid(body) {
			c.body = gjson.Parse(body)
		}

		c.hits = make([]Hit, 0)
		c.hitsNode().Get("hits").ForEach(func(_, hit gjson.Result) bool {
			if hit.IsObject() {
				c.hits = append(c.hits, NewHit(hit))
			}
			return true
		})
	})
}

func (c *ResponseContext) hitsNode() gjson.Result {
	return c.root.Get("hits")
}

// Total returns hits.total, read from the legacy number or the {value, relation} object, 0 otherwise
func (c *ResponseContext) Total() int64 {
	c.parse()
	total := c.hitsNode().Get("total")
	switch {
	case total.Type == gjson.Number:
		return total.Int()
	case total.IsObject():
		return total.Get("value").Int()
	default:
		return 0
	}
}

// Hits returns the parsed hits, empty when the response has none
func (c *ResponseContext) Hits() []Hit {
	c.parse()
	return c.hits
}

// Mappings returns the parsed mapping response, empty when absent or malformed
func (c *ResponseContext) Mappings() []Mapping {
	c.mappingOnce.Do(func() {
		c.mappings = []Mapping{}
		if !c.hasMapping {
			return
		}
		if mappings, err := ParseMappings(c.MappingResponse); err == nil {
			c.mappings = mappings
		}
	})
	return c.mappings
}

// From returns the offset of the request, from the query string first then the body, never negative
func (c *ResponseContext) From() int64 {
	from, ok := c.requestValue("from")
	if !ok || from < 0 {
		return 0
	}
	return from
}

// Size returns the page size of the request, from the query string first then the body.
// Without an explicit or with a negative size the number of hits is returned.
func (c *ResponseContext) Size() int64 {
	size, ok := c.requestValue("size")
	if !ok || size < 0 {
		return int64(len(c.Hits()))
	}
	return size
}

func (c *ResponseContext) requestValue(name string) (int64, bool) {
	if raw, ok := c.Request.QueryParam(name); ok {
		if value, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return value, true
		}
	}

	c.parse()
	if value := c.body.Get(name); value.Exists() {
		return value.Int(), true
	}
	return 0, false
}

// Took returns the duration reported by the cluster
func (c *ResponseContext) Took() time.Duration {
	c.parse()
	return time.Duration(c.root.Get("took").Int()) * time.Millisecond
}

// Shards returns the successful and total shard counts
func (c *ResponseContext) Shards() (successful, total int64) {
	c.parse()
	return c.root.Get("_shards.successful").Int(), c.root.Get("_shards.total").Int()
}

// Summary describes the search in one line
func (c *ResponseContext) Summary() string {
	successful, total := c.Shards()
	return fmt.Sprintf(
		"Searched %d of %d shards, %d hits, %.3f seconds.",
		successful, total, c.Total(), c.Took().Seconds(),
	)
}

// IsValidSearchRequest reports whether the response can be shown as a table
func (c *ResponseContext) IsValidSearchRequest() bool {
	if !c.hasMapping || !gjson.Valid(c.Response) {
		return false
	}
	if body := strings.TrimSpace(c.Request.Body); body != "" && !gjson.Valid(body) {
		return false
	}
	c.parse()
	return c.hitsNode().Get("hits").Exists()
}
