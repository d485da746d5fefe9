package xhttp

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

const successStatusCode = 299

// Response is the content of a completed call, line endings normalised to LF
type Response struct {
	Content    string
	Status     string
	StatusCode int
	header     http.Header
}

// Header returns the response headers
func (r *Response) Header() http.Header {
	return r.header
}

// IsSuccess reports a 2xx status
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode <= successStatusCode
}

// ElasticsearchError is returned for any non-2xx response when success is checked
type ElasticsearchError struct {
	StatusLine string
	StatusCode int
	Body       string
}

// Error implements error
func (e *ElasticsearchError) Error() string {
	if e.Body == "" {
		return e.StatusLine
	}
	return fmt.Sprintf("%s\n%s", e.StatusLine, e.Body)
}

// newResponse is a function that creates a new response
func newResponse(httpResp *http.Response, checkSuccess bool) (*Response, error) {
	statusLine := strings.TrimSpace(httpResp.Proto + " " + httpResp.Status)
	response, err := ReadResponse(statusLine, httpResp.StatusCode, httpResp.Body, checkSuccess)
	if response != nil {
		response.header = httpResp.Header
	}
	return response, err
}

// ReadResponse drains and closes body into a Response.
// It is shared by raw executions and responses produced by esapi/opensearchapi.
func ReadResponse(statusLine string, statusCode int, body io.ReadCloser, checkSuccess bool) (*Response, error) {
	if statusLine == "" {
		statusLine = fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode))
	}

	var content []byte
	if body != nil {
		defer closeSilently(body)
		var err error
		content, err = io.ReadAll(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read response body")
		}
	}

	response := &Response{
		Content:    normalizeLineSeparators(string(content)),
		Status:     statusLine,
		StatusCode: statusCode,
	}

	if checkSuccess && !response.IsSuccess() {
		return response, &ElasticsearchError{
			StatusLine: statusLine,
			StatusCode: statusCode,
			Body:       response.Content,
		}
	}
	return response, nil
}

func normalizeLineSeparators(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

func closeSilently(closable io.Closer) {
	_ = closable.Close()
}
