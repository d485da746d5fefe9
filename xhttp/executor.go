package xhttp

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

// execute is a function that executes the request with given client and returns the response
func execute(ctx context.Context, client *Client, request Request, checkSuccess bool) (*Response, error) {
	if _, ok := supportedMethods[request.Method]; !ok {
		return nil, errors.Errorf("unsupported method: %s", request.Method)
	}

	httpClient, err := client.httpClient()
	if err != nil {
		return nil, err
	}

	req, err := buildRequest(ctx, client.clientOptions, request)
	if err != nil {
		return nil, err
	}

	log := client.log.WithFields(logrus.Fields{
		"method": req.Method,
		"url":    req.URL.Redacted(),
	})
	log.Debug("executing request")

	start := time.Now()
	resp, err := httpClient.Do(req)
	client.observe(req.Method, resp, start)
	if err != nil {
		log.WithError(err).Debug("request failed")
		return nil, errors.Wrap(err, "failed to execute request")
	}

	log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("request completed")
	return newResponse(resp, checkSuccess)
}

// buildRequest is a function that builds the http request from the given request
func buildRequest(ctx context.Context, opts ClientOptions, request Request) (*http.Request, error) {
	host := request.Host
	if host == "" {
		host = opts.BaseURL
	}

	target := request.withHost(host).URL()
	var req *http.Request
	var err error
	if request.Body != "" && request.Method.allowsBody() {
		req, err = http.NewRequestWithContext(ctx, string(request.Method), target, strings.NewReader(request.Body))
	} else {
		req, err = http.NewRequestWithContext(ctx, string(request.Method), target, http.NoBody)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	applyClientHeaders(req, opts)
	if request.Body != "" && request.Method.allowsBody() {
		req.Header.Set(headerContentType, contentTypeJSON)
	}
	return req, nil
}

// applyClientHeaders copies the default headers and credentials of the client onto the request
func applyClientHeaders(req *http.Request, opts ClientOptions) {
	for k, v := range opts.Headers {
		req.Header[k] = append([]string(nil), v...)
	}
	if opts.BasicAuth.isSet() {
		req.SetBasicAuth(opts.BasicAuth.Username, opts.BasicAuth.Password)
	}
}
