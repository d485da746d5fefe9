package xhttp

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// BasicAuth is a struct that holds the username and password for basic authentication
type BasicAuth struct {
	Username string
	Password string
}

func (b BasicAuth) isSet() bool {
	return b.Username != ""
}

// TLSProvider builds the TLS configuration on first use of the client
type TLSProvider func() (*tls.Config, error)

// Observer receives one notification per completed HTTP round-trip, code is 0 on transport failure
type Observer interface {
	ObserveRequest(method string, code int, duration time.Duration)
}

// ClientOptions is a struct that holds the options for the client
type ClientOptions struct {
	BaseURL        string
	Headers        http.Header
	BasicAuth      BasicAuth
	Timeout        time.Duration
	ConnectTimeout time.Duration
	TLS            TLSProvider
	Logger         logrus.FieldLogger
	Observer       Observer
}

// ClientOption is a function that takes a pointer to Options and modifies it
type ClientOption func(client *ClientOptions)

// RequestOption is a function that takes a pointer to Request and modifies it
type RequestOption func(*Request)
