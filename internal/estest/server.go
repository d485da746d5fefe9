// Package estest runs an in-process fake cluster answering canned responses
package estest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/bdpiprava/esquery/logger"
	"github.com/bdpiprava/esquery/maps"
)

// Server is a fake cluster, the first stub matching a request answers it
type Server struct {
	*httptest.Server
	log logrus.FieldLogger

	mu    sync.Mutex
	stubs []Stub
	calls []Call
}

// NewServer starts a server answering with the given stubs, it is closed when the test ends
func NewServer(t testing.TB, stubs ...Stub) *Server {
	t.Helper()
	s := &Server{
		log: logger.New("estest").WithField("test", t.Name()),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)

	s.Stub(stubs...)
	return s
}

// FromFile starts one server per entry of the fixture file and returns them by name
func FromFile(t testing.TB, file string, params map[string]string) map[string]*Server {
	t.Helper()
	root, err := readFile(file)
	if err != nil {
		t.Fatalf("failed to read fixtures: %v", err)
	}

	servers := make(map[string]*Server, len(root))
	for name, stubs := range root {
		resolved := make([]Stub, 0, len(stubs))
		for _, stub := range stubs {
			resolved = append(resolved, stub.resolve(params))
		}
		servers[name] = NewServer(t, resolved...)
	}
	return servers
}

// Stub appends stubs after the existing ones
func (s *Server) Stub(stubs ...Stub) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stub := range stubs {
		s.stubs = append(s.stubs, stub.withDefaults())
	}
}

// Reset drops all stubs and recorded calls
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs = nil
	s.calls = nil
}

// Calls returns the requests received so far
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the received requests with the given method and path
func (s *Server) CallsTo(method, path string) []Call {
	calls := make([]Call, 0)
	for _, call := range s.Calls() {
		if strings.EqualFold(call.Method, method) && call.Path == path {
			calls = append(calls, call)
		}
	}
	return calls
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	user, _, _ := r.BasicAuth()
	call := Call{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Body:     string(body),
		User:     user,
	}

	s.mu.Lock()
	s.calls = append(s.calls, call)
	stub, ok := s.match(r, call)
	s.mu.Unlock()

	log := s.log.WithFields(logrus.Fields{
		"method": call.Method,
		"path":   call.Path,
	})
	if !ok {
		log.Debug("no stub matched")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprintf(w, `{"error":"no stub for %s %s","status":404}`, call.Method, call.Path)
		return
	}

	if stub.Response.Delay > 0 {
		select {
		case <-time.After(stub.Response.Delay):
		case <-r.Context().Done():
			log.Debug("client went away")
			return
		}
	}

	for name, value := range stub.Response.Headers {
		w.Header().Set(name, value)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", contentType(stub.Response.Body))
	}
	w.WriteHeader(stub.Response.Status)
	_, _ = io.WriteString(w, stub.Response.Body)
}

func (s *Server) match(r *http.Request, call Call) (Stub, bool) {
	for _, stub := range s.stubs {
		if matches(stub.Request, r, call) {
			return stub, true
		}
	}
	return Stub{}, false
}

func matches(expected Request, r *http.Request, call Call) bool {
	if expected.Method != "" && !strings.EqualFold(expected.Method, call.Method) {
		return false
	}
	if expected.Path != "" && "/"+strings.TrimLeft(expected.Path, "/") != call.Path {
		return false
	}

	query := r.URL.Query()
	for name, value := range expected.QueryParams {
		if !query.Has(name) || query.Get(name) != value {
			return false
		}
	}
	for name, value := range expected.Headers {
		if r.Header.Get(name) != value {
			return false
		}
	}
	return bodyMatches(expected.Body, call.Body)
}

// bodyMatches compares JSON bodies as subsets, other bodies must be equal
func bodyMatches(expected, actual string) bool {
	if strings.TrimSpace(expected) == "" {
		return true
	}

	var expectedMap, actualMap map[string]any
	if json.Unmarshal([]byte(expected), &expectedMap) != nil || json.Unmarshal([]byte(actual), &actualMap) != nil {
		return strings.TrimSpace(expected) == strings.TrimSpace(actual)
	}
	return maps.Contains(actualMap, expectedMap)
}

func contentType(body string) string {
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return "application/json"
	}
	return "text/plain; charset=UTF-8"
}

// readFile reads the fixture file and unmarshal it into stubs per server
func readFile(path string) (stubRoot, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var root stubRoot
	err = yaml.Unmarshal(content, &root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal stubs from file: %v", path)
	}

	return root, nil
}
