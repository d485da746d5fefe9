package query

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bdpiprava/esquery/config"
	"github.com/bdpiprava/esquery/execution"
	"github.com/bdpiprava/esquery/logger"
	"github.com/bdpiprava/esquery/search"
	"github.com/bdpiprava/esquery/xhttp"
)

var (
	// ErrExecutionInProgress is returned when a request is started while another one runs
	ErrExecutionInProgress = errors.New("a request is already executing")
	// ErrNoSearchRequest is returned when paging or counting before any search was executed
	ErrNoSearchRequest = errors.New("no search request was executed")
)

// State of the manager
type State int

const (
	Idle State = iota
	Executing
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Executing:
		return "executing"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Executor prepares raw requests against one cluster, *esclient.Client satisfies it
type Executor interface {
	PrepareExecute(req xhttp.Request, checkSuccess bool) *execution.Execution[*xhttp.Response]
}

// RequestProvider returns the request currently written by the user
type RequestProvider func() (xhttp.Request, error)

// Options configure a Manager
type Options struct {
	Logger   logrus.FieldLogger
	PageSize int64
}

// Option is a function that modifies Options
type Option func(*Options)

// WithLogger sets the logger of the manager
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *Options) {
		o.Logger = log
	}
}

// WithPageSize sets the initial page size
func WithPageSize(size int64) Option {
	return func(o *Options) {
		o.PageSize = size
	}
}

// Manager runs the requests of one query session and keeps its pagination.
// Only one request runs at a time.
type Manager struct {
	client   Executor
	provider RequestProvider
	page     *search.PageModel
	log      logrus.FieldLogger

	mu            sync.Mutex
	state         State
	previousState State
	current       func()
	lastSearch    *xhttp.Request
	lastResponse  *search.ResponseContext

	listenersMu       sync.Mutex
	responseListeners []func(*search.ResponseContext)
	errorListeners    []func(error)
}

// NewManager returns a manager sending the requests of provider through client
func NewManager(client Executor, provider RequestProvider, opts ...Option) *Manager {
	options := Options{PageSize: config.DefaultPageSize}
	for _, opt := range opts {
		opt(&options)
	}

	return &Manager{
		client:   client,
		provider: provider,
		page:     search.NewPageModel(options.PageSize),
		log:      logger.OrNew(options.Logger, "query"),
	}
}

// PageModel returns the pagination of the session
func (m *Manager) PageModel() *search.PageModel {
	return m.page
}

// State returns the state of the last request
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastResponse returns the last successful response, nil before the first one
func (m *Manager) LastResponse() *search.ResponseContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastResponse
}

// LastSearchRequest returns the last request sent to _search
func (m *Manager) LastSearchRequest() (xhttp.Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastSearch == nil {
		return xhttp.Request{}, false
	}
	return *m.lastSearch, true
}

// AddResponseListener registers a listener called after each successful request
func (m *Manager) AddResponseListener(listener func(*search.ResponseContext)) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.responseListeners = append(m.responseListeners, listener)
}

// AddErrorListener registers a listener called after each failed request, aborts excluded
func (m *Manager) AddErrorListener(listener func(error)) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.errorListeners = append(m.errorListeners, listener)
}

// ExecuteRequest sends the request of the provider.
// A search request also fetches the mapping of its indices and resets the pagination.
func (m *Manager) ExecuteRequest(ctx context.Context) (*search.ResponseContext, error) {
	req, err := m.provider()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read request")
	}

	if err := m.begin(); err != nil {
		return nil, err
	}
	if IsSearchRequest(req) {
		m.mu.Lock()
		m.lastSearch = &req
		m.mu.Unlock()
	}
	return m.execute(ctx, req, true)
}

// UpdateAndExecuteLastSearchRequest replays the last search with the window of the page model
func (m *Manager) UpdateAndExecuteLastSearchRequest(ctx context.Context) (*search.ResponseContext, error) {
	return m.replay(ctx, nil)
}

// ExecuteCountForLastSearchRequest counts the hits of the last search and shows it as the total
func (m *Manager) ExecuteCountForLastSearchRequest(ctx context.Context) (int64, error) {
	last, ok := m.LastSearchRequest()
	if !ok {
		return 0, ErrNoSearchRequest
	}

	req, err := CountRequest(last)
	if err != nil {
		return 0, err
	}

	m.log.WithField("path", req.PathOnly()).Debug("counting hits")
	resp, err := m.client.PrepareExecute(req, true).Execute(ctx).Get()
	if err != nil {
		return 0, err
	}
	count, err := ParseCount(resp.Content)
	if err != nil {
		return 0, err
	}
	m.page.UpdateDisplayedTotal(count)
	return count, nil
}

// NextPage moves to the next page and replays the last search, nothing happens on the last page
func (m *Manager) NextPage(ctx context.Context) error {
	return m.navigate(ctx, m.page.IsLastPage, m.page.NextPage)
}

// PreviousPage moves to the previous page and replays the last search, nothing happens on the first page
func (m *Manager) PreviousPage(ctx context.Context) error {
	return m.navigate(ctx, m.page.IsFirstPage, m.page.PreviousPage)
}

// FirstPage moves to the first page and replays the last search
func (m *Manager) FirstPage(ctx context.Context) error {
	return m.navigate(ctx, m.page.IsFirstPage, m.page.FirstPage)
}

// LastPage moves to the last page and replays the last search
func (m *Manager) LastPage(ctx context.Context) error {
	return m.navigate(ctx, m.page.IsLastPage, m.page.LastPage)
}

// SetPageSize changes the page size and replays the last search
func (m *Manager) SetPageSize(ctx context.Context, size int64) error {
	_, err := m.replay(ctx, func() { m.page.SetPageSize(size) })
	return err
}

// ShowAll replays the last search without from and size
func (m *Manager) ShowAll(ctx context.Context) error {
	return m.SetPageSize(ctx, search.NoLimit)
}

// Abort interrupts the running request, if any
func (m *Manager) Abort() {
	m.mu.Lock()
	abort := m.current
	m.mu.Unlock()
	if abort != nil {
		abort()
	}
}

func (m *Manager) navigate(ctx context.Context, atBoundary func() bool, move func()) error {
	if atBoundary() {
		return nil
	}
	_, err := m.replay(ctx, move)
	return err
}

// replay reserves the manager, applies move to the page model and sends the last search for the new window.
// The page model is left untouched when the replay cannot start.
func (m *Manager) replay(ctx context.Context, move func()) (*search.ResponseContext, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}

	last, ok := m.LastSearchRequest()
	if !ok {
		m.release()
		return nil, ErrNoSearchRequest
	}
	if _, err := PagedRequest(last, 0, 0); err != nil {
		m.release()
		return nil, err
	}

	if move != nil {
		move()
	}
	req, err := PagedRequest(last, m.page.FromForRequest(), m.page.SizeForRequest())
	if err != nil {
		m.release()
		return nil, err
	}
	return m.execute(ctx, req, false)
}

// begin marks the manager Executing, it fails when a request already runs
func (m *Manager) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Executing {
		return ErrExecutionInProgress
	}
	m.previousState = m.state
	m.state = Executing
	return nil
}

// release undoes begin for a request that never started
func (m *Manager) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = m.previousState
}

// execute runs req, the manager must have been reserved with begin
func (m *Manager) execute(ctx context.Context, req xhttp.Request, isNew bool) (*search.ResponseContext, error) {
	exec := m.prepare(req, isNew)

	m.mu.Lock()
	m.current = exec.Abort
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"method": req.Method,
		"path":   req.PathOnly(),
		"new":    isNew,
	}).Debug("executing request")
	return exec.Execute(ctx).Get()
}

func (m *Manager) prepare(req xhttp.Request, isNew bool) *execution.Execution[*search.ResponseContext] {
	opts := []execution.Option{execution.WithLogger(m.log)}

	var exec *execution.Execution[*search.ResponseContext]
	if IsSearchRequest(req) {
		joined := execution.Join(m.client.PrepareExecute(req, false), m.client.PrepareExecute(MappingRequest(req), false))
		exec = execution.Map(joined, func(pair execution.Pair[*xhttp.Response, *xhttp.Response]) (*search.ResponseContext, error) {
			return search.NewResponseContext(isNew, req, pair.First.Content).WithMapping(pair.Second.Content), nil
		}, opts...)
	} else {
		exec = execution.Map(m.client.PrepareExecute(req, false), func(resp *xhttp.Response) (*search.ResponseContext, error) {
			return search.NewResponseContext(isNew, req, resp.Content), nil
		}, opts...)
	}

	return exec.
		OnSuccess(func(rc *search.ResponseContext) {
			if rc.IsValidSearchRequest() {
				m.page.Update(rc)
			}
			m.mu.Lock()
			m.lastResponse = rc
			m.mu.Unlock()
			for _, listener := range m.snapshotResponseListeners() {
				listener(rc)
			}
		}).
		OnError(func(err error) {
			m.log.WithError(err).Debug("request failed")
			for _, listener := range m.snapshotErrorListeners() {
				listener(err)
			}
		}).
		OnFinally(func(result execution.Result[*search.ResponseContext]) {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.current = nil
			switch {
			case result.IsAborted():
				m.state = Idle
			case result.IsSuccess():
				m.state = Succeeded
			default:
				m.state = Failed
			}
		})
}

func (m *Manager) snapshotResponseListeners() []func(*search.ResponseContext) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	return append([]func(*search.ResponseContext){}, m.responseListeners...)
}

func (m *Manager) snapshotErrorListeners() []func(error) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	return append([]func(error){}, m.errorListeners...)
}
