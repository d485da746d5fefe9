package search

import (
	"slices"
	"sync"
)

// NoLimit is the page size requesting the cluster default instead of an explicit window
const NoLimit int64 = -1

var pageSizePresets = []int64{10, 100, 500, 1000}

// PageModelListener is notified after the page model changed
type PageModelListener func(model *PageModel)

// PageModel is the pagination cursor of a search session.
// Always 0 <= pageStart <= pageEnd <= total, both bounds are zero when total or page size is zero.
type PageModel struct {
	mu             sync.RWMutex
	pageSize       int64
	total          int64
	pageStart      int64
	pageEnd        int64
	displayedTotal *int64
	listeners      []PageModelListener
}

// NewPageModel returns an empty model with the given page size
func NewPageModel(pageSize int64) *PageModel {
	return &PageModel{pageSize: pageSize}
}

// AddListener registers a listener called after Update and UpdateDisplayedTotal
func (m *PageModel) AddListener(listener PageModelListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

// FromForRequest returns the offset to request, NoLimit when the page size is NoLimit
func (m *PageModel) FromForRequest() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pageSize == NoLimit {
		return NoLimit
	}
	return m.pageStart
}

// SizeForRequest returns the size to request, shortened for the last page
func (m *PageModel) SizeForRequest() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pageSize == NoLimit {
		return NoLimit
	}
	if m.pageStart+m.pageSize > m.total {
		return m.total - m.pageStart
	}
	return m.pageSize
}

// DisplayedPageStart returns the 1-based position of the first hit of the page, 0 when empty
func (m *PageModel) DisplayedPageStart() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.isEmpty() {
		return 0
	}
	return m.pageStart + 1
}

// DisplayedPageEnd returns the 1-based position of the last hit of the page, 0 when empty
func (m *PageModel) DisplayedPageEnd() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.isEmpty() {
		return 0
	}
	return m.pageEnd
}

// NextPage moves to the next page, no-op on the last page
func (m *PageModel) NextPage() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isLastPage() {
		m.setPageStart(m.pageStart + m.pageSize)
	}
}

// PreviousPage moves to the previous page, no-op on the first page
func (m *PageModel) PreviousPage() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isFirstPage() {
		m.setPageStart(m.pageStart - m.pageSize)
	}
}

// FirstPage moves to the first page
func (m *PageModel) FirstPage() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setPageStart(0)
}

// LastPage moves to the page ending at total
func (m *PageModel) LastPage() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setPageStart(m.total - m.pageSize)
}

// IsFirstPage reports pageStart == 0
func (m *PageModel) IsFirstPage() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isFirstPage()
}

// IsLastPage reports pageEnd == total
func (m *PageModel) IsLastPage() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isLastPage()
}

// IsSinglePage reports whether all hits fit on the current page
func (m *PageModel) IsSinglePage() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isFirstPage() && m.isLastPage()
}

// Update applies a search response.
// A new request resets the displayed total and takes its page size from the response,
// a page navigation replay keeps the current page size.
func (m *PageModel) Update(response *ResponseContext) {
	total, from, size := response.Total(), response.From(), response.Size()

	m.mu.Lock()
	if response.IsNewRequest || m.pageSize == NoLimit {
		if response.IsNewRequest {
			m.displayedTotal = nil
		}
		m.pageSize = size
	}
	m.total = total
	m.setPageStart(from)
	m.mu.Unlock()

	m.notify()
}

// SetPageSize changes the page size, the window is recomputed from the current start
func (m *PageModel) SetPageSize(size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageSize = size
	m.setPageStart(m.pageStart)
}

// SetPageStart moves the window to start, clamped to [0, total-1]
func (m *PageModel) SetPageStart(start int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setPageStart(start)
}

// UpdateDisplayedTotal sets the total shown to the user, e.g. from an exact _count
func (m *PageModel) UpdateDisplayedTotal(total int64) {
	m.mu.Lock()
	m.displayedTotal = &total
	m.mu.Unlock()

	m.notify()
}

// DisplayedTotal returns the exact count when one was requested, otherwise the search total
func (m *PageModel) DisplayedTotal() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.displayedTotal != nil {
		return *m.displayedTotal
	}
	return m.total
}

// HasExactTotal reports whether the displayed total comes from a count request
func (m *PageModel) HasExactTotal() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.displayedTotal != nil
}

// Total returns the total reported by the last search
func (m *PageModel) Total() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.total
}

// PageSize returns the page size
func (m *PageModel) PageSize() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pageSize
}

// PageStart returns the 0-based offset of the page
func (m *PageModel) PageStart() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pageStart
}

// PageEnd returns the exclusive end of the page
func (m *PageModel) PageEnd() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pageEnd
}

// PageSizeOptions returns the page sizes worth offering, sorted.
// Sizes not smaller than the total and zero are left out.
func (m *PageModel) PageSizeOptions() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates := append(slices.Clone(pageSizePresets), m.pageSize/2, m.pageSize, m.pageSize*2)
	options := make([]int64, 0, len(candidates))
	for _, size := range candidates {
		if size <= 0 || size >= m.total || slices.Contains(options, size) {
			continue
		}
		options = append(options, size)
	}
	slices.Sort(options)
	return options
}

func (m *PageModel) isEmpty() bool {
	return m.total == 0 || m.pageSize == 0
}

func (m *PageModel) isFirstPage() bool {
	return m.pageStart == 0
}

func (m *PageModel) isLastPage() bool {
	return m.pageEnd == m.total
}

func (m *PageModel) setPageStart(start int64) {
	switch {
	case m.isEmpty():
		m.pageStart, m.pageEnd = 0, 0
	case m.pageSize == NoLimit:
		m.pageStart, m.pageEnd = 0, m.total
	default:
		m.pageStart = max(0, min(m.total-1, start))
		m.pageEnd = min(m.total, m.pageStart+m.pageSize)
	}
}

func (m *PageModel) notify() {
	m.mu.RLock()
	listeners := slices.Clone(m.listeners)
	m.mu.RUnlock()

	for _, listener := range listeners {
		listener(m)
	}
}
