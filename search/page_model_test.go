package search_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/bdpiprava/esquery/search"
	"github.com/bdpiprava/esquery/xhttp"
)

type PageModelTestSuite struct {
	suite.Suite
}

func TestPageModelTestSuite(t *testing.T) {
	suite.Run(t, new(PageModelTestSuite))
}

// responseWith returns a context reporting total hits for a request with the given window
func responseWith(isNew bool, total, from, size int64) *search.ResponseContext {
	req := xhttp.NewRequest(xhttp.GET, fmt.Sprintf("/idx/_search?from=%d&size=%d", from, size))
	body := fmt.Sprintf(`{"hits": {"total": {"value": %d, "relation": "eq"}, "hits": []}}`, total)
	return search.NewResponseContext(isNew, req, body)
}

func (s *PageModelTestSuite) Test_DisplayedBounds() {
	for _, total := range []int64{0, 1, 7, 20, 101} {
		for _, size := range []int64{0, 1, 10, 50} {
			for _, start := range []int64{-3, 0, 5, 19, 100, 500} {
				model := search.NewPageModel(size)
				model.Update(responseWith(true, total, 0, size))
				model.SetPageStart(start)

				displayedStart, displayedEnd := model.DisplayedPageStart(), model.DisplayedPageEnd()
				if total == 0 || size == 0 {
					s.Zero(displayedStart)
					s.Zero(displayedEnd)
					s.Zero(model.PageStart())
					s.Zero(model.PageEnd())
					continue
				}
				s.GreaterOrEqual(displayedStart, int64(1))
				s.LessOrEqual(displayedStart, displayedEnd)
				s.LessOrEqual(displayedEnd, total)
				s.Equal(model.PageStart() == 0, model.IsFirstPage())
				s.Equal(model.PageEnd() == total, model.IsLastPage())
				s.Equal(model.IsFirstPage() && model.IsLastPage(), model.IsSinglePage())
			}
		}
	}
}

func (s *PageModelTestSuite) Test_Navigation() {
	s.Run("should move between pages and stop at boundaries", func() {
		// given
		model := search.NewPageModel(10)
		model.Update(responseWith(true, 25, 0, 10))

		// when / then
		s.True(model.IsFirstPage())
		model.PreviousPage()
		s.Equal(int64(0), model.PageStart())

		model.NextPage()
		s.Equal(int64(10), model.FromForRequest())
		s.Equal(int64(10), model.SizeForRequest())

		model.NextPage()
		s.Equal(int64(20), model.PageStart())
		s.Equal(int64(25), model.PageEnd())
		s.Equal(int64(5), model.SizeForRequest())
		s.True(model.IsLastPage())

		model.NextPage()
		s.Equal(int64(20), model.PageStart())

		model.FirstPage()
		s.Equal(int64(0), model.PageStart())

		model.LastPage()
		s.Equal(int64(15), model.PageStart())
		s.Equal(int64(25), model.PageEnd())
	})
}

func (s *PageModelTestSuite) Test_Update() {
	s.Run("should take size from new request and reset displayed total", func() {
		// given
		model := search.NewPageModel(20)
		model.UpdateDisplayedTotal(1000)

		// when
		model.Update(responseWith(true, 42, 10, 5))

		// then
		s.Equal(int64(5), model.PageSize())
		s.Equal(int64(42), model.Total())
		s.Equal(int64(42), model.DisplayedTotal())
		s.False(model.HasExactTotal())
		s.Equal(int64(11), model.DisplayedPageStart())
		s.Equal(int64(15), model.DisplayedPageEnd())
	})

	s.Run("should keep page size and displayed total on replay", func() {
		// given
		model := search.NewPageModel(10)
		model.Update(responseWith(true, 100, 0, 10))
		model.UpdateDisplayedTotal(12345)

		// when
		model.Update(responseWith(false, 100, 90, 10))

		// then
		s.Equal(int64(10), model.PageSize())
		s.Equal(int64(12345), model.DisplayedTotal())
		s.True(model.HasExactTotal())
		s.True(model.IsLastPage())
	})

	s.Run("should notify listeners", func() {
		// given
		model := search.NewPageModel(10)
		var notified []int64
		model.AddListener(func(m *search.PageModel) { notified = append(notified, m.DisplayedTotal()) })

		// when
		model.Update(responseWith(true, 3, 0, 10))
		model.UpdateDisplayedTotal(4)

		// then
		s.Equal([]int64{3, 4}, notified)
	})
}

func (s *PageModelTestSuite) Test_NoLimit() {
	s.Run("should request no window and resolve size from next response", func() {
		// given
		model := search.NewPageModel(10)
		model.Update(responseWith(true, 30, 10, 10))

		// when
		model.SetPageSize(search.NoLimit)

		// then
		s.Equal(search.NoLimit, model.FromForRequest())
		s.Equal(search.NoLimit, model.SizeForRequest())
		s.Equal(int64(0), model.PageStart())
		s.Equal(int64(30), model.PageEnd())

		// when
		model.Update(responseWith(false, 30, 0, 30))

		// then
		s.Equal(int64(30), model.PageSize())
		s.True(model.IsSinglePage())
	})

	s.Run("should collapse bounds on an empty result", func() {
		// given
		model := search.NewPageModel(search.NoLimit)

		// when
		model.Update(responseWith(false, 0, 0, -1))

		// then
		s.Equal(int64(0), model.PageStart())
		s.Equal(int64(0), model.PageEnd())
		s.Equal(int64(0), model.DisplayedPageStart())
	})
}

func Test_PageSizeOptions(t *testing.T) {
	testCases := []struct {
		name  string
		total int64
		size  int64
		want  []int64
	}{
		{name: "should offer presets and multiples below total", total: 5000, size: 20, want: []int64{10, 20, 40, 100, 500, 1000}},
		{name: "should cap at total", total: 150, size: 100, want: []int64{10, 50, 100}},
		{name: "should drop duplicates and zero", total: 1000, size: 1, want: []int64{1, 2, 10, 100, 500}},
		{name: "should be empty for tiny totals", total: 1, size: 1, want: []int64{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			model := search.NewPageModel(tc.size)
			model.Update(responseWith(true, tc.total, 0, tc.size))

			require.Equal(t, tc.size, model.PageSize())
			assert.Equal(t, tc.want, model.PageSizeOptions())
		})
	}
}
