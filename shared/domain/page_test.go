package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPaginate(t *testing.T) {
	t.Run("empty list still has one page", func(t *testing.T) {
		page := Paginate([]int{}, 0, 10)
		assert.Equal(t, Page[int]{Items: []int{}, CurrentPage: 0, TotalPages: 1, TotalElements: 0}, page)
	})

	t.Run("last partial page", func(t *testing.T) {
		page := Paginate(seq(23), 2, 10)
		assert.Equal(t, []int{20, 21, 22}, page.Items)
		assert.Equal(t, 3, page.TotalPages)
		assert.Equal(t, 23, page.TotalElements)
		assert.Equal(t, 2, page.CurrentPage)
	})

	t.Run("out of range page is empty with correct totals", func(t *testing.T) {
		page := Paginate(seq(23), 7, 10)
		assert.Empty(t, page.Items)
		assert.NotNil(t, page.Items)
		assert.Equal(t, 3, page.TotalPages)
		assert.Equal(t, 23, page.TotalElements)
	})

	t.Run("negative page is empty", func(t *testing.T) {
		page := Paginate(seq(5), -1, 2)
		assert.Empty(t, page.Items)
		assert.Equal(t, 3, page.TotalPages)
	})

	t.Run("huge page or size does not overflow", func(t *testing.T) {
		all := []int{1, 2, 3}

		page := Paginate(all, 2, math.MaxInt)
		assert.Empty(t, page.Items)
		assert.Equal(t, 1, page.TotalPages)

		page = Paginate(all, 0, math.MaxInt)
		assert.Equal(t, []int{1, 2, 3}, page.Items)
		assert.Equal(t, 1, page.TotalPages)

		page = Paginate(all, 1<<61, 8)
		assert.Empty(t, page.Items, "far page must not wrap around to the first window")

		page = Paginate(all, math.MaxInt, math.MaxInt)
		assert.Empty(t, page.Items)
		assert.Equal(t, 3, page.TotalElements)
	})

	t.Run("window length and page count hold for every window", func(t *testing.T) {
		for total := 0; total <= 31; total++ {
			all := seq(total)
			for size := 1; size <= 12; size++ {
				for p := 0; p <= total/size+2; p++ {
					page := Paginate(all, p, size)
					assert.Len(t, page.Items, min(size, max(0, total-p*size)), "total=%d size=%d page=%d", total, size, p)
					assert.Equal(t, max(1, (total+size-1)/size), page.TotalPages)
					if len(page.Items) > 0 {
						assert.Equal(t, p*size, page.Items[0], "window must not reorder")
					}
				}
			}
		}
	})
}
