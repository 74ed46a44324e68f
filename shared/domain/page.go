package domain

// Page is a zero-based window over a fully fetched, ordered list
type Page[T any] struct {
	Items         []T `json:"items"`
	CurrentPage   int `json:"currentPage"`
	TotalPages    int `json:"totalPages"`
	TotalElements int `json:"totalElements"`
}

// Paginate windows all into [page*pageSize, page*pageSize+pageSize).
// pageSize must be positive; pages past the end yield no items.
func Paginate[T any](all []T, page, pageSize int) Page[T] {
	total := len(all)
	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	totalPages = max(1, totalPages)

	items := []T{}
	// page*pageSize may overflow, so page is bounded first
	if total > 0 && page >= 0 && page <= (total-1)/pageSize {
		start := page * pageSize
		end := start + min(pageSize, total-start)
		items = all[start:end]
	}

	return Page[T]{
		Items:         items,
		CurrentPage:   page,
		TotalPages:    totalPages,
		TotalElements: total,
	}
}
