package pagination

import "math"

// Listing describes one page of a paginated result set. It is unrelated to
// splitting book text and is shared by every list endpoint.
type Listing struct {
	Total       int64 `json:"total"`
	Page        int   `json:"page"`
	PageSize    int   `json:"page_size"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// Window normalizes a requested page and page size and returns the row offset.
// A page below 1 becomes 1 and a page whose offset would not fit in 32 bits is
// capped. A missing size becomes defaultSize and an oversized one is capped at
// maxSize.
func Window(page, size, defaultSize, maxSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	if last := math.MaxInt32/size + 1; page > last {
		page = last
	}
	return page, size, (page - 1) * size
}

func NewListing(total int64, page, size int) Listing {
	pages := 0
	if size > 0 {
		pages = TotalPages(int(total), size)
	}
	return Listing{
		Total:       total,
		Page:        page,
		PageSize:    size,
		TotalPages:  pages,
		HasNext:     page < pages,
		HasPrevious: page > 1,
	}
}
