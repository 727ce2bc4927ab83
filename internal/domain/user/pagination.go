package user

const (
	// DefaultPage is used when the caller omits or sends a non-positive page.
	DefaultPage int64 = 1
	// DefaultLimit is used when the caller omits or sends a non-positive limit.
	DefaultLimit int64 = 10
	// MaxLimit caps the page size.
	MaxLimit int64 = 100
)

// Pagination represents pagination information for list responses.
type Pagination struct {
	Total      int64 // Total number of matching records
	Page       int64 // Current page number (1-based)
	Limit      int64 // Number of records per page
	TotalPages int64 // Total number of pages
}

// NewPagination creates a new Pagination instance with calculated total pages.
func NewPagination(total, page, limit int64) *Pagination {
	var totalPages int64
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return &Pagination{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

// NormalizePage applies the default page and limit and clamps the limit.
func NormalizePage(page, limit int64) (int64, int64) {
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// Offset returns the number of records to skip for the given page.
func Offset(page, limit int64) int64 {
	if page <= 1 {
		return 0
	}
	return (page - 1) * limit
}
