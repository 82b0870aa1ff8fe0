package shared

import (
	"net/http"
	"strconv"
)

// Pagination holds the limit/offset window parsed off a list request. Cycle,
// employee and audit listings all page the same way.
type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit/offset query params, ignoring anything
// non-numeric or out of range rather than failing the request. The limit is
// clamped to maxLimit.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	page := Pagination{Limit: defaultLimit}
	query := r.URL.Query()
	if v, err := strconv.Atoi(query.Get("limit")); err == nil && v > 0 {
		page.Limit = v
	}
	if v, err := strconv.Atoi(query.Get("offset")); err == nil && v >= 0 {
		page.Offset = v
	}
	if maxLimit > 0 && page.Limit > maxLimit {
		page.Limit = maxLimit
	}
	return page
}
