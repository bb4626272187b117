package shared

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPage is the first page.
	DefaultPage = 1
	// DefaultPerPage is used when the client asks for nothing sensible.
	DefaultPerPage = 15
	// MaxPerPage caps page sizes.
	MaxPerPage = 100

	SortAsc  = "asc"
	SortDesc = "desc"
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"current_page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"last_page"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page <= 0 {
		page = DefaultPage
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// ListFilters represents standard list filters.
type ListFilters struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
	// Trashed restricts the listing to soft-deleted rows.
	Trashed bool
}

// Offset returns the SQL offset for the filters.
func (f ListFilters) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.PerPage
}

// ParseListFilters reads page, per_page, q/search, sort and dir from a query string.
func ParseListFilters(q url.Values, defaultPerPage int) ListFilters {
	if defaultPerPage <= 0 {
		defaultPerPage = DefaultPerPage
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = DefaultPage
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	search := q.Get("q")
	if search == "" {
		search = q.Get("search")
	}
	dir := strings.ToLower(q.Get("dir"))
	if dir != SortDesc {
		dir = SortAsc
	}
	return ListFilters{
		Page:    page,
		PerPage: perPage,
		Search:  strings.TrimSpace(search),
		SortBy:  q.Get("sort"),
		SortDir: dir,
	}
}

// LikePattern wraps s for a substring ILIKE match, escaping wildcards.
func LikePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// OrderBy returns a safe ORDER BY fragment for f using the allowed column map,
// falling back to def.
func (f ListFilters) OrderBy(allowed map[string]string, def string) string {
	col, ok := allowed[f.SortBy]
	if !ok {
		col = def
	}
	dir := "ASC"
	if f.SortDir == SortDesc {
		dir = "DESC"
	}
	return col + " " + dir
}
