package shared

import "math"

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageMeta describes an offset-paginated listing.
type PageMeta struct {
	Page            int  `json:"page"`
	PageSize        int  `json:"pageSize"`
	TotalItems      int  `json:"totalItems"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// NewPageMeta computes pagination metadata from the requested page and the
// total match count.
func NewPageMeta(page, pageSize, totalItems int) PageMeta {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page <= 0 {
		page = DefaultPage
	}
	totalPages := int(math.Ceil(float64(totalItems) / float64(pageSize)))
	return PageMeta{
		Page:            page,
		PageSize:        pageSize,
		TotalItems:      totalItems,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1 && totalItems > 0,
	}
}

// Offset returns the row offset for the page described by the meta request.
func Offset(page, pageSize int) int {
	if page <= 0 {
		page = DefaultPage
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return (page - 1) * pageSize
}

// Paginated couples a result slice with its offset metadata.
type Paginated[T any] struct {
	Items []T      `json:"items"`
	Meta  PageMeta `json:"meta"`
}

// EmptyPaginated returns a zero-result page that still echoes the requested
// page and page size. Used when a filter scope resolves to nothing.
func EmptyPaginated[T any](page, pageSize int) Paginated[T] {
	return Paginated[T]{Items: []T{}, Meta: NewPageMeta(page, pageSize, 0)}
}

// CursorPage couples a result slice with keyset continuation state.
type CursorPage[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"nextCursor"`
	HasMore    bool    `json:"hasMore"`
}
