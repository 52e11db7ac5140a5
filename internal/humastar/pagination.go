// pagination.go: RFC 8288 pagination links for list responses.
package humastar

import "fmt"

// DefaultLimit is the page size when a request names none.
const DefaultLimit = 20

// Pager is implemented by response bodies that carry pagination metadata.
type Pager interface {
	PaginationLinks(basePath string) []string
}

// PageBody is a paginated response envelope. Returning it from a handler
// gets first/prev/next/last Link headers through LinkTransformer.
type PageBody[T any] struct {
	Total  int `json:"total" doc:"Total number of items"`
	Offset int `json:"offset" doc:"Current offset"`
	Limit  int `json:"limit" doc:"Page size"`
	Data   []T `json:"data" doc:"Items"`
}

// Paginate slices items into one page. Out of range offsets yield an
// empty page; a non-positive limit means DefaultLimit.
func Paginate[T any](items []T, offset, limit int) PageBody[T] {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	page := PageBody[T]{Total: len(items), Offset: offset, Limit: limit, Data: []T{}}
	if offset >= len(items) {
		return page
	}
	end := min(offset+limit, len(items))
	page.Data = items[offset:end]
	return page
}

// PaginationLinks returns RFC 8288 Link header values for pagination rels.
func (p PageBody[T]) PaginationLinks(basePath string) []string {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	link := func(offset int, rel string) string {
		return fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="%s"`, basePath, offset, limit, rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-limit, 0), "prev"))
	}
	if p.Offset+limit < p.Total {
		links = append(links, link(p.Offset+limit, "next"))
	}
	last := max((p.Total-1)/limit*limit, 0)
	return append(links, link(last, "last"))
}
