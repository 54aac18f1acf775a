// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit is the page size when the caller does not ask for one.
const DefaultLimit = 10

// MaxLimit caps caller-supplied page sizes.
const MaxLimit = 100

// MaxPage caps page numbers so Skip stays well inside int64.
const MaxPage = 1_000_000

// Page is a 1-based offset/limit request.
type Page struct {
	Number int
	Limit  int
}

// New normalizes a caller-supplied page: number < 1 becomes 1, number >
// MaxPage becomes MaxPage, limit < 1 becomes DefaultLimit, limit > MaxLimit
// becomes MaxLimit.
func New(number, limit int) Page {
	if number < 1 {
		number = 1
	}
	if number > MaxPage {
		number = MaxPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Number: number, Limit: limit}
}

// FromRequest reads the "page" and "limit" query parameters.
func FromRequest(r *http.Request) Page {
	return New(atoi(query.Get(r, "page")), atoi(query.Get(r, "limit")))
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// Skip is the number of documents before this page.
func (p Page) Skip() int64 { return int64(p.Number-1) * int64(p.Limit) }

// ApplyToFind sets skip and limit on a Find.
func (p Page) ApplyToFind(find *options.FindOptions) *options.FindOptions {
	return find.SetSkip(p.Skip()).SetLimit(int64(p.Limit))
}

// Meta describes where a page sits in the full result set.
type Meta struct {
	Total       int64 `json:"total"`
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalPages  int   `json:"total_pages"`
	HasNextPage bool  `json:"has_next_page"`
	HasPrevPage bool  `json:"has_prev_page"`
}

// NewMeta computes page metadata from the total match count.
func NewMeta(p Page, total int64) Meta {
	pages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Meta{
		Total:       total,
		Page:        p.Number,
		Limit:       p.Limit,
		TotalPages:  pages,
		HasNextPage: p.Number < pages,
		HasPrevPage: p.Number > 1,
	}
}
