package dashboard

import "github.com/study-review-server/internal/domain"

// PerPageOptions is the closed set of accepted page sizes.
var PerPageOptions = []int{10, 25, 50, 100}

// DefaultPerPage is the page size a fresh view starts with.
const DefaultPerPage = 25

// ViewMode selects the row density of the rendered list.
type ViewMode string

const (
	ViewFull    ViewMode = "full"
	ViewCompact ViewMode = "compact"
)

// Pagination tracks the requested page and page size. Page is a request,
// not a guarantee: Window clamps it against the record total.
type Pagination struct {
	Page     int      `json:"page"`
	PerPage  int      `json:"per_page"`
	ViewMode ViewMode `json:"view_mode"`
}

// NewPagination starts at page 1 with the default page size.
func NewPagination() Pagination {
	return Pagination{Page: 1, PerPage: DefaultPerPage, ViewMode: ViewFull}
}

// ValidPerPage reports whether n is one of the accepted page sizes.
func ValidPerPage(n int) bool {
	for _, opt := range PerPageOptions {
		if n == opt {
			return true
		}
	}
	return false
}

// SetPerPage switches the page size and resets to the first page. Values
// outside the accepted set are rejected.
func (p *Pagination) SetPerPage(n int) error {
	if !ValidPerPage(n) {
		return domain.NewValidationError("per_page", "not an accepted page size", n)
	}
	p.PerPage = n
	p.Page = 1
	return nil
}

// SetPage moves to page n, flooring at 1. Clamping against the upper
// bound happens in Window, where the record total is known.
func (p *Pagination) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	p.Page = n
}

// PageWindow is the resolved view of one page against a record total.
// StartRecord and EndRecord are 1-based and inclusive; both are 0 when
// the set is empty.
type PageWindow struct {
	Page        int `json:"page"`
	TotalPages  int `json:"total_pages"`
	StartRecord int `json:"start_record"`
	EndRecord   int `json:"end_record"`
	Total       int `json:"total"`
}

// Window clamps the requested page into [1, totalPages] and resolves the
// record range it covers. An empty set still reports one page.
func (p Pagination) Window(total int) PageWindow {
	totalPages := (total + p.PerPage - 1) / p.PerPage
	if totalPages < 1 {
		totalPages = 1
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	w := PageWindow{Page: page, TotalPages: totalPages, Total: total}
	if total > 0 {
		w.StartRecord = (page-1)*p.PerPage + 1
		w.EndRecord = page * p.PerPage
		if w.EndRecord > total {
			w.EndRecord = total
		}
	}
	return w
}

// Slice returns the studies visible on the clamped current page.
func (p Pagination) Slice(studies []domain.Study) []domain.Study {
	w := p.Window(len(studies))
	if w.StartRecord == 0 {
		return []domain.Study{}
	}
	return studies[w.StartRecord-1 : w.EndRecord]
}
