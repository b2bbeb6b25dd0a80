package models

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Paging selects one page of a listing. Page is 1-based.
type Paging struct {
	Page  int
	Limit int
}

// Normalized clamps p into a valid page request.
func (p Paging) Normalized() Paging {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

// Offset is the number of rows before the page. p must be normalized.
func (p Paging) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages is how many pages of p.Limit hold total rows.
func (p Paging) TotalPages(total int) int {
	if p.Limit <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}
