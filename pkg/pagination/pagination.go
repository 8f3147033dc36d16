package pagination

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params is a resolved page window.
type Params struct {
	Limit  int
	Offset int
}

// ClampLimit bounds a limit to [1, max]. A non-positive max falls back to
// MaxLimit.
func ClampLimit(limit, max int) int {
	if max <= 0 {
		max = MaxLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > max {
		limit = max
	}
	return limit
}

// FromPage converts a 1-based page number into an offset window.
func FromPage(page, limit int) Params {
	if page < 1 {
		page = 1
	}
	return Params{Limit: limit, Offset: (page - 1) * limit}
}

// Page is the 1-based page the offset falls on.
func (p Params) Page() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// TotalPages returns the number of pages needed for total rows.
func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// Response wraps a paginated API response.
type Response struct {
	Items      interface{} `json:"items"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	TotalPages int         `json:"totalPages"`
	Limit      int         `json:"limit"`
	HasNext    bool        `json:"hasNext"`
	HasPrev    bool        `json:"hasPrevious"`
}

func NewResponse(items interface{}, total int, p Params) *Response {
	return &Response{
		Items:      items,
		Total:      total,
		Page:       p.Page(),
		TotalPages: TotalPages(total, p.Limit),
		Limit:      p.Limit,
		HasNext:    p.HasNext(total),
		HasPrev:    p.HasPrevious(),
	}
}
