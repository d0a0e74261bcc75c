package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params holds page based pagination parameters. Page is 1-based.
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// New normalizes page and limit and derives the offset.
func New(page, limit int) Params {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if page < 1 {
		page = 1
	}
	return Params{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// FromContext reads ?page= and ?limit= from the request.
func FromContext(c echo.Context) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return New(page, limit)
}

// TotalPages is ceil(total/limit), and never less than 1.
func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 1
	}
	return (total + limit - 1) / limit
}

// Response wraps a paginated API response.
type Response struct {
	Data       any  `json:"data"`
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

func NewResponse(data any, total int, p Params) *Response {
	pages := TotalPages(total, p.Limit)
	return &Response{
		Data:       data,
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: pages,
		HasMore:    p.Page < pages,
	}
}

// Window returns the [start, end) bounds of the page within n items.
func (p Params) Window(n int) (int, int) {
	start := p.Offset
	if start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}
