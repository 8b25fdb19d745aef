package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Offset is the number of rows to skip for this page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Limit is the page size, as used in a LIMIT clause.
func (p Params) Limit() int {
	return p.PerPage
}

// FromRequest reads ?page= and ?per_page= from r. Out of range or
// non-numeric values fall back to the defaults rather than failing the request.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	return Params{
		Page:    positiveInt(q.Get("page"), 1, 0),
		PerPage: positiveInt(q.Get("per_page"), DefaultPerPage, MaxPerPage),
	}
}

func positiveInt(raw string, fallback, max int) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 || (max > 0 && v > max) {
		return fallback
	}
	return v
}
