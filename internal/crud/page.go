package crud

import (
	"errors"
	"math"
	"strconv"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page is the effective pagination window of a list request.
type Page struct {
	Page  int
	Limit int
}

// Offset is the number of records skipped before this page.
func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// ParsePage turns raw "page"/"limit" query values into an effective window. It never fails:
// missing, non-numeric or non-positive pages fall back to 1, a missing or non-numeric limit
// falls back to defaultLimit, and numeric limits are clamped to [1, maxLimit]. Pages are capped
// so the offset always fits in an int; a capped page is simply past the last record.
func ParsePage(rawPage, rawLimit string, defaultLimit, maxLimit int) Page {
	if maxLimit < 1 {
		maxLimit = MaxLimit
	}
	if defaultLimit < 1 {
		defaultLimit = DefaultLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}

	// (maxPage-1)*maxLimit <= math.MaxInt
	maxPage := math.MaxInt/maxLimit + 1

	page, err := strconv.Atoi(rawPage)
	switch {
	case errors.Is(err, strconv.ErrRange) && page > 0:
		page = maxPage
	case err != nil || page < 1:
		page = 1
	case page > maxPage:
		page = maxPage
	}

	limit, err := strconv.Atoi(rawLimit)
	switch {
	case errors.Is(err, strconv.ErrRange) && limit > 0:
		limit = maxLimit
	case err != nil:
		limit = defaultLimit
	case limit < 1:
		limit = 1
	case limit > maxLimit:
		limit = maxLimit
	}
	return Page{Page: page, Limit: limit}
}
