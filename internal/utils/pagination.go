// Package utils holds the pagination arithmetic shared by the list
// endpoints: users, recipes and subscriptions.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 int, returning def for empty or
// malformed input. Surrounding spaces count as malformed.
func AtoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// ParsePage reads the page number and size from their raw query values.
// Missing or invalid values fall back to page 1 and defSize; the size is
// clamped to [1, maxSize].
func ParsePage(page, limit string, defSize, maxSize int) Page {
	p := Page{
		Number: AtoiDefault(page, 1),
		Size:   AtoiDefault(limit, defSize),
	}
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defSize
	}
	if maxSize > 0 && p.Size > maxSize {
		p.Size = maxSize
	}
	return p
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// HasNext reports whether rows exist past this page.
func (p Page) HasNext(total int64) bool {
	return int64(p.Number)*int64(p.Size) < total
}

// HasPrev reports whether this page has a predecessor with rows.
func (p Page) HasPrev(total int64) bool {
	return p.Number > 1 && total > 0
}
