// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent of
// domain or business logic.
package utils

import "strconv"

// AtoiDefault converts a string to an int, returning def when the string is
// empty or unparseable.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// NormalizePage clamps a (page, perPage) pair to sane bounds: page is at
// least 1 and perPage falls back to def and never exceeds max.
func NormalizePage(page, perPage, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = def
	}
	if perPage > max {
		perPage = max
	}
	return page, perPage
}
