package util

import "strconv"

// Plural picks the English noun form for n.
func Plural(n int, one, many string) string {
	if n == 1 || n == -1 {
		return one
	}
	return many
}

// Count renders n with its noun, e.g. "3 pumps".
func Count(n int, one, many string) string {
	return strconv.Itoa(n) + " " + Plural(n, one, many)
}
