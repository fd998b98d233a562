package crawler

import (
	"cmp"
	"slices"
)

// Rank returns the records ordered by discount value, highest first.
// Records with equal values keep their relative order; the input is not modified.
func Rank(records []ListingRecord) []ListingRecord {
	ranked := slices.Clone(records)
	slices.SortStableFunc(ranked, func(a, b ListingRecord) int {
		return cmp.Compare(b.DiscountValue, a.DiscountValue)
	})
	return ranked
}
