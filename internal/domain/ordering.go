package domain

import (
	"cmp"
	"slices"
	"strings"
)

// Cookbook ordering. Positions are stored as integers and fully renumbered on
// every reorder; the functions here guarantee a total, deterministic order
// even over malformed data (duplicate positions, zero or negative positions,
// duplicate names).

// ParsePosition coerces a stored position. Any non-positive value is treated
// as the fallback (the entry's current index + 1), so a total order exists
// for any input.
func ParsePosition(raw, fallback int) int {
	if raw >= 1 {
		return raw
	}
	return fallback
}

// OrderedIndexes returns a permutation of indexes into cookbooks sorted by
// (coerced position, name, original index) ascending. Name comparison is
// case-sensitive; the original index is the final unconditional tie-break, so
// repeated calls over the same input always yield the same order.
func OrderedIndexes(cookbooks []Entry) []int {
	order := make([]int, len(cookbooks))
	for i := range order {
		order[i] = i
	}

	slices.SortFunc(order, func(a, b int) int {
		pa := ParsePosition(cookbooks[a].Position, a+1)
		pb := ParsePosition(cookbooks[b].Position, b+1)
		if c := cmp.Compare(pa, pb); c != 0 {
			return c
		}
		if c := strings.Compare(cookbooks[a].Name, cookbooks[b].Name); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	return order
}

// Renumber rewrites each cookbook's position to rank+1 following order (a
// permutation from OrderedIndexes, possibly rearranged by Move). Afterwards
// positions are a contiguous 1..N permutation with no gaps or duplicates.
func Renumber(cookbooks []Entry, order []int) {
	for rank, idx := range order {
		if idx < 0 || idx >= len(cookbooks) {
			continue
		}
		cookbooks[idx].Position = rank + 1
	}
}

// Move removes the element at rank from and reinserts it at rank to, shifting
// intermediate ranks by one. Used for both up/down nudges and drag-and-drop.
// Returns order unchanged when from == to or either rank is out of bounds.
func Move(order []int, from, to int) []int {
	if from == to || from < 0 || from >= len(order) || to < 0 || to >= len(order) {
		return order
	}

	moved := slices.Clone(order)
	idx := moved[from]
	moved = slices.Delete(moved, from, from+1)
	return slices.Insert(moved, to, idx)
}

// NextPosition returns one more than the maximum coerced position present, or
// 1 for an empty collection. A cookbook appended with this position always
// sorts last without requiring a full renumber.
func NextPosition(cookbooks []Entry) int {
	max := 0
	for i, cb := range cookbooks {
		if p := ParsePosition(cb.Position, i+1); p > max {
			max = p
		}
	}
	return max + 1
}
