// Package engine implements the scan and aggregation core: it resolves
// each configured source to a directory for the target date, extracts
// deduplicated chart numbers from entry names, and combines the raw
// per-source sets into special items.
package engine

import (
	"sort"
	"time"
)

// ChartSet is a deduplicated set of chart numbers. Sets returned by the
// engine are never mutated afterwards.
type ChartSet map[int]struct{}

// NewChartSet builds a set from the given numbers.
func NewChartSet(nums ...int) ChartSet {
	s := make(ChartSet, len(nums))

	for _, n := range nums {
		s[n] = struct{}{}
	}

	return s
}

// Add inserts n into the set.
func (s ChartSet) Add(n int) { s[n] = struct{}{} }

// Has reports whether n is in the set.
func (s ChartSet) Has(n int) bool {
	_, ok := s[n]

	return ok
}

// Len returns the number of distinct chart numbers.
func (s ChartSet) Len() int { return len(s) }

// Sorted returns the chart numbers in ascending order.
func (s ChartSet) Sorted() []int {
	nums := make([]int, 0, len(s))

	for n := range s {
		nums = append(nums, n)
	}

	sort.Ints(nums)

	return nums
}

// Intersect returns the intersection of the given sets. With no sets the
// result is empty.
func Intersect(sets ...ChartSet) ChartSet {
	if len(sets) == 0 {
		return ChartSet{}
	}

	// Start from the smallest set to keep the probe loop short.
	smallest := sets[0]
	for _, s := range sets[1:] {
		if len(s) < len(smallest) {
			smallest = s
		}
	}

	out := ChartSet{}

	for n := range smallest {
		inAll := true

		for _, s := range sets {
			if !s.Has(n) {
				inAll = false

				break
			}
		}

		if inAll {
			out.Add(n)
		}
	}

	return out
}

// Union returns the union of the given sets.
func Union(sets ...ChartSet) ChartSet {
	out := ChartSet{}

	for _, s := range sets {
		for n := range s {
			out.Add(n)
		}
	}

	return out
}

// SourceResult is the outcome of scanning one source for one date.
type SourceResult struct {
	// Count is the number of distinct patients, not files: one patient
	// producing several files (both eyes, repeat exposures) counts once.
	Count int

	// Charts is the deduplicated set behind Count.
	Charts ChartSet

	// Diagnostics are human-readable notes about skipped entries,
	// cache usage, and fallback decisions, in scan order.
	Diagnostics []string
}

// SpecialResult is the outcome of one special item.
type SpecialResult struct {
	Count int

	// Diagnostics carries sub-source breakdowns for union items and the
	// operand split for sum items.
	Diagnostics []string
}

// Result is the immutable output of one aggregation run.
type Result struct {
	// Date is the scanned calendar date.
	Date time.Time

	// Sources maps source id to its scan result. Every configured
	// source has an entry, including failed ones.
	Sources map[string]SourceResult

	// Specials maps special item id to its result.
	Specials map[string]SpecialResult

	// Warnings are run-level problems that did not stop the run:
	// unreachable paths, degraded cache mode.
	Warnings []string

	// Notes are informational lines, such as "no dated folder" for an
	// always-organized source on a non-operating day.
	Notes []string
}
