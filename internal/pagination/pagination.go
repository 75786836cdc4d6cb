// Package pagination windows an ascending sequence of episode numbers into fixed-size pages.
//
// Numbers need not be contiguous: a title may have episodes 1..12 and 14 with 13 missing,
// so pages are computed over positions in the sequence, never over number arithmetic.
package pagination

import (
	"errors"
	"sort"
)

// DefaultPageSize is the number of episodes shown on one page.
const DefaultPageSize = 25

// ErrNotFound is returned when the requested episode is not part of the sequence.
var ErrNotFound = errors.New("episode not in sequence")

// Direction moves a page window backwards or forwards.
type Direction int

const (
	Back Direction = -1
	Next Direction = 1
)

// Page is the window of the sequence that contains the selected episode.
type Page struct {
	Shown    []int
	Selected int
	Start    int
	HasPrev  bool
	HasNext  bool
}

// Compute returns the page of all that contains current. all must be ascending.
// A non-positive size falls back to DefaultPageSize.
func Compute(all []int, current, size int) (Page, error) {
	if size <= 0 {
		size = DefaultPageSize
	}

	idx, ok := indexOf(all, current)
	if !ok {
		return Page{}, ErrNotFound
	}

	start := (idx / size) * size
	end := start + size
	if end > len(all) {
		end = len(all)
	}

	shown := make([]int, end-start)
	copy(shown, all[start:end])

	return Page{
		Shown:    shown,
		Selected: current,
		Start:    start,
		HasPrev:  start > 0,
		HasNext:  start+size < len(all),
	}, nil
}

// Advance returns the episode a whole page away from current, clamped to the ends of all.
func Advance(all []int, current int, dir Direction, size int) (int, error) {
	if size <= 0 {
		size = DefaultPageSize
	}

	idx, ok := indexOf(all, current)
	if !ok {
		return 0, ErrNotFound
	}

	target := idx + int(dir)*size
	if target < 0 {
		target = 0
	}
	if target > len(all)-1 {
		target = len(all) - 1
	}

	return all[target], nil
}

func indexOf(all []int, n int) (int, bool) {
	idx := sort.SearchInts(all, n)
	if idx < len(all) && all[idx] == n {
		return idx, true
	}
	return 0, false
}
