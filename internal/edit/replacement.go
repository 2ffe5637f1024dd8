package edit

import (
	"fmt"
	"sort"
)

// Replacement replaces the lines [StartingLine, EndingLine) of a file with
// NewLines. Line numbers are 0-indexed. An empty range is an insertion
// before StartingLine.
type Replacement struct {
	StartingLine int
	EndingLine   int
	NewLines     []string
}

// Less orders replacements by EndingLine, then by StartingLine.
// Replacements are applied in the reverse of this order.
func (r Replacement) Less(other Replacement) bool {
	if r.EndingLine != other.EndingLine {
		return r.EndingLine < other.EndingLine
	}
	return r.StartingLine < other.StartingLine
}

// IsInsertion reports whether the replacement removes no lines.
func (r Replacement) IsInsertion() bool {
	return r.StartingLine == r.EndingLine
}

// Overlaps reports whether the two line ranges intersect.
func (r Replacement) Overlaps(other Replacement) bool {
	return other.EndingLine > r.StartingLine && other.StartingLine < r.EndingLine
}

// InsertionConflict reports whether both replacements insert at the same line.
func (r Replacement) InsertionConflict(other Replacement) bool {
	return r.IsInsertion() && other.IsInsertion() && r.StartingLine == other.StartingLine
}

func (r Replacement) String() string {
	return fmt.Sprintf("[%d,%d) +%d", r.StartingLine, r.EndingLine, len(r.NewLines))
}

// applicationOrder returns pointers into replacements ordered back to
// front. Replacements with identical ranges are ordered so that, once
// spliced, their new lines appear in discovery order. The slice itself is
// left in discovery order.
func applicationOrder(replacements []Replacement) []*Replacement {
	idx := make([]int, len(replacements))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		ra, rb := replacements[idx[a]], replacements[idx[b]]
		if ra.Less(rb) != rb.Less(ra) {
			return rb.Less(ra)
		}
		return idx[a] > idx[b]
	})

	ordered := make([]*Replacement, len(idx))
	for i, j := range idx {
		ordered[i] = &replacements[j]
	}
	return ordered
}
