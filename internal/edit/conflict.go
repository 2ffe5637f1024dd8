package edit

import (
	"strings"

	"github.com/fatih/color"
)

// ResolveConflicts rewrites overlapping replacements so the list can be
// applied in one back-to-front pass. For each pair, the replacement that is
// applied first wins and the other is truncated to end where the winner
// starts. Insertions at the same line are kept and reported as merged.
// Running it on an already disjoint list leaves every range unchanged.
func (e *FileEdit) ResolveConflicts(notifier Notifier) {
	ordered := applicationOrder(e.Replacements)
	for i, replacement := range ordered {
		for _, other := range ordered[i+1:] {
			switch {
			case replacement.Overlaps(*other):
				other.EndingLine = replacement.StartingLine
				other.StartingLine = min(other.StartingLine, other.EndingLine)
				e.printResolution(notifier, *other, *replacement)
			case replacement.InsertionConflict(*other):
				// Listed in file order: other is spliced last and lands above replacement.
				e.printResolution(notifier, *other, *replacement)
			}
		}
	}
}

func (e *FileEdit) printResolution(notifier Notifier, first, second Replacement) {
	if notifier == nil {
		return
	}
	green := color.New(color.FgGreen)

	var b strings.Builder
	b.WriteString("Change overlap detected, auto-merged back to back changes:\n\n")
	b.WriteString(e.FilePath + "\n")
	b.WriteString(changeDelimiter + "\n")
	for _, line := range append(append([]string{}, first.NewLines...), second.NewLines...) {
		b.WriteString(green.Sprint("+ "+line) + "\n")
	}
	notifier.Send(b.String(), "")
}
