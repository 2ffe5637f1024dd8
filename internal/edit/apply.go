package edit

import "fmt"

// UpdatedLines splices the edit's replacements into a copy of fileLines,
// back to front, and returns the result. The replacements must already be
// disjoint; an overlap yields ErrLineOverlap and no content.
func (e *FileEdit) UpdatedLines(fileLines []string) ([]string, error) {
	lines := append([]string(nil), fileLines...)

	earliestLine := -1
	for _, r := range applicationOrder(e.Replacements) {
		if earliestLine >= 0 && r.EndingLine > earliestLine {
			return nil, fmt.Errorf("%s: replacement %s ends after line %d: %w",
				e.FilePath, r, earliestLine, ErrLineOverlap)
		}
		for len(lines) < r.EndingLine {
			lines = append(lines, "")
		}
		earliestLine = r.StartingLine

		updated := make([]string, 0, len(lines)-(r.EndingLine-r.StartingLine)+len(r.NewLines))
		updated = append(updated, lines[:r.StartingLine]...)
		updated = append(updated, r.NewLines...)
		updated = append(updated, lines[r.EndingLine:]...)
		lines = updated
	}
	return lines, nil
}
