package edit

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

const (
	changeDelimiter = "============================================================"
	contextLines    = 2
)

// ActionType describes what a displayed change does to its file.
type ActionType int

const (
	UpdateFile ActionType = iota
	CreateFile
	DeleteFile
	RenameFile
)

// Display is everything needed to render one reviewable change.
type Display struct {
	FilePath     string
	FileLines    []string
	Added        []string
	Removed      []string
	Action       ActionType
	StartingLine int
	EndingLine   int
	NewName      string
}

var (
	addedColor   = color.New(color.FgGreen)
	removedColor = color.New(color.FgRed)
	headerColor  = color.New(color.FgBlue, color.Bold)
	faintColor   = color.New(color.Faint)
)

// Render formats the change the way it is shown before a review prompt.
func (d Display) Render(root string) string {
	var b strings.Builder
	b.WriteString(d.header(root) + "\n")
	b.WriteString(changeDelimiter + "\n")

	switch d.Action {
	case CreateFile:
		for _, line := range d.Added {
			b.WriteString(addedColor.Sprint("+ "+line) + "\n")
		}
	case DeleteFile:
		for _, line := range d.Removed {
			b.WriteString(removedColor.Sprint("- "+line) + "\n")
		}
	case RenameFile:
	default:
		start := max(0, d.StartingLine-contextLines)
		for i := start; i < d.StartingLine && i < len(d.FileLines); i++ {
			b.WriteString(faintColor.Sprintf("%4d  %s", i+1, d.FileLines[i]) + "\n")
		}
		for _, line := range d.Removed {
			b.WriteString(removedColor.Sprint("- "+line) + "\n")
		}
		for _, line := range d.Added {
			b.WriteString(addedColor.Sprint("+ "+line) + "\n")
		}
		end := min(len(d.FileLines), d.EndingLine+contextLines)
		for i := d.EndingLine; i < end; i++ {
			b.WriteString(faintColor.Sprintf("%4d  %s", i+1, d.FileLines[i]) + "\n")
		}
	}
	b.WriteString(changeDelimiter)
	return b.String()
}

func (d Display) header(root string) string {
	path := relPath(root, d.FilePath)
	switch d.Action {
	case CreateFile:
		return headerColor.Sprintf("%s*", path)
	case DeleteFile:
		return headerColor.Sprintf("%s (deleted)", path)
	case RenameFile:
		return headerColor.Sprintf("%s → %s", path, relPath(root, d.NewName))
	default:
		if d.NewName != "" {
			return headerColor.Sprintf("%s → %s", path, relPath(root, d.NewName))
		}
		return headerColor.Sprint(filepath.ToSlash(path)) + fmt.Sprintf(" [%d-%d]", d.StartingLine+1, d.EndingLine)
	}
}
