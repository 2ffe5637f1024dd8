// Package edit holds the model for proposed file changes and the engine that
// resolves, validates, reviews and applies them.
package edit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

// ErrLineOverlap is returned by the applier when two replacements still
// overlap. Conflict resolution makes this unreachable; seeing it means an
// upstream step was skipped.
var ErrLineOverlap = errors.New("line overlap in replacements")

// Notifier is the user-facing text channel. Color is a semantic tag such as
// "green", "yellow", "light_yellow" or "red"; an empty tag means no color.
type Notifier interface {
	Send(message string, color string)
}

// Confirmer asks the user a yes/no question. defaultYes is returned when the
// user gives no explicit answer.
type Confirmer interface {
	AskYesNo(ctx context.Context, defaultYes bool) (bool, error)
}

// Prompter is the combination the review workflow talks to.
type Prompter interface {
	Notifier
	Confirmer
}

// TrackedFiles exposes the content of the files currently in context,
// keyed by path relative to the repository root.
type TrackedFiles interface {
	Lines(relPath string) ([]string, bool)
}

// FileEdit is a proposed change to exactly one file.
type FileEdit struct {
	// FilePath is absolute.
	FilePath     string
	Replacements []Replacement
	IsCreation   bool
	IsDeletion   bool
	// RenameFilePath is absolute; empty means no rename.
	RenameFilePath string
}

// New returns an edit for path with no changes attached.
func New(path string) *FileEdit {
	return &FileEdit{FilePath: path}
}

// HasRename reports whether the edit still renames its file.
func (e *FileEdit) HasRename() bool {
	return e.RenameFilePath != ""
}

// Kept reports whether anything is left for the applier to do.
func (e *FileEdit) Kept() bool {
	return e.IsCreation || e.IsDeletion || e.HasRename() || len(e.Replacements) > 0
}

// RelPath returns the edit's path relative to root, falling back to the
// absolute path when it is outside root.
func (e *FileEdit) RelPath(root string) string {
	return relPath(root, e.FilePath)
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
