package edit

import "fmt"

// IsValid checks the edit against the filesystem and the tracked files.
// A failed check drops the whole edit. A rename onto an existing file only
// cancels the rename. notifier may be nil.
func (e *FileEdit) IsValid(tracked TrackedFiles, root string, notifier Notifier) bool {
	rel := e.RelPath(root)
	if e.IsCreation {
		if exists(e.FilePath) {
			warn(notifier, fmt.Sprintf("File %s already exists, canceling creation.", rel))
			return false
		}
	} else {
		if !exists(e.FilePath) {
			warn(notifier, fmt.Sprintf("File %s does not exist, canceling all edits to file.", rel))
			return false
		}
		if _, ok := tracked.Lines(rel); !ok {
			warn(notifier, fmt.Sprintf("File %s not in context, canceling all edits to file.", rel))
			return false
		}
	}

	if e.HasRename() && exists(e.RenameFilePath) {
		warn(notifier, fmt.Sprintf(
			"File %s being renamed to existing file %s, canceling rename.",
			rel, relPath(root, e.RenameFilePath),
		))
		e.RenameFilePath = ""
	}
	return true
}

func warn(notifier Notifier, message string) {
	if notifier != nil {
		notifier.Send(message, "light_yellow")
	}
}
