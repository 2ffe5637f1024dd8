package edit

import "context"

// FilterReplacements walks every atomic change of the edit and asks the user
// to keep it. It returns false when nothing is left to apply, including when
// a creation is declined.
func (e *FileEdit) FilterReplacements(ctx context.Context, tracked TrackedFiles, root string, prompter Prompter) (bool, error) {
	var fileLines []string
	if e.IsCreation {
		ok, err := askUserChange(ctx, prompter, root, Display{
			FilePath: e.FilePath,
			Action:   CreateFile,
		}, "Create this file?")
		if err != nil || !ok {
			return false, err
		}
	} else {
		fileLines, _ = tracked.Lines(e.RelPath(root))
	}

	if e.IsDeletion {
		ok, err := askUserChange(ctx, prompter, root, Display{
			FilePath: e.FilePath,
			Removed:  fileLines,
			Action:   DeleteFile,
		}, "Delete this file?")
		if err != nil {
			return false, err
		}
		if !ok {
			e.IsDeletion = false
		}
	}

	if e.HasRename() {
		ok, err := askUserChange(ctx, prompter, root, Display{
			FilePath: e.FilePath,
			Action:   RenameFile,
			NewName:  e.RenameFilePath,
		}, "Rename this file?")
		if err != nil {
			return false, err
		}
		if !ok {
			e.RenameFilePath = ""
		}
	}

	kept := make([]Replacement, 0, len(e.Replacements))
	for _, r := range e.Replacements {
		ok, err := askUserChange(ctx, prompter, root, Display{
			FilePath:     e.FilePath,
			FileLines:    fileLines,
			Added:        r.NewLines,
			Removed:      removedBlock(fileLines, r),
			Action:       UpdateFile,
			StartingLine: r.StartingLine,
			EndingLine:   r.EndingLine,
			NewName:      e.RenameFilePath,
		}, "Keep this change?")
		if err != nil {
			return false, err
		}
		if ok {
			kept = append(kept, r)
		}
	}
	e.Replacements = kept

	return e.Kept(), nil
}

func askUserChange(ctx context.Context, prompter Prompter, root string, display Display, text string) (bool, error) {
	prompter.Send(display.Render(root), "")
	prompter.Send(text, "light_blue")
	return prompter.AskYesNo(ctx, true)
}

func removedBlock(lines []string, r Replacement) []string {
	start := min(r.StartingLine, len(lines))
	end := min(r.EndingLine, len(lines))
	return lines[start:end]
}
