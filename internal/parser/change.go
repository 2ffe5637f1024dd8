package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sokinpui/splice/internal/edit"
)

// change is one structured instruction shared by the block and json
// formats. Line numbers are 1-indexed and inclusive.
type change struct {
	File             string  `json:"file"`
	Action           string  `json:"action"`
	InsertAfterLine  *int    `json:"insert-after-line,omitempty"`
	InsertBeforeLine *int    `json:"insert-before-line,omitempty"`
	StartLine        *int    `json:"start-line,omitempty"`
	EndLine          *int    `json:"end-line,omitempty"`
	Name             string  `json:"name,omitempty"`
	Content          content `json:"content,omitempty"`
}

// content accepts either a string or a list of lines.
type content []string

func (c *content) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*c = strings.Split(strings.TrimSuffix(text, "\n"), "\n")
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("content must be a string or a list of strings")
	}
	*c = lines
	return nil
}

const (
	actionInsert     = "insert"
	actionReplace    = "replace"
	actionDelete     = "delete"
	actionCreateFile = "create-file"
	actionDeleteFile = "delete-file"
	actionRenameFile = "rename-file"
)

// add records c with newLines as the inserted or replacing text.
func (s *editSet) add(c change, newLines []string) error {
	if strings.TrimSpace(c.File) == "" {
		return fmt.Errorf("missing file")
	}
	e := s.get(c.File)

	switch c.Action {
	case actionCreateFile:
		e.IsCreation = true
		e.Replacements = append(e.Replacements, edit.Replacement{NewLines: newLines})

	case actionDeleteFile:
		e.IsDeletion = true

	case actionRenameFile:
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("rename of %s has no name", c.File)
		}
		e.RenameFilePath = s.env.resolve(c.Name)

	case actionInsert:
		var line int
		switch {
		case c.InsertAfterLine != nil:
			line = *c.InsertAfterLine
		case c.InsertBeforeLine != nil:
			line = *c.InsertBeforeLine - 1
		default:
			return fmt.Errorf("insert into %s has no insert-after-line or insert-before-line", c.File)
		}
		if line < 0 {
			return fmt.Errorf("insert into %s at negative line %d", c.File, line)
		}
		e.Replacements = append(e.Replacements, edit.Replacement{StartingLine: line, EndingLine: line, NewLines: newLines})

	case actionReplace, actionDelete:
		if c.StartLine == nil || c.EndLine == nil {
			return fmt.Errorf("%s in %s needs start-line and end-line", c.Action, c.File)
		}
		start, end := *c.StartLine-1, *c.EndLine
		if start < 0 || end < start {
			return fmt.Errorf("%s in %s has invalid range %d-%d", c.Action, c.File, *c.StartLine, *c.EndLine)
		}
		if c.Action == actionDelete {
			newLines = nil
		}
		e.Replacements = append(e.Replacements, edit.Replacement{StartingLine: start, EndingLine: end, NewLines: newLines})

	default:
		return fmt.Errorf("unknown action %q", c.Action)
	}
	return nil
}
