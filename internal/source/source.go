package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-isatty"
)

// SourceProvider determines and retrieves the model output to apply.
type SourceProvider struct {
	stdin         *os.File
	readClipboard func() (string, error)
	piped         func(*os.File) bool
}

// New creates a SourceProvider reading from os.Stdin or the clipboard.
func New() *SourceProvider {
	return &SourceProvider{
		stdin:         os.Stdin,
		readClipboard: clipboard.ReadAll,
		piped:         isPiped,
	}
}

func isPiped(f *os.File) bool {
	fd := f.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}

// GetContent retrieves content from stdin (if piped) or the clipboard.
// Whitespace-only content is returned as "".
func (sp *SourceProvider) GetContent() (string, error) {
	var content string
	if sp.piped(sp.stdin) {
		data, err := io.ReadAll(sp.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		content = string(data)
	} else {
		text, err := sp.readClipboard()
		if err != nil {
			return "", fmt.Errorf("failed to read from clipboard: %w", err)
		}
		content = text
	}

	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	return content, nil
}
