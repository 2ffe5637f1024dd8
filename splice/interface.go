package splice

import (
	"context"
	"fmt"

	"github.com/sokinpui/splice/cli"
)

// Config for using splice as a library. Edits are applied without review.
type Config struct {
	// Format of the content; defaults to "block".
	Format string
	// LookupDirs are searched for the files the content names; defaults to
	// the working directory.
	LookupDirs []string
	// Nvim writes through Neovim; Buffer then skips saving.
	Nvim   bool
	Buffer bool
}

// Apply parses the given content string and applies the changes to files.
// It returns a summary of the operations in a map.
func Apply(content string, config Config) (map[string][]string, error) {
	cliCfg := &cli.Config{
		Format:     config.Format,
		LookupDirs: config.LookupDirs,
		Nvim:       config.Nvim,
		Buffer:     config.Buffer,
		Yes:        true,
	}

	app, err := New(cliCfg, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize splice app: %w", err)
	}

	summary, err := app.processAndApply(context.Background(), content)
	if err != nil {
		return nil, err
	}

	result := map[string][]string{
		"Created":  summary.Created,
		"Modified": summary.Modified,
		"Deleted":  summary.Deleted,
		"Renamed":  summary.Renamed,
		"Failed":   summary.Failed,
	}

	return result, nil
}
