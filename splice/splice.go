package splice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/sokinpui/splice/cli"
	"github.com/sokinpui/splice/internal/codectx"
	"github.com/sokinpui/splice/internal/codefile"
	"github.com/sokinpui/splice/internal/edit"
	"github.com/sokinpui/splice/internal/fs"
	"github.com/sokinpui/splice/internal/logger"
	"github.com/sokinpui/splice/internal/nvim"
	"github.com/sokinpui/splice/internal/parser"
	"github.com/sokinpui/splice/internal/source"
	"github.com/sokinpui/splice/internal/state"
	"github.com/sokinpui/splice/model"
)

// DetailedError enhances a standard error with a stack trace.
type DetailedError = model.DetailedError

// Prompter is what reviewing edits talks to.
type Prompter = edit.Prompter

// App orchestrates applying model output to files outside a session.
type App struct {
	cfg            *cli.Config
	pathResolver   *fs.PathResolver
	sourceProvider *source.SourceProvider
	parser         parser.Parser
	notifier       edit.Notifier
	prompter       Prompter
}

// New creates a new App instance. prompter is used to review edits unless
// cfg.Yes is set; notifier receives warnings. Either may be nil.
func New(cfg *cli.Config, notifier edit.Notifier, prompter Prompter) (*App, error) {
	pathResolver, err := fs.NewPathResolver(cfg.LookupDirs)
	if err != nil {
		return nil, err
	}
	format := cfg.Format
	if format == "" {
		format = parser.DefaultFormat
	}
	p, err := parser.Get(format)
	if err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = discard{}
	}
	if prompter == nil && !cfg.Yes {
		return nil, fmt.Errorf("reviewing edits needs a prompter, or set Yes")
	}

	return &App{
		cfg:            cfg,
		pathResolver:   pathResolver,
		sourceProvider: source.New(),
		parser:         p,
		notifier:       notifier,
		prompter:       prompter,
	}, nil
}

type discard struct{}

func (discard) Send(string, string) {}

// Root is the directory relative paths in model output resolve against.
func (a *App) Root() string {
	return a.pathResolver.Root()
}

// Execute reads the source content and applies it.
func (a *App) Execute(ctx context.Context) (summary model.Summary, err error) {
	// Centralized panic recovery.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	content, err := a.sourceProvider.GetContent()
	if err != nil {
		return model.Summary{}, err
	}
	if content == "" {
		return model.Summary{Message: "Source is empty. Nothing to process."}, nil
	}
	return a.processAndApply(ctx, content)
}

// plan parses content into validated edits against a context tracking every
// file the edits touch.
func (a *App) plan(ctx context.Context, content string) (*codectx.Context, []*edit.FileEdit, error) {
	root := a.Root()
	edits, err := a.parser.Parse(content, parser.Env{Root: root, Notifier: a.notifier})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create execution plan: %w", err)
	}

	code := codectx.New(root, nil)
	valid := edits[:0]
	for _, e := range edits {
		a.relocate(e)
		if !e.IsCreation {
			if _, err := os.Stat(e.FilePath); err == nil {
				if _, err := code.Include(ctx, e.FilePath); err != nil {
					a.notifier.Send(err.Error(), "red")
					continue
				}
			}
		}
		e.ResolveConflicts(a.notifier)
		if e.IsValid(code, root, a.notifier) {
			valid = append(valid, e)
		}
	}
	return code, valid, nil
}

// relocate points an edit of a missing file at the lookup directory that
// has it.
func (a *App) relocate(e *edit.FileEdit) {
	if e.IsCreation {
		return
	}
	if _, err := os.Stat(e.FilePath); err == nil {
		return
	}
	rel, err := filepath.Rel(a.Root(), e.FilePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	if found := a.pathResolver.ResolveExisting(rel); found != "" {
		e.FilePath = found
	}
}

// processAndApply runs the whole pipeline on content.
func (a *App) processAndApply(ctx context.Context, content string) (model.Summary, error) {
	code, edits, err := a.plan(ctx, content)
	if err != nil {
		return model.Summary{}, err
	}
	if len(edits) == 0 {
		return model.Summary{Message: "No valid changes were generated. Nothing to do."}, nil
	}

	if !a.cfg.Yes {
		kept := edits[:0]
		for _, e := range edits {
			ok, err := e.FilterReplacements(ctx, code, code.Root(), a.prompter)
			if err != nil {
				return model.Summary{}, err
			}
			if ok {
				kept = append(kept, e)
			}
		}
		edits = kept
		if len(edits) == 0 {
			return model.Summary{Message: "All changes were declined."}, nil
		}
	}

	if ok, err := a.confirmDirs(ctx, edits); err != nil || !ok {
		return model.Summary{Message: "Cancelled."}, err
	}

	writer, closeWriter, err := a.writer()
	if err != nil {
		return model.Summary{}, err
	}
	defer closeWriter()

	manager := codefile.New(code, writer, state.New(), a.notifier)
	result, err := manager.WriteChanges(ctx, edits)
	summary := model.Summary{
		Created:  result.Created,
		Modified: result.Modified,
		Deleted:  result.Deleted,
		Renamed:  result.Renamed,
		Failed:   result.Failed,
	}
	if err != nil {
		logger.WithComponent("splice").Warn("some edits failed", "error", err)
	}
	if a.cfg.Nvim && a.cfg.Buffer {
		summary.Message = "Buffers updated, not saved."
	}
	return summary, nil
}

// confirmDirs lists the directories new files need and, when reviewing,
// asks before creating them.
func (a *App) confirmDirs(ctx context.Context, edits []*edit.FileEdit) (bool, error) {
	var targets []string
	for _, e := range edits {
		switch {
		case e.IsCreation:
			targets = append(targets, e.FilePath)
		case e.HasRename():
			targets = append(targets, e.RenameFilePath)
		}
	}
	dirs := fs.MissingDirs(targets)
	if len(dirs) == 0 {
		return true, nil
	}

	a.notifier.Send("The following directories will be created:", "yellow")
	for _, dir := range dirs {
		a.notifier.Send("  "+dir, "")
	}
	if a.cfg.Yes {
		return true, nil
	}
	a.notifier.Send("Continue?", "light_blue")
	return a.prompter.AskYesNo(ctx, true)
}

func (a *App) writer() (fs.Writer, func(), error) {
	if !a.cfg.Nvim {
		return fs.NewDiskWriter(), func() {}, nil
	}
	w, err := nvim.New(a.cfg.Buffer)
	if err != nil {
		return nil, nil, err
	}
	return w, w.Close, nil
}

// Preview returns the content every created or modified file would have
// after applying content, keyed by absolute path. Nothing is written.
func (a *App) Preview(ctx context.Context, content string) (map[string]string, error) {
	code, edits, err := a.plan(ctx, content)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]string, len(edits))
	for _, e := range edits {
		if e.IsDeletion {
			continue
		}
		var current []string
		if !e.IsCreation {
			current, _ = code.Lines(e.RelPath(code.Root()))
		}
		lines, err := e.UpdatedLines(current)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.FilePath, err)
		}
		if n := len(lines); e.IsCreation && (n == 0 || lines[n-1] != "") {
			lines = append(lines, "")
		}
		path := e.FilePath
		if e.HasRename() {
			path = e.RenameFilePath
		}
		changes[path] = fs.JoinLines(lines)
	}
	return changes, nil
}
