// Package parser turns model output into file edits. Every output format is
// a Parser; the session picks one by name and hands its Prompt to the model.
package parser

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sokinpui/splice/internal/edit"
	"github.com/sokinpui/splice/internal/fs"
)

// Env is what a parser needs to know about the working tree.
type Env struct {
	// Root is the absolute directory relative paths are resolved against.
	Root string
	// Tracked supplies current file content for formats that locate
	// changes by matching text. May be nil.
	Tracked edit.TrackedFiles
	// Notifier receives warnings about skipped output. May be nil.
	Notifier edit.Notifier
}

// Parser converts one model response into edits, at most one per file.
type Parser interface {
	Name() string
	// Prompt is the system prompt that teaches the model the format.
	Prompt() string
	Parse(text string, env Env) ([]*edit.FileEdit, error)
}

var registry = map[string]Parser{
	"block":        BlockParser{},
	"replacement":  ReplacementParser{},
	"unified-diff": UnifiedDiffParser{},
	"markdown":     MarkdownParser{},
	// json is experimental and does not stream well.
	"json": JSONParser{},
}

// DefaultFormat is used when no format is configured.
const DefaultFormat = "block"

// Get returns the parser registered under name.
func Get(name string) (Parser, error) {
	p, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown format %q, expected one of: %s", name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// Names lists the registered formats.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (env Env) resolve(path string) string {
	path = strings.TrimSpace(path)
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(env.Root, path)
}

// lines returns the tracked content of abs, falling back to disk.
func (env Env) lines(abs string) ([]string, bool) {
	if env.Tracked != nil {
		rel, err := filepath.Rel(env.Root, abs)
		if err == nil {
			if lines, ok := env.Tracked.Lines(rel); ok {
				return lines, true
			}
		}
	}
	lines, err := fs.ReadLines(abs)
	if err != nil {
		return nil, false
	}
	return lines, true
}

func (env Env) warn(format string, a ...interface{}) {
	if env.Notifier != nil {
		env.Notifier.Send(fmt.Sprintf(format, a...), "light_yellow")
	}
}

// editSet collects changes per file in the order files first appear.
type editSet struct {
	env    Env
	order  []string
	byPath map[string]*edit.FileEdit
}

func newEditSet(env Env) *editSet {
	return &editSet{env: env, byPath: make(map[string]*edit.FileEdit)}
}

func (s *editSet) get(path string) *edit.FileEdit {
	abs := s.env.resolve(path)
	if e, ok := s.byPath[abs]; ok {
		return e
	}
	e := edit.New(abs)
	s.byPath[abs] = e
	s.order = append(s.order, abs)
	return e
}

func (s *editSet) merge(edits []*edit.FileEdit) {
	for _, other := range edits {
		e := s.get(other.FilePath)
		e.Replacements = append(e.Replacements, other.Replacements...)
		e.IsCreation = e.IsCreation || other.IsCreation
		e.IsDeletion = e.IsDeletion || other.IsDeletion
		if other.HasRename() {
			e.RenameFilePath = other.RenameFilePath
		}
	}
}

// list drops files that ended up with nothing to do.
func (s *editSet) list() []*edit.FileEdit {
	edits := make([]*edit.FileEdit, 0, len(s.order))
	for _, path := range s.order {
		if e := s.byPath[path]; e.Kept() {
			edits = append(edits, e)
		}
	}
	return edits
}
