// Package codectx tracks the files the model can see and edit. It is the
// single source of truth for their content between edits: the review
// workflow and the applier read from here, not from disk.
package codectx

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	sfs "github.com/sokinpui/splice/internal/fs"
)

// Notifier receives user-facing notices.
type Notifier interface {
	Send(message string, color string)
}

// Lister enumerates the files under a directory. The git repo implements
// it so that ignored files stay out of context.
type Lister interface {
	ListFiles(ctx context.Context, dir string) ([]string, error)
}

// Context maps paths relative to the root to file lines. It is not safe for
// concurrent use; the session loop is its only writer.
type Context struct {
	root   string
	lister Lister
	files  map[string][]string
}

// New returns an empty context rooted at root. lister may be nil, in which
// case directories are walked directly.
func New(root string, lister Lister) *Context {
	return &Context{
		root:   root,
		lister: lister,
		files:  make(map[string][]string),
	}
}

// Root is the directory every tracked path is relative to.
func (c *Context) Root() string {
	return c.root
}

// Include adds path, or every file under it when it is a directory. It
// returns the paths that were skipped because they are not UTF-8 text.
func (c *Context) Include(ctx context.Context, path string) ([]string, error) {
	abs := c.abs(path)
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot include %s: %w", path, err)
	}

	files := []string{abs}
	if info.IsDir() {
		files, err = c.listDir(ctx, abs)
		if err != nil {
			return nil, err
		}
	}

	var invalid []string
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return invalid, fmt.Errorf("cannot read %s: %w", file, err)
		}
		if !utf8.Valid(data) {
			invalid = append(invalid, c.rel(file))
			continue
		}
		c.files[c.rel(file)] = sfs.SplitLines(string(data))
	}
	return invalid, nil
}

// Exclude removes path, or every tracked file under it. It returns how many
// files were dropped.
func (c *Context) Exclude(path string) int {
	rel := c.rel(c.abs(path))
	prefix := rel + string(filepath.Separator)
	removed := 0
	for tracked := range c.files {
		if tracked == rel || rel == "." || strings.HasPrefix(tracked, prefix) {
			delete(c.files, tracked)
			removed++
		}
	}
	return removed
}

// Lines returns the tracked content of relPath.
func (c *Context) Lines(relPath string) ([]string, bool) {
	lines, ok := c.files[filepath.Clean(relPath)]
	return lines, ok
}

// SetLines records new content for relPath, tracking it if needed.
func (c *Context) SetLines(relPath string, lines []string) {
	c.files[filepath.Clean(relPath)] = lines
}

// Remove stops tracking relPath.
func (c *Context) Remove(relPath string) {
	delete(c.files, filepath.Clean(relPath))
}

// Rename moves the tracked content of oldRel to newRel.
func (c *Context) Rename(oldRel, newRel string) {
	oldRel, newRel = filepath.Clean(oldRel), filepath.Clean(newRel)
	if lines, ok := c.files[oldRel]; ok {
		delete(c.files, oldRel)
		c.files[newRel] = lines
	}
}

// Paths returns the tracked paths in sorted order.
func (c *Context) Paths() []string {
	paths := make([]string, 0, len(c.files))
	for p := range c.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Display announces what is in context.
func (c *Context) Display(notifier Notifier) {
	notifier.Send("Code Context:", "blue")
	notifier.Send("  Directory: "+c.root, "")
	paths := c.Paths()
	if len(paths) == 0 {
		notifier.Send("  No files included in context.", "yellow")
		notifier.Send("", "")
		return
	}
	notifier.Send("  Included files:", "")
	for _, p := range paths {
		notifier.Send("    "+p, "green")
	}
	notifier.Send("", "")
}

// CodeMessage renders every tracked file with 1-indexed line numbers, the
// form the model refers back to when it proposes edits.
func (c *Context) CodeMessage() string {
	var b strings.Builder
	b.WriteString("Code Files:\n\n")
	for _, p := range c.Paths() {
		b.WriteString(p)
		b.WriteString("\n")
		for i, line := range c.files[p] {
			fmt.Fprintf(&b, "%d:%s\n", i+1, line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (c *Context) listDir(ctx context.Context, dir string) ([]string, error) {
	if c.lister != nil {
		if files, err := c.lister.ListFiles(ctx, dir); err == nil {
			var under []string
			for _, f := range files {
				if f == dir || strings.HasPrefix(f, dir+string(filepath.Separator)) {
					under = append(under, f)
				}
			}
			return under, nil
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot list %s: %w", dir, err)
	}
	return files, nil
}

func (c *Context) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Join(c.root, path)
	}
	return abs
}

func (c *Context) rel(abs string) string {
	rel, err := filepath.Rel(c.root, abs)
	if err != nil {
		return abs
	}
	return rel
}
