// Package git shells out to the git binary for repository discovery, file
// listing and commits.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sokinpui/splice/internal/logger"
)

// Runner executes a command in dir and returns its combined output.
type Runner interface {
	CombinedOutput(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

// CombinedOutput implements Runner.
func (ExecRunner) CombinedOutput(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Repo is a git working tree.
type Repo struct {
	root   string
	runner Runner
}

// New returns a repo rooted at root using the real git binary.
func New(root string) *Repo {
	return NewWithRunner(root, ExecRunner{})
}

// NewWithRunner returns a repo that runs git through runner.
func NewWithRunner(root string, runner Runner) *Repo {
	return &Repo{root: root, runner: runner}
}

// Root returns the repository root.
func (r *Repo) Root() string {
	return r.root
}

// FindRoot returns the top level of the repository containing dir.
func FindRoot(ctx context.Context, dir string) (string, error) {
	out, err := ExecRunner{}.CombinedOutput(ctx, dir, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("%s is not inside a git repository: %w", dir, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// SharedRoot returns the repository root shared by every path. Paths that
// are files are looked up through their directory.
func SharedRoot(ctx context.Context, paths []string) (string, error) {
	var root string
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", err
		}
		dir := abs
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			dir = filepath.Dir(abs)
		}
		found, err := FindRoot(ctx, dir)
		if err != nil {
			return "", err
		}
		if root != "" && root != found {
			return "", fmt.Errorf("paths span multiple git repositories: %s and %s", root, found)
		}
		root = found
	}
	return root, nil
}

// ListFiles returns the absolute paths of tracked and untracked, not ignored
// files under dir.
func (r *Repo) ListFiles(ctx context.Context, dir string) ([]string, error) {
	out, err := r.runner.CombinedOutput(ctx, dir, "git", "ls-files", "--cached", "--others", "--exclude-standard", "--full-name", "-z")
	if err != nil {
		return nil, fmt.Errorf("git ls-files failed: %s - %w", strings.TrimSpace(string(out)), err)
	}

	var files []string
	for _, name := range bytes.Split(out, []byte{0}) {
		if len(name) == 0 {
			continue
		}
		files = append(files, filepath.Join(r.root, string(name)))
	}
	return files, nil
}

// Commit stages all changes and commits them with message.
func (r *Repo) Commit(ctx context.Context, message string) error {
	logger.WithComponent("git").Info("committing all changes", "root", r.root)

	if output, err := r.runner.CombinedOutput(ctx, r.root, "git", "add", "-A"); err != nil {
		return fmt.Errorf("git add failed: %s - %w", strings.TrimSpace(string(output)), err)
	}
	if output, err := r.runner.CombinedOutput(ctx, r.root, "git", "commit", "-m", message); err != nil {
		return fmt.Errorf("git commit failed: %s - %w", strings.TrimSpace(string(output)), err)
	}
	return nil
}
