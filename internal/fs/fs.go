package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sokinpui/splice/internal/ui"
)

// Writer is where applied edits land. Paths are absolute.
type Writer interface {
	ReadLines(path string) ([]string, error)
	WriteLines(path string, lines []string) error
	Remove(path string) error
	Rename(oldPath, newPath string) error
}

// DiskWriter writes straight to the filesystem.
type DiskWriter struct{}

// NewDiskWriter returns a writer for the local filesystem.
func NewDiskWriter() *DiskWriter {
	return &DiskWriter{}
}

// ReadLines implements Writer.
func (w *DiskWriter) ReadLines(path string) ([]string, error) {
	return ReadLines(path)
}

// WriteLines creates any missing parent directories, then writes lines
// joined by newlines.
func (w *DiskWriter) WriteLines(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create directory for %s: %w", path, err)
	}
	return os.WriteFile(path, []byte(JoinLines(lines)), 0644)
}

// Remove implements Writer.
func (w *DiskWriter) Remove(path string) error {
	return os.Remove(path)
}

// Hash returns the SHA256 of the file on disk.
func (w *DiskWriter) Hash(path string) (string, error) {
	return GetFileSHA256(path)
}

// Rename moves oldPath to newPath, creating parent directories.
func (w *DiskWriter) Rename(oldPath, newPath string) error {
	if err := os.MkdirAll(filepath.Dir(newPath), 0755); err != nil {
		return fmt.Errorf("could not create directory for %s: %w", newPath, err)
	}
	return os.Rename(oldPath, newPath)
}

// ReadLines splits a file on "\n". A trailing newline yields a final empty
// element so JoinLines round-trips the content exactly.
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return SplitLines(string(data)), nil
}

// SplitLines is the in-memory counterpart of ReadLines.
func SplitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.Split(content, "\n")
}

// JoinLines is the inverse of SplitLines.
func JoinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

// HashLines returns the SHA256 of the content lines would produce on disk.
func HashLines(lines []string) string {
	sum := sha256.Sum256([]byte(JoinLines(lines)))
	return hex.EncodeToString(sum[:])
}

// GetFileSHA256 hashes the file at path.
func GetFileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsEmpty reports whether dir has no entries.
func IsEmpty(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if err == io.EOF {
		return true, nil
	}
	return false, err
}

// PruneEmptyDirs removes the parent directories of path that are left
// empty, walking up until a non-empty directory or root. root itself is
// never removed.
func PruneEmptyDirs(path, root string) error {
	root = filepath.Clean(root)
	for dir := filepath.Dir(path); dir != root; dir = filepath.Dir(dir) {
		rel, err := filepath.Rel(root, dir)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			return nil
		}
		empty, err := IsEmpty(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil || !empty {
			return err
		}
		if err := os.Remove(dir); err != nil {
			return err
		}
	}
	return nil
}

// PathResolver finds absolute paths for files.
type PathResolver struct {
	lookupDirs []string
}

// NewPathResolver creates a new PathResolver. With no lookup directories the
// working directory is used.
func NewPathResolver(lookupDirs []string) (*PathResolver, error) {
	if len(lookupDirs) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
		return &PathResolver{lookupDirs: []string{wd}}, nil
	}

	absDirs := make([]string, 0, len(lookupDirs))
	for _, dir := range lookupDirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			ui.Warning("Invalid lookup directory '%s', ignoring: %v", dir, err)
			continue
		}
		absDirs = append(absDirs, abs)
	}
	if len(absDirs) == 0 {
		return nil, fmt.Errorf("no usable lookup directory")
	}
	return &PathResolver{lookupDirs: absDirs}, nil
}

// Root is the first lookup directory; new files are created under it.
func (r *PathResolver) Root() string {
	return r.lookupDirs[0]
}

// Resolve finds an absolute path, assuming a new file in the first lookup
// directory if it doesn't exist.
func (r *PathResolver) Resolve(relativePath string) string {
	if filepath.IsAbs(relativePath) {
		return filepath.Clean(relativePath)
	}
	if existing := r.ResolveExisting(relativePath); existing != "" {
		return existing
	}
	return filepath.Join(r.lookupDirs[0], relativePath)
}

// ResolveExisting finds an absolute path only if the file exists.
func (r *PathResolver) ResolveExisting(relativePath string) string {
	for _, dir := range r.lookupDirs {
		absPath := filepath.Join(dir, relativePath)
		if _, err := os.Stat(absPath); err == nil {
			return absPath
		}
	}
	return ""
}

// MissingDirs returns, sorted, the parent directories of paths that do not
// exist yet.
func MissingDirs(paths []string) []string {
	seen := make(map[string]struct{})
	for _, path := range paths {
		dir := filepath.Dir(path)
		if dir == "." || dir == "/" {
			continue
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			seen[dir] = struct{}{}
		}
	}

	dirs := make([]string, 0, len(seen))
	for dir := range seen {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}
