// Package nvim routes applied edits through a Neovim instance so open
// buffers and their undo history stay in sync with the files.
package nvim

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/neovim/go-client/nvim"

	"github.com/sokinpui/splice/internal/logger"
)

const (
	undoDir = "~/.local/state/nvim/undo/"
)

// BufferWriter implements fs.Writer on top of Neovim buffers. It connects to
// the instance in NVIM_LISTEN_ADDRESS or starts a headless one.
type BufferWriter struct {
	nvim          *nvim.Nvim
	bufferOnly    bool
	isSelfStarted bool
	cmd           *exec.Cmd
	socketPath    string
}

// New connects to Neovim. With bufferOnly, buffers are updated but never
// written to disk.
func New(bufferOnly bool) (*BufferWriter, error) {
	log := logger.WithComponent("nvim")

	if addr := os.Getenv("NVIM_LISTEN_ADDRESS"); addr != "" {
		v, err := nvim.Dial(addr)
		if err == nil {
			log.Info("connected to running nvim", "addr", addr)
			return &BufferWriter{nvim: v, bufferOnly: bufferOnly}, nil
		}
		log.Warn("could not dial nvim, starting headless instance", "addr", addr, "error", err)
	}

	tmpDir, err := os.MkdirTemp("", "splice-nvim-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir for nvim: %w", err)
	}
	socketPath := filepath.Join(tmpDir, "nvim.sock")

	cmd := exec.Command("nvim", "--headless", "--clean", "--listen", socketPath)
	if err := cmd.Start(); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to start headless nvim: %w. Is 'nvim' in your PATH?", err)
	}

	for i := 0; i < 20; i++ {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	v, err := nvim.Dial(socketPath)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to connect to headless nvim: %w", err)
	}

	w := &BufferWriter{
		nvim:          v,
		bufferOnly:    bufferOnly,
		isSelfStarted: true,
		cmd:           cmd,
		socketPath:    socketPath,
	}
	w.configureTempInstance()
	return w, nil
}

// configureTempInstance sets up undofile for persistent history.
func (w *BufferWriter) configureTempInstance() {
	home, _ := os.UserHomeDir()
	expandedUndoDir := strings.Replace(undoDir, "~", home, 1)
	os.MkdirAll(expandedUndoDir, 0755)

	b := w.nvim.NewBatch()
	b.Command("set undofile")
	b.Command(fmt.Sprintf("set undodir=%s", expandedUndoDir))
	b.Command("set noswapfile")
	b.Command("set hidden")
	if err := b.Execute(); err != nil {
		logger.WithComponent("nvim").Warn("could not configure headless nvim", "error", err)
	}
}

// Close disconnects from Neovim and cleans up if it was self-started.
func (w *BufferWriter) Close() {
	if w.nvim != nil {
		w.nvim.Close()
	}
	if w.isSelfStarted && w.cmd != nil && w.cmd.Process != nil {
		if err := w.cmd.Process.Kill(); err == nil {
			w.cmd.Wait()
			os.RemoveAll(filepath.Dir(w.socketPath))
		}
	}
}

// ReadLines returns the buffer content of path, loading it if needed. Neovim
// writes a final newline, so the lines end with an empty element the way a
// split of the file content would.
func (w *BufferWriter) ReadLines(path string) ([]string, error) {
	buf, err := w.open(path)
	if err != nil {
		return nil, err
	}
	raw, err := w.nvim.BufferLines(buf, 0, -1, true)
	if err != nil {
		return nil, fmt.Errorf("failed to read buffer for %s: %w", path, err)
	}
	lines := make([]string, len(raw), len(raw)+1)
	for i, l := range raw {
		lines[i] = string(l)
	}
	return append(lines, ""), nil
}

// WriteLines replaces the buffer content of path and saves it unless the
// writer is buffer-only.
func (w *BufferWriter) WriteLines(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create directory for %s: %w", path, err)
	}
	escaped, err := w.escape(path)
	if err != nil {
		return err
	}

	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	byteContent := make([][]byte, len(lines))
	for i, s := range lines {
		byteContent[i] = []byte(s)
	}

	b := w.nvim.NewBatch()
	b.Command("edit " + escaped)
	b.SetBufferLines(0, 0, -1, true, byteContent)
	if !w.bufferOnly {
		b.Command("write")
	}
	if err := b.Execute(); err != nil {
		return fmt.Errorf("failed to update buffer for %s: %w", path, err)
	}
	return nil
}

// Remove wipes the buffer of path and deletes the file.
func (w *BufferWriter) Remove(path string) error {
	escaped, err := w.escape(path)
	if err != nil {
		return err
	}
	if err := w.nvim.Command("silent! bwipeout! " + escaped); err != nil {
		return fmt.Errorf("failed to wipe buffer for %s: %w", path, err)
	}
	return os.Remove(path)
}

// Rename points the buffer of oldPath at newPath. Unless buffer-only, the
// buffer is written under the new name and the old file removed.
func (w *BufferWriter) Rename(oldPath, newPath string) error {
	if err := os.MkdirAll(filepath.Dir(newPath), 0755); err != nil {
		return fmt.Errorf("could not create directory for %s: %w", newPath, err)
	}
	oldEscaped, err := w.escape(oldPath)
	if err != nil {
		return err
	}
	newEscaped, err := w.escape(newPath)
	if err != nil {
		return err
	}

	b := w.nvim.NewBatch()
	b.Command("edit " + oldEscaped)
	b.Command("file " + newEscaped)
	if !w.bufferOnly {
		b.Command("write")
	}
	if err := b.Execute(); err != nil {
		return fmt.Errorf("failed to rename buffer %s: %w", oldPath, err)
	}
	if w.bufferOnly {
		return nil
	}
	return os.Remove(oldPath)
}

func (w *BufferWriter) open(path string) (nvim.Buffer, error) {
	escaped, err := w.escape(path)
	if err != nil {
		return 0, err
	}
	var buf nvim.Buffer
	b := w.nvim.NewBatch()
	b.Command("edit " + escaped)
	b.CurrentBuffer(&buf)
	if err := b.Execute(); err != nil {
		return 0, fmt.Errorf("failed to open buffer for %s: %w", path, err)
	}
	return buf, nil
}

func (w *BufferWriter) escape(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	var escaped string
	if err := w.nvim.Call("fnameescape", &escaped, absPath); err != nil {
		return "", fmt.Errorf("failed to escape %s: %w", path, err)
	}
	return escaped, nil
}
