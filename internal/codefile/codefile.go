// Package codefile turns reviewed edits into file writes and keeps the
// tracked context and the undo history in step with them.
package codefile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sokinpui/splice/internal/codectx"
	"github.com/sokinpui/splice/internal/edit"
	"github.com/sokinpui/splice/internal/fs"
	"github.com/sokinpui/splice/internal/logger"
	"github.com/sokinpui/splice/internal/state"
)

// ErrNothingToUndo is returned by Undo when the history is empty.
var ErrNothingToUndo = errors.New("no edits to undo")

// Result lists, relative to the root, what WriteChanges did.
type Result struct {
	Created  []string
	Modified []string
	Deleted  []string
	Renamed  []string
	Failed   []string
}

// Manager applies edits through a writer.
type Manager struct {
	context  *codectx.Context
	writer   fs.Writer
	history  *state.Manager
	notifier edit.Notifier
}

// New returns a manager writing through writer. notifier may be nil.
func New(codeContext *codectx.Context, writer fs.Writer, history *state.Manager, notifier edit.Notifier) *Manager {
	return &Manager{
		context:  codeContext,
		writer:   writer,
		history:  history,
		notifier: notifier,
	}
}

// History exposes the undo stack.
func (m *Manager) History() *state.Manager {
	return m.history
}

// WriteChanges applies every edit, recording one history entry for the
// batch. Failures on one file do not stop the others, except a line overlap,
// which means the edits were never resolved and aborts the batch.
func (m *Manager) WriteChanges(ctx context.Context, edits []*edit.FileEdit) (Result, error) {
	log := logger.WithComponent("codefile")
	root := m.context.Root()

	var (
		result Result
		ops    []state.Operation
		errs   []error
	)
	for _, e := range edits {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		rel := e.RelPath(root)
		op, err := m.apply(e)
		if errors.Is(err, edit.ErrLineOverlap) {
			m.history.Write(ops)
			return result, err
		}
		if err != nil {
			log.Error("failed to apply edit", "file", rel, "error", err)
			m.send(fmt.Sprintf("Failed to apply changes to %s: %v", rel, err), "red")
			result.Failed = append(result.Failed, rel)
			errs = append(errs, fmt.Errorf("%s: %w", rel, err))
			continue
		}

		switch op.Action {
		case state.ActionCreate:
			result.Created = append(result.Created, rel)
		case state.ActionDelete:
			result.Deleted = append(result.Deleted, rel)
		case state.ActionRename:
			result.Renamed = append(result.Renamed, rel+" -> "+relTo(root, op.NewPath))
		default:
			result.Modified = append(result.Modified, rel)
		}
		log.Info("edit applied", "file", rel, "action", op.Action, "replacements", len(e.Replacements))
		ops = append(ops, op)
	}

	m.history.Write(ops)
	return result, errors.Join(errs...)
}

func (m *Manager) apply(e *edit.FileEdit) (state.Operation, error) {
	root := m.context.Root()
	rel := e.RelPath(root)

	if e.IsCreation {
		m.send("Creating new file "+rel, "light_green")
		lines, err := e.UpdatedLines(nil)
		if err != nil {
			return state.Operation{}, err
		}
		// New files end with a newline.
		if n := len(lines); n == 0 || lines[n-1] != "" {
			lines = append(lines, "")
		}
		if err := m.writer.WriteLines(e.FilePath, lines); err != nil {
			return state.Operation{}, err
		}
		m.context.SetLines(rel, lines)
		return state.Operation{Path: e.FilePath, Action: state.ActionCreate, ContentHash: fs.HashLines(lines)}, nil
	}

	previous, err := m.currentLines(e.FilePath, rel)
	if err != nil {
		return state.Operation{}, err
	}

	if e.IsDeletion {
		m.send("Deleting file "+rel, "red")
		if err := m.writer.Remove(e.FilePath); err != nil {
			return state.Operation{}, err
		}
		m.context.Remove(rel)
		return state.Operation{Path: e.FilePath, Action: state.ActionDelete, Previous: previous}, nil
	}

	lines, err := e.UpdatedLines(previous)
	if err != nil {
		return state.Operation{}, fmt.Errorf("%s: %w", rel, err)
	}

	op := state.Operation{Path: e.FilePath, Action: state.ActionModify, Previous: previous, ContentHash: fs.HashLines(lines)}
	target, targetRel := e.FilePath, rel
	if e.HasRename() {
		targetRel = relTo(root, e.RenameFilePath)
		m.send(fmt.Sprintf("Renaming file %s to %s", rel, targetRel), "yellow")
		if err := m.writer.Rename(e.FilePath, e.RenameFilePath); err != nil {
			return state.Operation{}, err
		}
		target = e.RenameFilePath
		op.Action = state.ActionRename
		op.NewPath = e.RenameFilePath
	}

	if len(e.Replacements) > 0 {
		if err := m.writer.WriteLines(target, lines); err != nil {
			// Failed edits leave no history entry; move the file back.
			if e.HasRename() {
				if rbErr := m.writer.Rename(e.RenameFilePath, e.FilePath); rbErr != nil {
					err = errors.Join(err, fmt.Errorf("could not move %s back: %w", targetRel, rbErr))
				}
			}
			return state.Operation{}, err
		}
	}
	if e.HasRename() {
		m.context.Rename(rel, targetRel)
	}
	m.context.SetLines(targetRel, lines)
	return op, nil
}

// Undo reverts the most recent batch. Files changed since the batch are left
// alone and reported in the returned error.
func (m *Manager) Undo() error {
	ops := m.history.GetOperationsToUndo()
	if ops == nil {
		return ErrNothingToUndo
	}
	return m.undo(ops)
}

// UndoAll reverts every recorded batch, newest first.
func (m *Manager) UndoAll() error {
	if m.history.Len() == 0 {
		return ErrNothingToUndo
	}
	var errs []error
	for ops := m.history.GetOperationsToUndo(); ops != nil; ops = m.history.GetOperationsToUndo() {
		if err := m.undo(ops); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) undo(ops []state.Operation) error {
	root := m.context.Root()
	var errs []error
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		if err := m.undoOne(op); err != nil {
			errs = append(errs, fmt.Errorf("could not undo %s of %s: %w", op.Action, relTo(root, op.Path), err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) undoOne(op state.Operation) error {
	root := m.context.Root()
	rel := relTo(root, op.Path)

	if op.Action == state.ActionDelete {
		if _, err := os.Stat(op.Path); err == nil {
			return fmt.Errorf("a file now exists at %s", rel)
		}
		if err := m.writer.WriteLines(op.Path, op.Previous); err != nil {
			return err
		}
		m.context.SetLines(rel, op.Previous)
		return nil
	}

	current := op.CurrentPath()
	hash, err := m.contentHash(current)
	if err != nil {
		return err
	}
	if hash != op.ContentHash {
		return fmt.Errorf("%s was modified since the edit", relTo(root, current))
	}

	switch op.Action {
	case state.ActionCreate:
		if err := m.writer.Remove(op.Path); err != nil {
			return err
		}
		m.context.Remove(rel)
		m.prune(op.Path)
	case state.ActionRename:
		if _, err := os.Stat(op.Path); err == nil {
			return fmt.Errorf("a file now exists at %s", rel)
		}
		if err := m.writer.Rename(op.NewPath, op.Path); err != nil {
			return err
		}
		m.context.Rename(relTo(root, op.NewPath), rel)
		m.prune(op.NewPath)
		fallthrough
	default:
		if err := m.writer.WriteLines(op.Path, op.Previous); err != nil {
			return err
		}
		m.context.SetLines(rel, op.Previous)
	}
	return nil
}

// hasher is implemented by writers that can fingerprint a file directly.
type hasher interface {
	Hash(path string) (string, error)
}

func (m *Manager) contentHash(path string) (string, error) {
	if h, ok := m.writer.(hasher); ok {
		return h.Hash(path)
	}
	lines, err := m.writer.ReadLines(path)
	if err != nil {
		return "", err
	}
	return fs.HashLines(lines), nil
}

// prune drops directories an undone file leaves empty.
func (m *Manager) prune(path string) {
	if err := fs.PruneEmptyDirs(path, m.context.Root()); err != nil {
		logger.WithComponent("codefile").Warn("could not remove empty directory", "path", path, "error", err)
	}
}

// currentLines prefers the tracked content and falls back to the writer for
// files that are outside the context.
func (m *Manager) currentLines(path, rel string) ([]string, error) {
	if lines, ok := m.context.Lines(rel); ok {
		return lines, nil
	}
	return m.writer.ReadLines(path)
}

func (m *Manager) send(message, color string) {
	if m.notifier != nil {
		m.notifier.Send(message, color)
	}
}

func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
