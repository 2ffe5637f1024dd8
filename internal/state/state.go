// Package state keeps the history of applied edits so they can be undone.
package state

import (
	"sync"
	"time"
)

// Action names a kind of file operation.
type Action string

const (
	ActionCreate Action = "create"
	ActionModify Action = "modify"
	ActionDelete Action = "delete"
	ActionRename Action = "rename"
)

// Operation represents a single file operation.
type Operation struct {
	// Path is the file's absolute path before the operation.
	Path   string
	Action Action
	// ContentHash is the SHA256 of the file content after the operation.
	// Undo refuses to touch a file whose content no longer matches.
	ContentHash string
	// Previous is the content before the operation; nil for creations.
	Previous []string
	// NewPath is the destination of a rename.
	NewPath string
}

// CurrentPath is where the file lives after the operation.
func (op Operation) CurrentPath() string {
	if op.Action == ActionRename {
		return op.NewPath
	}
	return op.Path
}

// HistoryEntry represents one batch of applied edits.
type HistoryEntry struct {
	Timestamp  int64
	Operations []Operation
}

// Manager is an in-memory undo stack.
type Manager struct {
	mu      sync.Mutex
	history []HistoryEntry
}

// New returns an empty history.
func New() *Manager {
	return &Manager{}
}

// Write adds a new set of operations to the history. Empty sets are dropped.
func (m *Manager) Write(operations []Operation) {
	if len(operations) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, HistoryEntry{
		Timestamp:  time.Now().UTC().Unix(),
		Operations: operations,
	})
}

// GetOperationsToUndo pops the most recent batch. It returns nil when there
// is nothing to undo.
func (m *Manager) GetOperationsToUndo() []Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) == 0 {
		return nil
	}
	last := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	return last.Operations
}

// Len is the number of batches that can be undone.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}
