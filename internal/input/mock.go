package input

import (
	"io"
	"sync"
)

// MockReader returns predetermined lines, then io.EOF.
type MockReader struct {
	mu     sync.Mutex
	lines  []string
	index  int
	blocks chan struct{}
}

// NewMockReader returns a reader that yields lines in order.
func NewMockReader(lines ...string) *MockReader {
	return &MockReader{lines: lines}
}

// BlockAtEnd makes the reader block instead of returning io.EOF once its
// lines run out, until Release is called.
func (m *MockReader) BlockAtEnd() *MockReader {
	m.blocks = make(chan struct{})
	return m
}

// Release unblocks a reader configured with BlockAtEnd.
func (m *MockReader) Release() {
	close(m.blocks)
}

// ReadLine implements Reader.
func (m *MockReader) ReadLine() (string, error) {
	m.mu.Lock()
	if m.index < len(m.lines) {
		line := m.lines[m.index]
		m.index++
		m.mu.Unlock()
		return line, nil
	}
	blocks := m.blocks
	m.mu.Unlock()

	if blocks != nil {
		<-blocks
	}
	return "", io.EOF
}

// Consumed returns how many lines have been read.
func (m *MockReader) Consumed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}
