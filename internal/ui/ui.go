package ui

import (
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Out receives the one-off terminal messages printed outside a session.
var Out io.Writer = os.Stderr

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
)

// colors maps the semantic tags used across the engine to terminal colors.
var colors = map[string]*color.Color{
	"green":         color.New(color.FgGreen),
	"light_green":   color.New(color.FgHiGreen),
	"red":           color.New(color.FgRed),
	"yellow":        color.New(color.FgYellow),
	"light_yellow":  color.New(color.FgHiYellow),
	"light_red":     color.New(color.FgHiRed),
	"blue":          color.New(color.FgBlue),
	"light_blue":    color.New(color.FgHiBlue),
	"cyan":          color.New(color.FgCyan),
	"magenta":       color.New(color.FgMagenta),
	"light_magenta": color.New(color.FgHiMagenta),
}

// Colorize renders s with the color named by tag. Unknown or empty tags
// return s unchanged.
func Colorize(s, tag string) string {
	c, ok := colors[tag]
	if !ok {
		return s
	}
	return c.Sprint(s)
}

// Color returns the terminal color for tag, or nil when there is none.
func Color(tag string) *color.Color {
	return colors[tag]
}

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(Out, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(Out, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(Out, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(Out, format+"\n", a...)
}

func Path(format string, a ...interface{}) {
	PathColor.Fprintf(Out, "  "+format+"\n", a...)
}

// Stream is the single outbound text channel of a session. Every notice,
// prompt and rejection goes through Send.
type Stream struct {
	mu      sync.Mutex
	out     io.Writer
	stopped bool
}

// NewStream returns a stream writing to out.
func NewStream(out io.Writer) *Stream {
	return &Stream{out: out}
}

// Writer exposes the underlying writer for producers that render their own
// output, such as the streaming printer.
func (s *Stream) Writer() io.Writer {
	return streamWriter{s}
}

// Send writes message followed by a newline in the color named by tag.
func (s *Stream) Send(message string, tag string) {
	s.write(Colorize(message, tag) + "\n")
}

// Start reopens a stopped stream.
func (s *Stream) Start() {
	s.mu.Lock()
	s.stopped = false
	s.mu.Unlock()
}

// Stop drops every later message.
func (s *Stream) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

func (s *Stream) write(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	io.WriteString(s.out, text)
}

type streamWriter struct{ s *Stream }

func (w streamWriter) Write(p []byte) (int, error) {
	w.s.write(string(p))
	return len(p), nil
}
