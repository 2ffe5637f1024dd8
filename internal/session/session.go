// Package session runs the interactive loop: it collects requests, asks the
// model for edits and walks the user through applying them.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/shlex"
	"github.com/google/uuid"

	"github.com/sokinpui/splice/internal/codectx"
	"github.com/sokinpui/splice/internal/codefile"
	"github.com/sokinpui/splice/internal/commands"
	"github.com/sokinpui/splice/internal/edit"
	"github.com/sokinpui/splice/internal/logger"
	"github.com/sokinpui/splice/internal/parser"
	"github.com/sokinpui/splice/internal/tui"
	"github.com/sokinpui/splice/model"
)

// stopPollInterval is how often Stop checks whether the main loop exited.
const stopPollInterval = 100 * time.Millisecond

// Stream is the session's output channel.
type Stream interface {
	Send(message, color string)
	Start()
	Stop()
}

// Input collects user requests and answers.
type Input interface {
	ReadLine(ctx context.Context) (string, error)
	AskYesNo(ctx context.Context, defaultYes bool) (bool, error)
}

// Conversation is the model side of the session.
type Conversation interface {
	AddUserMessage(content string)
	Clear()
	GetModelResponse(ctx context.Context, env parser.Env) ([]*edit.FileEdit, error)
}

// Deps are the collaborators of a session. Git may be nil.
type Deps struct {
	Stream       Stream
	Input        Input
	Context      *codectx.Context
	Files        *codefile.Manager
	Conversation Conversation
	Git          commands.Committer
}

type lifecycle int

const (
	stateIdle lifecycle = iota
	stateRunning
	stateStopping
)

func (l lifecycle) String() string {
	switch l {
	case stateRunning:
		return "running"
	case stateStopping:
		return "stopping"
	default:
		return "idle"
	}
}

// Session is one interactive run. Start and Stop return immediately; use
// IsStopped or Wait to observe the end.
type Session struct {
	ID uuid.UUID

	stream  Stream
	input   Input
	context *codectx.Context
	files   *codefile.Manager
	conv    Conversation
	cmdEnv  *commands.Env
	log     *slog.Logger

	mu          sync.Mutex
	state       lifecycle
	mainRunning bool
	cancel      context.CancelFunc
	err         error
}

// New creates an idle session.
func New(d Deps) *Session {
	id := uuid.New()
	return &Session{
		ID:      id,
		stream:  d.Stream,
		input:   d.Input,
		context: d.Context,
		files:   d.Files,
		conv:    d.Conversation,
		cmdEnv: &commands.Env{
			Stream:       d.Stream,
			Context:      d.Context,
			Files:        d.Files,
			Conversation: d.Conversation,
			Git:          d.Git,
			Confirmer:    d.Input,
		},
		log: logger.WithSession(id.String()),
	}
}

// Start launches the main loop.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateIdle {
		s.log.Warn("session already started", "state", s.state)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state = stateRunning
	s.mainRunning = true
	s.err = nil
	s.log.Info("session started")

	go s.runMain(ctx)
}

// Stop cancels the main loop and, once it has exited, closes the stream.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateStopping:
		s.log.Warn("session is already stopping")
		return
	case stateIdle:
		s.log.Warn("session is already stopped")
		return
	}

	s.state = stateStopping
	cancel := s.cancel
	go func() {
		cancel()
		for s.isMainRunning() {
			time.Sleep(stopPollInterval)
		}
		s.stream.Stop()

		s.mu.Lock()
		s.state = stateIdle
		s.mu.Unlock()
		s.log.Debug("session stopped")
	}()
}

// IsStopped reports whether the session is idle.
func (s *Session) IsStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateIdle
}

// Wait blocks until the session is idle or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	ticker := time.NewTicker(stopPollInterval / 2)
	defer ticker.Stop()
	for !s.IsStopped() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Err returns the error that ended the last run, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) isMainRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mainRunning
}

func (s *Session) runMain(ctx context.Context) {
	s.stream.Start()
	err := s.main(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		err = nil
	}
	if err != nil {
		var detailed *model.DetailedError
		if errors.As(err, &detailed) {
			s.log.Error("main loop panicked", "error", err, "stack", string(detailed.Stack))
		} else {
			s.log.Error("main loop failed", "error", err)
		}
		s.stream.Send(fmt.Sprintf("Error: %v", err), "red")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mainRunning = false
	s.err = err
	if s.state == stateRunning {
		s.state = stateIdle
		s.cancel()
	}
	s.log.Debug("main loop stopped")
}

func (s *Session) main(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &model.DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	s.context.Display(s.stream)
	s.stream.Send("Type 'q' or use Ctrl-C to quit at any time.", "cyan")
	s.stream.Send("What can I do for you?", "light_blue")

	needUserRequest := true
	for {
		if needUserRequest {
			line, err := s.input.ReadLine(ctx)
			if err != nil {
				return err
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "q":
				return nil
			case line == "":
				continue
			case strings.HasPrefix(line, "/"):
				if err := s.runCommand(ctx, line[1:]); err != nil {
					return err
				}
				continue
			}
			s.conv.AddUserMessage(line)
		}

		edits, err := s.conv.GetModelResponse(ctx, s.parserEnv())
		if err != nil {
			return err
		}
		edits = s.validEdits(edits)
		if len(edits) == 0 {
			needUserRequest = true
			continue
		}
		needUserRequest, err = s.feedback(ctx, edits)
		if err != nil {
			return err
		}
	}
}

func (s *Session) parserEnv() parser.Env {
	return parser.Env{Root: s.context.Root(), Tracked: s.context, Notifier: s.stream}
}

func (s *Session) runCommand(ctx context.Context, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		s.stream.Send(fmt.Sprintf("Could not read command: %v", err), "red")
		return nil
	}
	if len(args) == 0 {
		args = []string{""}
	}
	s.log.Debug("running command", "command", args[0])
	return commands.Create(args[0], s.cmdEnv).Apply(ctx, args[1:]...)
}

// validEdits resolves conflicts inside each edit and drops the invalid ones.
func (s *Session) validEdits(edits []*edit.FileEdit) []*edit.FileEdit {
	root := s.context.Root()
	valid := edits[:0]
	for _, e := range edits {
		e.ResolveConflicts(s.stream)
		if e.IsValid(s.context, root, s.stream) {
			valid = append(valid, e)
		}
	}
	return valid
}

type prompter struct {
	Stream
	Input
}

// feedback asks what to do with edits and reports whether the next turn
// needs a new request from the user.
func (s *Session) feedback(ctx context.Context, edits []*edit.FileEdit) (bool, error) {
	s.stream.Send("Apply these changes? 'Y/n/i' or provide feedback.", "light_blue")
	line, err := s.input.ReadLine(ctx)
	if err != nil {
		return false, err
	}

	answer := strings.TrimSpace(line)
	switch strings.ToLower(answer) {
	case "", "y", "yes":
	case "n", "no":
		s.stream.Send("Not applying changes.", "light_yellow")
		return true, nil
	case "i":
		root := s.context.Root()
		p := prompter{Stream: s.stream, Input: s.input}
		kept := edits[:0]
		for _, e := range edits {
			ok, err := e.FilterReplacements(ctx, s.context, root, p)
			if err != nil {
				return false, err
			}
			if ok {
				kept = append(kept, e)
			}
		}
		edits = kept
	default:
		s.conv.AddUserMessage(answer)
		return false, nil
	}

	if len(edits) == 0 {
		s.stream.Send("No changes to apply.", "light_yellow")
		return true, nil
	}
	return true, s.apply(ctx, edits)
}

func (s *Session) apply(ctx context.Context, edits []*edit.FileEdit) error {
	result, err := s.files.WriteChanges(ctx, edits)
	if errors.Is(err, edit.ErrLineOverlap) || errors.Is(err, context.Canceled) {
		return err
	}
	if err != nil {
		s.log.Warn("some edits failed", "error", err)
	}

	summary := model.Summary{
		Created:  result.Created,
		Modified: result.Modified,
		Deleted:  result.Deleted,
		Renamed:  result.Renamed,
		Failed:   result.Failed,
	}
	s.stream.Send(strings.TrimRight(tui.RenderSummary(summary), "\n"), "")
	s.stream.Send("Changes applied.", "light_blue")
	return nil
}
