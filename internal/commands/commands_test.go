package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/splice/internal/codectx"
	"github.com/sokinpui/splice/internal/codefile"
)

type sent struct{ message, color string }

type stream struct{ sent []sent }

func (s *stream) Send(message, color string) { s.sent = append(s.sent, sent{message, color}) }

func (s *stream) last() sent { return s.sent[len(s.sent)-1] }

type fakeContext struct {
	root     string
	included []string
	invalid  map[string][]string
	excluded []string
	results  []codectx.SearchResult
}

func (f *fakeContext) Root() string { return f.root }

func (f *fakeContext) Include(_ context.Context, path string) ([]string, error) {
	if path == "missing" {
		return nil, errors.New("cannot include missing")
	}
	f.included = append(f.included, path)
	return f.invalid[path], nil
}

func (f *fakeContext) Exclude(path string) int {
	if path == "untracked" {
		return 0
	}
	f.excluded = append(f.excluded, path)
	return 1
}

func (f *fakeContext) Search(query string) ([]codectx.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, codectx.ErrEmptyQuery
	}
	return f.results, nil
}

type fakeFiles struct{ undoErr, undoAllErr error }

func (f *fakeFiles) Undo() error    { return f.undoErr }
func (f *fakeFiles) UndoAll() error { return f.undoAllErr }

type fakeHistory struct{ cleared bool }

func (h *fakeHistory) Clear() { h.cleared = true }

type fakeGit struct {
	messages []string
	err      error
}

func (g *fakeGit) Commit(_ context.Context, message string) error {
	g.messages = append(g.messages, message)
	return g.err
}

type answers []bool

func (a *answers) AskYesNo(context.Context, bool) (bool, error) {
	if len(*a) == 0 {
		return false, errors.New("no more answers")
	}
	next := (*a)[0]
	*a = (*a)[1:]
	return next, nil
}

func newEnv() (*Env, *stream) {
	s := &stream{}
	return &Env{
		Stream:       s,
		Context:      &fakeContext{root: "/repo", invalid: map[string][]string{}},
		Files:        &fakeFiles{},
		Conversation: &fakeHistory{},
		Git:          &fakeGit{},
		Confirmer:    &answers{},
	}, s
}

func TestInvalidCommand(t *testing.T) {
	env, s := newEnv()
	require.NoError(t, Create("frobnicate", env).Apply(context.Background()))
	assert.Equal(t, sent{"frobnicate is not a valid command. Use /help to see a list of all valid commands", "light_yellow"}, s.last())
}

func TestHelp(t *testing.T) {
	env, s := newEnv()
	require.NoError(t, Create("help", env).Apply(context.Background()))
	require.Len(t, s.sent, len(Names()))
	assert.Equal(t, fmt.Sprintf("%-60s%s", "/help", "Displays this message"), s.sent[0].message)
	assert.True(t, strings.HasPrefix(s.sent[1].message, "/commit <commit_message=Automatic commit>"))

	s.sent = nil
	require.NoError(t, Create("help", env).Apply(context.Background(), "include", "nope"))
	require.Len(t, s.sent, 2)
	assert.Equal(t, fmt.Sprintf("%-60s%s", "/include <file1> <file2> <...>", "Add files to the code context"), s.sent[0].message)
	assert.Equal(t, sent{"Error: Command nope does not exist.", "red"}, s.sent[1])
}

func TestCommit(t *testing.T) {
	env, _ := newEnv()
	git := env.Git.(*fakeGit)
	require.NoError(t, Create("commit", env).Apply(context.Background()))
	require.NoError(t, Create("commit", env).Apply(context.Background(), "fix parser"))
	assert.Equal(t, []string{"Automatic commit", "fix parser"}, git.messages)

	env.Git = nil
	s := env.Stream.(*stream)
	require.NoError(t, Create("commit", env).Apply(context.Background()))
	assert.Equal(t, "red", s.last().color)
}

func TestIncludeAndExclude(t *testing.T) {
	env, s := newEnv()
	ctx := context.Background()
	fc := env.Context.(*fakeContext)

	require.NoError(t, Create("include", env).Apply(ctx))
	assert.Equal(t, sent{"No files specified\n", "yellow"}, s.last())

	abs, err := filepath.Abs("bin.dat")
	require.NoError(t, err)
	rel, err := filepath.Rel("/repo", abs)
	require.NoError(t, err)
	fc.invalid["bin.dat"] = []string{rel}

	s.sent = nil
	require.NoError(t, Create("include", env).Apply(ctx, "a.go", "bin.dat", "missing"))
	assert.Equal(t, []sent{
		{"a.go added to context", "green"},
		{"File path " + rel + " is not text encoded, and was skipped.", "light_yellow"},
		{"cannot include missing", "red"},
	}, s.sent)

	s.sent = nil
	require.NoError(t, Create("exclude", env).Apply(ctx, "a.go", "untracked"))
	assert.Equal(t, []sent{
		{"a.go removed from context", "green"},
		{"untracked is not in context", "light_yellow"},
	}, s.sent)
	assert.Equal(t, []string{"a.go"}, fc.excluded)
}

func TestUndo(t *testing.T) {
	env, s := newEnv()
	ctx := context.Background()
	files := env.Files.(*fakeFiles)

	require.NoError(t, Create("undo", env).Apply(ctx))
	assert.Equal(t, sent{"Undo complete", "green"}, s.last())

	files.undoErr = codefile.ErrNothingToUndo
	require.NoError(t, Create("undo", env).Apply(ctx))
	assert.Equal(t, sent{"No edits to undo", "light_yellow"}, s.last())

	files.undoAllErr = errors.New("a.go was modified since the edit")
	s.sent = nil
	require.NoError(t, Create("undo-all", env).Apply(ctx))
	assert.Equal(t, []sent{
		{"a.go was modified since the edit", "red"},
		{"Undos complete", "green"},
	}, s.sent)
}

func TestClear(t *testing.T) {
	env, s := newEnv()
	require.NoError(t, Create("clear", env).Apply(context.Background()))
	assert.True(t, env.Conversation.(*fakeHistory).cleared)
	assert.Equal(t, sent{"Message history cleared", "green"}, s.last())
}

func TestSearchBatches(t *testing.T) {
	env, s := newEnv()
	fc := env.Context.(*fakeContext)
	for i := 0; i < 25; i++ {
		fc.results = append(fc.results, codectx.SearchResult{Path: fmt.Sprintf("f%d.go", i), Score: 1})
	}
	*env.Confirmer.(*answers) = answers{true, false}

	require.NoError(t, Create("search", env).Apply(context.Background(), "needle"))

	var results, prompts int
	for _, m := range s.sent {
		switch {
		case strings.Contains(m.message, " | "):
			results++
		case strings.Contains(m.message, "Show More results?"):
			prompts++
		}
	}
	assert.Equal(t, 20, results)
	assert.Equal(t, 2, prompts)
	assert.Equal(t, "0:   1.000 | f0.go", s.sent[0].message)
	assert.Equal(t, sent{"Search complete", "green"}, s.last())
}

func TestSearchRequiresQuery(t *testing.T) {
	env, s := newEnv()
	require.NoError(t, Create("search", env).Apply(context.Background()))
	assert.Equal(t, sent{"No search query specified\n", "yellow"}, s.last())
}
