// Package commands implements the slash commands available in a session.
package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sokinpui/splice/internal/codectx"
	"github.com/sokinpui/splice/internal/codefile"
)

// Notifier receives command output.
type Notifier interface {
	Send(message, color string)
}

// Confirmer answers yes/no questions.
type Confirmer interface {
	AskYesNo(ctx context.Context, defaultYes bool) (bool, error)
}

// CodeContext is the tracked-file state commands operate on.
type CodeContext interface {
	Root() string
	Include(ctx context.Context, path string) ([]string, error)
	Exclude(path string) int
	Search(query string) ([]codectx.SearchResult, error)
}

// Undoer reverts applied edits.
type Undoer interface {
	Undo() error
	UndoAll() error
}

// History is the conversation history.
type History interface {
	Clear()
}

// Committer records the working tree.
type Committer interface {
	Commit(ctx context.Context, message string) error
}

// Env is what commands act on. Git may be nil outside a repository.
type Env struct {
	Stream       Notifier
	Context      CodeContext
	Files        Undoer
	Conversation History
	Git          Committer
	Confirmer    Confirmer
}

// Command is one slash command bound to an Env.
type Command interface {
	Apply(ctx context.Context, args ...string) error
	ArgumentNames() []string
	HelpMessage() string
}

type factory func(env *Env) Command

// names fixes the order commands are listed in by /help.
var names = []string{"help", "commit", "include", "exclude", "undo", "undo-all", "clear", "search"}

var registry = map[string]factory{
	"help":     func(env *Env) Command { return &helpCommand{env: env} },
	"commit":   func(env *Env) Command { return &commitCommand{env: env} },
	"include":  func(env *Env) Command { return &includeCommand{env: env} },
	"exclude":  func(env *Env) Command { return &excludeCommand{env: env} },
	"undo":     func(env *Env) Command { return &undoCommand{env: env} },
	"undo-all": func(env *Env) Command { return &undoAllCommand{env: env} },
	"clear":    func(env *Env) Command { return &clearCommand{env: env} },
	"search":   func(env *Env) Command { return &searchCommand{env: env} },
}

// Names lists the registered commands.
func Names() []string {
	return append([]string(nil), names...)
}

// Create returns the command registered under name, or one that reports
// the name as invalid.
func Create(name string, env *Env) Command {
	f, ok := registry[name]
	if !ok {
		return &invalidCommand{env: env, name: name}
	}
	return f(env)
}

type invalidCommand struct {
	env  *Env
	name string
}

func (c *invalidCommand) Apply(context.Context, ...string) error {
	c.env.Stream.Send(c.name+" is not a valid command. Use /help to see a list of all valid commands", "light_yellow")
	return nil
}

func (c *invalidCommand) ArgumentNames() []string { return nil }
func (c *invalidCommand) HelpMessage() string     { return "" }

const helpMessageWidth = 60

type helpCommand struct{ env *Env }

func (c *helpCommand) Apply(_ context.Context, args ...string) error {
	requested := args
	if len(requested) == 0 {
		requested = names
	}
	for _, name := range requested {
		f, ok := registry[name]
		if !ok {
			c.env.Stream.Send(fmt.Sprintf("Error: Command %s does not exist.", name), "red")
			continue
		}
		cmd := f(c.env)
		usage := []string{"/" + name}
		for _, arg := range cmd.ArgumentNames() {
			usage = append(usage, "<"+arg+">")
		}
		c.env.Stream.Send(fmt.Sprintf("%-*s%s", helpMessageWidth, strings.Join(usage, " "), cmd.HelpMessage()), "")
	}
	return nil
}

func (c *helpCommand) ArgumentNames() []string { return nil }
func (c *helpCommand) HelpMessage() string     { return "Displays this message" }

const defaultCommitMessage = "Automatic commit"

type commitCommand struct{ env *Env }

func (c *commitCommand) Apply(ctx context.Context, args ...string) error {
	if c.env.Git == nil {
		c.env.Stream.Send("Not inside a git repository, nothing to commit.", "red")
		return nil
	}
	message := defaultCommitMessage
	if len(args) > 0 {
		message = args[0]
	}
	if err := c.env.Git.Commit(ctx, message); err != nil {
		c.env.Stream.Send(fmt.Sprintf("Commit failed: %v", err), "red")
		return nil
	}
	c.env.Stream.Send("Committed: "+message, "green")
	return nil
}

func (c *commitCommand) ArgumentNames() []string {
	return []string{"commit_message=" + defaultCommitMessage}
}

func (c *commitCommand) HelpMessage() string {
	return "Commits all of your unstaged and staged changes to git"
}

type includeCommand struct{ env *Env }

func (c *includeCommand) Apply(ctx context.Context, args ...string) error {
	if len(args) == 0 {
		c.env.Stream.Send("No files specified\n", "yellow")
		return nil
	}
	root := c.env.Context.Root()
	for _, path := range args {
		invalid, err := c.env.Context.Include(ctx, path)
		if err != nil {
			c.env.Stream.Send(err.Error(), "red")
			continue
		}
		abs, _ := filepath.Abs(path)
		skipped := false
		for _, rel := range invalid {
			c.env.Stream.Send(fmt.Sprintf("File path %s is not text encoded, and was skipped.", rel), "light_yellow")
			if filepath.Join(root, rel) == abs {
				skipped = true
			}
		}
		if !skipped {
			c.env.Stream.Send(path+" added to context", "green")
		}
	}
	return nil
}

func (c *includeCommand) ArgumentNames() []string { return []string{"file1", "file2", "..."} }
func (c *includeCommand) HelpMessage() string     { return "Add files to the code context" }

type excludeCommand struct{ env *Env }

func (c *excludeCommand) Apply(_ context.Context, args ...string) error {
	if len(args) == 0 {
		c.env.Stream.Send("No files specified\n", "yellow")
		return nil
	}
	for _, path := range args {
		if c.env.Context.Exclude(path) == 0 {
			c.env.Stream.Send(path+" is not in context", "light_yellow")
			continue
		}
		c.env.Stream.Send(path+" removed from context", "green")
	}
	return nil
}

func (c *excludeCommand) ArgumentNames() []string { return []string{"file1", "file2", "..."} }
func (c *excludeCommand) HelpMessage() string     { return "Remove files from the code context" }

type undoCommand struct{ env *Env }

func (c *undoCommand) Apply(context.Context, ...string) error {
	if reportUndo(c.env.Stream, c.env.Files.Undo()) {
		c.env.Stream.Send("Undo complete", "green")
	}
	return nil
}

func (c *undoCommand) ArgumentNames() []string { return nil }
func (c *undoCommand) HelpMessage() string     { return "Undo the last change made by splice" }

type undoAllCommand struct{ env *Env }

func (c *undoAllCommand) Apply(context.Context, ...string) error {
	if reportUndo(c.env.Stream, c.env.Files.UndoAll()) {
		c.env.Stream.Send("Undos complete", "green")
	}
	return nil
}

func (c *undoAllCommand) ArgumentNames() []string { return nil }
func (c *undoAllCommand) HelpMessage() string     { return "Undo all changes made by splice" }

// reportUndo sends undo errors and reports whether anything was undone.
func reportUndo(stream Notifier, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, codefile.ErrNothingToUndo):
		stream.Send("No edits to undo", "light_yellow")
		return false
	default:
		stream.Send(err.Error(), "red")
		return true
	}
}

type clearCommand struct{ env *Env }

func (c *clearCommand) Apply(context.Context, ...string) error {
	c.env.Conversation.Clear()
	c.env.Stream.Send("Message history cleared", "green")
	return nil
}

func (c *clearCommand) ArgumentNames() []string { return nil }
func (c *clearCommand) HelpMessage() string {
	return "Clear the current conversation's message history"
}

const searchResultBatchSize = 10

type searchCommand struct{ env *Env }

func (c *searchCommand) Apply(ctx context.Context, args ...string) error {
	if len(args) == 0 {
		c.env.Stream.Send("No search query specified\n", "yellow")
		return nil
	}
	results, err := c.env.Context.Search(strings.Join(args, " "))
	if err != nil {
		c.env.Stream.Send(err.Error(), "red")
		return nil
	}

	for i, result := range results {
		c.env.Stream.Send(fmt.Sprintf("%-4s %.3f | %s", fmt.Sprintf("%d:", i), result.Score, result.Path), "")
		shown := i + 1
		if shown%searchResultBatchSize == 0 && shown < len(results) {
			c.env.Stream.Send("\nShow More results? ", "")
			more, err := c.env.Confirmer.AskYesNo(ctx, true)
			if err != nil {
				return err
			}
			if !more {
				break
			}
		}
	}
	c.env.Stream.Send("Search complete", "green")
	return nil
}

func (c *searchCommand) ArgumentNames() []string { return []string{"search_query"} }
func (c *searchCommand) HelpMessage() string     { return "Search the files in code context." }
