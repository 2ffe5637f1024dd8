package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"github.com/sokinpui/splice/cli"
	"github.com/sokinpui/splice/internal/codectx"
	"github.com/sokinpui/splice/internal/codefile"
	"github.com/sokinpui/splice/internal/config"
	"github.com/sokinpui/splice/internal/fs"
	"github.com/sokinpui/splice/internal/git"
	"github.com/sokinpui/splice/internal/input"
	"github.com/sokinpui/splice/internal/llm"
	"github.com/sokinpui/splice/internal/logger"
	"github.com/sokinpui/splice/internal/nvim"
	"github.com/sokinpui/splice/internal/parser"
	"github.com/sokinpui/splice/internal/printer"
	"github.com/sokinpui/splice/internal/session"
	"github.com/sokinpui/splice/internal/state"
	"github.com/sokinpui/splice/internal/tui"
	"github.com/sokinpui/splice/internal/ui"
	"github.com/sokinpui/splice/model"
	"github.com/sokinpui/splice/splice"
)

func main() {
	cfg, err := cli.ParseFlags()
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		reportError(err)
		os.Exit(2)
	}

	fileCfg, err := loadConfig(cfg)
	if err != nil {
		reportError(err)
		os.Exit(1)
	}
	if err := initLogger(cfg, fileCfg); err != nil {
		ui.Warning("Logging disabled: %v", err)
	}
	defer logger.Close()

	if cfg.Apply {
		err = runApply(cfg)
	} else {
		err = runSession(cfg, fileCfg)
	}
	if err != nil {
		reportError(err)
		os.Exit(1)
	}
}

// reportError prints err, preceded by its stack trace when it came from a
// recovered panic.
func reportError(err error) {
	var detailed *model.DetailedError
	if errors.As(err, &detailed) {
		ui.Header("\n--- Stack Trace ---")
		fmt.Fprintf(ui.Out, "%s\n", detailed.Stack)
	}
	ui.Error("Error: %v", err)
}

// loadConfig reads the config file and lets explicit flags override it.
func loadConfig(cfg *cli.Config) (config.Config, error) {
	path := cfg.ConfigPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return config.Config{}, err
		}
	}
	fileCfg, err := config.Load(path)
	if err != nil {
		return fileCfg, err
	}

	if cfg.IsSet("model") {
		fileCfg.Model = cfg.Model
	}
	if cfg.IsSet("format") {
		fileCfg.Format = cfg.Format
	}
	if _, err := parser.Get(fileCfg.Format); err != nil {
		return fileCfg, err
	}
	cfg.Format = fileCfg.Format
	return fileCfg, nil
}

func initLogger(cfg *cli.Config, fileCfg config.Config) error {
	logger.SetDebug(cfg.Debug)
	path := fileCfg.LogPath
	if path == "" {
		var err error
		if path, err = logger.DefaultLogPath(); err != nil {
			return err
		}
	}
	return logger.Init(path)
}

func runApply(cfg *cli.Config) error {
	if cfg.Yes && !cfg.NoAnimation {
		return runApplyTUI(cfg)
	}

	stream := ui.NewStream(os.Stdout)
	var prompter splice.Prompter
	if !cfg.Yes {
		reader, closeReader, err := reviewReader()
		if err != nil {
			return err
		}
		defer closeReader()
		prompter = struct {
			*ui.Stream
			*input.Collector
		}{stream, input.NewCollector(reader, stream)}
	}

	app, err := splice.New(cfg, stream, prompter)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := app.Execute(ctx)
	if err != nil {
		return err
	}
	fmt.Print(tui.RenderSummary(summary))
	return nil
}

// reviewReader answers review questions from the terminal even when the
// model output arrives on stdin.
func reviewReader() (input.Reader, func(), error) {
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return input.NewLineReader(os.Stdin), func() {}, nil
	}
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return nil, nil, fmt.Errorf("no terminal to review edits on, use --yes: %w", err)
	}
	return input.NewLineReader(tty), func() { tty.Close() }, nil
}

func runApplyTUI(cfg *cli.Config) error {
	var notices bytes.Buffer
	app, err := splice.New(cfg, ui.NewStream(&notices), nil)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := tui.New(func() (model.Summary, error) { return app.Execute(ctx) })
	final, err := tea.NewProgram(m, tea.WithInput(nil)).Run()
	os.Stdout.Write(notices.Bytes())
	if err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return final.(tui.Model).Err()
}

func runSession(cfg *cli.Config, fileCfg config.Config) error {
	ctx := context.Background()

	root, repo := findRoot(ctx, cfg.Paths)
	var lister codectx.Lister
	var committer *git.Repo
	if repo != nil {
		lister, committer = repo, repo
	}

	stream := ui.NewStream(os.Stdout)
	code := codectx.New(root, lister)
	for _, path := range cfg.Paths {
		invalid, err := code.Include(ctx, path)
		if err != nil {
			return err
		}
		for _, rel := range invalid {
			stream.Send(fmt.Sprintf("File path %s is not text encoded, and was skipped.", rel), "light_yellow")
		}
	}
	for _, path := range cfg.Exclude {
		code.Exclude(path)
	}

	var writer fs.Writer = fs.NewDiskWriter()
	if cfg.Nvim {
		w, err := nvim.New(cfg.Buffer)
		if err != nil {
			return err
		}
		defer w.Close()
		writer = w
	}

	client, err := llm.NewOpenAIClient(llm.Options{Model: fileCfg.Model, BaseURL: fileCfg.BaseURL})
	if err != nil {
		return err
	}
	p, err := parser.Get(fileCfg.Format)
	if err != nil {
		return err
	}

	opts := llm.ConversationOptions{Out: stream.Writer(), Timing: fileCfg.Timing()}
	if cfg.NoAnimation {
		opts.Timing = printer.Timing{}
	} else {
		opts.Indicator = tui.NewSpinner(os.Stderr, "Thinking...")
	}

	deps := session.Deps{
		Stream:       stream,
		Input:        input.NewCollector(input.NewReader(os.Stdin, fileCfg.InputHistory), stream),
		Context:      code,
		Files:        codefile.New(code, writer, state.New(), stream),
		Conversation: llm.NewConversation(client, p, code, opts),
	}
	if committer != nil {
		deps.Git = committer
	}
	s := session.New(deps)

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		<-signals
		s.Stop()
		<-signals
		logger.Get().Warn("forced exit")
		os.Exit(130)
	}()

	s.Start()
	if err := s.Wait(ctx); err != nil {
		return err
	}
	return s.Err()
}

// findRoot picks the git root shared by paths, falling back to the working
// directory outside a repository.
func findRoot(ctx context.Context, paths []string) (string, *git.Repo) {
	var root string
	var err error
	if len(paths) > 0 {
		root, err = git.SharedRoot(ctx, paths)
	} else {
		var wd string
		if wd, err = os.Getwd(); err == nil {
			root, err = git.FindRoot(ctx, wd)
		}
	}
	if err == nil && root != "" {
		return root, git.New(root)
	}

	logger.Get().Info("not using git", "reason", err)
	wd, wdErr := os.Getwd()
	if wdErr != nil {
		wd = "."
	}
	ui.Info("Not in a git repository, paths are relative to:")
	ui.Path("%s", wd)
	return wd, nil
}
