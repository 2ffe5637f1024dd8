package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/sokinpui/splice/internal/parser"
)

// Config holds all the command-line flag values.
type Config struct {
	// Apply selects the offline mode: apply model output from stdin or the
	// clipboard instead of starting a session.
	Apply bool
	// Paths are included in the code context.
	Paths   []string
	Exclude []string
	// LookupDirs are searched for files named by offline input.
	LookupDirs []string

	Format      string
	Model       string
	Nvim        bool
	Buffer      bool
	Yes         bool
	NoAnimation bool
	Debug       bool
	ConfigPath  string

	// set records which flags were given explicitly so they can override
	// the config file.
	set map[string]bool
}

// IsSet reports whether the flag name was given on the command line.
func (c *Config) IsSet(name string) bool {
	return c.set[name]
}

// ParseFlags parses os.Args.
func ParseFlags() (*Config, error) {
	return Parse(os.Args[1:])
}

// Parse defines and parses command-line flags using pflag.
func Parse(args []string) (*Config, error) {
	cfg := &Config{set: make(map[string]bool)}
	flags := pflag.NewFlagSet("splice", pflag.ContinueOnError)

	flags.StringSliceVarP(&cfg.Exclude, "exclude", "x", []string{}, "Paths to leave out of the code context.")
	flags.StringSliceVarP(&cfg.LookupDirs, "lookup-dir", "l", []string{}, "Directories to look for files in when applying (default: current directory).")
	flags.StringVarP(&cfg.Format, "format", "f", parser.DefaultFormat, "Edit format the model answers in: "+strings.Join(parser.Names(), ", ")+".")
	flags.StringVarP(&cfg.Model, "model", "m", "", "Model to use (default from config, then gpt-4o).")
	flags.BoolVar(&cfg.Nvim, "nvim", false, "Write changes through Neovim ($NVIM_LISTEN_ADDRESS or a headless instance).")
	flags.BoolVarP(&cfg.Buffer, "buffer", "b", false, "With --nvim, update buffers without saving them to disk.")
	flags.BoolVarP(&cfg.Yes, "yes", "y", false, "Apply every change without reviewing it (apply mode).")
	flags.BoolVar(&cfg.NoAnimation, "no-animation", false, "Disable the spinner and print model output at once.")
	flags.BoolVar(&cfg.Debug, "debug", false, "Write debug records to the log file.")
	flags.StringVar(&cfg.ConfigPath, "config", "", "Config file (default ~/.splice/config.yaml).")

	flags.Usage = func() {
		fmt.Println("Usage: splice [flags] [paths...]")
		fmt.Println("       splice apply [flags]")
		fmt.Println("\nStart an interactive session with paths in context, or apply model output")
		fmt.Println("from stdin (pipe) or the clipboard.")
		fmt.Println("\nExample: pbpaste | splice apply -f unified-diff")
		fmt.Println("\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	flags.Visit(func(f *pflag.Flag) { cfg.set[f.Name] = true })

	cfg.Paths = flags.Args()
	if len(cfg.Paths) > 0 && cfg.Paths[0] == "apply" {
		cfg.Apply = true
		cfg.Paths = cfg.Paths[1:]
	}

	if _, err := parser.Get(cfg.Format); err != nil {
		return nil, err
	}
	if cfg.Buffer && !cfg.Nvim {
		return nil, fmt.Errorf("error: --buffer requires --nvim")
	}
	if cfg.Apply && len(cfg.Paths) > 0 {
		return nil, fmt.Errorf("error: apply takes no paths, use --lookup-dir")
	}
	return cfg, nil
}
