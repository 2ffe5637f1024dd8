// Package config loads the user's settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sokinpui/splice/internal/printer"
)

// Config is the content of ~/.splice/config.yaml. Command-line flags
// override it.
type Config struct {
	Model   string `yaml:"model"`
	Format  string `yaml:"format"`
	BaseURL string `yaml:"base_url,omitempty"`
	LogPath string `yaml:"log_path,omitempty"`
	// InputHistory is how many past inputs the interactive prompt keeps.
	InputHistory int           `yaml:"input_history"`
	Printer      PrinterConfig `yaml:"printer"`
}

// PrinterConfig sets the streaming printer pace.
type PrinterConfig struct {
	MaxFinishTime    time.Duration `yaml:"max_finish_time"`
	MinSleep         time.Duration `yaml:"min_sleep"`
	MaxSleep         time.Duration `yaml:"max_sleep"`
	ShutdownMaxSleep time.Duration `yaml:"shutdown_max_sleep"`
}

// DefaultConfig returns the settings used when no file exists.
func DefaultConfig() Config {
	return Config{
		Model:        "gpt-4o",
		Format:       "block",
		InputHistory: 100,
		Printer: PrinterConfig{
			MaxFinishTime:    printer.DefaultTiming.MaxFinishTime,
			MinSleep:         printer.DefaultTiming.MinSleep,
			MaxSleep:         printer.DefaultTiming.MaxSleep,
			ShutdownMaxSleep: printer.DefaultTiming.ShutdownMaxSleep,
		},
	}
}

// DefaultPath returns ~/.splice/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".splice", "config.yaml"), nil
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// WriteDefault writes the default settings to path, creating its directory.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c Config) validate() error {
	p := c.Printer
	if p.MinSleep < 0 || p.MaxSleep < 0 || p.ShutdownMaxSleep < 0 || p.MaxFinishTime < 0 {
		return errors.New("printer durations must not be negative")
	}
	if p.MinSleep > p.MaxSleep {
		return errors.New("printer.min_sleep is larger than printer.max_sleep")
	}
	if c.InputHistory < 0 {
		return errors.New("input_history must not be negative")
	}
	return nil
}

// Timing converts the printer settings.
func (c Config) Timing() printer.Timing {
	return printer.Timing{
		MaxFinishTime:    c.Printer.MaxFinishTime,
		MinSleep:         c.Printer.MinSleep,
		MaxSleep:         c.Printer.MaxSleep,
		ShutdownMaxSleep: c.Printer.ShutdownMaxSleep,
	}
}
