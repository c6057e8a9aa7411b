package main

import (
	"fmt"
	"os"
	"time"

	"deskvm.dev/deskvm/gen"

	"gopkg.in/yaml.v3"
)

// Config is the content of the configuration file. Command line flags
// override it.
type Config struct {
	Log struct {
		Level   string `yaml:"level"`
		JSON    bool   `yaml:"json"`
		Colored bool   `yaml:"colored"`
		// TimeFormat is a time.Format layout
		TimeFormat string `yaml:"time_format"`
	} `yaml:"log"`

	MailboxSize int64         `yaml:"mailbox_size"`
	Processors  int           `yaml:"processors"`
	Budget      time.Duration `yaml:"budget"`
	Idle        time.Duration `yaml:"idle"`
	Timeout     time.Duration `yaml:"timeout"`

	// Pings is the number of ping/pong round trips of the demo
	Pings int `yaml:"pings"`
}

func defaultConfig() Config {
	var cfg Config
	cfg.Log.Level = gen.DefaultLogLevel.String()
	cfg.Log.TimeFormat = time.TimeOnly
	cfg.MailboxSize = gen.DefaultMailboxSize
	cfg.Processors = gen.DefaultProcessors
	cfg.Budget = gen.DefaultReductionBudget
	cfg.Idle = gen.DefaultProcessorIdle
	cfg.Timeout = 10 * time.Second
	cfg.Pings = 3
	return cfg
}

// loadConfig reads the file over the defaults. An empty path keeps the
// defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("unable to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, err := gen.ParseLogLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level %q: %w", c.Log.Level, err)
	}
	if c.Processors < 1 {
		return fmt.Errorf("processors %d: %w", c.Processors, gen.ErrIncorrect)
	}
	if c.Budget <= 0 || c.Idle <= 0 || c.Timeout <= 0 {
		return fmt.Errorf("budget, idle and timeout must be positive: %w", gen.ErrIncorrect)
	}
	if c.Pings < 0 {
		return fmt.Errorf("pings %d: %w", c.Pings, gen.ErrIncorrect)
	}
	return nil
}
