package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the user configuration. Keys mirror the YAML config file.
type Config struct {
	ArchiveDir string        `mapstructure:"archive_dir" yaml:"archive_dir"`
	LegacyDirs []string      `mapstructure:"legacy_dirs" yaml:"legacy_dirs"`
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	LogLevel   string        `mapstructure:"log_level" yaml:"log_level"`
	Browser    BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Crawl      CrawlConfig   `mapstructure:"crawl" yaml:"crawl"`
	Chat       ChatConfig    `mapstructure:"chat" yaml:"chat"`
	Journal    bool          `mapstructure:"journal" yaml:"journal"`
}

// BrowserConfig configures the Chrome surface
type BrowserConfig struct {
	Headless    bool   `mapstructure:"headless" yaml:"headless"`
	UserDataDir string `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	CookiesFile string `mapstructure:"cookies_file" yaml:"cookies_file"`
}

// CrawlConfig configures the auto crawl
type CrawlConfig struct {
	Settle      time.Duration `mapstructure:"settle" yaml:"settle"`
	PreExtract  time.Duration `mapstructure:"pre_extract" yaml:"pre_extract"`
	Cooldown    time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
	StepTimeout time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`
	StepsFile   string        `mapstructure:"steps_file" yaml:"steps_file"`
	Steps       []CrawlStep   `mapstructure:"steps" yaml:"steps"`
}

// ChatConfig configures the chat scrape waits
type ChatConfig struct {
	ProfileSettle time.Duration `mapstructure:"profile_settle" yaml:"profile_settle"`
	ThreadSettle  time.Duration `mapstructure:"thread_settle" yaml:"thread_settle"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		LogLevel: "info",
		Browser: BrowserConfig{
			Headless: false,
		},
		Crawl: CrawlConfig{
			Settle:      DefaultCrawlDelays.Settle,
			PreExtract:  DefaultCrawlDelays.PreExtract,
			Cooldown:    DefaultCrawlDelays.Cooldown,
			StepTimeout: DefaultCrawlDelays.StepTimeout,
		},
		Chat: ChatConfig{
			ProfileSettle: DefaultChatDelays.ProfileSettle,
			ThreadSettle:  DefaultChatDelays.ThreadSettle,
		},
		Journal: true,
	}
}

// CrawlDelays returns the configured crawl delays
func (c Config) CrawlDelays() CrawlDelays {
	return CrawlDelays{
		Settle:      c.Crawl.Settle,
		PreExtract:  c.Crawl.PreExtract,
		Cooldown:    c.Crawl.Cooldown,
		StepTimeout: c.Crawl.StepTimeout,
	}
}

// ChatDelays returns the configured chat delays
func (c Config) ChatDelays() ChatDelays {
	return ChatDelays{
		ProfileSettle: c.Chat.ProfileSettle,
		ThreadSettle:  c.Chat.ThreadSettle,
	}
}

// CrawlSteps returns the configured step list: the steps file if set,
// then inline steps, then the defaults.
func (c Config) CrawlSteps() ([]CrawlStep, error) {
	if c.Crawl.StepsFile != "" {
		return LoadCrawlSteps(c.Crawl.StepsFile)
	}
	if len(c.Crawl.Steps) > 0 {
		return validateSteps(c.Crawl.Steps)
	}
	return append([]CrawlStep{}, DefaultCrawlSteps...), nil
}

// BrowserProfileDir returns the Chrome user data dir, defaulting to a
// directory beside the archive.
func (c Config) BrowserProfileDir(paths ArchivePaths) string {
	if c.Browser.UserDataDir != "" {
		return c.Browser.UserDataDir
	}
	return filepath.Join(filepath.Dir(paths.Active), "browser-profile")
}

type stepsFile struct {
	Steps []CrawlStep `yaml:"steps"`
}

// LoadCrawlSteps reads a YAML step list, either a bare sequence or a
// mapping with a "steps" key.
func LoadCrawlSteps(path string) ([]CrawlStep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PersistenceError{Path: path, Op: "read", Err: err}
	}

	var steps []CrawlStep
	if err := yaml.Unmarshal(data, &steps); err != nil {
		var wrapped stepsFile
		if err2 := yaml.Unmarshal(data, &wrapped); err2 != nil {
			return nil, fmt.Errorf("failed to parse steps file %s: %w", path, err)
		}
		steps = wrapped.Steps
	}
	return validateSteps(steps)
}

func validateSteps(steps []CrawlStep) ([]CrawlStep, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("no crawl steps defined")
	}
	out := make([]CrawlStep, 0, len(steps))
	for i, s := range steps {
		if !strings.HasPrefix(s.Path, "/") {
			return nil, fmt.Errorf("step %d: path %q must start with /", i+1, s.Path)
		}
		if s.Label == "" {
			s.Label = s.Path
		}
		out = append(out, s)
	}
	return out, nil
}
