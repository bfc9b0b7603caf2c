package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/iksnae/social-session/internal"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	verbose    bool
	logLevel   string
	archiveDir string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "social-session",
	Short: "Capture, merge and browse your social feed sessions",
	Long: `Capture what a logged-in social feed shows you and keep it.

Each page you visit is read into a structured record (stories, posts,
messages, notifications, mutual connections and suggestions), written to a
timestamped dump in your archive and merged into a session dataset without
duplicates. The dataset can be exported or projected for visualization.

Quick Start:
  social-session crawl                  # Visit home, inbox, activity, explore and your profile
  social-session extract                # Capture the page currently open
  social-session dumps                  # List saved dumps, newest first
  social-session load --all             # Merge every dump and print the totals
  social-session export --format md     # Export the merged dataset`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return applyLogging()
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.social-session.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "Set log level. Available: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&archiveDir, "archive", "", "Dump archive directory (default is the per-user config directory)")

	_ = viper.BindPFlag("archive_dir", rootCmd.PersistentFlags().Lookup("archive"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			internal.LogWarn("Failed to find home directory: %v", err)
		} else {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".social-session")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SOCIAL_SESSION")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setConfigDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			internal.LogWarn("Failed to read config %s: %v", viper.ConfigFileUsed(), err)
		}
	} else {
		internal.LogDebug("Using config file %s", viper.ConfigFileUsed())
	}
}

func setConfigDefaults() {
	def := internal.DefaultConfig()
	viper.SetDefault("archive_dir", "")
	viper.SetDefault("legacy_dirs", []string{})
	viper.SetDefault("base_url", def.BaseURL)
	viper.SetDefault("log_level", def.LogLevel)
	viper.SetDefault("journal", def.Journal)
	viper.SetDefault("browser.headless", def.Browser.Headless)
	viper.SetDefault("browser.user_data_dir", "")
	viper.SetDefault("browser.cookies_file", "")
	viper.SetDefault("crawl.settle", def.Crawl.Settle)
	viper.SetDefault("crawl.pre_extract", def.Crawl.PreExtract)
	viper.SetDefault("crawl.cooldown", def.Crawl.Cooldown)
	viper.SetDefault("crawl.step_timeout", def.Crawl.StepTimeout)
	viper.SetDefault("crawl.steps_file", "")
	viper.SetDefault("chat.profile_settle", def.Chat.ProfileSettle)
	viper.SetDefault("chat.thread_settle", def.Chat.ThreadSettle)
}

// applyLogging sets the log level from --verbose, --log-level or the config
func applyLogging() error {
	if verbose {
		internal.SetVerbose(true)
		return nil
	}
	name := logLevel
	if name == "" {
		name = viper.GetString("log_level")
	}
	level, err := internal.ParseLogLevel(name)
	if err != nil {
		return err
	}
	internal.SetLogLevel(level)
	return nil
}

// loadConfig decodes the merged flag, env and file configuration
func loadConfig() (internal.Config, error) {
	cfg := internal.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	if archiveDir != "" {
		cfg.ArchiveDir = archiveDir
	}
	return cfg, nil
}

// archivePaths resolves the archive locations for cfg
func archivePaths(cfg internal.Config) (internal.ArchivePaths, error) {
	paths, err := internal.GetArchivePaths(cfg.ArchiveDir, cfg.LegacyDirs)
	if err != nil {
		return paths, fmt.Errorf("failed to get archive paths: %w", err)
	}
	return paths, nil
}
