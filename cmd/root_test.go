package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/social-session/internal"
	"github.com/iksnae/social-session/testutil"
	"github.com/spf13/viper"
)

// resetFlags restores every package-level flag variable, since cobra
// keeps parsed values between Execute calls.
func resetFlags() {
	cfgFile, verbose, logLevel, archiveDir = "", false, "", ""
	extractFile, extractURL, extractPath, extractJSON, extractMerge = "", "", "", false, false
	crawlStepsFile, crawlExport, crawlHeadless = "", "", false
	dumpsLimit, dumpsJSON = 0, false
	showJSON, showLimit = false, 10
	loadAll, loadJSON = false, false
	exportFormat, exportOutput = "json", ""
	worldOutput = ""
	htmlLabel, htmlPath = "", ""
	chatJSON = false
	historyLimit, historyJSON = 20, false
	healthcheckVerbose = false
}

// setupTestEnv isolates HOME and the config directory and returns an
// empty archive directory for --archive.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	home := testutil.CreateTempDir(t)
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	viper.Set("crawl.settle", "0s")
	viper.Set("crawl.pre_extract", "0s")
	viper.Set("crawl.cooldown", "0s")
	viper.Set("chat.profile_settle", "0s")
	viper.Set("chat.thread_settle", "0s")
	t.Cleanup(func() { internal.SetLogLevel(internal.LogLevelInfo) })

	return filepath.Join(home, "social-session", "scrape-dumps")
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCommand_Version(t *testing.T) {
	setupTestEnv(t)
	out, err := executeCommand(t, "--version")
	if err != nil {
		t.Fatalf("--version error = %v", err)
	}
	if !strings.Contains(out, "dev (commit: unknown, built: unknown)") {
		t.Errorf("--version output = %q", out)
	}
}

func TestRootCommand_Help(t *testing.T) {
	setupTestEnv(t)
	out, err := executeCommand(t, "--help")
	if err != nil {
		t.Fatalf("--help error = %v", err)
	}
	for _, name := range []string{"crawl", "extract", "dumps", "show", "load", "export", "world", "html", "chat", "history", "healthcheck"} {
		if !strings.Contains(out, name) {
			t.Errorf("help does not list %q", name)
		}
	}
}

func TestRootCommand_InvalidLogLevel(t *testing.T) {
	archive := setupTestEnv(t)
	_, err := executeCommand(t, "dumps", "--archive", archive, "--log-level", "shouty")
	if err == nil || !strings.Contains(err.Error(), "unknown log level") {
		t.Errorf("error = %v, want unknown log level", err)
	}
}

func TestLoadConfig_ArchiveOverride(t *testing.T) {
	archive := setupTestEnv(t)
	resetFlags()
	archiveDir = archive

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.ArchiveDir != archive {
		t.Errorf("ArchiveDir = %q, want %q", cfg.ArchiveDir, archive)
	}
	if cfg.Crawl.Settle != 0 {
		t.Errorf("Crawl.Settle = %v, want the override", cfg.Crawl.Settle)
	}
	paths, err := archivePaths(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if paths.Active != archive {
		t.Errorf("Active = %q", paths.Active)
	}
}
