package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/iksnae/social-session/internal"
	"github.com/spf13/cobra"
)

var healthcheckVerbose bool

// chromeNames are the executables looked up on PATH
var chromeNames = []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome"}

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that the archive, journal and browser are usable",
	Long: `Check the health of social-session by verifying:
  • Archive path detection
  • The active archive is writable
  • Older archive locations and the dumps they hold
  • The crawl journal
  • A Chrome executable for live capture`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, sectionStyle.Render("🔍 Social Session Health Check"))
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 1: Detecting archive paths..."))
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		paths, err := archivePaths(cfg)
		if err != nil {
			_, _ = fmt.Fprintln(out, errorStyle.Render("❌ Failed to detect archive paths"))
			return err
		}
		_, _ = fmt.Fprintln(out, successStyle.Render("✅ Archive paths detected"))
		if healthcheckVerbose {
			_, _ = fmt.Fprintf(out, "   Active: %s\n", paths.Active)
			for _, l := range paths.Legacy {
				_, _ = fmt.Fprintf(out, "   Legacy: %s\n", l)
			}
		}
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 2: Checking the active archive..."))
		store := paths.NewStore()
		if err := checkWritable(store); err != nil {
			_, _ = fmt.Fprintln(out, errorStyle.Render("❌ Active archive is not writable"))
			return err
		}
		_, _ = fmt.Fprintln(out, successStyle.Render("✅ Active archive is writable"))
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 3: Scanning dumps..."))
		legacy := paths.ExistingLegacy()
		if len(legacy) > 0 {
			_, _ = fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Found %d older archive(s)", len(legacy))))
			if healthcheckVerbose {
				for _, l := range legacy {
					_, _ = fmt.Fprintf(out, "   %s\n", l)
				}
			}
		}
		summaries := store.List()
		if len(summaries) == 0 {
			_, _ = fmt.Fprintln(out, warningStyle.Render("⚠️  No dumps yet"))
		} else {
			_, _ = fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Found %d dump(s), newest %s", len(summaries), summaries[0].Filename)))
		}
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 4: Opening the crawl journal..."))
		if !cfg.Journal {
			_, _ = fmt.Fprintln(out, warningStyle.Render("⚠️  Journal disabled in config"))
		} else if journal, err := internal.OpenJournal(paths.JournalPath()); err != nil {
			_, _ = fmt.Fprintln(out, warningStyle.Render("⚠️  Journal unavailable:"), err)
		} else {
			runs, err := journal.RecentRuns(1)
			_ = journal.Close()
			switch {
			case err != nil:
				_, _ = fmt.Fprintln(out, warningStyle.Render("⚠️  Journal unreadable:"), err)
			case len(runs) == 0:
				_, _ = fmt.Fprintln(out, successStyle.Render("✅ Journal ready, no runs recorded"))
			default:
				_, _ = fmt.Fprintln(out, successStyle.Render("✅ Journal ready, last run "+runs[0].ID))
			}
		}
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 5: Looking for Chrome..."))
		if chrome := findChrome(); chrome != "" {
			_, _ = fmt.Fprintln(out, successStyle.Render("✅ Chrome found"))
			if healthcheckVerbose {
				_, _ = fmt.Fprintf(out, "   %s\n", chrome)
			}
		} else {
			_, _ = fmt.Fprintln(out, warningStyle.Render("⚠️  Chrome not found on PATH; live capture will fail"))
		}
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, successStyle.Render("✅ Health check complete"))
		return nil
	},
}

func checkWritable(store *internal.DumpStore) error {
	if err := store.EnsureArchiveDir(); err != nil {
		return err
	}
	f, err := os.CreateTemp(store.ActiveRoot(), ".healthcheck-*")
	if err != nil {
		return &internal.PersistenceError{Path: store.ActiveRoot(), Op: "write", Err: err}
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func findChrome() string {
	for _, name := range chromeNames {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVar(&healthcheckVerbose, "verbose-paths", false, "Show detailed path information")
}
