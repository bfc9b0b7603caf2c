package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/iksnae/social-session/internal"
	"github.com/iksnae/social-session/internal/export"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	crawlStepsFile string
	crawlExport    string
	crawlHeadless  bool
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Visit each feed surface and capture it",
	Long: `Visit a fixed sequence of pages (home, inbox, activity, explore and your
profile by default), waiting for each to render. Every page is saved as a
dump and merged into the session. A failing step is reported and the crawl
moves on. Interrupt with Ctrl-C to stop after the current step.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(true)
		if err != nil {
			return err
		}
		defer s.Close()

		steps, err := s.cfg.CrawlSteps()
		if crawlStepsFile != "" {
			steps, err = internal.LoadCrawlSteps(crawlStepsFile)
		}
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("🤖 Auto crawl: %d step(s)", len(steps))))
		result, err := s.ctrl.RunAutoCrawl(ctx, steps, func(st internal.StepStatus) {
			_, _ = fmt.Fprintln(out, internal.RenderStepStatus(st))
		})
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintf(out, "%s succeeded, %s failed, %s skipped\n",
			countStyle.Render(fmt.Sprint(result.Succeeded)),
			warningStyle.Render(fmt.Sprint(result.Failed)),
			dateStyle.Render(fmt.Sprint(result.Skipped)))
		_, _ = fmt.Fprintf(out, "Session: %s\n", internal.FormatStats(result.Dataset.Stats()))
		_, _ = fmt.Fprintln(out, dateStyle.Render("Run "+result.RunID))

		if crawlExport != "" {
			path, err := writeExport(result.Dataset, crawlExport, formatFromPath(crawlExport))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "%s Exported %s\n", successStyle.Render("✓"), path)
		}
		if result.Cancelled {
			return fmt.Errorf("crawl interrupted after %d step(s)", result.Succeeded+result.Failed)
		}
		return nil
	},
}

// formatFromPath picks an export format from a file extension
func formatFromPath(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "json"
	}
	return ext
}

func writeExport(dataset *internal.SessionDataset, path, format string) (string, error) {
	exporter, err := export.NewExporter(format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", &internal.ExportError{Format: format, Path: path, Err: err}
	}
	f, err := os.Create(path)
	if err != nil {
		return "", &internal.ExportError{Format: format, Path: path, Err: err}
	}
	if err := exporter.Export(dataset, f); err != nil {
		_ = f.Close()
		return "", &internal.ExportError{Format: format, Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &internal.ExportError{Format: format, Path: path, Err: err}
	}
	return path, nil
}

func init() {
	rootCmd.AddCommand(crawlCmd)
	crawlCmd.Flags().StringVar(&crawlStepsFile, "steps", "", "YAML file with the crawl steps")
	crawlCmd.Flags().StringVar(&crawlExport, "export", "", "Write the merged dataset to this file (format from extension)")
	crawlCmd.Flags().BoolVar(&crawlHeadless, "headless", false, "Run Chrome without a window")
	_ = viper.BindPFlag("browser.headless", crawlCmd.Flags().Lookup("headless"))
}
