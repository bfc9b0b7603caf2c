package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/social-session/internal"
	"github.com/spf13/cobra"
)

var (
	extractFile  string
	extractURL   string
	extractPath  string
	extractJSON  bool
	extractMerge bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract the current page into a dump",
	Long: `Extract the page shown in the browser into a structured record and write
it to the archive as a timestamped dump.

With --file a saved HTML page is read instead of a live browser. Its page
type comes from --url, which defaults to the home feed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var extra []internal.ControllerOption
		live := extractFile == ""
		if !live {
			pageURL := extractURL
			if pageURL == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				pageURL = cfg.BaseURL + "/"
			}
			browser, err := internal.StaticBrowserFromFile(pageURL, extractFile)
			if err != nil {
				return err
			}
			extra = append(extra, internal.WithBrowser(browser))
		}

		s, err := openSession(live, extra...)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		if extractPath != "" {
			if err := s.ctrl.Navigate(ctx, extractPath); err != nil {
				return fmt.Errorf("failed to open %s: %w", extractPath, err)
			}
		}

		var res *internal.ExtractResult
		if extractMerge {
			res, _, err = s.ctrl.CaptureCurrentPage(ctx)
		} else {
			res, err = s.ctrl.ExtractCurrentPage(ctx)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if extractJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printExtractResult(out, res)
		return nil
	},
}

func printExtractResult(out io.Writer, res *internal.ExtractResult) {
	rec := res.Record
	_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📸 Extracted %s page", rec.PageType)))
	if rec.CurrentUser != "" {
		_, _ = fmt.Fprintf(out, "   Signed in as %s\n", titleStyle.Render(rec.CurrentUser))
	} else if !rec.LoggedIn {
		_, _ = fmt.Fprintln(out, warningStyle.Render("   ⚠️  Page does not look logged in"))
	}
	_, _ = fmt.Fprintf(out, "   %s stories, %s posts, %s messages, %s notifications, %s usernames\n",
		countStyle.Render(fmt.Sprint(len(rec.Stories))),
		countStyle.Render(fmt.Sprint(len(rec.Posts))),
		countStyle.Render(fmt.Sprint(len(rec.Messages))),
		countStyle.Render(fmt.Sprint(len(rec.Notifications))),
		countStyle.Render(fmt.Sprint(len(rec.RawUsernames))))

	if res.DumpPath != "" {
		_, _ = fmt.Fprintf(out, "%s Saved %s\n", successStyle.Render("✓"), res.DumpPath)
	} else {
		_, _ = fmt.Fprintf(out, "%s Dump not saved: %s\n", warningStyle.Render("⚠"), res.Warning)
	}
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "", "Read a saved HTML page instead of the live browser")
	extractCmd.Flags().StringVar(&extractURL, "url", "", "Page URL of the saved HTML (with --file)")
	extractCmd.Flags().StringVar(&extractPath, "path", "", "Navigate to this path before extracting")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "Print the record as JSON")
	extractCmd.Flags().BoolVar(&extractMerge, "merge", false, "Also merge the record into the session")
}
