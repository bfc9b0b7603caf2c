package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/social-session/internal"
	"github.com/spf13/cobra"
)

var (
	loadAll  bool
	loadJSON bool
)

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load [dump...]",
	Short: "Merge dumps into a session and print the totals",
	Long: `Merge the given dumps, or every dump with --all (the default without
arguments), into one deduplicated session and print its totals. Dumps that
cannot be read are skipped and reported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(false)
		if err != nil {
			return err
		}
		defer s.Close()

		var stats internal.SessionStats
		var report internal.LoadReport
		err = internal.ShowProgress(cmd.Context(), "Merging dumps", func() error {
			var err error
			stats, report, err = loadInto(s.ctrl, args, loadAll)
			return err
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if loadJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Stats  internal.SessionStats `json:"stats"`
				Report internal.LoadReport   `json:"report"`
			}{stats, report})
		}
		printLoadSummary(out, stats, report)
		return nil
	},
}

// loadInto merges refs, or every dump when all is set or refs is empty
func loadInto(ctrl *internal.Controller, refs []string, all bool) (internal.SessionStats, internal.LoadReport, error) {
	if all || len(refs) == 0 {
		stats, report := ctrl.LoadAllDumps()
		return stats, report, nil
	}

	var report internal.LoadReport
	for _, ref := range refs {
		path, err := ctrl.Store().Resolve(ref)
		if err != nil {
			return internal.SessionStats{}, report, err
		}
		if _, err := ctrl.LoadDump(path); err != nil {
			return internal.SessionStats{}, report, err
		}
		report.Loaded++
	}
	return ctrl.SessionStats(), report, nil
}

func printLoadSummary(out io.Writer, stats internal.SessionStats, report internal.LoadReport) {
	_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📦 Loaded %d dump(s)", report.Loaded)))
	if report.Skipped > 0 {
		_, _ = fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("⚠️  Skipped %d unreadable dump(s)", report.Skipped)))
		for _, name := range report.Failures {
			_, _ = fmt.Fprintf(out, "   %s\n", dateStyle.Render(name))
		}
	}
	_, _ = fmt.Fprintf(out, "Session: %s\n", internal.FormatStats(stats))
	_, _ = fmt.Fprintf(out, "         %s mutuals, %s suggestions\n",
		countStyle.Render(fmt.Sprint(stats.Mutuals)), countStyle.Render(fmt.Sprint(stats.Suggestions)))
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().BoolVar(&loadAll, "all", false, "Merge every dump in the archive")
	loadCmd.Flags().BoolVar(&loadJSON, "json", false, "Print the totals as JSON")
}
