package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/iksnae/social-session/internal"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyJSON  bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past crawl runs",
	Long: `Show the crawl runs recorded in the journal, newest first. With a run id
the final state of each of its steps is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		paths, err := archivePaths(cfg)
		if err != nil {
			return err
		}
		journal, err := internal.OpenJournal(paths.JournalPath())
		if err != nil {
			return err
		}
		defer journal.Close()

		out := cmd.OutOrStdout()
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		if len(args) == 1 {
			steps, err := journal.RunSteps(args[0])
			if err != nil {
				return err
			}
			if historyJSON {
				return enc.Encode(steps)
			}
			if len(steps) == 0 {
				return fmt.Errorf("no steps recorded for run %s", args[0])
			}
			_, _ = fmt.Fprintln(out, headerStyle.Render("🧭 Run "+args[0]))
			for _, st := range steps {
				_, _ = fmt.Fprintf(out, "[%d] %-12s %s  %s\n", st.Index+1, st.State, st.Label, dateStyle.Render(st.Message))
			}
			return nil
		}

		runs, err := journal.RecentRuns(historyLimit)
		if err != nil {
			return err
		}
		if historyJSON {
			return enc.Encode(runs)
		}
		if len(runs) == 0 {
			_, _ = fmt.Fprintln(out, headerStyle.Render("🧭 No crawl runs recorded"))
			return nil
		}

		_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("🧭 %d crawl run(s)", len(runs))))
		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, strings.Join([]string{
			titleStyle.Render("Run"), titleStyle.Render("Started"), titleStyle.Render("Steps"),
			titleStyle.Render("OK"), titleStyle.Render("Failed"), titleStyle.Render("Skipped"),
		}, "\t")+"\t")
		now := time.Now()
		for _, r := range runs {
			id := r.ID
			if r.Cancelled {
				id += " (interrupted)"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%d\t\n", id, dateStyle.Render(formatWhen(r.StartedAt, now)),
				r.Steps, countStyle.Render(fmt.Sprint(r.Succeeded)), warningStyle.Render(fmt.Sprint(r.Failed)), r.Skipped)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Show at most this many runs")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print as JSON")
}
