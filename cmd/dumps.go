package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/iksnae/social-session/internal"
	"github.com/spf13/cobra"
)

var (
	dumpsLimit int
	dumpsJSON  bool
)

// dumpsCmd represents the dumps command
var dumpsCmd = &cobra.Command{
	Use:     "dumps",
	Aliases: []string{"list"},
	Short:   "List saved dumps, newest first",
	Long: `List every dump in the active archive and in older archive locations,
newest first, with the number of entries of each kind. Unreadable files are
skipped with a warning.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(false)
		if err != nil {
			return err
		}
		defer s.Close()

		summaries := s.ctrl.ListDumps()
		if dumpsLimit > 0 && len(summaries) > dumpsLimit {
			summaries = summaries[:dumpsLimit]
		}

		out := cmd.OutOrStdout()
		if dumpsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(summaries)
		}
		displayDumps(out, summaries, time.Now())
		return nil
	},
}

func displayDumps(out io.Writer, summaries []internal.DumpSummary, now time.Time) {
	if len(summaries) == 0 {
		_, _ = fmt.Fprintln(out, headerStyle.Render("📋 No dumps found"))
		return
	}

	_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 Found %d dump(s)", len(summaries))))
	_, _ = fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join([]string{
		titleStyle.Render("Dump"), titleStyle.Render("Page"), titleStyle.Render("Stories"),
		titleStyle.Render("Posts"), titleStyle.Render("Messages"), titleStyle.Render("Notifs"),
		titleStyle.Render("Size"), titleStyle.Render("Date"),
	}, "\t")+"\t")
	for _, d := range summaries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			d.Filename,
			kindStyle.Render(string(d.PageType)),
			countStyle.Render(fmt.Sprint(d.Stories)),
			countStyle.Render(fmt.Sprint(d.Posts)),
			countStyle.Render(fmt.Sprint(d.Messages)),
			countStyle.Render(fmt.Sprint(d.Notifications)),
			dateStyle.Render(formatSize(d.Size)),
			dateStyle.Render(formatWhen(d.Date, now)))
	}
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, dateStyle.Render("💡 Tip: Use `social-session show "+summaries[0].Filename+"` to view a dump"))
}

func init() {
	rootCmd.AddCommand(dumpsCmd)
	dumpsCmd.Flags().IntVarP(&dumpsLimit, "limit", "n", 0, "Show at most this many dumps")
	dumpsCmd.Flags().BoolVar(&dumpsJSON, "json", false, "Print the summaries as JSON")
}
