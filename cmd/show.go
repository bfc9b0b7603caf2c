package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/social-session/internal"
	"github.com/spf13/cobra"
)

var (
	showJSON  bool
	showLimit int
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show [dump]",
	Short: "Show the entries of one dump",
	Long: `Show the entries of a dump given by filename or path. Without an argument
the newest dump is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(false)
		if err != nil {
			return err
		}
		defer s.Close()

		store := s.ctrl.Store()
		var path string
		if len(args) == 1 {
			path, err = store.Resolve(args[0])
			if err != nil {
				return err
			}
		} else {
			latest, ok := store.Latest()
			if !ok {
				return fmt.Errorf("no dumps found in %s", store.ActiveRoot())
			}
			path = latest.Filepath
		}

		rec, err := store.Load(path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if showJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		}
		displayRecord(out, path, rec, showLimit)
		return nil
	},
}

func displayRecord(out io.Writer, path string, rec *internal.PageScrapeRecord, limit int) {
	_, _ = fmt.Fprintln(out, headerStyle.Render("📄 "+path))
	_, _ = fmt.Fprintf(out, "   Page: %s  URL: %s\n", kindStyle.Render(string(rec.PageType)), rec.URL)
	if !rec.CapturedAt.IsZero() {
		_, _ = fmt.Fprintf(out, "   Captured: %s\n", dateStyle.Render(rec.CapturedAt.Format("2006-01-02 15:04:05 MST")))
	}
	if rec.CurrentUser != "" {
		_, _ = fmt.Fprintf(out, "   User: %s\n", rec.CurrentUser)
	}
	_, _ = fmt.Fprintln(out)

	section := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}
		_, _ = fmt.Fprintln(out, sectionStyle.Render(fmt.Sprintf("%s (%d)", title, len(lines))))
		for i, l := range lines {
			if limit > 0 && i >= limit {
				_, _ = fmt.Fprintf(out, "   … %d more\n", len(lines)-limit)
				break
			}
			_, _ = fmt.Fprintf(out, "   %s\n", l)
		}
		_, _ = fmt.Fprintln(out)
	}

	var lines []string
	for _, st := range rec.Stories {
		mark := ""
		if st.HasUnwatched {
			mark = " ●"
		}
		lines = append(lines, st.Username+mark)
	}
	section("Stories", lines)

	lines = nil
	for _, p := range rec.Posts {
		lines = append(lines, fmt.Sprintf("%s: %s (%d likes)", titleStyle.Render(p.Username), p.Caption, p.Likes))
	}
	section("Posts", lines)

	lines = nil
	for _, m := range rec.Messages {
		mark := ""
		if m.Unread {
			mark = " ●"
		}
		lines = append(lines, fmt.Sprintf("%s%s: %s", titleStyle.Render(m.Username), mark, m.Preview))
	}
	section("Messages", lines)

	lines = nil
	for _, n := range rec.Notifications {
		lines = append(lines, fmt.Sprintf("%s %s", kindStyle.Render(n.Type), n.Text))
	}
	section("Notifications", lines)

	lines = nil
	for _, m := range rec.Mutuals {
		switch {
		case m.Username != "":
			lines = append(lines, fmt.Sprintf("%s %s", kindStyle.Render(m.Type), m.Username))
		case m.Count != "":
			lines = append(lines, fmt.Sprintf("%s %s", kindStyle.Render(m.Type), m.Count))
		default:
			lines = append(lines, fmt.Sprintf("%s %s", kindStyle.Render(m.Type), m.Preview))
		}
	}
	section("Mutuals", lines)

	lines = nil
	for _, sg := range rec.Suggestions {
		lines = append(lines, fmt.Sprintf("%s (%s)", sg.Username, sg.Reason))
	}
	section("Suggestions", lines)
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the record as JSON")
	showCmd.Flags().IntVarP(&showLimit, "limit", "n", 10, "Entries shown per kind (0 for all)")
}
