package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/social-session/internal"
)

// MarkdownExporter writes the dataset as a report with one table per kind
type MarkdownExporter struct{}

// Export implements Exporter
func (e *MarkdownExporter) Export(dataset *internal.SessionDataset, w io.Writer) error {
	d := dataset.Clone()
	stats := d.Stats()

	_, _ = fmt.Fprintf(w, "# Session\n\n")
	_, _ = fmt.Fprintf(w, "**Stories:** %d  \n", stats.Stories)
	_, _ = fmt.Fprintf(w, "**Posts:** %d  \n", stats.Posts)
	_, _ = fmt.Fprintf(w, "**Messages:** %d  \n", stats.Messages)
	_, _ = fmt.Fprintf(w, "**Notifications:** %d  \n", stats.Notifications)
	_, _ = fmt.Fprintf(w, "**Mutuals:** %d  \n", stats.Mutuals)
	_, _ = fmt.Fprintf(w, "**Suggestions:** %d  \n", stats.Suggestions)
	_, _ = fmt.Fprintf(w, "**Usernames:** %d\n\n", stats.Usernames)

	if len(d.Stories) > 0 {
		rows := make([][]string, 0, len(d.Stories))
		for _, s := range d.Stories {
			rows = append(rows, []string{s.Username, yesNo(s.HasUnwatched)})
		}
		writeTable(w, "Stories", []string{"Username", "Unwatched"}, rows)
	}
	if len(d.Posts) > 0 {
		rows := make([][]string, 0, len(d.Posts))
		for _, p := range d.Posts {
			rows = append(rows, []string{p.Username, p.Caption, fmt.Sprint(p.Likes), yesNo(p.IsVideo), p.Timestamp})
		}
		writeTable(w, "Posts", []string{"Username", "Caption", "Likes", "Video", "Posted"}, rows)
	}
	if len(d.Messages) > 0 {
		rows := make([][]string, 0, len(d.Messages))
		for _, m := range d.Messages {
			rows = append(rows, []string{m.Username, m.Preview, yesNo(m.Unread), yesNo(m.IsGroup)})
		}
		writeTable(w, "Messages", []string{"Username", "Preview", "Unread", "Group"}, rows)
	}
	if len(d.Notifications) > 0 {
		rows := make([][]string, 0, len(d.Notifications))
		for _, n := range d.Notifications {
			rows = append(rows, []string{n.Username, n.Type, n.ContentType, n.Text})
		}
		writeTable(w, "Notifications", []string{"Username", "Type", "Content", "Text"}, rows)
	}
	if len(d.Mutuals) > 0 {
		rows := make([][]string, 0, len(d.Mutuals))
		for _, m := range d.Mutuals {
			rows = append(rows, []string{m.Username, m.Type, m.Count, m.Preview})
		}
		writeTable(w, "Mutuals", []string{"Username", "Type", "Count", "Preview"}, rows)
	}
	if len(d.Suggestions) > 0 {
		rows := make([][]string, 0, len(d.Suggestions))
		for _, s := range d.Suggestions {
			rows = append(rows, []string{s.Username, s.Reason})
		}
		writeTable(w, "Suggestions", []string{"Username", "Reason"}, rows)
	}
	if len(d.Usernames) > 0 {
		_, _ = fmt.Fprintf(w, "## Usernames\n\n")
		for _, u := range d.Usernames {
			_, _ = fmt.Fprintf(w, "- %s\n", escapeMarkdown(u))
		}
		_, _ = fmt.Fprintln(w)
	}
	return nil
}

func writeTable(w io.Writer, title string, header []string, rows [][]string) {
	_, _ = fmt.Fprintf(w, "## %s\n\n", title)
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(header, " | "))
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(sep, " | "))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = escapeMarkdown(c)
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}
	_, _ = fmt.Fprintln(w)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// escapeMarkdown makes text safe inside a table cell
func escapeMarkdown(text string) string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "|", "\\|")
	text = strings.ReplaceAll(text, "**", "\\*\\*")
	text = strings.ReplaceAll(text, "__", "\\_\\_")
	return text
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
