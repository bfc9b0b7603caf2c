package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var chatJSON bool

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat <username>",
	Short: "Read the latest messages of a conversation",
	Long: `Open the profile of username, follow its Message button into the
conversation and print the most recent messages. The browser returns to the
page it showed before.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(true)
		if err != nil {
			return err
		}
		defer s.Close()

		transcript, err := s.ctrl.ScrapeUserChat(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if chatJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(transcript)
		}

		_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("💬 %s (%d message(s))", transcript.Username, len(transcript.Messages))))
		for _, m := range transcript.Messages {
			who := titleStyle.Render(transcript.Username)
			if m.IsMe {
				who = kindStyle.Render("you")
			}
			_, _ = fmt.Fprintf(out, "%s: %s\n", who, m.Text)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&chatJSON, "json", false, "Print the transcript as JSON")
}
