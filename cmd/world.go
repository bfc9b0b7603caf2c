package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/iksnae/social-session/internal"
	"github.com/spf13/cobra"
)

var worldOutput string

// worldCmd represents the world command
var worldCmd = &cobra.Command{
	Use:   "world [dump...]",
	Short: "Project the merged session for the visualization",
	Long: `Merge the given dumps (every dump when none are given) and print the
display dataset used by the visualization: stories with avatars and
timestamps, posts with gradients, message rows and a profile summary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(false)
		if err != nil {
			return err
		}
		defer s.Close()

		err = internal.ShowProgress(cmd.Context(), "Merging dumps", func() error {
			_, _, err := loadInto(s.ctrl, args, false)
			return err
		})
		if err != nil {
			return err
		}
		world := s.ctrl.ProjectForDisplay()

		data, err := json.MarshalIndent(world, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode display dataset: %w", err)
		}
		data = append(data, '\n')

		if worldOutput == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(worldOutput, data, 0644); err != nil {
			return &internal.ExportError{Format: "json", Path: worldOutput, Err: err}
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %d stories, %d posts, %d messages to %s\n",
			successStyle.Render("✓"), len(world.Stories), len(world.Posts), len(world.Messages), worldOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(worldCmd)
	worldCmd.Flags().StringVarP(&worldOutput, "output", "o", "", "Output file (default stdout)")
}
