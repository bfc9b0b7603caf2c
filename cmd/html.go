package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	htmlLabel string
	htmlPath  string
)

// htmlCmd represents the html command
var htmlCmd = &cobra.Command{
	Use:   "html",
	Short: "Save the raw HTML of the current page",
	Long: `Save the raw HTML of the page shown in the browser next to the dump
archive. Saved pages can be extracted later with 'extract --file'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(true)
		if err != nil {
			return err
		}
		defer s.Close()

		if htmlPath != "" {
			if err := s.ctrl.Navigate(cmd.Context(), htmlPath); err != nil {
				return fmt.Errorf("failed to open %s: %w", htmlPath, err)
			}
		}
		file, err := s.ctrl.DumpCurrentHTML(cmd.Context(), htmlLabel)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Saved %s (%s)\n",
			successStyle.Render("✓"), file.Filepath, formatSize(file.Size))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(htmlCmd)
	htmlCmd.Flags().StringVar(&htmlLabel, "label", "", "File label (default is the page type)")
	htmlCmd.Flags().StringVar(&htmlPath, "path", "", "Navigate to this path first")
}
