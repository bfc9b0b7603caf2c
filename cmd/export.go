package cmd

import (
	"fmt"

	"github.com/iksnae/social-session/internal"
	"github.com/iksnae/social-session/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [dump...]",
	Short: "Export the merged session to a file",
	Long: `Merge the given dumps (every dump when none are given) and export the
session in one of the supported formats (json, jsonl, yaml, md). Without
--output the export is written to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		s, err := openSession(false)
		if err != nil {
			return err
		}
		defer s.Close()

		merge := func() error {
			_, _, err := loadInto(s.ctrl, args, false)
			return err
		}
		if exportOutput == "" {
			if err := merge(); err != nil {
				return err
			}
			return exporter.Export(s.ctrl.Dataset(), cmd.OutOrStdout())
		}

		var path string
		err = internal.ShowProgressWithSteps(cmd.Context(), []internal.ProgressStep{
			{Message: "Merging dumps", Fn: merge},
			{Message: "Writing " + exportOutput, Fn: func() error {
				var err error
				path, err = writeExport(s.ctrl.Dataset(), exportOutput, exportFormat)
				return err
			}},
		})
		if err != nil {
			return err
		}
		dataset := s.ctrl.Dataset()
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Exported %s to %s\n",
			successStyle.Render("✓"), internal.FormatStats(dataset.Stats()), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Export format: json, jsonl, yaml, md")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
}
