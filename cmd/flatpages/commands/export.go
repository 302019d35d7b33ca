package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	exportDir   string
	exportFlags *composerFlags
)

// exportCmd writes pages out as Markdown with YAML front matter
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export pages as Markdown files",
	Long: `Export writes one Markdown file per page below --out, mirroring page URLs:
"/" becomes index.md and "/about/team/" becomes about/team.md. Page
metadata is kept in YAML front matter.

Examples:
  flatpages export --out ./site-export
  flatpages export --out ./docs --starts-with /docs/ --drafts`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportDir == "" {
			return errors.New("--out is required")
		}
		opts, err := exportFlags.options(cmd.Flags())
		if err != nil {
			return err
		}

		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		n, err := a.admin.ExportTree(cmd.Context(), exportDir, opts)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, map[string]any{"written": n, "dir": exportDir})
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %d pages to %s\n", n, exportDir)
		return err
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", "", "Output directory")
	exportFlags = addComposerFlags(exportCmd.Flags())
	rootCmd.AddCommand(exportCmd)
}
