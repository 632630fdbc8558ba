package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/entrypoint"
)

func newImportCommand(cfg func() *config.Config) *cobra.Command {
	var file string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import books from a JSON Lines catalog file",
		Long: `Import books from a JSON Lines file, one book per line:

  {"title": "Dune", "isbn": "9780441013593", "authors": ["Frank Herbert"],
   "genres": ["Science Fiction"], "text_file": "texts/dune.txt"}

text_file paths are resolved relative to the catalog file. Books whose ISBN
is already in the catalog are skipped.`,
		Example: "  booklook import --file catalog.jsonl",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := entrypoint.NewApp(cmd.Context(), cfg())
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Importer.ImportFile(cmd.Context(), file)
			app.Audit.LogImport(0, file, result.Imported, result.Skipped, result.Failed, err)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported: %d\nSkipped:  %d\nFailed:   %d\n", result.Imported, result.Skipped, result.Failed)
			if verbose {
				for _, lineErr := range result.Errors {
					fmt.Fprintf(out, "  line %d (%s): %s\n", lineErr.Line, lineErr.Title, lineErr.Message)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the JSON Lines catalog file (required)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every failed line")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
