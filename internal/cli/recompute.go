package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/entrypoint"
	"github.com/mrlokans/booklook/internal/tasks"
)

func newRecomputeRatingsCommand(cfg func() *config.Config) *cobra.Command {
	var bookID uint

	cmd := &cobra.Command{
		Use:   "recompute-ratings",
		Short: "Rebuild stored average ratings and review counts",
		Long: `Rebuild the stored average rating and review count from the reviews
table, for one book or for the whole catalog. Runs in the foreground.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := entrypoint.NewApp(cmd.Context(), cfg())
			if err != nil {
				return err
			}
			defer app.Close()

			run := tasks.RecomputeRatingsProcessor(app.Reviews, app.Audit)
			if err := run(cmd.Context(), tasks.RecomputeRatingsTask{BookID: bookID}); err != nil {
				return err
			}
			if bookID == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Recomputed ratings for every book")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Recomputed ratings for book %d\n", bookID)
			}
			return nil
		},
	}
	cmd.Flags().UintVar(&bookID, "book-id", 0, "Only recompute this book")
	return cmd
}
