package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/database"
)

func newMigrateCommand(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := database.Connect(cfg().Database)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d tables (%s)\n", len(database.Models), db.Driver)
			return nil
		},
	}
}
