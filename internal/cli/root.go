// Package cli wires the booklook command line: the HTTP server plus the
// one-shot maintenance commands that share its configuration.
package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/log"
)

// flagKeys maps persistent flags to the configuration keys they override.
var flagKeys = map[string]string{
	"database-path": "database_path",
	"log-level":     "log_level",
}

// NewRootCommand builds the command tree. version is reported by the server
// and by the version command.
func NewRootCommand(version, commit string) *cobra.Command {
	v := viper.New()
	var cfg *config.Config

	root := &cobra.Command{
		Use:   "booklook",
		Short: "Book catalog, reader and review service",
		Long: `BookLook serves a book catalog over HTTP with paginated reading,
reviews, reading progress and favourites.

Settings come from the environment (and a .env file); flags override them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			for flag, key := range flagKeys {
				if err := v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(flag)); err != nil {
					return errors.Wrapf(err, "bind flag %s", flag)
				}
			}
			cfg = config.Load(v)
			log.Init(cfg.Log)
			if err := config.DotEnvError(); err != nil {
				log.Warn("Could not parse .env file", zap.Error(err))
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			log.Sync()
		},
	}

	root.PersistentFlags().String("database-path", config.DefaultDatabasePath, "Path to the sqlite database file")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	loaded := func() *config.Config { return cfg }
	root.AddCommand(
		newServeCommand(loaded, version),
		newMigrateCommand(loaded),
		newImportCommand(loaded),
		newCreateAdminCommand(loaded),
		newRecomputeRatingsCommand(loaded),
		newVersionCommand(version, commit),
	)
	return root
}
