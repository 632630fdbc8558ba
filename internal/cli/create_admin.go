package cli

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mrlokans/booklook/internal/auth"
	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/entrypoint"
)

func newCreateAdminCommand(cfg func() *config.Config) *cobra.Command {
	var in auth.RegisterInput

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Example: `  booklook create-admin --email admin@example.com --password 'S3curePassw0rd'
  ADMIN_PASSWORD=... booklook create-admin --email admin@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Password == "" {
				in.Password = os.Getenv("ADMIN_PASSWORD")
			}
			if in.Password == "" {
				return errors.New("a password is required: pass --password or set ADMIN_PASSWORD")
			}

			app, err := entrypoint.NewApp(cmd.Context(), cfg())
			if err != nil {
				return err
			}
			defer app.Close()

			user, err := app.Auth.CreateUser(cmd.Context(), in, true)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created administrator %s (id %d)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "Administrator email (required)")
	cmd.Flags().StringVar(&in.Password, "password", "", "Administrator password (defaults to $ADMIN_PASSWORD)")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "Last name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
