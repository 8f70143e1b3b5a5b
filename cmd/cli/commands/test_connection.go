package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/legacy-migrator/pkg/core/services"
)

// TestConnectionCmd creates the testConnection command
func TestConnectionCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "testConnection",
		Short: "Log in to the legacy admin panel and verify the session can read the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := app.credentials()
			if err != nil {
				return err
			}

			if err := services.TestConnection(app.Ctx, app.Legacy, creds, app.Logger); err != nil {
				return err
			}

			fmt.Printf("\n✓ Connected to %s as %s\n\n", app.Legacy.BaseURL(), creds.Email)
			return nil
		},
	}
}
