package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jakechorley/legacy-migrator/pkg/core/services"
)

// ScrapeCmd creates the scrape command
func ScrapeCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Extract users, events and signups from the legacy admin panel into a JSON dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = app.Cfg.Migration.DatasetPath
			}
			if out == "" {
				out = "dataset.json"
			}

			creds, err := app.credentials()
			if err != nil {
				return err
			}

			result, err := services.Scrape(app.Ctx, app.Legacy, creds, app.Cfg.Legacy.PageSize, out, app.Logger)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleRounded)
			t.SetTitle("Scraped " + result.Dataset.SourceURL)
			t.AppendHeader(table.Row{"Resource", "Records", "Pages"})
			resources := app.Legacy.Resources()
			t.AppendRows([]table.Row{
				{resources.Users, len(result.Dataset.Users), result.Report.Pages[resources.Users]},
				{resources.Events, len(result.Dataset.Events), result.Report.Pages[resources.Events]},
				{resources.Signups, len(result.Dataset.Signups), result.Report.Pages[resources.Signups]},
			})
			t.Render()

			if !result.Report.Complete() {
				fmt.Printf("\n⚠️  Scrape is incomplete:\n")
				for _, pageErr := range result.Report.PageErrors {
					fmt.Printf("  ✗ %v\n", pageErr)
				}
			}
			if len(result.Report.RecordErrors) > 0 {
				fmt.Printf("\n⚠️  %d records could not be read:\n", len(result.Report.RecordErrors))
				for _, recErr := range result.Report.RecordErrors {
					fmt.Printf("  ✗ %v\n", recErr)
				}
			}

			fmt.Printf("\n✓ Dataset saved to %s\n\n", out)
			return nil
		},
	}

	cmd.Flags().String("out", "", "Where to write the dataset (defaults to migration.datasetPath or dataset.json)")

	return cmd
}
