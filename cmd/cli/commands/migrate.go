package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/legacy-migrator/pkg/core/model"
	"github.com/jakechorley/legacy-migrator/pkg/core/services"
)

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate users, shifts and signups from the legacy admin panel into the target database",
		Long: `Authenticate against the legacy admin panel, scrape every user, event and signup,
transform them and import them into the target database. Records that already exist are
skipped, so the command can be re-run safely.

Use --dataset to migrate from a file written by 'scrape' instead of the live panel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			datasetPath, _ := flags.GetString("dataset")
			saveDataset, _ := flags.GetString("save-dataset")
			reportPath, _ := flags.GetString("report")
			format, _ := flags.GetString("format")

			opts, err := app.migrateOptions()
			if err != nil {
				return err
			}
			if flags.Changed("dry-run") {
				opts.DryRun, _ = flags.GetBool("dry-run")
			}
			skipPhotos := app.Cfg.Migration.SkipPhotos
			if flags.Changed("skip-photos") {
				skipPhotos, _ = flags.GetBool("skip-photos")
			}
			opts.SaveDatasetPath = saveDataset

			// Step 1: Load a saved dataset or prepare to log in
			if datasetPath != "" {
				opts.Dataset, err = model.LoadDataset(datasetPath)
				if err != nil {
					return err
				}
				app.Logger.Info("Loaded dataset", zap.String("path", datasetPath))
			} else {
				opts.Credentials, err = app.credentials()
				if err != nil {
					return err
				}
			}

			deps := services.MigrateDeps{
				Legacy: app.Legacy,
				Store:  app.Store,
				Logger: app.Logger,
			}
			if !skipPhotos {
				deps.Photos = app.Photos
			}

			// Step 2: Run
			report, runErr := services.Migrate(app.Ctx, deps, opts)

			// Step 3: Report
			if err := RenderReport(os.Stdout, report, format); err != nil {
				return err
			}
			if reportPath != "" {
				if err := WriteReportFile(reportPath, report); err != nil {
					return err
				}
				fmt.Printf("\nReport saved to %s\n", reportPath)
			}
			fmt.Printf("Run log: %s\n\n", app.LogFile)

			if runErr != nil {
				return fmt.Errorf("migration failed: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Transform and check existence without writing to the target database")
	cmd.Flags().Bool("skip-photos", false, "Migrate users without downloading their photos")
	cmd.Flags().String("dataset", "", "Migrate from a saved dataset instead of scraping the legacy panel")
	cmd.Flags().String("save-dataset", "", "Write the scraped dataset to this file before transforming")
	cmd.Flags().String("report", "", "Write the JSON report to this file")
	cmd.Flags().String("format", FormatTable, "Console report format: table or json")

	return cmd
}

// migrateOptions builds run options from the loaded configuration
func (app *AppContext) migrateOptions() (services.MigrateOptions, error) {
	m := app.Cfg.Migration
	loc, err := app.Cfg.Location()
	if err != nil {
		return services.MigrateOptions{}, err
	}

	return services.MigrateOptions{
		PageSize:           app.Cfg.Legacy.PageSize,
		DryRun:             m.DryRun,
		SkipExistingUsers:  *m.SkipExistingUsers,
		SkipExistingShifts: *m.SkipExistingShifts,
		MarkAsMigrated:     *m.MarkAsMigrated,
		DefaultPassword:    m.DefaultPassword,
		PasswordHashCost:   m.PasswordHashCost,
		Location:           loc,
		ImportConcurrency:  m.ImportConcurrency,
		PhotoConcurrency:   m.PhotoConcurrency,
	}, nil
}
