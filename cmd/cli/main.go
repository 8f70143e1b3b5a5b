package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/legacy-migrator/cmd/cli/commands"
	"github.com/jakechorley/legacy-migrator/internal/config"
	"github.com/jakechorley/legacy-migrator/pkg/clients/legacyclient"
	"github.com/jakechorley/legacy-migrator/pkg/db"
	"github.com/jakechorley/legacy-migrator/pkg/photo"
	"github.com/jakechorley/legacy-migrator/pkg/postgres"
	"github.com/jakechorley/legacy-migrator/pkg/sqlite"
	"github.com/jakechorley/legacy-migrator/pkg/utils/logging"
)

var (
	env        string
	configPath string
	verbose    bool
	app        = &commands.AppContext{}
	closeStore func()
	stopSignal context.CancelFunc
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "cli",
		Short:         "Legacy migrator - move volunteers, shifts and signups out of the legacy admin panel",
		Long:          `A CLI tool that scrapes the legacy admin panel and imports its users, events and signups into the new shift application.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			shutdown()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Explicit config file, overrides the --env lookup")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the console")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.TestConnectionCmd(app))
	rootCmd.AddCommand(commands.ScrapeCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))

	if err := rootCmd.Execute(); err != nil {
		if app.Logger != nil {
			app.Logger.Error("Command failed", zap.Error(err))
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		shutdown()
		os.Exit(1)
	}
}

// initApp sets up logger, config, target store, legacy client and photo pipeline
func initApp() error {
	var err error
	app.Ctx, stopSignal = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// Initialize logger
	app.Logger, app.LogFile, err = logging.InitLogger(env, logging.Options{Verbose: verbose})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger.Info("Starting application", zap.String("log_file", app.LogFile))

	// Load configuration
	app.Logger.Info("Loading configuration")
	if configPath != "" {
		app.Cfg, err = config.LoadFromPath(configPath)
	} else {
		app.Cfg, err = config.LoadWithEnv(env)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully")

	// Connect to the target store
	app.Logger.Info("Connecting to target database", zap.String("driver", app.Cfg.Database.Driver))
	app.Store, closeStore, err = openStore(app.Ctx, app.Cfg.Database, app.Logger.Named("store"))
	if err != nil {
		return fmt.Errorf("failed to open target database: %w", err)
	}
	app.Logger.Info("Target database ready")

	// Initialize legacy client
	app.Logger.Info("Initializing legacy client", zap.String("base_url", app.Cfg.Legacy.BaseURL))
	legacy := app.Cfg.Legacy
	app.Legacy, err = legacyclient.NewClient(legacyclient.Options{
		BaseURL:           legacy.BaseURL,
		LoginPath:         legacy.LoginPath,
		APIPath:           legacy.APIPath,
		UserAgent:         legacy.UserAgent,
		Timeout:           legacy.RequestTimeout,
		RequestsPerSecond: legacy.RequestsPerSecond,
		RetryCount:        legacy.RetryCount,
		MaxPages:          legacy.MaxPages,
		Resources: legacyclient.Resources{
			Users:   legacy.Resources.Users,
			Events:  legacy.Resources.Events,
			Signups: legacy.Resources.Signups,
		},
	}, app.Logger.Named("legacy"))
	if err != nil {
		return fmt.Errorf("failed to create legacy client: %w", err)
	}

	// Photo pipeline shares the legacy client's session handling
	app.Photos = photo.NewPipeline(app.Legacy, photo.Options{
		Size:    app.Cfg.Migration.PhotoSize,
		Quality: app.Cfg.Migration.PhotoQuality,
	}, app.Logger.Named("photo"))
	app.Logger.Debug("Legacy client initialized successfully")

	return nil
}

// openStore connects to the configured target and applies pending schema migrations
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (db.MigrationStore, func(), error) {
	switch cfg.Driver {
	case "postgres":
		pg, err := postgres.NewDB(ctx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.RunMigrations(ctx, logger); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return pg, pg.Close, nil
	case "sqlite":
		lite, err := sqlite.NewDB(ctx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		if err := lite.RunMigrations(ctx, logger); err != nil {
			lite.Close()
			return nil, nil, err
		}
		return lite, lite.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func shutdown() {
	if closeStore != nil {
		closeStore()
		closeStore = nil
	}
	if stopSignal != nil {
		stopSignal()
	}
	if app.Logger != nil {
		app.Logger.Sync()
	}
}
