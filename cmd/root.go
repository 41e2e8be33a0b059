// Package cmd defines the CLI commands of the jerseys executable.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jersey-gallery/internal/config"
	"github.com/JakeFAU/jersey-gallery/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App carries what every subcommand needs.
type App struct {
	Config config.Config
	Logger *zap.Logger
}

// newApp is the application factory. It's a variable so tests can swap in a
// quiet logger.
var newApp = func(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &App{Config: cfg, Logger: logger}, nil
}

// NewRootCmd creates and configures the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "jerseys",
		Short: "Resumable jersey gallery scraper and gallery server",
		Long: `jerseys walks the listing pages of a yupoo photo shop, collects every
jersey album with its best-resolution photos, and checkpoints the dataset
after each item so an interrupted run picks up where it stopped. The same
binary serves the dataset to the gallery front end.`,
		SilenceUsage: true,

		// Runs before every subcommand; builds the App and stores it in the context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// .env is optional
			_ = godotenv.Load()

			appInstance, err := newApp(cfgFile)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(appInstance.Logger)
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*App); ok && appInstance != nil {
				// Sync fails on stderr/stdout ttys; nothing to do about it.
				_ = appInstance.Logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML or JSON)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*App, error) {
	appInstance, ok := ctx.Value(appKey).(*App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
