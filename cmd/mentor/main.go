package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pymentor/internal/gateway/app"
	"pymentor/internal/gateway/config"
	"pymentor/internal/logging"
	"pymentor/internal/requirement"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mentor",
	Short: "Python To-Do mentor backend",
	Long: `mentor serves the coding-mentor sessions: a code buffer, a requirement
checklist driven by model analysis, and a French-speaking tutor chat.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the RPC and websocket gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Port = config.NormalizePort(port)
		}
		a, err := app.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := a.Run(ctx); err != nil {
			return err
		}
		logger.Info("server exiting")
		return nil
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the effective requirement catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := requirement.Default()
		if cfg.Session.CatalogPath != "" {
			var err error
			catalog, err = requirement.Load(cfg.Session.CatalogPath)
			if err != nil {
				return err
			}
		}
		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(catalog.Items())
		}
		_, err := fmt.Fprint(out, requirement.Listing(catalog.Items()))
		return err
	},
}

func init() {
	serveCmd.Flags().String("port", "", "listen address, overrides PORT")
	catalogCmd.Flags().Bool("json", false, "print the catalog as JSON")
	rootCmd.AddCommand(serveCmd, catalogCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
