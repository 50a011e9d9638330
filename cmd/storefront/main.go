package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hvacmart/storefront/config"
	"github.com/hvacmart/storefront/internal/adminapi"
	"github.com/hvacmart/storefront/internal/app"
	"github.com/hvacmart/storefront/internal/storeapi"
	"github.com/hvacmart/storefront/internal/webserver"
)

func main() {
	var cfgFile string
	rootCmd := &cobra.Command{
		Use:           "storefront",
		Short:         "HVAC storefront API server",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default storefront.yml, then /etc/storefront.yml)")

	rootCmd.AddCommand(serveCmd(&cfgFile))
	rootCmd.AddCommand(migrateCmd(&cfgFile))
	rootCmd.AddCommand(initdbCmd(&cfgFile))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront and back-office API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(*cfgFile)
			application := app.NewApplication(cfg)
			application.Init(cfg)
			defer application.Release()

			webserver.Init(application)
			storeapi.Init(application)
			adminapi.Init()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := webserver.Listen(ctx); err != nil {
				zap.S().Errorf("web server stopped: %v", err)
				return err
			}
			zap.S().Info("storefront stopped")
			return nil
		},
	}
}

func migrateCmd(cfgFile *string) *cobra.Command {
	var track bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			application := app.NewApplication(config.LoadConfig(*cfgFile))
			application.OpenDatabase()
			if err := application.MigrateDB(track); err != nil {
				return err
			}
			application.Seed()
			fmt.Println("database schema is up to date")
			return nil
		},
	}
	cmd.Flags().BoolVar(&track, "track", false, "log the generated SQL")
	return cmd
}

func initdbCmd(cfgFile *string) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "initdb",
		Short: "Drop every table and recreate an empty, seeded database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("initdb destroys all data, rerun with --yes to confirm")
			}
			application := app.NewApplication(config.LoadConfig(*cfgFile))
			application.OpenDatabase()
			application.InitDb()
			application.Seed()
			fmt.Println("database initialized")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm that all data may be dropped")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(app.Version)
		},
	}
}
