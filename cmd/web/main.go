package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"

	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
	"github.com/de-tools/guest-lifecycle/pkg/server"
	"github.com/de-tools/guest-lifecycle/pkg/services/registry"
	"github.com/de-tools/guest-lifecycle/pkg/services/workflow"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var opts registry.Options

func main() {
	var rootCmd = &cobra.Command{
		Use:   "guestd",
		Short: "Start the web server for guest lifecycle classification",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to the settings file")
	rootCmd.Flags().StringVar(&opts.ProfilePath, "profile-file", "",
		"Path to the profiles file (default is $HOME/.guestctl/profiles)")
	rootCmd.Flags().StringVar(&opts.Profile, "profile", "default", "Profile to use from the profiles file")
	rootCmd.Flags().StringVar(&opts.StorePath, "store", "", "Path to the run history database")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	reg, err := registry.NewRegistry(opts)
	if err != nil {
		return fmt.Errorf("failed to create registry: %w", err)
	}
	defer reg.Close()

	runner, err := reg.Runner(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to create workflow runner: %w", err)
	}
	runStore, err := reg.RunStore()
	if err != nil {
		return err
	}

	settings := reg.Settings()
	if settings.Schedule.Interval > 0 {
		kinds := make([]domain.ClassificationKind, 0, len(settings.Schedule.Kinds))
		for _, k := range settings.Schedule.Kinds {
			kinds = append(kinds, domain.ClassificationKind(k))
		}
		ctrl, err := workflow.NewController(runner, kinds, settings.Schedule.Interval)
		if err != nil {
			return fmt.Errorf("failed to create schedule: %w", err)
		}
		if err := ctrl.Start(ctx); err != nil {
			return err
		}
		defer func() {
			_ = ctrl.Cancel(ctx)
		}()
		logger.Info().Dur("interval", settings.Schedule.Interval).Msg("classification schedule started")
	}

	host := os.Getenv("SERVER_HOST")
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	addr := net.JoinHostPort(host, port)

	webAPI := server.NewWebAPI(logger, server.Config{
		Addr:            addr,
		ShutdownTimeout: settings.Server.ShutdownTimeout,
		RequestTimeout:  settings.Server.RequestTimeout,
		Dependencies: server.Dependencies{
			Runner: runner,
			Runs:   runStore,
		},
	})
	return webAPI.Start(ctx)
}
