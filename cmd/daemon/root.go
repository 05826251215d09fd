// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManuGH/reportstream/internal/config"
	"github.com/ManuGH/reportstream/internal/daemon"
	"github.com/ManuGH/reportstream/internal/log"
	"github.com/ManuGH/reportstream/internal/version"
	"github.com/spf13/cobra"
)

// exitUsage is returned for bad flags or arguments.
const exitUsage = 2

var errUsage = errors.New("usage error")

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "reportstream",
		Short:         "Push report status changes to browsers over server-sent events",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv(config.EnvPrefix+"CONFIG"),
		"path to a YAML config file")

	root.AddCommand(
		newServeCmd(opts),
		newConfigCmd(opts),
		newStorageCmd(),
		newVersionCmd(),
	)
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server, the report actor and the status feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func loadConfig(opts *rootOptions) (config.AppConfig, error) {
	cfg, err := config.NewLoader(opts.configPath, version.Version).Load()
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := daemon.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	logger.Info().
		Str(log.FieldEvent, "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("listen", cfg.ListenAddr).
		Msg("starting reportstream")
	return app.Run(ctx)
}

// execute runs the CLI and maps the outcome to a process exit code.
func execute(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		if errors.Is(err, errUsage) {
			return exitUsage
		}
		return 1
	}
	return 0
}
