package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/lab-timetable/internal/bootstrap"
	"github.com/example/lab-timetable/internal/config"
	"github.com/example/lab-timetable/internal/logging"
)

type rootOptions struct {
	configPath string
	envFile    string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "timetable",
		Short:         "Lab room timetable service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "configuration file (.yaml or .json)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file applied before the environment")

	root.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newImportCommand(opts),
		newClearCommand(opts),
	)
	return root
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	o.cfg = cfg
	o.logger = logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	return nil
}

// withApp builds the application for one command and closes it afterwards.
func (o *rootOptions) withApp(ctx context.Context, fn func(app *bootstrap.App) error) (err error) {
	app, err := bootstrap.Build(ctx, o.cfg, o.logger, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			o.logger.ErrorContext(ctx, "failed to close application", "error", cerr)
		}
	}()
	return fn(app)
}
