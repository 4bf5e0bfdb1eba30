package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/lab-timetable/internal/bootstrap"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return opts.withApp(ctx, func(app *bootstrap.App) error {
				listener, err := net.Listen("tcp", fmt.Sprintf(":%d", opts.cfg.HTTPPort))
				if err != nil {
					return fmt.Errorf("listen: %w", err)
				}
				return serve(ctx, app, listener)
			})
		},
	}
}

// serve runs the API on listener until ctx is done, then drains in-flight
// requests for up to ten seconds.
func serve(ctx context.Context, app *bootstrap.App, listener net.Listener) error {
	server := &http.Server{
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("failed to shutdown server", "error", err)
		}
	}()

	app.Logger.Info("timetable API listening", "addr", listener.Addr().String())
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	<-shutdownDone
	app.Logger.Info("timetable API stopped")
	return nil
}
