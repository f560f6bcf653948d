package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	internalapp "github.com/stacklok/extguard/internal/app"
	"github.com/stacklok/extguard/internal/telemetry"
)

const (
	keyAddress = "address"

	defaultGracefulTimeout = 30 * time.Second
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the extguard API server",
		Long: `Start the extguard API server.

The server bootstraps bundled lists on start, refreshes every enabled list
on the configured interval and serves the aggregated records, source
management and extension classification over HTTP.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v)
		},
	}

	cmd.Flags().String("address", "", "Address to listen on (default \":8080\")")
	if err := v.BindPFlag(keyAddress, cmd.Flags().Lookup("address")); err != nil {
		slog.Error("Error binding flag", "flag", "address", "error", err)
	}
	return cmd
}

func runServe(ctx context.Context, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown telemetry", "error", err)
		}
	}()

	opts := []internalapp.AppOption{internalapp.WithConfig(cfg)}
	if address := v.GetString(keyAddress); address != "" {
		opts = append(opts, internalapp.WithAddress(address))
	}
	if cfg.Telemetry != nil && cfg.Telemetry.Enabled {
		opts = append(opts,
			internalapp.WithTracerProvider(tel.TracerProvider()),
			internalapp.WithMeterProvider(tel.MeterProvider()),
		)
		if handler := tel.MetricsHandler(); handler != nil {
			opts = append(opts, internalapp.WithMetricsHandler(handler))
		}
	}

	app, err := internalapp.NewExtguardApp(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.Start()
	}()

	select {
	case err := <-serveErr:
		if stopErr := app.Stop(defaultGracefulTimeout); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
		return err
	case <-sigCtx.Done():
		slog.Info("Received shutdown signal")
	}

	if err := app.Stop(defaultGracefulTimeout); err != nil {
		return err
	}
	return <-serveErr
}
