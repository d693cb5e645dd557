package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/vango-dev/catalog/pkg/server"
	"github.com/vango-dev/catalog/pkg/session"
)

func serveCmd(opts *globalOptions) *cobra.Command {
	var (
		port        int
		host        string
		traceStdout bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the catalog server",
		Long: `Start the catalog HTTP server.

Routes:
  /                  home page
  /products          product list (search and category filter)
  /products/{id}     product detail
  /live              live session WebSocket (when live.enabled)
  /metrics           Prometheus metrics (when server.metricsEnabled)
  /healthz           liveness probe

Examples:
  catalog serve
  catalog serve --port=8080
  catalog serve --trace-stdout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if port > 0 {
				a.cfg.Server.Port = port
			}
			if host != "" {
				a.cfg.Server.Host = host
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if traceStdout {
				shutdown, err := installStdoutTracer(cmd)
				if err != nil {
					return err
				}
				defer shutdown(context.Background())
			}
			return runServe(ctx, a)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().BoolVar(&traceStdout, "trace-stdout", false, "Print OpenTelemetry spans to stdout")

	return cmd
}

func runServe(ctx context.Context, a *app) error {
	cfg := a.cfg
	if cfg.Cache.WarmOnStart {
		if err := a.selector.Warm(ctx); err != nil {
			a.logger.Warn("cache warm-up incomplete", "error", err)
		}
	}

	var sessions *session.Manager
	if cfg.Live.Enabled {
		sessions = session.NewManager(session.Config{
			Selector:       a.selector,
			Views:          a.views,
			Filters:        a.filters,
			Debounce:       cfg.Search.Debounce.Std(),
			MaxSessions:    cfg.Live.MaxSessions,
			IdleTimeout:    cfg.Live.IdleTimeout.Std(),
			WriteTimeout:   cfg.Live.WriteTimeout.Std(),
			MaxMessageSize: cfg.Live.MaxMessageSize,
			Registerer:     a.registry,
			Logger:         a.logger,
		})
	}

	srvCfg := server.Config{
		Address:         cfg.Address(),
		Selector:        a.selector,
		Views:           a.views,
		Sessions:        sessions,
		ReadTimeout:     cfg.Server.ReadTimeout.Std(),
		WriteTimeout:    cfg.Server.WriteTimeout.Std(),
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Std(),
		Logger:          a.logger,
	}
	if cfg.Server.MetricsEnabled {
		srvCfg.Registry = a.registry
	}

	err := server.New(srvCfg).Run(ctx)
	a.source.Wait()
	return err
}

// installStdoutTracer makes a stdout exporter the global trace provider.
func installStdoutTracer(cmd *cobra.Command) (func(context.Context) error, error) {
	exp, err := stdouttrace.New(
		stdouttrace.WithWriter(cmd.OutOrStdout()),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
