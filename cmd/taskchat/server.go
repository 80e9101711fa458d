package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/taskchat/internal/api"
	"github.com/kalambet/taskchat/internal/assistant"
	"github.com/kalambet/taskchat/internal/config"
	"github.com/kalambet/taskchat/internal/gateway"
	"github.com/kalambet/taskchat/internal/metrics"
	"github.com/kalambet/taskchat/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the taskchat server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve the MCP tools over stdio")
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "taskchat version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))

	if !gateway.CredentialConfigured(cfg.Gateway.APIKey) {
		printWarning("OPENAI_API_KEY is not configured; chat requests will fail until it is set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Trace, version)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	var (
		m              *metrics.Metrics
		metricsHandler http.Handler
	)
	if cfg.Server.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	gw := gateway.New(gateway.Config{
		APIKey:  cfg.Gateway.APIKey,
		BaseURL: cfg.Gateway.BaseURL,
		Model:   cfg.Gateway.Model,
		Timeout: cfg.Gateway.Timeout,
	})
	svc := assistant.New(assistant.Deps{
		Gateway:        gw,
		Metrics:        m,
		StrictCounters: cfg.Stats.StrictCounters,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewHandler(api.Deps{Service: svc, Metrics: metricsHandler}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		printStep("taskchat listening on %s", srv.Addr)
		slog.Info("server started", "addr", srv.Addr, "model", cfg.Gateway.Model, "metrics", cfg.Server.MetricsEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(srv.Shutdown(shutdownCtx), shutdownTracing(shutdownCtx))
	})

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Service: svc, Version: version})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
				return fmt.Errorf("mcp server: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}
