package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flood-ai/flood-memory/internal/server/api"
	"github.com/flood-ai/flood-memory/internal/server/tools"
)

func newServeHTTPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve-http",
		Short: "Serve MCP over HTTP and the REST API",
		Args:  cobra.NoArgs,
		RunE:  runServeHTTP,
	}
	cmd.Flags().String("host", "", "Listen host (overrides FLOOD_MEMORY_HOST)")
	cmd.Flags().Int("port", 0, "Listen port (overrides FLOOD_MEMORY_PORT)")
	return cmd
}

func runServeHTTP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if host, _ := cmd.Flags().GetString("host"); host != "" {
		a.cfg.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		a.cfg.Port = port
	}

	if a.cfg.AuthToken == "" {
		a.logger.Warn("FLOOD_MEMORY_AUTH_TOKEN is not set; the server accepts unauthenticated requests")
	}

	mcpServer := tools.NewServer(a.svc, a.logger)
	handler := api.NewRouter(api.RouterConfig{
		Service:   a.svc,
		MCP:       tools.NewHTTPHandler(mcpServer),
		Metrics:   a.metrics,
		Logger:    a.logger,
		AuthToken: a.cfg.AuthToken,
	})

	// HTTP server
	srv := &http.Server{
		Addr:        a.cfg.Addr(),
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting flood-memory HTTP server",
			zap.String("addr", srv.Addr),
			zap.String("backend", a.cfg.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-quit:
	}

	a.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	a.logger.Info("server exited")
	return nil
}
