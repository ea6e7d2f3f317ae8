package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flood-ai/flood-memory/internal/server/tools"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdio",
		Long:  "Serve the memory tools over newline-delimited JSON-RPC on stdin/stdout. Logs go to stderr.",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	a.logger.Info("flood-memory stdio server started",
		zap.String("backend", a.cfg.Backend),
		zap.String("dir", a.cfg.Dir))

	s := tools.NewServer(a.svc, a.logger)
	err = tools.ServeStdio(ctx, s, a.logger, os.Stdin, os.Stdout)
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
