package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/querybuilder/internal/core/server"
	"github.com/solatis/querybuilder/internal/rules"
	"github.com/solatis/querybuilder/internal/schema"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC and HTTP compile services",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "listen host")
	serveCmd.Flags().Int("port", 50051, "gRPC port")
	serveCmd.Flags().Int("http-port", 8080, "HTTP port (0 disables)")
	serveCmd.Flags().Bool("watch", false, "reload the schema when its file changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	service, holder, closeStore, err := newService(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer closeStore()

	logger := slog.Default()

	grpcServer, err := server.NewGRPCServer(cfg, service, logger)
	if err != nil {
		return fmt.Errorf("failed to create grpc server: %w", err)
	}

	var httpServer *server.HTTPServer
	if cfg.HTTPPort != 0 {
		if httpServer, err = server.NewHTTPServer(cfg, service, logger); err != nil {
			return fmt.Errorf("failed to create http server: %w", err)
		}
	}

	errChan := make(chan error, 3)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()
	if httpServer != nil {
		go func() {
			errChan <- httpServer.Start()
		}()
	}
	if cfg.WatchSchema {
		go func() {
			if err := schema.Watch(ctx, cfg.SchemaPath, rules.Builtins(), holder, logger); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- fmt.Errorf("schema watch: %w", err)
			}
		}()
	}

	logger.Info("querybuilder started",
		slog.String("version", Version),
		slog.String("grpc", cfg.GRPCAddr()),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("schema", cfg.SchemaPath),
		slog.String("checksum", holder.Load().Checksum()),
		slog.Bool("watch", cfg.WatchSchema))

	var runErr error
	select {
	case runErr = <-errChan:
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", slog.Any("error", err))
		}
	}
	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("grpc shutdown", slog.Any("error", err))
	}
	return runErr
}
