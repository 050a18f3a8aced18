package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	potatosync "github.com/broodroosterdev/potatosync-files"
	"github.com/broodroosterdev/potatosync-files/auth"
	"github.com/broodroosterdev/potatosync-files/config"
	potatohttp "github.com/broodroosterdev/potatosync-files/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the potatosync-files HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5708, "HTTP server port (env: POTATOSYNC_SERVER_PORT)")
	serveCmd.Flags().Int64("max-upload-size", 0, "maximum streamed upload size in bytes, 0 for unlimited")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	authn, err := auth.New(cfg.AuthenticatorConfig())
	if err != nil {
		return fmt.Errorf("create authenticator: %w", err)
	}
	slog.Info("authentication configured", "strategy", authn.Strategy())

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	gateway, err := potatosync.NewGateway(authn, backend, potatosync.GatewayConfig{FileLimit: cfg.FileLimit()})
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	handlerConfig := cfg.HandlerConfig()
	handler := potatohttp.NewHandler(&handlerConfig, gateway)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr, "file_limit", cfg.FileLimit(), "backend", cfg.Storage.Backend)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
