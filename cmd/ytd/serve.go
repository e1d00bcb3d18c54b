package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ytd-go/ytd/api"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.close()

		log := rt.log
		addr := fmt.Sprintf("%s:%d", rt.config.Server.Host, rt.config.Server.Port)
		server := &http.Server{
			Addr:    addr,
			Handler: api.SetupRouter(rt.service, log),
		}

		log.Info("Starting ytd server",
			zap.String("addr", addr),
			zap.String("binary", rt.config.Downloader.Binary),
			zap.Bool("history", rt.service.HistoryEnabled()))

		serverErr := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
			close(serverErr)
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case <-quit:
			log.Info("Received shutdown signal")
		case err := <-serverErr:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
		}

		// In-flight downloads cannot be interrupted; give them time to finish.
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
		}

		log.Info("Server exited")
		return nil
	},
}
