package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"evidence-registry/internal/server"
)

func newServeCommand(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Example: `  # Serve with defaults (memory storage, mock ledger, mock lifecycle)
  evidence-registry serve

  # Anchor session files in-process
  LIFECYCLE_MODE=local evidence-registry serve --addr :8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.GetServerAddr()
			}
			if !a.cfg.Logging.Development {
				gin.SetMode(gin.ReleaseMode)
			}

			srv := server.New(server.Config{
				Addr:            addr,
				ReadTimeout:     a.cfg.Server.ReadTimeout.Std(),
				WriteTimeout:    a.cfg.Server.WriteTimeout.Std(),
				IdleTimeout:     a.cfg.Server.IdleTimeout.Std(),
				MultipartMemory: a.cfg.Server.MultipartMB << 20,
			}, server.Deps{
				Pipeline: a.pipeline,
				Verifier: a.verifier,
				Anchor:   a.anchor,
			}, a.logger.Named("http"))

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case <-quit:
			}
			a.logger.Info("shutting down server")

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				a.logger.Error("server forced to shutdown", zap.Error(err))
				return err
			}
			a.logger.Info("server exiting")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
