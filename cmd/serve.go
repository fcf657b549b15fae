package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmehdipour/engage-dispatch/internal/db"
	"github.com/jmehdipour/engage-dispatch/internal/dispatcher"
	httpSrv "github.com/jmehdipour/engage-dispatch/internal/http"
	"github.com/jmehdipour/engage-dispatch/internal/logger"
	"github.com/jmehdipour/engage-dispatch/internal/metrics"
	"github.com/jmehdipour/engage-dispatch/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Log.Sync() }()

		mysqlDB, err := db.OpenMySQL(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer mysqlDB.Close()

		redisClient, err := db.OpenRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		metrics.MustRegister(prometheus.DefaultRegisterer)
		stats := metrics.NewPromStats("msgd", prometheus.DefaultRegisterer)

		server := httpSrv.NewServer(cfg, httpSrv.Deps{
			Dispatcher: dispatcher.FromConfig(cfg, logger.Log, stats),
			Workspaces: repository.NewWorkspacesRepository(mysqlDB),
			Redis:      redisClient,
			Health: db.NewHealth().
				Add("mysql", mysqlDB.PingContext).
				Add("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		})

		errCh := make(chan error, 1)
		go func() {
			logger.Log.Info("starting http", zap.String("addr", cfg.HTTP.Addr))
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil {
				logger.Log.Error("http server exited", zap.Error(err))
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}
