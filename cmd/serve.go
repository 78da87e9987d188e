package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/autolink/internal/reconcile"
	"github.com/sells-group/autolink/internal/server"
	"github.com/sells-group/autolink/internal/store"
)

var servePort int

const cacheSweepInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the batch progress API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		srv := server.New(serverBatchFunc(env), server.WithJWTSecret(cfg.Server.JWTSecret))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.ListenAndServe(gctx, fmt.Sprintf(":%d", port))
		})
		if env.Store != nil {
			g.Go(func() error {
				sweepEpisodeCache(gctx, env.Store, cacheSweepInterval)
				return nil
			})
		}

		zap.L().Info("starting server", zap.Int("port", port))
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// serverBatchFunc adapts runBatch to the server's run hook.
func serverBatchFunc(env *appEnv) server.BatchFunc {
	return func(ctx context.Context, req server.BatchRequest, obs reconcile.Observer) (*reconcile.Result, error) {
		return runBatch(ctx, env, batchOptions{
			Season: req.Season,
			Save:   req.Save || cfg.Batch.SaveOnSuccess,
			Limit:  cfg.Batch.Limit,
		}, obs)
	}
}

// sweepEpisodeCache purges expired episode listings every interval until
// ctx is done.
func sweepEpisodeCache(ctx context.Context, st store.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := st.DeleteExpiredEpisodes(ctx)
			if err != nil {
				zap.L().Warn("episode cache sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				zap.L().Debug("episode cache swept", zap.Int("deleted", n))
			}
		}
	}
}
