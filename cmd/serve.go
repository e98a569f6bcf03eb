package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/example/engprogress/internal/api"
	"github.com/example/engprogress/internal/progress"
	"github.com/example/engprogress/internal/scheduler"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the failed-session replay job",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.LogMode == "prod" {
			gin.SetMode(gin.ReleaseMode)
		}
		router := api.NewRouter(api.RouterConfig{
			ProgressHandler: api.NewProgressHandler(a.orch, a.log),
		})
		srv := &http.Server{
			Addr:              a.cfg.HTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		sched := scheduler.New(progress.NewReplayer(a.orch, a.store), a.log, a.cfg.ReplayInterval, a.cfg.ReplayBatch)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a.log.Info("HTTP server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			a.log.Info("Shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}
