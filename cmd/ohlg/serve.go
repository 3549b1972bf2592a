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

	"github.com/luxfi/ohlg/internal/queue"
	"github.com/luxfi/ohlg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve artifacts and match requests over HTTP",
	Long: `serve accepts artifact uploads and match requests. With --enqueue
matches are submitted to the job queue for workers; otherwise they run in
the request.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		enqueue, _ := cmd.Flags().GetBool("enqueue")

		store, err := openStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		var q queue.Queue
		if enqueue {
			rq, err := queue.NewRedisQueue(cfg.Redis, cfg.Queue)
			if err != nil {
				return err
			}
			defer rq.Close()
			q = rq
		}

		srv := server.New(server.Config{Address: addr, Workers: cfg.Workers}, store, q, logger)
		httpServer := &http.Server{
			Addr:              addr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server listening", zap.String("addr", addr), zap.Bool("queue", enqueue))
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return err
		case <-quit:
		}

		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8448", "HTTP listen address")
	serveCmd.Flags().Bool("enqueue", false, "submit matches to the job queue")
	rootCmd.AddCommand(serveCmd)
}
