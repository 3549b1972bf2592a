package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/ohlg"
	"github.com/luxfi/ohlg/internal/bundle"
	"github.com/luxfi/ohlg/internal/queue"
	"github.com/luxfi/ohlg/internal/storage"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Serve match jobs from the job queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		metricsAddr, _ := cmd.Flags().GetString("metrics")
		return runWorker(cmd.Context(), metricsAddr)
	},
}

var jobCmd = &cobra.Command{
	Use:   "job <id>",
	Short: "Show the state of a queued job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := queue.NewRedisQueue(cfg.Redis, cfg.Queue)
		if err != nil {
			return err
		}
		defer q.Close()

		job, err := q.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(job)
	},
}

func init() {
	workerCmd.Flags().String("metrics", ":9090", "health and metrics address")
}

func runWorker(ctx context.Context, metricsAddr string) error {
	logger.Info("worker starting",
		zap.Int("workers", cfg.Workers),
		zap.String("redis", cfg.Redis.Addr),
		zap.String("queue", cfg.Queue),
		zap.String("storage", cfg.Storage))

	q, err := queue.NewRedisQueue(cfg.Redis, cfg.Queue)
	if err != nil {
		return fmt.Errorf("create queue: %w", err)
	}
	defer q.Close()

	store, err := openStorage()
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	pool := NewWorkerPool(cfg.Workers, q, store, NewWorkerMetrics(registry), logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics server starting", zap.String("addr", metricsAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received signal", zap.Stringer("signal", sig))
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown", zap.Error(err))
	}
	if err := pool.Stop(); err != nil {
		logger.Warn("worker pool shutdown", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

// WorkerPool runs match jobs from a queue. Each worker evaluates one job at
// a time with its own gate evaluator; gadget matrices are shared.
type WorkerPool struct {
	numWorkers int
	queue      queue.Queue
	storage    storage.Storage
	gadgets    *ohlg.GadgetCache
	log        *zap.Logger
	wg         sync.WaitGroup
	cancel     context.CancelFunc
	running    atomic.Bool
	metrics    *WorkerMetrics
}

// NewWorkerPool creates a pool of n workers.
func NewWorkerPool(n int, q queue.Queue, store storage.Storage, metrics *WorkerMetrics, log *zap.Logger) *WorkerPool {
	return &WorkerPool{
		numWorkers: n,
		queue:      q,
		storage:    store,
		gadgets:    ohlg.NewGadgetCache(),
		log:        log,
		metrics:    metrics,
	}
}

// Start starts the worker pool.
func (p *WorkerPool) Start(ctx context.Context) error {
	if p.running.Load() {
		return errors.New("pool already running")
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.running.Store(true)

	p.log.Info("starting workers", zap.Int("count", p.numWorkers))
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	return nil
}

// Stop gracefully stops the worker pool.
func (p *WorkerPool) Stop() error {
	if !p.running.Load() {
		return nil
	}

	p.log.Info("stopping worker pool")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("worker pool stopped")
	case <-time.After(30 * time.Second):
		return errors.New("shutdown timeout")
	}

	p.running.Store(false)
	return nil
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	log := p.log.With(zap.Int("worker", id))
	log.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug("worker stopping")
			return
		default:
		}

		job, err := p.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, queue.ErrClosed) {
				return
			}
			log.Warn("pop job", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		p.processJob(ctx, log, job)
	}
}

func (p *WorkerPool) processJob(ctx context.Context, log *zap.Logger, job *queue.Job) {
	log = log.With(zap.String("job", job.ID))
	log.Info("processing job", zap.String("manifest", job.Manifest))

	job.Status = queue.StatusProcessing
	if err := p.queue.Update(ctx, job); err != nil {
		log.Warn("update job status", zap.Error(err))
	}

	start := time.Now()
	rh, res, err := p.match(ctx, log, job)
	if err != nil {
		job.Status = queue.StatusFailed
		job.Error = err.Error()
		if err := p.queue.Update(ctx, job); err != nil {
			log.Warn("update job status", zap.Error(err))
		}
		p.metrics.jobs.WithLabelValues("failure").Inc()
		log.Error("job failed", zap.Error(err))
		return
	}

	job.Status = queue.StatusCompleted
	job.Result = string(rh)
	job.GatesConsumed = res.GatesConsumed
	if err := p.queue.Update(ctx, job); err != nil {
		log.Warn("update job status", zap.Error(err))
	}
	p.metrics.jobs.WithLabelValues("success").Inc()
	p.metrics.gates.Add(float64(res.GatesConsumed))
	p.metrics.matchTime.Observe(time.Since(start).Seconds())
	log.Info("job completed",
		zap.String("result", job.Result),
		zap.Int("gates", res.GatesConsumed),
		zap.Duration("elapsed", time.Since(start)))
}

func (p *WorkerPool) match(ctx context.Context, log *zap.Logger, job *queue.Job) (storage.Handle, *ohlg.MatchResult, error) {
	h := storage.Handle(job.Manifest)
	if err := h.Validate(); err != nil {
		return "", nil, err
	}
	return bundle.Match(ctx, p.storage, h, p.gadgets, ohlg.WithLogger(log))
}
