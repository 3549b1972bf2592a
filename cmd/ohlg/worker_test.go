package main

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/luxfi/ohlg"
	"github.com/luxfi/ohlg/boolean"
	"github.com/luxfi/ohlg/internal/bundle"
	"github.com/luxfi/ohlg/internal/queue"
	"github.com/luxfi/ohlg/internal/storage"
)

func TestWorkerPool(t *testing.T) {
	if testing.Short() {
		t.Skip("runs a full match cascade")
	}
	ctx := context.Background()

	params, err := ohlg.NewParametersFromLiteral(ohlg.InsecureTestParams)
	require.NoError(t, err)
	octx, err := ohlg.NewContext(params, nil)
	require.NoError(t, err)

	kgen := boolean.NewKeyGenerator(params.Scheme())
	sk := kgen.GenSecretKey()
	enc := boolean.NewEncryptor(params.Scheme(), sk)
	dec := boolean.NewDecryptor(params.Scheme(), sk)

	req, err := newRequest(octx, enc, kgen.GenBootstrapKey(sk), 'b', []byte("ab"))
	require.NoError(t, err)

	store := storage.NewMemoryStorage(256)
	h, _, err := bundle.Save(ctx, store, "test", req)
	require.NoError(t, err)

	q := queue.NewMemoryQueue(4)
	defer q.Close()
	require.NoError(t, q.Push(ctx, &queue.Job{ID: "match", Manifest: string(h)}))
	require.NoError(t, q.Push(ctx, &queue.Job{ID: "bad", Manifest: "not-a-handle"}))

	metrics := NewWorkerMetrics(prometheus.NewRegistry())
	pool := NewWorkerPool(2, q, store, metrics, zaptest.NewLogger(t))
	require.NoError(t, pool.Start(ctx))
	require.Error(t, pool.Start(ctx))

	done := func(id string) *queue.Job {
		var job *queue.Job
		require.Eventually(t, func() bool {
			j, err := q.Get(ctx, id)
			if err != nil {
				return false
			}
			job = j
			return job.Status == queue.StatusCompleted || job.Status == queue.StatusFailed
		}, 5*time.Minute, 50*time.Millisecond)
		return job
	}

	bad := done("bad")
	require.Equal(t, queue.StatusFailed, bad.Status)
	require.Contains(t, bad.Error, "invalid artifact handle")

	job := done("match")
	require.Equal(t, queue.StatusCompleted, job.Status, job.Error)
	require.Equal(t, ohlg.MatchGateCount(2, 8), job.GatesConsumed)

	require.NoError(t, pool.Stop())
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.jobs.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.jobs.WithLabelValues("failure")))
	require.Equal(t, float64(job.GatesConsumed), testutil.ToFloat64(metrics.gates))

	m, err := bundle.LoadManifest(ctx, store, storage.Handle(job.Result))
	require.NoError(t, err)
	ct, err := bundle.LoadResult(ctx, store, m)
	require.NoError(t, err)
	require.True(t, dec.Decrypt(ct))
}

func TestPlainGate(t *testing.T) {
	params, err := ohlg.NewParametersFromLiteral(ohlg.InsecureTestParams)
	require.NoError(t, err)
	kgen := boolean.NewKeyGenerator(params.Scheme())
	sk := kgen.GenSecretKey()
	enc := boolean.NewEncryptor(params.Scheme(), sk)
	dec := boolean.NewDecryptor(params.Scheme(), sk)
	eval := boolean.NewEvaluator(params.Scheme(), kgen.GenBootstrapKey(sk))

	for _, g := range []ohlg.Gate{ohlg.GateNAND, ohlg.GateXOR, ohlg.GateBuffer, ohlg.GateNOT} {
		out, err := plainGate(eval, g)(enc.Encrypt(true), enc.Encrypt(false))
		require.NoError(t, err)
		require.Equal(t, g.Eval(true, false), dec.Decrypt(out), "%v", g)
	}
}

func TestSummarize(t *testing.T) {
	l, err := summarize([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	require.InDelta(t, 2.5, l.mean, 1e-9)
	require.Greater(t, l.stddev, 0.0)

	_, err = summarize(nil)
	require.Error(t, err)
}
