// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package ohlg

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/ohlg/boolean"
)

// Matcher runs matches with a pool of gate evaluators. Each worker owns
// its own bootstrapping engine; the bootstrap key and gate sequence are
// only read.
type Matcher struct {
	params  *Context
	bsk     *boolean.BootstrapKey
	workers int
	log     *zap.Logger
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithWorkers sets the number of concurrent workers. Values below 2 run the
// sequential cascade.
func WithWorkers(n int) MatcherOption {
	return func(m *Matcher) {
		m.workers = n
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) MatcherOption {
	return func(m *Matcher) {
		if log != nil {
			m.log = log
		}
	}
}

// NewMatcher creates a matcher for the given context and bootstrap key.
func NewMatcher(params *Context, bsk *boolean.BootstrapKey, opts ...MatcherOption) *Matcher {
	m := &Matcher{params: params, bsk: bsk, workers: 1, log: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match evaluates the cascade. With several workers the characters are
// matched concurrently from their fixed offsets in seq and OR-reduced in
// order afterwards, which consumes exactly the same gates as the
// sequential cascade. ctx only stops the scheduling of new characters.
func (m *Matcher) Match(ctx context.Context, query []*boolean.Ciphertext, corpus [][]*boolean.Ciphertext, seq *GateSequence) (*MatchResult, error) {
	start := time.Now()
	if m.workers < 2 || len(corpus) < 2 {
		res, err := NewGateEvaluator(m.params, m.bsk).Match(query, corpus, seq)
		if err != nil {
			return nil, err
		}
		m.log.Info("match complete",
			zap.Int("chars", len(corpus)),
			zap.Int("gates", res.GatesConsumed),
			zap.Duration("elapsed", time.Since(start)))
		return res, nil
	}

	if err := validateQuery(query, corpus); err != nil {
		return nil, err
	}
	bits := len(query)
	total := MatchGateCount(len(corpus), bits)
	if n := seq.Len(); n != total {
		return nil, fmt.Errorf("%w: sequence has %d gates, cascade needs %d", ErrCascadeDesync, n, total)
	}

	found := make([]*boolean.Ciphertext, len(corpus))
	next := make(chan int)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(next)
		for c := range corpus {
			if err := gctx.Err(); err != nil {
				return err
			}
			select {
			case next <- c:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < m.workers; w++ {
		g.Go(func() error {
			ge := NewGateEvaluator(m.params, m.bsk)
			for c := range next {
				cur := &cursor{seq: seq, next: charOffset(c, bits)}
				r, err := ge.matchChar(query, corpus[c], cur)
				if err != nil {
					return fmt.Errorf("character %d: %w", c, err)
				}
				found[c] = r
				m.log.Debug("character matched", zap.Int("worker", w), zap.Int("char", c))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ge := NewGateEvaluator(m.params, m.bsk)
	result := found[0]
	for c := 1; c < len(corpus); c++ {
		p, err := seq.At(charOffset(c, bits) + 2*bits - 1)
		if err != nil {
			return nil, fmt.Errorf("character %d: %w", c, err)
		}
		if result, err = ge.ObliviousGate2(result, found[c], p.A, p.D); err != nil {
			return nil, fmt.Errorf("character %d: %w", c, err)
		}
	}

	m.log.Info("match complete",
		zap.Int("chars", len(corpus)),
		zap.Int("gates", total),
		zap.Int("workers", m.workers),
		zap.Duration("elapsed", time.Since(start)))
	return &MatchResult{Result: result, GatesConsumed: total}, nil
}
