package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/ohlg"
	"github.com/luxfi/ohlg/boolean"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Compare obfuscated gates with plain bootstrapped gates",
	Long: `demo generates a key set and evaluates every gate type on random
inputs, once obfuscated and once as a plain bootstrapped gate, and reports
errors and latencies. With --corpus it also runs a full match in process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("trials") {
			cfg.Trials, _ = cmd.Flags().GetInt("trials")
		}
		corpus, _ := cmd.Flags().GetString("corpus")
		query, _ := cmd.Flags().GetString("query")
		return runDemo(cmd.Context(), cmd.OutOrStdout(), cfg.Trials, corpus, query)
	},
}

func init() {
	demoCmd.Flags().Int("trials", cfg.Trials, "evaluations per gate")
	demoCmd.Flags().String("corpus", "", "corpus for an in-process match")
	demoCmd.Flags().String("query", "a", "query character for the match")
}

// latency summarizes durations in milliseconds.
type latency struct {
	mean, stddev, p95 float64
}

func summarize(d []float64) (latency, error) {
	var (
		l   latency
		err error
	)
	if l.mean, err = stats.Mean(d); err != nil {
		return l, err
	}
	if l.stddev, err = stats.StandardDeviation(d); err != nil {
		return l, err
	}
	if l.p95, err = stats.Percentile(d, 95); err != nil {
		return l, err
	}
	return l, nil
}

func (l latency) String() string {
	return fmt.Sprintf("%8.2f ms ± %6.2f (p95 %8.2f)", l.mean, l.stddev, l.p95)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// plainGate returns the bootstrapped gate of the boolean scheme matching g.
func plainGate(eval *boolean.Evaluator, g ohlg.Gate) func(a, b *boolean.Ciphertext) (*boolean.Ciphertext, error) {
	switch g {
	case ohlg.GateNAND:
		return eval.NAND
	case ohlg.GateAND:
		return eval.AND
	case ohlg.GateOR:
		return eval.OR
	case ohlg.GateXNOR:
		return eval.XNOR
	case ohlg.GateNOR:
		return eval.NOR
	case ohlg.GateXOR:
		return eval.XOR
	case ohlg.GateNOT:
		return func(a, _ *boolean.Ciphertext) (*boolean.Ciphertext, error) { return eval.NOT(a) }
	default:
		return func(a, _ *boolean.Ciphertext) (*boolean.Ciphertext, error) { return a.CopyNew(), nil }
	}
}

func runDemo(ctx context.Context, w io.Writer, trials int, corpus, query string) error {
	params, err := loadParams()
	if err != nil {
		return err
	}
	octx, err := ohlg.NewContext(params, nil)
	if err != nil {
		return err
	}

	start := time.Now()
	kgen := boolean.NewKeyGenerator(params.Scheme())
	sk := kgen.GenSecretKey()
	bsk := kgen.GenBootstrapKey(sk)
	logger.Info("keys generated", zap.String("params", cfg.Params), zap.Duration("elapsed", time.Since(start)))

	enc := boolean.NewEncryptor(params.Scheme(), sk)
	dec := boolean.NewDecryptor(params.Scheme(), sk)
	ge := ohlg.NewGateEvaluator(octx, bsk)
	eval := boolean.NewEvaluator(params.Scheme(), bsk)

	fmt.Fprintf(w, "%-6s %7s %-40s %-40s\n", "gate", "errors", "obfuscated", "plain")
	gates := []ohlg.Gate{ohlg.GateNAND, ohlg.GateAND, ohlg.GateOR, ohlg.GateXNOR, ohlg.GateNOR, ohlg.GateXOR, ohlg.GateBuffer, ohlg.GateNOT}
	for _, g := range gates {
		if err := ctx.Err(); err != nil {
			return err
		}
		plain := plainGate(eval, g)
		obf := make([]float64, 0, trials)
		ref := make([]float64, 0, trials)
		errs := 0
		for i := 0; i < trials; i++ {
			a, b := rand.IntN(2) == 1, rand.IntN(2) == 1
			ca, cb := enc.Encrypt(a), enc.Encrypt(b)

			p, err := octx.EncryptGate(g, enc)
			if err != nil {
				return err
			}
			t0 := time.Now()
			out, err := ge.Apply(ca, cb, p)
			if err != nil {
				return fmt.Errorf("%v: %w", g, err)
			}
			obf = append(obf, ms(time.Since(t0)))
			if dec.Decrypt(out) != g.Eval(a, b) {
				errs++
			}

			t0 = time.Now()
			if _, err := plain(ca, cb); err != nil {
				return fmt.Errorf("plain %v: %w", g, err)
			}
			ref = append(ref, ms(time.Since(t0)))
		}

		lo, err := summarize(obf)
		if err != nil {
			return err
		}
		lp, err := summarize(ref)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-6v %7d %-40v %-40v\n", g, errs, lo, lp)
	}

	if corpus == "" {
		return nil
	}
	if len(query) != 1 {
		return fmt.Errorf("%w: query must be one character", ohlg.ErrInvalidQuery)
	}

	req, err := newRequest(octx, enc, bsk, query[0], []byte(corpus))
	if err != nil {
		return err
	}
	start = time.Now()
	res, err := ohlg.NewMatcher(octx, bsk, ohlg.WithWorkers(cfg.Workers), ohlg.WithLogger(logger)).
		Match(ctx, req.Query, req.Corpus, req.Sequence)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "match %q in %q: %v (%d gates, %v)\n",
		query, corpus, dec.Decrypt(res.Result), res.GatesConsumed, time.Since(start).Round(time.Millisecond))
	return nil
}
