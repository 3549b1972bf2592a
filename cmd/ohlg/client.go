package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/ohlg"
	"github.com/luxfi/ohlg/boolean"
	"github.com/luxfi/ohlg/internal/bundle"
	"github.com/luxfi/ohlg/internal/queue"
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Encrypt a match request and store it",
	Long: `client generates a key set, writes the secret key to --key and stores
the server key, the encrypted query and corpus and the obfuscated gate
sequence. It prints the manifest handle, and with --enqueue also submits
the request to the job queue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		corpus, _ := cmd.Flags().GetString("corpus")
		keyPath, _ := cmd.Flags().GetString("key")
		enqueue, _ := cmd.Flags().GetBool("enqueue")

		if len(query) != 1 {
			return fmt.Errorf("%w: query must be one character", ohlg.ErrInvalidQuery)
		}
		if corpus == "" {
			return fmt.Errorf("%w: empty corpus", ohlg.ErrInvalidQuery)
		}

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
		logger.Info("keys generated", zap.Duration("elapsed", time.Since(start)))

		data, err := sk.MarshalBinary()
		if err != nil {
			return err
		}
		if err := os.WriteFile(keyPath, data, 0600); err != nil {
			return fmt.Errorf("write secret key: %w", err)
		}

		req, err := newRequest(octx, boolean.NewEncryptor(params.Scheme(), sk), bsk, query[0], []byte(corpus))
		if err != nil {
			return err
		}

		store, err := openStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		h, m, err := bundle.Save(cmd.Context(), store, cfg.Params, req)
		if err != nil {
			return err
		}
		logger.Info("request stored",
			zap.String("manifest", string(h)),
			zap.Int("chars", m.Chars),
			zap.Int("gates", req.Sequence.Len()))

		if enqueue {
			q, err := queue.NewRedisQueue(cfg.Redis, cfg.Queue)
			if err != nil {
				return err
			}
			defer q.Close()
			job := queue.NewJob(string(h))
			if err := q.Push(cmd.Context(), job); err != nil {
				return err
			}
			logger.Info("job queued", zap.String("queue", cfg.Queue), zap.String("id", job.ID))
			fmt.Fprintln(cmd.OutOrStdout(), h, job.ID)
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), h)
		return nil
	},
}

func init() {
	f := clientCmd.Flags()
	f.String("query", "", "query character")
	f.String("corpus", "", "corpus to search")
	f.String("key", "ohlg.key", "secret key output file")
	f.Bool("enqueue", false, "submit the request to the job queue")
}

// newRequest encrypts query, corpus and the match gate sequence.
func newRequest(octx *ohlg.Context, enc *boolean.Encryptor, bsk *boolean.BootstrapKey, query byte, corpus []byte) (*bundle.Request, error) {
	seq, err := octx.EncryptSequence(ohlg.MatchSchedule(len(corpus), 8), enc)
	if err != nil {
		return nil, err
	}
	return &bundle.Request{
		Context:  octx,
		Key:      bsk,
		Query:    enc.EncryptByte(query),
		Corpus:   enc.EncryptBytes(corpus),
		Sequence: seq,
	}, nil
}

// loadSecretKey reads a secret key written by the client command.
func loadSecretKey(path string) (*boolean.SecretKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read secret key: %w", err)
	}
	sk := new(boolean.SecretKey)
	if err := sk.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return sk, nil
}
