package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/ohlg"
	"github.com/luxfi/ohlg/internal/bundle"
	"github.com/luxfi/ohlg/internal/storage"
)

var serverCmd = &cobra.Command{
	Use:   "server <manifest>",
	Short: "Run the match cascade of a stored request",
	Long: `server loads the request named by the manifest handle, evaluates the
obfuscated gate sequence and stores the encrypted result. It prints the
handle of the result manifest.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h := storage.Handle(args[0])
		if err := h.Validate(); err != nil {
			return err
		}
		store, err := openStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		rh, res, err := bundle.Match(cmd.Context(), store, h, nil, ohlg.WithWorkers(cfg.Workers), ohlg.WithLogger(logger))
		if err != nil {
			return err
		}
		logger.Info("result stored", zap.String("manifest", string(rh)), zap.Int("gates", res.GatesConsumed))
		fmt.Fprintln(cmd.OutOrStdout(), rh)
		return nil
	},
}
