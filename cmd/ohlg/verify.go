package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luxfi/ohlg"
	"github.com/luxfi/ohlg/boolean"
	"github.com/luxfi/ohlg/internal/bundle"
	"github.com/luxfi/ohlg/internal/storage"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <result-manifest>",
	Short: "Decrypt a match result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyPath, _ := cmd.Flags().GetString("key")

		h := storage.Handle(args[0])
		if err := h.Validate(); err != nil {
			return err
		}
		sk, err := loadSecretKey(keyPath)
		if err != nil {
			return err
		}
		store, err := openStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		m, err := bundle.LoadManifest(cmd.Context(), store, h)
		if err != nil {
			return err
		}
		params, err := m.Parameters()
		if err != nil {
			return err
		}
		if sk.Params().Literal() != params.Scheme().Literal() {
			return fmt.Errorf("secret key: %w", ohlg.ErrParameterMismatch)
		}
		ct, err := bundle.LoadResult(cmd.Context(), store, m)
		if err != nil {
			return err
		}

		found, err := boolean.NewDecryptor(params.Scheme(), sk).DecryptChecked(ct)
		if err != nil {
			return fmt.Errorf("decrypt result: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "match: %v (%d gates)\n", found, m.GatesConsumed)
		return nil
	},
}

func init() {
	verifyCmd.Flags().String("key", "ohlg.key", "secret key file")
}
