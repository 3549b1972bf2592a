// Command ohlg runs Oblivious Direct Matching with obfuscated gates.
//
// A client encrypts a query character, a corpus and the gate sequence of
// the match cascade and stores them as a bundle. A server or a queue worker
// runs the cascade without learning which gates it evaluates, and the
// client decrypts the result.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/ohlg"
	"github.com/luxfi/ohlg/internal/config"
	"github.com/luxfi/ohlg/internal/storage"
)

var (
	version = "dev"

	cfgFile string
	cfg     = config.Default()
	logger  = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ohlg",
	Short: "Oblivious Direct Matching over obfuscated logic gates",
	Long: `ohlg evaluates logic gates whose type is hidden from the evaluator.

The match cascade compares an encrypted query character with every
character of an encrypted corpus. The server sees only a sequence of
obfuscated gates and learns neither the query nor the result.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "YAML config file")
	f.String("params", cfg.Params, fmt.Sprintf("parameter set %v", ohlg.ParameterSetNames()))
	f.String("storage", cfg.Storage, `artifact storage directory, or "mem"`)
	f.Int("workers", cfg.Workers, "concurrent gate evaluators")
	f.String("log-level", cfg.LogLevel, "log level")

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(clientCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(jobCmd)
}

// setup loads the config file and applies flags set on the command line.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if cfg, err = config.Load(cfgFile); err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("params") {
		cfg.Params, _ = f.GetString("params")
	}
	if f.Changed("storage") {
		cfg.Storage, _ = f.GetString("storage")
	}
	if f.Changed("workers") {
		cfg.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("log-level") {
		cfg.LogLevel, _ = f.GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err = newLogger(cfg.LogLevel)
	return err
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	zc.Encoding = "console"
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

func loadParams() (ohlg.Parameters, error) {
	lit, err := ohlg.ParametersLiteralByName(cfg.Params)
	if err != nil {
		return ohlg.Parameters{}, err
	}
	return ohlg.NewParametersFromLiteral(lit)
}

func openStorage() (storage.Storage, error) {
	return storage.Open(cfg.Storage, cfg.StorageMB)
}
