package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "launchpad",
		Short:        "Bonding-curve launchpad engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a request journal through the engine",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("in", "", "input requests JSONL")
	simulateCmd.Flags().String("out", "./data/logs.jsonl", "output event logs JSONL")
	simulateCmd.Flags().String("pg-dsn", "", "Postgres DSN for persisting final state")
	simulateCmd.Flags().String("run", "", "run name keying persisted rows (defaults to the input file name)")
	simulateCmd.Flags().String("rpc", "", "RPC URL used as block clock (empty uses the local clock)")
	simulateCmd.Flags().Int("rpc-max-retries", 5, "maximum retry attempts for clock reads")
	simulateCmd.Flags().Duration("rpc-retry-backoff", 500*time.Millisecond, "initial retry backoff")
	simulateCmd.Flags().Uint64("chain-id", 31337, "chain id stamped on log records")
	simulateCmd.Flags().String("metrics-addr", "", "address to serve prometheus metrics on (e.g. :9102)")
	simulateCmd.Flags().String("engine", "", "engine address")
	simulateCmd.Flags().String("owner", "", "owner address (defaults to the first account)")
	simulateCmd.Flags().String("fee-recipient", "", "fee recipient address (defaults to the owner)")
	simulateCmd.Flags().String("migrator", "", "migration venue address")
	simulateCmd.Flags().Uint64("fee-rate", 100, "trade fee in basis points")
	simulateCmd.Flags().Uint64("graduation-fee-rate", 100, "graduation fee in basis points")
	simulateCmd.Flags().String("creation-fee", "0", "creation fee (base units or e.g. 0.01eth)")
	simulateCmd.Flags().String("init-virtual-eth", "30eth", "initial virtual currency reserve")
	simulateCmd.Flags().String("start-balance", "1000eth", "currency minted to each account")
	simulateCmd.Flags().StringSlice("account", nil, "funded accounts (comma-separated)")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode engine event logs into typed events",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("in", "", "input event logs JSONL")
	decodeCmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Print curve constants and quote a trade against a fresh pool",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("init-virtual-eth", "30eth", "initial virtual currency reserve")
	quoteCmd.Flags().Uint64("fee-rate", 100, "trade fee in basis points")
	quoteCmd.Flags().String("eth-reserve", "0", "currency already bought into the pool")
	quoteCmd.Flags().String("amount", "1eth", "amount in (currency for buys, tokens for sells)")
	quoteCmd.Flags().String("side", "buy", "buy or sell")
	quoteCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
