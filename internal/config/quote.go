package config

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/spf13/pflag"
)

// QuoteConfig holds configuration for the quote command.
type QuoteConfig struct {
	InitVirtualEth uint256.Int
	FeeRate        uint64
	EthReserve     uint256.Int
	Amount         uint256.Int
	Side           string
	LogLevel       string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v := newViper()
	v.SetDefault("init-virtual-eth", "30eth")
	v.SetDefault("fee-rate", uint64(100))
	v.SetDefault("eth-reserve", "0")
	v.SetDefault("amount", "1eth")
	v.SetDefault("side", "buy")
	v.SetDefault("log-level", "info")

	if err := read(v, cfgFile, flags); err != nil {
		return QuoteConfig{}, err
	}

	cfg := QuoteConfig{
		FeeRate:  v.GetUint64("fee-rate"),
		Side:     strings.ToLower(strings.TrimSpace(v.GetString("side"))),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.Side != "buy" && cfg.Side != "sell" {
		return QuoteConfig{}, fmt.Errorf("side must be buy or sell, got %q", cfg.Side)
	}
	initVE, err := ParseAmount(v.GetString("init-virtual-eth"))
	if err != nil {
		return QuoteConfig{}, fmt.Errorf("parse init-virtual-eth: %w", err)
	}
	ethReserve, err := ParseAmount(v.GetString("eth-reserve"))
	if err != nil {
		return QuoteConfig{}, fmt.Errorf("parse eth-reserve: %w", err)
	}
	amount, err := ParseAmount(v.GetString("amount"))
	if err != nil {
		return QuoteConfig{}, fmt.Errorf("parse amount: %w", err)
	}
	cfg.InitVirtualEth = *initVE
	cfg.EthReserve = *ethReserve
	cfg.Amount = *amount

	return cfg, nil
}
