package config

import (
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SimulateConfig holds configuration for the simulate command.
type SimulateConfig struct {
	In                string
	Out               string
	PGDSN             string
	Run               string
	RPCURL            string
	RPCMaxRetries     int
	RPCRetryBackoff   time.Duration
	ChainID           uint64
	MetricsAddr       string
	Engine            string
	Owner             string
	FeeRecipient      string
	Migrator          string
	FeeRate           uint64
	GraduationFeeRate uint64
	CreationFee       uint256.Int
	InitVirtualEth    uint256.Int
	StartBalance      uint256.Int
	Accounts          []string
	LogLevel          string
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v := newViper()
	v.SetDefault("out", "./data/logs.jsonl")
	v.SetDefault("rpc-max-retries", 5)
	v.SetDefault("rpc-retry-backoff", 500*time.Millisecond)
	v.SetDefault("chain-id", uint64(31337))
	v.SetDefault("engine", "0x00000000000000000000000000000000000e0e01")
	v.SetDefault("migrator", "0x00000000000000000000000000000000000e0e02")
	v.SetDefault("fee-rate", uint64(100))
	v.SetDefault("graduation-fee-rate", uint64(100))
	v.SetDefault("creation-fee", "0")
	v.SetDefault("init-virtual-eth", "30eth")
	v.SetDefault("start-balance", "1000eth")
	v.SetDefault("log-level", "info")

	if err := read(v, cfgFile, flags); err != nil {
		return SimulateConfig{}, err
	}

	cfg := SimulateConfig{
		In:                v.GetString("in"),
		Out:               v.GetString("out"),
		PGDSN:             v.GetString("pg-dsn"),
		Run:               v.GetString("run"),
		RPCURL:            v.GetString("rpc"),
		RPCMaxRetries:     v.GetInt("rpc-max-retries"),
		RPCRetryBackoff:   v.GetDuration("rpc-retry-backoff"),
		ChainID:           v.GetUint64("chain-id"),
		MetricsAddr:       v.GetString("metrics-addr"),
		Engine:            v.GetString("engine"),
		Owner:             v.GetString("owner"),
		FeeRecipient:      v.GetString("fee-recipient"),
		Migrator:          v.GetString("migrator"),
		FeeRate:           v.GetUint64("fee-rate"),
		GraduationFeeRate: v.GetUint64("graduation-fee-rate"),
		Accounts:          getStringSlice(v, "account"),
		LogLevel:          v.GetString("log-level"),
	}
	for key, dst := range map[string]*uint256.Int{
		"creation-fee":     &cfg.CreationFee,
		"init-virtual-eth": &cfg.InitVirtualEth,
		"start-balance":    &cfg.StartBalance,
	} {
		amount, err := ParseAmount(v.GetString(key))
		if err != nil {
			return SimulateConfig{}, fmt.Errorf("parse %s: %w", key, err)
		}
		*dst = *amount
	}

	if cfg.Run == "" && cfg.In != "" {
		cfg.Run = filepath.Base(cfg.In)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("LAUNCHPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func read(v *viper.Viper, cfgFile string, flags *pflag.FlagSet) error {
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}
	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

var weiPerEth = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ParseAmount parses a base-unit decimal integer, or a decimal with an "eth"
// suffix scaled by 1e18 ("0.5eth").
func ParseAmount(input string) (*uint256.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return new(uint256.Int), nil
	}
	if !strings.HasSuffix(input, "eth") {
		return uint256.FromDecimal(input)
	}

	rat, ok := new(big.Rat).SetString(strings.TrimSpace(strings.TrimSuffix(input, "eth")))
	if !ok || rat.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", input)
	}
	rat.Mul(rat, new(big.Rat).SetInt(weiPerEth))
	if !rat.IsInt() {
		return nil, fmt.Errorf("amount %q has more than 18 decimals", input)
	}
	amount, overflow := uint256.FromBig(rat.Num())
	if overflow {
		return nil, fmt.Errorf("amount %q overflows uint256", input)
	}
	return amount, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
