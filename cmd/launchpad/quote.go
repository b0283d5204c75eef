package main

import (
	"fmt"
	"io"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"launchpad/internal/config"
	"launchpad/internal/curve"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	return writeQuote(cmd.OutOrStdout(), curve.DefaultParams(), cfg)
}

func writeQuote(w io.Writer, params curve.Params, cfg config.QuoteConfig) error {
	if cfg.FeeRate > curve.MaxFeeRate {
		return fmt.Errorf("fee rate %d above max %d", cfg.FeeRate, curve.MaxFeeRate)
	}
	k, err := params.K(&cfg.InitVirtualEth)
	if err != nil {
		return fmt.Errorf("compute k: %w", err)
	}
	threshold, err := params.GraduationThreshold(k, &cfg.InitVirtualEth)
	if err != nil {
		return fmt.Errorf("compute threshold: %w", err)
	}
	initPrice, err := curve.Price(&cfg.InitVirtualEth, &params.InitVirtualTokenReserve)
	if err != nil {
		return fmt.Errorf("compute price: %w", err)
	}
	reserves, err := params.ReservesAt(k, &cfg.InitVirtualEth, &cfg.EthReserve)
	if err != nil {
		return fmt.Errorf("reserves at %s: %w", curve.FormatWAD(&cfg.EthReserve), err)
	}
	spot, err := curve.Price(&reserves.VirtualEthReserve, &reserves.VirtualTokenReserve)
	if err != nil {
		return fmt.Errorf("compute price: %w", err)
	}

	fmt.Fprintf(w, "k                     %s\n", k.Dec())
	fmt.Fprintf(w, "graduation threshold  %s\n", curve.FormatWAD(threshold))
	fmt.Fprintf(w, "initial price         %s\n", curve.FormatWAD(initPrice))
	fmt.Fprintf(w, "eth reserve           %s\n", curve.FormatWAD(&reserves.EthReserve))
	fmt.Fprintf(w, "token reserve         %s\n", curve.FormatWAD(&reserves.TokenReserve))
	fmt.Fprintf(w, "spot price            %s\n", curve.FormatWAD(spot))

	if cfg.Side == "buy" {
		q, err := curve.QuoteBuy(reserves, k, &cfg.Amount, cfg.FeeRate)
		if err != nil {
			return fmt.Errorf("quote buy: %w", err)
		}
		after := new(uint256.Int).Add(&reserves.EthReserve, &q.NetIn)
		fmt.Fprintf(w, "buy in                %s\n", curve.FormatWAD(&cfg.Amount))
		fmt.Fprintf(w, "fee                   %s\n", curve.FormatWAD(&q.Fee))
		fmt.Fprintf(w, "tokens out            %s\n", curve.FormatWAD(&q.AmountOut))
		fmt.Fprintf(w, "capped                %t\n", q.Capped)
		fmt.Fprintf(w, "graduates             %t\n", !after.Lt(threshold))
		return nil
	}

	q, err := curve.QuoteSell(reserves, k, &cfg.Amount, cfg.FeeRate)
	if err != nil {
		return fmt.Errorf("quote sell: %w", err)
	}
	fmt.Fprintf(w, "sell in               %s\n", curve.FormatWAD(&cfg.Amount))
	fmt.Fprintf(w, "raw out               %s\n", curve.FormatWAD(&q.RawAmountOut))
	fmt.Fprintf(w, "fee                   %s\n", curve.FormatWAD(&q.Fee))
	fmt.Fprintf(w, "currency out          %s\n", curve.FormatWAD(&q.AmountOut))
	return nil
}
