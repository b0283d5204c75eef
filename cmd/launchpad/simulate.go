package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchpad/internal/chain"
	"launchpad/internal/config"
	"launchpad/internal/curve"
	"launchpad/internal/engine"
	"launchpad/internal/events"
	"launchpad/internal/headmaster"
	"launchpad/internal/model"
	"launchpad/internal/observability"
	"launchpad/internal/state"
	"launchpad/internal/storage"
	"launchpad/internal/storage/postgres"
	"launchpad/internal/token"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var clock engine.Clock = chain.NewLocalClock(0)
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
		chainClient.SetRetry(cfg.RPCMaxRetries, cfg.RPCRetryBackoff)

		chainID, err := chainClient.GetChainID(ctx)
		if err != nil {
			return fmt.Errorf("get chain id: %w", err)
		}
		cfg.ChainID = chainID.Uint64()
		clock = chainClient
	}

	metrics := observability.NewEngineMetrics("launchpad")
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	sink := storage.NewJsonlStorage(cfg.Out)
	if err := sink.Truncate(); err != nil {
		return err
	}

	sim, err := newSimulator(cfg, clock, sink, metrics, logger)
	if err != nil {
		return err
	}

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	logger.Info("simulate start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.Uint64("chain_id", cfg.ChainID),
		zap.String("engine", sim.engine.Address().Hex()),
		zap.String("migrator", sim.venue.Address().Hex()),
		zap.Int("accounts", len(cfg.Accounts)),
		zap.Bool("rpc_clock", cfg.RPCURL != ""),
	)

	if err := sim.run(ctx, inputFile); err != nil {
		return err
	}

	if cfg.PGDSN != "" {
		if err := persistPostgres(ctx, cfg, sim, logger); err != nil {
			return err
		}
	}

	stats := sim.engine.Ledger().Stats()
	logger.Info("simulate complete",
		zap.Int("requests", sim.total),
		zap.Int("applied", sim.applied),
		zap.Int("rejected", sim.rejected),
		zap.Int("logs", sim.written),
		zap.Uint64("assets_created", stats.TotalAssetsCreated),
		zap.Uint64("assets_graduated", stats.TotalAssetsGraduated),
		zap.Uint64("trades", stats.TotalTrades),
		zap.String("total_volume", curve.FormatWAD(&stats.TotalVolume)),
		zap.String("liquidity_bootstrapped", curve.FormatWAD(&stats.TotalLiquidityBootstrapped)),
	)
	return nil
}

// simulator replays requests serially through one engine and streams the
// resulting event logs to a sink.
type simulator struct {
	engine  *engine.Engine
	bank    *token.Bank
	venue   *headmaster.Venue
	journal *state.Journal
	sink    storage.Storage
	chainID uint64
	logger  *zap.Logger

	symbols map[string]common.Address

	total    int
	applied  int
	rejected int
	written  int
}

func newSimulator(cfg config.SimulateConfig, clock engine.Clock, sink storage.Storage, metrics *observability.EngineMetrics, logger *zap.Logger) (*simulator, error) {
	engineAddr, err := parseAddress("engine", cfg.Engine)
	if err != nil {
		return nil, err
	}
	migratorAddr, err := parseAddress("migrator", cfg.Migrator)
	if err != nil {
		return nil, err
	}
	accounts := make([]common.Address, 0, len(cfg.Accounts))
	for _, raw := range cfg.Accounts {
		addr, err := parseAddress("account", raw)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, addr)
	}

	ownerRaw := cfg.Owner
	if ownerRaw == "" && len(accounts) > 0 {
		ownerRaw = accounts[0].Hex()
	}
	if ownerRaw == "" {
		return nil, fmt.Errorf("owner is required when no accounts are configured")
	}
	owner, err := parseAddress("owner", ownerRaw)
	if err != nil {
		return nil, err
	}
	feeRecipient := owner
	if cfg.FeeRecipient != "" {
		if feeRecipient, err = parseAddress("fee-recipient", cfg.FeeRecipient); err != nil {
			return nil, err
		}
	}

	engineCfg := engine.DefaultConfig(owner, feeRecipient)
	engineCfg.FeeRate = cfg.FeeRate
	engineCfg.GraduationFeeRate = cfg.GraduationFeeRate
	engineCfg.CreationFee = cfg.CreationFee
	engineCfg.InitVirtualEthReserve = cfg.InitVirtualEth

	journal := state.NewJournal()
	bank := token.NewBank(journal)
	venue := headmaster.NewVenue(headmaster.Config{
		Address: migratorAddr,
		Factory: crypto.CreateAddress(migratorAddr, 0),
		Quote:   crypto.CreateAddress(migratorAddr, 1),
		Engine:  engineAddr,
	}, journal, logger.Named("headmaster"))

	eng, err := engine.New(engine.Options{
		Address:  engineAddr,
		Params:   curve.DefaultParams(),
		Config:   engineCfg,
		Bank:     bank,
		Migrator: venue,
		Clock:    clock,
		Journal:  journal,
		Logger:   logger.Named("engine"),
		Metrics:  metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	for _, addr := range accounts {
		bank.Mint(addr, &cfg.StartBalance)
	}
	journal.Commit(0)

	return &simulator{
		engine:  eng,
		bank:    bank,
		venue:   venue,
		journal: journal,
		sink:    sink,
		chainID: cfg.ChainID,
		logger:  logger,
		symbols: make(map[string]common.Address),
	}, nil
}

func (s *simulator) run(ctx context.Context, input io.Reader) error {
	scanner := bufio.NewScanner(input)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		s.total++

		var req model.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			s.rejected++
			s.logger.Warn("invalid request", zap.Int("line", line), zap.Error(err))
			continue
		}
		if err := s.apply(ctx, req); err != nil {
			s.rejected++
			s.logger.Warn("request rejected",
				zap.Int("line", line),
				zap.String("op", req.Op),
				zap.String("reason", engine.Reason(err)),
				zap.Error(err),
			)
		} else {
			s.applied++
		}
		if err := s.flush(); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}
	return nil
}

func (s *simulator) apply(ctx context.Context, req model.Request) error {
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return err
	}

	switch req.Op {
	case "create":
		value, amount, minOut, err := parseAmounts(req)
		if err != nil {
			return err
		}
		res, err := s.engine.CreateAsset(ctx, engine.CreateRequest{
			Caller:       caller,
			Name:         req.Name,
			Symbol:       req.Symbol,
			Description:  req.Description,
			Value:        *value,
			BuyAmount:    *amount,
			AmountOutMin: *minOut,
			Deadline:     req.Deadline,
		})
		if err != nil {
			return err
		}
		if _, taken := s.symbols[req.Symbol]; !taken {
			s.symbols[req.Symbol] = res.Asset
		}
		return nil

	case "buy", "sell":
		asset, err := s.resolveAsset(req.Asset)
		if err != nil {
			return err
		}
		value, amount, minOut, err := parseAmounts(req)
		if err != nil {
			return err
		}
		swap := engine.SwapRequest{
			Caller:       caller,
			Asset:        asset,
			Value:        *value,
			Amount:       *amount,
			AmountOutMin: *minOut,
			Deadline:     req.Deadline,
		}
		if req.Recipient != "" {
			if swap.Recipient, err = parseAddress("recipient", req.Recipient); err != nil {
				return err
			}
		}
		if req.Op == "buy" {
			_, err = s.engine.Buy(ctx, swap)
		} else {
			_, err = s.engine.Sell(ctx, swap)
		}
		return err

	case "approve":
		asset, err := s.resolveAsset(req.Asset)
		if err != nil {
			return err
		}
		tok, err := s.engine.Token(asset)
		if err != nil {
			return err
		}
		amount, err := config.ParseAmount(req.Amount)
		if err != nil {
			return fmt.Errorf("%w: amount: %w", engine.ErrInvalidInput, err)
		}
		spender := s.engine.Address()
		if req.Recipient != "" {
			if spender, err = parseAddress("spender", req.Recipient); err != nil {
				return err
			}
		}
		snap := s.journal.Snapshot()
		if err := tok.Approve(caller, spender, amount); err != nil {
			s.journal.RevertToSnapshot(snap)
			return err
		}
		s.journal.Commit(snap)
		return nil

	case "pause":
		return s.engine.SetPaused(caller, req.Paused)

	default:
		return fmt.Errorf("%w: unknown op %q", engine.ErrInvalidInput, req.Op)
	}
}

// resolveAsset accepts an asset address or the symbol of an asset created
// earlier in the run.
func (s *simulator) resolveAsset(ref string) (common.Address, error) {
	if common.IsHexAddress(ref) {
		return common.HexToAddress(ref), nil
	}
	if addr, ok := s.symbols[ref]; ok {
		return addr, nil
	}
	return common.Address{}, fmt.Errorf("%w: unknown asset %q", engine.ErrPoolNotFound, ref)
}

func (s *simulator) flush() error {
	envs := s.engine.DrainLogs()
	if len(envs) == 0 {
		return nil
	}
	records := make([]model.LogRecord, 0, len(envs))
	for _, env := range envs {
		rec, err := events.Encode(s.chainID, env)
		if err != nil {
			return fmt.Errorf("encode %s: %w", env.Event.EventName(), err)
		}
		records = append(records, rec)
	}
	if err := s.sink.PutLogBatch(records); err != nil {
		return err
	}
	s.written += len(records)
	return nil
}

// snapshotStore is the part of the postgres store the simulator writes through.
type snapshotStore interface {
	EnsureSchema(ctx context.Context) error
	SaveSnapshot(ctx context.Context, snap postgres.Snapshot) error
}

func persistPostgres(ctx context.Context, cfg config.SimulateConfig, sim *simulator, logger *zap.Logger) error {
	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	snap, err := sim.snapshot(cfg)
	if err != nil {
		return err
	}
	return persist(ctx, store, snap, logger)
}

// snapshot captures the complete end state of the replay under the configured run.
func (s *simulator) snapshot(cfg config.SimulateConfig) (postgres.Snapshot, error) {
	led := s.engine.Ledger()
	snap := postgres.Snapshot{
		ChainID:     cfg.ChainID,
		Run:         cfg.Run,
		Input:       cfg.In,
		Assets:      led.AssetsCreated(),
		Graduations: led.AssetsGraduated(),
		Stats:       led.Stats(),
	}
	for _, p := range s.engine.Pools() {
		snap.Pools = append(snap.Pools, p.Record())
	}
	for seq := 0; seq < led.TradeCount(); seq++ {
		trade, err := led.Trade(seq)
		if err != nil {
			return postgres.Snapshot{}, err
		}
		snap.Trades = append(snap.Trades, trade.Record(uint64(seq)))
	}
	return snap, nil
}

func persist(ctx context.Context, store snapshotStore, snap postgres.Snapshot, logger *zap.Logger) error {
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("save run %s: %w", snap.Run, err)
	}

	logger.Info("state persisted",
		zap.String("run", snap.Run),
		zap.Int("assets", len(snap.Assets)),
		zap.Int("pools", len(snap.Pools)),
		zap.Int("trades", len(snap.Trades)),
	)
	return nil
}

func parseAddress(key, raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: %s %q is not an address", engine.ErrInvalidInput, key, raw)
	}
	return common.HexToAddress(raw), nil
}

func parseAmounts(req model.Request) (value, amount, minOut *uint256.Int, err error) {
	if value, err = config.ParseAmount(req.Value); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: value: %w", engine.ErrInvalidInput, err)
	}
	if amount, err = config.ParseAmount(req.Amount); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: amount: %w", engine.ErrInvalidInput, err)
	}
	if minOut, err = config.ParseAmount(req.AmountOutMin); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: amount_out_min: %w", engine.ErrInvalidInput, err)
	}
	return value, amount, minOut, nil
}
