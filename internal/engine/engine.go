// Package engine is the bonding-curve trading and graduation engine.
//
// The engine owns the pool registry and is the only writer of the trade
// ledger. Operations are serialized by the caller; the engine itself takes no
// locks and only guards against nested entry triggered by its own value
// transfers. Every mutation it makes, and every mutation made by the bank,
// tokens and migrator it drives, is recorded on one undo journal so a failed
// operation leaves no trace.
package engine

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"launchpad/internal/curve"
	"launchpad/internal/events"
	"launchpad/internal/ledger"
	"launchpad/internal/model"
	"launchpad/internal/observability"
	"launchpad/internal/state"
	"launchpad/internal/token"
)

// Bank moves native settlement currency. Implementations must record undo
// entries on the engine's journal.
type Bank interface {
	BalanceOf(addr common.Address) *uint256.Int
	Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error
}

// Migrator is the liquidity migration strategy a pool graduates into. The
// engine transfers currencyAmount and tokenAmount to Address() before calling
// Execute; any error aborts the graduating trade.
type Migrator interface {
	Address() common.Address
	Execute(ctx context.Context, caller, asset common.Address, tokenAmount, currencyAmount *uint256.Int) (model.MigrationResult, error)
}

// Options wires an Engine.
type Options struct {
	Address  common.Address
	Params   curve.Params
	Config   Config
	Bank     Bank
	Migrator Migrator
	Clock    Clock
	// Journal must be the journal Bank and Migrator write to.
	Journal *state.Journal
	Logger  *zap.Logger
	Metrics *observability.EngineMetrics
}

type txContext struct {
	time        model.BlockTime
	hash        common.Hash
	creationFee uint256.Int
}

// Engine executes asset creation, swaps and graduation.
type Engine struct {
	address   common.Address
	params    curve.Params
	cfg       Config
	k         uint256.Int
	threshold uint256.Int

	bank     Bank
	migrator Migrator
	clock    Clock
	journal  *state.Journal
	ledger   *ledger.Ledger
	logger   *zap.Logger
	metrics  *observability.EngineMetrics

	pools     []model.Pool
	poolIndex map[common.Address]int
	tokens    map[common.Address]*token.Token
	nonce     uint64

	locked  atomic.Bool
	txSeq   uint64
	tx      txContext
	pending []events.Envelope
	logs    []events.Envelope
}

// New validates the options and builds an engine with an empty registry.
func New(opts Options) (*Engine, error) {
	if opts.Address == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero engine address", ErrInvalidInput)
	}
	if opts.Bank == nil {
		return nil, errors.New("engine requires a bank")
	}
	if opts.Migrator == nil || opts.Migrator.Address() == (common.Address{}) {
		return nil, fmt.Errorf("%w: migrator with non-zero address required", ErrInvalidInput)
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	journal := opts.Journal
	if journal == nil {
		journal = state.NewJournal()
	}
	clock := opts.Clock
	if clock == nil {
		clock = NewManualClock(0, 0)
	}

	e := &Engine{
		address:   opts.Address,
		params:    opts.Params,
		cfg:       opts.Config,
		bank:      opts.Bank,
		migrator:  opts.Migrator,
		clock:     clock,
		journal:   journal,
		ledger:    ledger.New(opts.Address, journal),
		logger:    logger,
		metrics:   opts.Metrics,
		poolIndex: make(map[common.Address]int),
		tokens:    make(map[common.Address]*token.Token),
	}
	if err := e.recomputeCurve(&opts.Config.InitVirtualEthReserve); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) recomputeCurve(initVirtualEth *uint256.Int) error {
	k, err := e.params.K(initVirtualEth)
	if err != nil {
		return fmt.Errorf("%w: compute K: %w", ErrInvalidInput, err)
	}
	threshold, err := e.params.GraduationThreshold(k, initVirtualEth)
	if err != nil {
		return fmt.Errorf("%w: compute graduation threshold: %w", ErrInvalidInput, err)
	}
	e.k = *k
	e.threshold = *threshold
	return nil
}

// enter takes the reentrancy guard. The returned release must be deferred.
func (e *Engine) enter() (func(), error) {
	if !e.locked.CompareAndSwap(false, true) {
		e.metrics.ObserveReentrancy()
		return nil, ErrReentrantCall
	}
	return func() { e.locked.Store(false) }, nil
}

// execute runs fn as one all-or-nothing operation. Events and metrics are
// published only once fn succeeds. A panic in fn reverts its mutations and
// releases the guard before propagating.
func (e *Engine) execute(ctx context.Context, op string, fn func() error) error {
	release, err := e.enter()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer release()

	if err := ctx.Err(); err != nil {
		return err
	}
	now, err := e.clock.Now(ctx)
	if err != nil {
		return fmt.Errorf("%s: read clock: %w", op, err)
	}
	e.txSeq++
	e.tx = txContext{time: now, hash: e.txHash(e.txSeq)}
	e.pending = e.pending[:0]

	snap := e.journal.Snapshot()
	committed := false
	defer func() {
		if committed {
			return
		}
		if r := recover(); r != nil {
			e.journal.RevertToSnapshot(snap)
			e.pending = e.pending[:0]
			e.logger.Error("operation panicked, state reverted", zap.String("op", op), zap.Any("panic", r))
			panic(r)
		}
	}()
	if err := fn(); err != nil {
		e.journal.RevertToSnapshot(snap)
		e.pending = e.pending[:0]
		e.metrics.ObserveRejection(op, Reason(err))
		e.logger.Debug("operation rejected", zap.String("op", op), zap.Error(err))
		return err
	}
	e.journal.Commit(snap)
	committed = true
	e.publish()
	return nil
}

func (e *Engine) txHash(seq uint64) common.Hash {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return crypto.Keccak256Hash(e.address.Bytes(), buf[:])
}

func (e *Engine) emit(ev events.Event) {
	e.pending = append(e.pending, events.Envelope{
		Emitter:     e.address,
		BlockNumber: e.tx.time.Number,
		Timestamp:   e.tx.time.Timestamp,
		TxHash:      e.tx.hash,
		LogIndex:    uint64(len(e.pending)),
		Event:       ev,
	})
}

func (e *Engine) publish() {
	e.metrics.ObserveCreationFee(&e.tx.creationFee)
	for _, env := range e.pending {
		switch ev := env.Event.(type) {
		case events.TokenCreated:
			e.metrics.ObserveCreation()
			e.logger.Info("asset created",
				zap.String("asset", ev.Asset.Hex()),
				zap.String("creator", ev.Creator.Hex()),
				zap.String("symbol", ev.Symbol),
				zap.String("price", curve.FormatWAD(&ev.Price)),
			)
		case events.Trade:
			currency := &ev.AmountIn
			if !ev.IsBuy {
				currency = &ev.AmountOut
			}
			e.metrics.ObserveTrade(ev.IsBuy, currency, &ev.Fee)
			e.logger.Info("trade",
				zap.String("asset", ev.Asset.Hex()),
				zap.String("participant", ev.Participant.Hex()),
				zap.String("side", observability.Side(ev.IsBuy)),
				zap.String("amount_in", ev.AmountIn.Dec()),
				zap.String("amount_out", ev.AmountOut.Dec()),
				zap.String("fee", ev.Fee.Dec()),
				zap.String("eth_reserve", ev.EthReserve.Dec()),
			)
		case events.Graduated:
			e.metrics.ObserveGraduation(&ev.CurrencyAmount, &ev.Fee)
			e.logger.Info("pool graduated",
				zap.String("asset", ev.Asset.Hex()),
				zap.String("headmaster", ev.Headmaster.Hex()),
				zap.String("pool_id", ev.PoolID.Hex()),
				zap.String("currency_amount", ev.CurrencyAmount.Dec()),
				zap.String("token_amount", ev.TokenAmount.Dec()),
			)
		}
	}
	e.logs = append(e.logs, e.pending...)
	e.pending = e.pending[:0]
}

func (e *Engine) addPool(p model.Pool, tok *token.Token) {
	idx := len(e.pools)
	e.pools = append(e.pools, p)
	e.poolIndex[p.Asset] = idx
	e.tokens[p.Asset] = tok
	e.journal.Append(func() {
		e.pools = e.pools[:idx]
		delete(e.poolIndex, p.Asset)
		delete(e.tokens, p.Asset)
	})
}

func (e *Engine) setPool(idx int, p model.Pool) {
	prev := e.pools[idx]
	e.pools[idx] = p
	e.journal.Append(func() { e.pools[idx] = prev })
}

func (e *Engine) nextAssetAddress() common.Address {
	nonce := e.nonce
	e.nonce++
	e.journal.Append(func() { e.nonce = nonce })
	return crypto.CreateAddress(e.address, nonce)
}

// touch refreshes the derived display fields of p.
func (e *Engine) touch(p *model.Pool) error {
	price, err := curve.Price(&p.VirtualEthReserve, &p.VirtualTokenReserve)
	if err != nil {
		return fmt.Errorf("%w: price: %w", ErrInvalidInput, err)
	}
	mcap, err := curve.MarketCap(&e.params.TotalSupply, price)
	if err != nil {
		return fmt.Errorf("%w: market cap: %w", ErrInvalidInput, err)
	}
	p.LastPrice = *price
	p.LastMcapInEth = *mcap
	p.LastTimestamp = e.tx.time.Timestamp
	p.LastBlock = e.tx.time.Number
	return nil
}

func (e *Engine) pay(ctx context.Context, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if err := e.bank.Transfer(ctx, e.address, to, amount); err != nil {
		return fmt.Errorf("pay %s to %s: %w", amount.Dec(), to.Hex(), err)
	}
	return nil
}

func (e *Engine) checkDeadline(deadline uint64) error {
	if deadline != 0 && e.tx.time.Timestamp > deadline {
		return fmt.Errorf("%w: now %d, deadline %d", ErrDeadlineExceeded, e.tx.time.Timestamp, deadline)
	}
	return nil
}

func (e *Engine) lookup(asset common.Address) (int, error) {
	idx, ok := e.poolIndex[asset]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrPoolNotFound, asset.Hex())
	}
	return idx, nil
}

// Address returns the engine's own escrow address.
func (e *Engine) Address() common.Address {
	return e.address
}

func (e *Engine) Params() curve.Params {
	return e.params
}

// Config returns a copy of the current configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// K returns the constant product shared by all pools.
func (e *Engine) K() *uint256.Int {
	return new(uint256.Int).Set(&e.k)
}

// GraduationThreshold returns the currency reserve at which a pool graduates.
func (e *Engine) GraduationThreshold() *uint256.Int {
	return new(uint256.Int).Set(&e.threshold)
}

// Ledger exposes the read surface of the trade ledger.
func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

// Migrator returns the current migration strategy.
func (e *Engine) Migrator() Migrator {
	return e.migrator
}

// Pool returns a copy of the pool of asset.
func (e *Engine) Pool(asset common.Address) (model.Pool, error) {
	idx, err := e.lookup(asset)
	if err != nil {
		return model.Pool{}, err
	}
	return e.pools[idx], nil
}

// Pools returns copies of every pool in creation order.
func (e *Engine) Pools() []model.Pool {
	out := make([]model.Pool, len(e.pools))
	copy(out, e.pools)
	return out
}

// Token returns the asset contract created for asset.
func (e *Engine) Token(asset common.Address) (*token.Token, error) {
	tok, ok := e.tokens[asset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, asset.Hex())
	}
	return tok, nil
}

// Logs returns every committed event in emission order.
func (e *Engine) Logs() []events.Envelope {
	out := make([]events.Envelope, len(e.logs))
	copy(out, e.logs)
	return out
}

// DrainLogs returns the committed events and forgets them.
func (e *Engine) DrainLogs() []events.Envelope {
	out := e.logs
	e.logs = nil
	return out
}

func reserves(p model.Pool) curve.Reserves {
	return curve.Reserves{
		TokenReserve:        p.TokenReserve,
		EthReserve:          p.EthReserve,
		VirtualTokenReserve: p.VirtualTokenReserve,
		VirtualEthReserve:   p.VirtualEthReserve,
	}
}

// QuoteBuy prices spending amountIn on asset at the current fee rate.
func (e *Engine) QuoteBuy(asset common.Address, amountIn *uint256.Int) (curve.BuyQuote, error) {
	idx, err := e.lookup(asset)
	if err != nil {
		return curve.BuyQuote{}, err
	}
	if e.pools[idx].Graduated() {
		return curve.BuyQuote{}, ErrAlreadyGraduated
	}
	return curve.QuoteBuy(reserves(e.pools[idx]), &e.k, amountIn, e.cfg.FeeRate)
}

// QuoteSell prices selling amountIn of asset at the current fee rate.
func (e *Engine) QuoteSell(asset common.Address, amountIn *uint256.Int) (curve.SellQuote, error) {
	idx, err := e.lookup(asset)
	if err != nil {
		return curve.SellQuote{}, err
	}
	if e.pools[idx].Graduated() {
		return curve.SellQuote{}, ErrAlreadyGraduated
	}
	return curve.QuoteSell(reserves(e.pools[idx]), &e.k, amountIn, e.cfg.FeeRate)
}
