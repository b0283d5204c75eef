package engine

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"launchpad/internal/curve"
	"launchpad/internal/events"
	"launchpad/internal/model"
	"launchpad/internal/token"
)

// CreateRequest asks for a new asset. Value is the currency the caller sends
// and must equal BuyAmount plus the creation fee.
type CreateRequest struct {
	Caller       common.Address
	Name         string
	Symbol       string
	Description  string
	Value        uint256.Int
	BuyAmount    uint256.Int
	AmountOutMin uint256.Int
	Deadline     uint64
}

// CreateResult identifies the new asset and the outcome of the initial buy.
type CreateResult struct {
	Asset     common.Address
	AmountOut uint256.Int
	Graduated bool
}

// SwapRequest is a buy or a sell. On buys Value must equal Amount; on sells it
// must be zero. A zero Recipient means the caller.
type SwapRequest struct {
	Caller       common.Address
	Asset        common.Address
	Recipient    common.Address
	Value        uint256.Int
	Amount       uint256.Int
	AmountOutMin uint256.Int
	Deadline     uint64
}

func (r SwapRequest) recipient() common.Address {
	if r.Recipient == (common.Address{}) {
		return r.Caller
	}
	return r.Recipient
}

// SwapResult reports what a swap moved. For sells AmountOut is net of Fee.
type SwapResult struct {
	AmountIn  uint256.Int
	AmountOut uint256.Int
	Fee       uint256.Int
	Graduated bool
}

// CreateAsset instantiates an asset, opens its pool and optionally buys into it
// on behalf of the caller.
func (e *Engine) CreateAsset(ctx context.Context, req CreateRequest) (CreateResult, error) {
	var res CreateResult
	err := e.execute(ctx, "create", func() error {
		if e.cfg.Paused {
			return ErrPaused
		}
		if err := e.checkDeadline(req.Deadline); err != nil {
			return err
		}
		if req.Name == "" || req.Symbol == "" {
			return fmt.Errorf("%w: name and symbol are required", ErrInvalidInput)
		}
		expected, overflow := new(uint256.Int).AddOverflow(&req.BuyAmount, &e.cfg.CreationFee)
		if overflow || !expected.Eq(&req.Value) {
			return fmt.Errorf("%w: value %s, want buy amount plus creation fee %s", ErrInvalidInput, req.Value.Dec(), e.cfg.CreationFee.Dec())
		}

		if err := e.bank.Transfer(ctx, req.Caller, e.address, &req.Value); err != nil {
			return fmt.Errorf("escrow value: %w", err)
		}
		if err := e.pay(ctx, e.cfg.FeeRecipient, &e.cfg.CreationFee); err != nil {
			return fmt.Errorf("remit creation fee: %w", err)
		}
		e.tx.creationFee = e.cfg.CreationFee

		asset := e.nextAssetAddress()
		tok := token.New(e.journal, token.Info{
			Address:     asset,
			Name:        req.Name,
			Symbol:      req.Symbol,
			Description: req.Description,
			Creator:     req.Caller,
			Authority:   e.address,
		}, &e.params.TotalSupply)

		pool := model.Pool{
			Asset:               asset,
			Creator:             req.Caller,
			TokenReserve:        e.params.InitRealTokenReserve,
			VirtualTokenReserve: e.params.InitVirtualTokenReserve,
			VirtualEthReserve:   e.cfg.InitVirtualEthReserve,
		}
		if err := e.touch(&pool); err != nil {
			return err
		}
		e.addPool(pool, tok)

		if err := e.ledger.RecordCreation(e.address, model.AssetInfo{
			Asset:       asset,
			Name:        req.Name,
			Symbol:      req.Symbol,
			Description: req.Description,
			Creator:     req.Caller,
			Timestamp:   e.tx.time.Timestamp,
			BlockHeight: e.tx.time.Number,
		}); err != nil {
			return fmt.Errorf("record creation: %w", err)
		}
		e.emit(events.TokenCreated{
			Asset:       asset,
			Creator:     req.Caller,
			Name:        req.Name,
			Symbol:      req.Symbol,
			Description: req.Description,
			Price:       pool.LastPrice,
			McapInEth:   pool.LastMcapInEth,
		})

		res.Asset = asset
		if req.BuyAmount.IsZero() {
			return nil
		}
		out, err := e.buy(ctx, e.poolIndex[asset], req.Caller, req.Caller, &req.BuyAmount, &req.AmountOutMin)
		if err != nil {
			return fmt.Errorf("initial buy: %w", err)
		}
		res.AmountOut = out.AmountOut
		res.Graduated = out.Graduated
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}
	return res, nil
}

// Buy spends Amount of currency on the curve and graduates the pool when the
// trade carries its reserve to the threshold.
func (e *Engine) Buy(ctx context.Context, req SwapRequest) (SwapResult, error) {
	var res SwapResult
	err := e.execute(ctx, "buy", func() error {
		if e.cfg.Paused {
			return ErrPaused
		}
		if err := e.checkDeadline(req.Deadline); err != nil {
			return err
		}
		if req.Amount.IsZero() {
			return fmt.Errorf("%w: zero amount", ErrInvalidInput)
		}
		if !req.Value.Eq(&req.Amount) {
			return fmt.Errorf("%w: value %s, amount %s", ErrInvalidInput, req.Value.Dec(), req.Amount.Dec())
		}
		idx, err := e.lookup(req.Asset)
		if err != nil {
			return err
		}
		if err := e.tradable(e.pools[idx]); err != nil {
			return err
		}
		if err := e.bank.Transfer(ctx, req.Caller, e.address, &req.Value); err != nil {
			return fmt.Errorf("escrow value: %w", err)
		}
		res, err = e.buy(ctx, idx, req.Caller, req.recipient(), &req.Amount, &req.AmountOutMin)
		return err
	})
	if err != nil {
		return SwapResult{}, err
	}
	return res, nil
}

func (e *Engine) tradable(p model.Pool) error {
	if p.Graduated() {
		return fmt.Errorf("%w: %s", ErrAlreadyGraduated, p.Asset.Hex())
	}
	if p.EthReserve.Gt(&e.threshold) {
		return fmt.Errorf("%w: reserve %s above %s", ErrThresholdExceeded, p.EthReserve.Dec(), e.threshold.Dec())
	}
	return nil
}

// buy runs the curve for currency already held in escrow.
func (e *Engine) buy(ctx context.Context, idx int, participant, recipient common.Address, amountIn, minOut *uint256.Int) (SwapResult, error) {
	pool := e.pools[idx]
	if err := e.tradable(pool); err != nil {
		return SwapResult{}, err
	}

	q, err := curve.QuoteBuy(reserves(pool), &e.k, amountIn, e.cfg.FeeRate)
	if err != nil {
		return SwapResult{}, fmt.Errorf("%w: quote buy: %w", ErrInvalidInput, err)
	}
	if q.AmountOut.Lt(minOut) {
		return SwapResult{}, fmt.Errorf("%w: out %s, min %s", ErrInsufficientOutput, q.AmountOut.Dec(), minOut.Dec())
	}

	if _, overflow := pool.EthReserve.AddOverflow(&pool.EthReserve, &q.NetIn); overflow {
		return SwapResult{}, fmt.Errorf("%w: currency reserve overflow", ErrInvalidInput)
	}
	pool.TokenReserve.Sub(&pool.TokenReserve, &q.AmountOut)
	// Virtual reserves follow the uncapped curve even when AmountOut was capped.
	pool.VirtualEthReserve = q.NewVirtualEth
	pool.VirtualTokenReserve = q.NewVirtualToken
	if err := e.touch(&pool); err != nil {
		return SwapResult{}, err
	}
	e.setPool(idx, pool)

	if err := e.pay(ctx, e.cfg.FeeRecipient, &q.Fee); err != nil {
		return SwapResult{}, fmt.Errorf("remit fee: %w", err)
	}
	if err := e.tokens[pool.Asset].Transfer(e.address, recipient, &q.AmountOut); err != nil {
		return SwapResult{}, fmt.Errorf("deliver tokens: %w", err)
	}

	if _, err := e.ledger.RecordTrade(e.address, model.Trade{
		Asset:       pool.Asset,
		Participant: participant,
		AmountIn:    *amountIn,
		AmountOut:   q.AmountOut,
		IsBuy:       true,
		Timestamp:   e.tx.time.Timestamp,
		BlockHeight: e.tx.time.Number,
	}); err != nil {
		return SwapResult{}, fmt.Errorf("record trade: %w", err)
	}
	e.emit(events.Trade{
		Asset:             pool.Asset,
		Participant:       participant,
		IsBuy:             true,
		AmountIn:          *amountIn,
		AmountOut:         q.AmountOut,
		Fee:               q.Fee,
		EthReserve:        pool.EthReserve,
		TokenReserve:      pool.TokenReserve,
		VirtualEthReserve: pool.VirtualEthReserve,
		Price:             pool.LastPrice,
	})

	res := SwapResult{AmountIn: *amountIn, AmountOut: q.AmountOut, Fee: q.Fee}
	if !pool.EthReserve.Lt(&e.threshold) {
		if err := e.graduate(ctx, idx); err != nil {
			return SwapResult{}, err
		}
		res.Graduated = true
	}
	return res, nil
}

// Sell pulls Amount of the asset from the caller, who must have approved the
// engine, and pays the curve output net of fee to the recipient.
func (e *Engine) Sell(ctx context.Context, req SwapRequest) (SwapResult, error) {
	var res SwapResult
	err := e.execute(ctx, "sell", func() error {
		if e.cfg.Paused {
			return ErrPaused
		}
		if err := e.checkDeadline(req.Deadline); err != nil {
			return err
		}
		if req.Amount.IsZero() {
			return fmt.Errorf("%w: zero amount", ErrInvalidInput)
		}
		if !req.Value.IsZero() {
			return fmt.Errorf("%w: sell carries value %s", ErrInvalidInput, req.Value.Dec())
		}
		idx, err := e.lookup(req.Asset)
		if err != nil {
			return err
		}
		pool := e.pools[idx]
		if err := e.tradable(pool); err != nil {
			return err
		}

		if err := e.tokens[pool.Asset].TransferFrom(e.address, req.Caller, e.address, &req.Amount); err != nil {
			return fmt.Errorf("pull tokens: %w", err)
		}

		q, err := curve.QuoteSell(reserves(pool), &e.k, &req.Amount, e.cfg.FeeRate)
		if err != nil {
			return fmt.Errorf("%w: quote sell: %w", ErrInvalidInput, err)
		}
		if q.AmountOut.Lt(&req.AmountOutMin) {
			return fmt.Errorf("%w: out %s, min %s", ErrInsufficientOutput, q.AmountOut.Dec(), req.AmountOutMin.Dec())
		}

		if _, overflow := pool.TokenReserve.AddOverflow(&pool.TokenReserve, &req.Amount); overflow {
			return fmt.Errorf("%w: token reserve overflow", ErrInvalidInput)
		}
		pool.EthReserve.Sub(&pool.EthReserve, &q.RawAmountOut)
		pool.VirtualEthReserve = q.NewVirtualEth
		pool.VirtualTokenReserve = q.NewVirtualToken
		if err := e.touch(&pool); err != nil {
			return err
		}
		e.setPool(idx, pool)

		if err := e.pay(ctx, e.cfg.FeeRecipient, &q.Fee); err != nil {
			return fmt.Errorf("remit fee: %w", err)
		}
		if err := e.pay(ctx, req.recipient(), &q.AmountOut); err != nil {
			return fmt.Errorf("pay out: %w", err)
		}

		if _, err := e.ledger.RecordTrade(e.address, model.Trade{
			Asset:       pool.Asset,
			Participant: req.Caller,
			AmountIn:    req.Amount,
			AmountOut:   q.RawAmountOut,
			IsBuy:       false,
			Timestamp:   e.tx.time.Timestamp,
			BlockHeight: e.tx.time.Number,
		}); err != nil {
			return fmt.Errorf("record trade: %w", err)
		}
		e.emit(events.Trade{
			Asset:             pool.Asset,
			Participant:       req.Caller,
			IsBuy:             false,
			AmountIn:          req.Amount,
			AmountOut:         q.RawAmountOut,
			Fee:               q.Fee,
			EthReserve:        pool.EthReserve,
			TokenReserve:      pool.TokenReserve,
			VirtualEthReserve: pool.VirtualEthReserve,
			Price:             pool.LastPrice,
		})

		res = SwapResult{AmountIn: req.Amount, AmountOut: q.AmountOut, Fee: q.Fee}
		return nil
	})
	if err != nil {
		return SwapResult{}, err
	}
	return res, nil
}

// graduate migrates the pool at idx. It runs inside the triggering buy.
func (e *Engine) graduate(ctx context.Context, idx int) error {
	pool := e.pools[idx]
	tok := e.tokens[pool.Asset]
	migrator := e.migrator

	fee, err := curve.Fee(&pool.EthReserve, e.cfg.GraduationFeeRate)
	if err != nil {
		return fmt.Errorf("%w: graduation fee: %w", ErrInvalidInput, err)
	}
	currency := new(uint256.Int).Sub(&pool.EthReserve, fee)
	tokens := e.params.MigrationTokenAmount()

	if err := e.pay(ctx, e.cfg.FeeRecipient, fee); err != nil {
		return fmt.Errorf("remit graduation fee: %w", err)
	}
	if err := e.pay(ctx, migrator.Address(), currency); err != nil {
		return fmt.Errorf("fund migrator: %w", err)
	}
	if err := tok.Transfer(e.address, migrator.Address(), tokens); err != nil {
		return fmt.Errorf("fund migrator tokens: %w", err)
	}
	result, err := migrator.Execute(ctx, e.address, pool.Asset, tokens, currency)
	if err != nil {
		return fmt.Errorf("execute migration for %s: %w", pool.Asset.Hex(), err)
	}
	if err := checkMigration(&result, tokens, currency); err != nil {
		return fmt.Errorf("execute migration for %s: %w", pool.Asset.Hex(), err)
	}
	if err := tok.SetApprovable(e.address, true); err != nil {
		return fmt.Errorf("set approvable: %w", err)
	}

	pool.Headmaster = migrator.Address()
	pool.PoolID = result.PoolID
	pool.TokenReserve.Clear()
	pool.VirtualTokenReserve.Clear()
	pool.EthReserve.Clear()
	pool.VirtualEthReserve.Clear()
	pool.LastTimestamp = e.tx.time.Timestamp
	pool.LastBlock = e.tx.time.Number
	e.setPool(idx, pool)

	if err := e.ledger.RecordGraduation(e.address, model.GraduationRecord{
		Asset:          pool.Asset,
		CurrencyAmount: result.CurrencyAmount,
		TokenAmount:    result.TokenAmount,
		Headmaster:     pool.Headmaster,
		PoolID:         pool.PoolID,
		Timestamp:      e.tx.time.Timestamp,
		BlockHeight:    e.tx.time.Number,
	}); err != nil {
		return fmt.Errorf("record graduation: %w", err)
	}
	e.emit(events.Graduated{
		Asset:          pool.Asset,
		Headmaster:     pool.Headmaster,
		PoolID:         pool.PoolID,
		CurrencyAmount: result.CurrencyAmount,
		TokenAmount:    result.TokenAmount,
		Fee:            *fee,
	})
	return nil
}

// checkMigration accepts a result that names a venue pool and deposited no
// more than the engine handed over. Undeposited remainders stay with the venue.
func checkMigration(result *model.MigrationResult, tokens, currency *uint256.Int) error {
	if result.PoolID == (common.Address{}) {
		return fmt.Errorf("%w: empty pool id", ErrMigrationMismatch)
	}
	if result.TokenAmount.Gt(tokens) {
		return fmt.Errorf("%w: deposited %s tokens, funded %s", ErrMigrationMismatch, result.TokenAmount.Dec(), tokens.Dec())
	}
	if result.CurrencyAmount.Gt(currency) {
		return fmt.Errorf("%w: deposited %s currency, funded %s", ErrMigrationMismatch, result.CurrencyAmount.Dec(), currency.Dec())
	}
	return nil
}
