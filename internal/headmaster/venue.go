// Package headmaster implements liquidity migration strategies for graduated assets.
package headmaster

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"launchpad/internal/model"
	"launchpad/internal/state"
)

var (
	// ErrUnauthorized is returned when anyone but the engine calls Execute.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEmptyDeposit is returned for a zero-sided deposit.
	ErrEmptyDeposit = errors.New("empty deposit")
	// ErrPairExists is returned when an asset already has a pair.
	ErrPairExists = errors.New("pair already exists")
)

// pairInitCodeHash is the init code hash pair addresses are derived from.
var pairInitCodeHash = crypto.Keccak256([]byte("launchpad/headmaster/pair"))

// Pair is a full-range constant-product position opened at graduation.
type Pair struct {
	Address      common.Address
	Asset        common.Address
	TokenReserve uint256.Int
	EthReserve   uint256.Int
	Liquidity    uint256.Int
}

// Venue is an in-memory constant-product exchange that opens one pair per
// graduated asset. Liquidity tokens are minted to the dead address so the
// migrated liquidity stays locked.
type Venue struct {
	address    common.Address
	factory    common.Address
	quote      common.Address
	engine     common.Address
	journal    *state.Journal
	logger     *zap.Logger
	pairs      map[common.Address]Pair
	executions int
}

// Config describes a Venue deployment.
type Config struct {
	Address common.Address
	Factory common.Address
	// Quote is the wrapped settlement currency the pairs trade against.
	Quote common.Address
	// Engine is the only caller allowed to execute migrations.
	Engine common.Address
}

func NewVenue(cfg Config, journal *state.Journal, logger *zap.Logger) *Venue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if journal == nil {
		journal = state.NewJournal()
	}
	return &Venue{
		address: cfg.Address,
		factory: cfg.Factory,
		quote:   cfg.Quote,
		engine:  cfg.Engine,
		journal: journal,
		logger:  logger,
		pairs:   make(map[common.Address]Pair),
	}
}

// Address returns the address graduating liquidity is sent to.
func (v *Venue) Address() common.Address {
	return v.address
}

// Executions reports how many migrations succeeded.
func (v *Venue) Executions() int {
	return v.executions
}

// Pair returns the pair opened for asset.
func (v *Venue) Pair(asset common.Address) (Pair, bool) {
	p, ok := v.pairs[asset]
	return p, ok
}

// PairAddress derives the CREATE2 address of the asset/quote pair.
func (v *Venue) PairAddress(asset common.Address) common.Address {
	token0, token1 := sortTokens(asset, v.quote)
	salt := crypto.Keccak256Hash(token0.Bytes(), token1.Bytes())
	return crypto.CreateAddress2(v.factory, salt, pairInitCodeHash)
}

// Execute opens the pair for asset with the deposited amounts and returns the
// pair address as pool id.
func (v *Venue) Execute(ctx context.Context, caller, asset common.Address, tokenAmount, currencyAmount *uint256.Int) (model.MigrationResult, error) {
	if err := ctx.Err(); err != nil {
		return model.MigrationResult{}, err
	}
	if caller != v.engine {
		return model.MigrationResult{}, fmt.Errorf("migrate %s by %s: %w", asset.Hex(), caller.Hex(), ErrUnauthorized)
	}
	if tokenAmount.IsZero() || currencyAmount.IsZero() {
		return model.MigrationResult{}, fmt.Errorf("migrate %s: %w", asset.Hex(), ErrEmptyDeposit)
	}
	if _, ok := v.pairs[asset]; ok {
		return model.MigrationResult{}, fmt.Errorf("migrate %s: %w", asset.Hex(), ErrPairExists)
	}

	pair := Pair{
		Address:      v.PairAddress(asset),
		Asset:        asset,
		TokenReserve: *tokenAmount,
		EthReserve:   *currencyAmount,
	}
	pair.Liquidity.Mul(tokenAmount, currencyAmount)
	pair.Liquidity.Sqrt(&pair.Liquidity)

	v.pairs[asset] = pair
	v.executions++
	v.journal.Append(func() {
		delete(v.pairs, asset)
		v.executions--
	})

	v.logger.Info("pair opened",
		zap.String("asset", asset.Hex()),
		zap.String("pair", pair.Address.Hex()),
		zap.String("token_amount", tokenAmount.Dec()),
		zap.String("currency_amount", currencyAmount.Dec()),
		zap.String("liquidity", pair.Liquidity.Dec()),
	)

	return model.MigrationResult{
		PoolID:         pair.Address,
		TokenAmount:    *tokenAmount,
		CurrencyAmount: *currencyAmount,
	}, nil
}

func sortTokens(a, b common.Address) (common.Address, common.Address) {
	if a.Cmp(b) < 0 {
		return a, b
	}
	return b, a
}
