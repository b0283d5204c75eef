package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"launchpad/internal/model"
)

// Schema creates the launchpad tables. Every row belongs to one run of one
// chain; amounts are base units in NUMERIC(78,0).
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	chain_id    BIGINT NOT NULL,
	run         TEXT NOT NULL,
	input       TEXT NOT NULL,
	trade_count BIGINT NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, run)
);
CREATE TABLE IF NOT EXISTS assets (
	chain_id      BIGINT NOT NULL,
	run           TEXT NOT NULL,
	asset         TEXT NOT NULL,
	name          TEXT NOT NULL,
	symbol        TEXT NOT NULL,
	description   TEXT NOT NULL,
	creator       TEXT NOT NULL,
	created_ts    BIGINT NOT NULL,
	created_block BIGINT NOT NULL,
	PRIMARY KEY (chain_id, run, asset)
);
CREATE TABLE IF NOT EXISTS pools (
	chain_id              BIGINT NOT NULL,
	run                   TEXT NOT NULL,
	asset                 TEXT NOT NULL,
	creator               TEXT NOT NULL,
	token_reserve         NUMERIC(78,0) NOT NULL,
	virtual_token_reserve NUMERIC(78,0) NOT NULL,
	eth_reserve           NUMERIC(78,0) NOT NULL,
	virtual_eth_reserve   NUMERIC(78,0) NOT NULL,
	last_price            NUMERIC(78,0) NOT NULL,
	last_mcap_in_eth      NUMERIC(78,0) NOT NULL,
	last_ts               BIGINT NOT NULL,
	last_block            BIGINT NOT NULL,
	headmaster            TEXT,
	pool_id               TEXT,
	PRIMARY KEY (chain_id, run, asset)
);
CREATE TABLE IF NOT EXISTS trades (
	chain_id     BIGINT NOT NULL,
	run          TEXT NOT NULL,
	seq          BIGINT NOT NULL,
	asset        TEXT NOT NULL,
	participant  TEXT NOT NULL,
	amount_in    NUMERIC(78,0) NOT NULL,
	amount_out   NUMERIC(78,0) NOT NULL,
	is_buy       BOOLEAN NOT NULL,
	trade_ts     BIGINT NOT NULL,
	block_height BIGINT NOT NULL,
	PRIMARY KEY (chain_id, run, seq)
);
CREATE INDEX IF NOT EXISTS trades_asset_idx ON trades (chain_id, run, asset, seq);
CREATE INDEX IF NOT EXISTS trades_participant_idx ON trades (chain_id, run, participant, seq);
CREATE TABLE IF NOT EXISTS graduations (
	chain_id        BIGINT NOT NULL,
	run             TEXT NOT NULL,
	asset           TEXT NOT NULL,
	currency_amount NUMERIC(78,0) NOT NULL,
	token_amount    NUMERIC(78,0) NOT NULL,
	headmaster      TEXT NOT NULL,
	pool_id         TEXT NOT NULL,
	graduated_ts    BIGINT NOT NULL,
	block_height    BIGINT NOT NULL,
	PRIMARY KEY (chain_id, run, asset)
);
CREATE TABLE IF NOT EXISTS ledger_stats (
	chain_id                     BIGINT NOT NULL,
	run                          TEXT NOT NULL,
	total_volume                 NUMERIC(78,0) NOT NULL,
	total_liquidity_bootstrapped NUMERIC(78,0) NOT NULL,
	total_assets_created         BIGINT NOT NULL,
	total_assets_graduated       BIGINT NOT NULL,
	total_trades                 BIGINT NOT NULL,
	PRIMARY KEY (chain_id, run)
);
`

// runTables are cleared for a run before its snapshot is written.
var runTables = []string{"assets", "pools", "trades", "graduations", "ledger_stats"}

// ErrInconsistentSnapshot is returned when a snapshot's rows disagree with its stats.
var ErrInconsistentSnapshot = errors.New("inconsistent snapshot")

// Snapshot is the complete persisted state of one run.
type Snapshot struct {
	ChainID     uint64
	Run         string
	Input       string
	Assets      []model.AssetInfo
	Pools       []model.PoolRecord
	Trades      []model.TradeRecord
	Graduations []model.GraduationRecord
	Stats       model.LedgerStats
}

// Validate checks that the rows and the stats describe the same ledger.
func (s Snapshot) Validate() error {
	if s.Run == "" {
		return fmt.Errorf("%w: run name required", ErrInconsistentSnapshot)
	}
	if uint64(len(s.Trades)) != s.Stats.TotalTrades {
		return fmt.Errorf("%w: %d trades, stats count %d", ErrInconsistentSnapshot, len(s.Trades), s.Stats.TotalTrades)
	}
	for i, t := range s.Trades {
		if t.Seq != uint64(i) {
			return fmt.Errorf("%w: trade %d has seq %d", ErrInconsistentSnapshot, i, t.Seq)
		}
	}
	if uint64(len(s.Assets)) != s.Stats.TotalAssetsCreated {
		return fmt.Errorf("%w: %d assets, stats count %d", ErrInconsistentSnapshot, len(s.Assets), s.Stats.TotalAssetsCreated)
	}
	if len(s.Pools) != len(s.Assets) {
		return fmt.Errorf("%w: %d pools for %d assets", ErrInconsistentSnapshot, len(s.Pools), len(s.Assets))
	}
	if uint64(len(s.Graduations)) != s.Stats.TotalAssetsGraduated {
		return fmt.Errorf("%w: %d graduations, stats count %d", ErrInconsistentSnapshot, len(s.Graduations), s.Stats.TotalAssetsGraduated)
	}
	return nil
}

// Store persists launchpad state to Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates any missing tables and indices.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveSnapshot replaces everything stored for the snapshot's run in one
// transaction, so readers see either the previous run state or the new one.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	chainID := int64(snap.ChainID)
	for _, table := range runTables {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE chain_id=$1 AND run=$2`, chainID, snap.Run); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	batch := &pgx.Batch{}
	queueAssets(batch, chainID, snap.Run, snap.Assets)
	queuePools(batch, chainID, snap.Run, snap.Pools)
	queueTrades(batch, chainID, snap.Run, snap.Trades)
	queueGraduations(batch, chainID, snap.Run, snap.Graduations)
	queueStats(batch, chainID, snap.Run, snap.Stats)
	batch.Queue(`
		INSERT INTO runs (chain_id, run, input, trade_count, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (chain_id, run) DO UPDATE
		SET input = EXCLUDED.input, trade_count = EXCLUDED.trade_count, updated_at = now()
	`, chainID, snap.Run, snap.Input, int64(len(snap.Trades)))

	if err := send(ctx, tx, batch); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadRun returns the trade count stored for a run.
func (s *Store) LoadRun(ctx context.Context, chainID uint64, run string) (uint64, bool, error) {
	if run == "" {
		return 0, false, fmt.Errorf("run name required")
	}
	var count int64
	row := s.pool.QueryRow(ctx, `SELECT trade_count FROM runs WHERE chain_id=$1 AND run=$2`, int64(chainID), run)
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(count), true, nil
}

func queueAssets(batch *pgx.Batch, chainID int64, run string, assets []model.AssetInfo) {
	for _, a := range assets {
		batch.Queue(`
			INSERT INTO assets (
				chain_id, run, asset, name, symbol, description, creator, created_ts, created_block
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			chainID,
			run,
			a.Asset.Hex(),
			a.Name,
			a.Symbol,
			a.Description,
			a.Creator.Hex(),
			int64(a.Timestamp),
			int64(a.BlockHeight),
		)
	}
}

func queuePools(batch *pgx.Batch, chainID int64, run string, pools []model.PoolRecord) {
	for _, p := range pools {
		batch.Queue(`
			INSERT INTO pools (
				chain_id, run, asset, creator, token_reserve, virtual_token_reserve, eth_reserve,
				virtual_eth_reserve, last_price, last_mcap_in_eth, last_ts, last_block,
				headmaster, pool_id
			) VALUES (
				$1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric,
				$8::numeric, $9::numeric, $10::numeric, $11, $12,
				NULLIF($13, ''), NULLIF($14, '')
			)
		`,
			chainID,
			run,
			p.Asset,
			p.Creator,
			p.TokenReserve,
			p.VirtualTokenReserve,
			p.EthReserve,
			p.VirtualEthReserve,
			p.LastPrice,
			p.LastMcapInEth,
			int64(p.LastTimestamp),
			int64(p.LastBlock),
			p.Headmaster,
			p.PoolID,
		)
	}
}

func queueTrades(batch *pgx.Batch, chainID int64, run string, trades []model.TradeRecord) {
	for _, t := range trades {
		batch.Queue(`
			INSERT INTO trades (
				chain_id, run, seq, asset, participant, amount_in, amount_out, is_buy, trade_ts, block_height
			) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9, $10)
		`,
			chainID,
			run,
			int64(t.Seq),
			t.Asset,
			t.Participant,
			t.AmountIn,
			t.AmountOut,
			t.IsBuy,
			int64(t.Timestamp),
			int64(t.BlockHeight),
		)
	}
}

func queueGraduations(batch *pgx.Batch, chainID int64, run string, recs []model.GraduationRecord) {
	for _, g := range recs {
		batch.Queue(`
			INSERT INTO graduations (
				chain_id, run, asset, currency_amount, token_amount, headmaster, pool_id, graduated_ts, block_height
			) VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8, $9)
		`,
			chainID,
			run,
			g.Asset.Hex(),
			g.CurrencyAmount.Dec(),
			g.TokenAmount.Dec(),
			g.Headmaster.Hex(),
			g.PoolID.Hex(),
			int64(g.Timestamp),
			int64(g.BlockHeight),
		)
	}
}

func queueStats(batch *pgx.Batch, chainID int64, run string, stats model.LedgerStats) {
	batch.Queue(`
		INSERT INTO ledger_stats (
			chain_id, run, total_volume, total_liquidity_bootstrapped,
			total_assets_created, total_assets_graduated, total_trades
		) VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6, $7)
	`,
		chainID,
		run,
		stats.TotalVolume.Dec(),
		stats.TotalLiquidityBootstrapped.Dec(),
		int64(stats.TotalAssetsCreated),
		int64(stats.TotalAssetsGraduated),
		int64(stats.TotalTrades),
	)
}

func send(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
