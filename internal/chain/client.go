package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"launchpad/internal/model"
)

// Client wraps go-ethereum RPC and serves as a block clock for the engine.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	attempts int
	backoff  time.Duration

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		attempts:  1,
		tsCache:   make(map[uint64]uint64),
	}, nil
}

// SetRetry makes header reads retry up to maxRetries times with exponential backoff.
func (c *Client) SetRetry(maxRetries int, backoff time.Duration) {
	c.attempts = maxRetries + 1
	c.backoff = backoff
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// HeaderByNumber returns the block header by number, nil for the latest.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return c.ethClient.HeaderByNumber(ctx, number)
}

// Now returns the time and height of the latest block.
func (c *Client) Now(ctx context.Context) (model.BlockTime, error) {
	var header *types.Header
	err := retry(ctx, c.attempts, c.backoff, func(ctx context.Context) error {
		var err error
		header, err = c.HeaderByNumber(ctx, nil)
		return err
	})
	if err != nil {
		return model.BlockTime{}, fmt.Errorf("latest header: %w", err)
	}
	number := header.Number.Uint64()
	c.mu.Lock()
	c.tsCache[number] = header.Time
	c.mu.Unlock()
	return model.BlockTime{Timestamp: header.Time, Number: number}, nil
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	var header *types.Header
	err := retry(ctx, c.attempts, c.backoff, func(ctx context.Context) error {
		var err error
		header, err = c.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
		return err
	})
	if err != nil {
		return 0, err
	}

	ts = header.Time
	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()

	return ts, nil
}

// LocalClock reads wall-clock time and numbers each reading as a new block.
type LocalClock struct {
	mu     sync.Mutex
	number uint64
	now    func() time.Time
}

func NewLocalClock(startBlock uint64) *LocalClock {
	return &LocalClock{number: startBlock, now: time.Now}
}

func (c *LocalClock) Now(context.Context) (model.BlockTime, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.number++
	return model.BlockTime{Timestamp: uint64(c.now().Unix()), Number: c.number}, nil
}
