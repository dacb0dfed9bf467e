package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client wraps go-ethereum RPC and serves the host chain's clock.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	cacheTTL time.Duration
	wallNow  func() time.Time

	mu       sync.Mutex
	cachedTs uint64
	cachedAt time.Time
}

// NewClient dials rpcURL. Latest-block timestamps are reused for cacheTTL;
// zero disables caching.
func NewClient(ctx context.Context, rpcURL string, cacheTTL time.Duration) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return NewClientFromRPC(rpcClient, cacheTTL), nil
}

// NewClientFromRPC wraps an already connected RPC client.
func NewClientFromRPC(rpcClient *rpc.Client, cacheTTL time.Duration) *Client {
	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		cacheTTL:  cacheTTL,
		wallNow:   time.Now,
	}
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

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// Now returns the latest block's timestamp in unix seconds. Deadlines are
// judged against chain time, not the local wall clock.
func (c *Client) Now(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	if c.cacheTTL > 0 && !c.cachedAt.IsZero() && c.wallNow().Sub(c.cachedAt) < c.cacheTTL {
		ts := c.cachedTs
		c.mu.Unlock()
		return ts, nil
	}
	c.mu.Unlock()

	header, err := c.ethClient.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("latest header: %w", err)
	}

	c.mu.Lock()
	// Chain time never moves backwards for callers, even across reorgs.
	if header.Time > c.cachedTs {
		c.cachedTs = header.Time
	}
	c.cachedAt = c.wallNow()
	ts := c.cachedTs
	c.mu.Unlock()

	return ts, nil
}
