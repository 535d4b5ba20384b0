// Package chain reads and writes authoritative market state on an EVM ledger
// via JSON-RPC. Reads use eth_getCode existence probes plus raw eth_call with
// hand-encoded selectors; no generated bindings.
package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
)

// ClientConfig holds connection parameters for the ledger RPC endpoint.
type ClientConfig struct {
	RPCURL  string
	ChainID int64
}

// Client wraps an ethclient connection and verifies the chain ID on dial.
type Client struct {
	eth     *ethclient.Client
	chainID int64
}

// New dials the RPC endpoint and checks that it serves the expected chain.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}

	id, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: chain id: %w", err)
	}
	if cfg.ChainID != 0 && id.Int64() != cfg.ChainID {
		eth.Close()
		return nil, fmt.Errorf("chain: endpoint serves chain %d, expected %d", id.Int64(), cfg.ChainID)
	}

	return &Client{eth: eth, chainID: id.Int64()}, nil
}

// Underlying returns the raw *ethclient.Client.
func (c *Client) Underlying() *ethclient.Client {
	return c.eth
}

// ChainID returns the chain ID observed at dial time.
func (c *Client) ChainID() int64 {
	return c.chainID
}

// Close releases the RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}
