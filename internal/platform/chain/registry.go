package chain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/arenabets/arenasync/internal/domain"
)

// Registry resolves contract addresses by logical name against an on-chain
// registry contract exposing addressOf(string). Resolved names are memoized
// for the process lifetime; deployments do not move under a running service.
type Registry struct {
	eth      *ethclient.Client
	registry common.Address
	logger   *slog.Logger

	mu    sync.RWMutex
	names map[string]string
}

// NewRegistry creates a Registry bound to the registry contract at address.
func NewRegistry(c *Client, address string, logger *slog.Logger) (*Registry, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("chain: invalid registry address %q", address)
	}
	return &Registry{
		eth:      c.Underlying(),
		registry: common.HexToAddress(address),
		logger:   logger.With(slog.String("component", "chain_registry")),
		names:    make(map[string]string),
	}, nil
}

// Resolve looks up the address registered under name. A zero-address answer
// means the name is unregistered and maps to domain.ErrNotFound.
func (r *Registry) Resolve(ctx context.Context, name string) (string, error) {
	r.mu.RLock()
	cached, ok := r.names[name]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	out, err := r.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &r.registry,
		Data: encodeStringArg(selAddressOf, name),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("chain: registry lookup %q: %w", name, err)
	}
	addr, err := decodeAddress(out)
	if err != nil {
		return "", fmt.Errorf("chain: registry lookup %q: %w", name, err)
	}
	if addr == (common.Address{}) {
		return "", fmt.Errorf("chain: registry lookup %q: %w", name, domain.ErrNotFound)
	}

	resolved := addr.Hex()
	r.mu.Lock()
	r.names[name] = resolved
	r.mu.Unlock()

	r.logger.DebugContext(ctx, "resolved contract name",
		slog.String("name", name),
		slog.String("address", resolved),
	)
	return resolved, nil
}

// Compile-time interface check.
var _ domain.ContractRegistry = (*Registry)(nil)
