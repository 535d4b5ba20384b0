package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/sync/errgroup"

	"github.com/arenabets/arenasync/internal/domain"
)

// Winner codes as reported by the market contract.
const (
	winnerNone uint8 = 0
	winnerA    uint8 = 1
	winnerB    uint8 = 2
)

// Fetcher implements domain.StateFetcher against a live RPC endpoint. Each
// market fetch probes for code first, then reads all fields concurrently so
// one entity costs a single round-trip burst.
type Fetcher struct {
	eth    *ethclient.Client
	logger *slog.Logger
}

// NewFetcher creates a Fetcher backed by the given Client.
func NewFetcher(c *Client, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		eth:    c.Underlying(),
		logger: logger.With(slog.String("component", "chain_fetcher")),
	}
}

// FetchMarket reads phase, pools, winner, and the lock/resolve timestamps of
// one market contract.
func (f *Fetcher) FetchMarket(ctx context.Context, address string) (domain.MarketState, error) {
	addr, err := f.probe(ctx, address)
	if err != nil {
		return domain.MarketState{}, err
	}

	var (
		phaseCode, winnerCode uint8
		poolA, poolB          string
		lockTime, resolveTime int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := f.call(gctx, addr, selPhase)
		if err != nil {
			return err
		}
		phaseCode, err = decodeUint8(out)
		return err
	})
	g.Go(func() error {
		out, err := f.call(gctx, addr, selPoolA)
		if err != nil {
			return err
		}
		n, err := decodeUint256(out)
		if err != nil {
			return err
		}
		poolA = n.String()
		return nil
	})
	g.Go(func() error {
		out, err := f.call(gctx, addr, selPoolB)
		if err != nil {
			return err
		}
		n, err := decodeUint256(out)
		if err != nil {
			return err
		}
		poolB = n.String()
		return nil
	})
	g.Go(func() error {
		out, err := f.call(gctx, addr, selWinner)
		if err != nil {
			return err
		}
		winnerCode, err = decodeUint8(out)
		return err
	})
	g.Go(func() error {
		out, err := f.call(gctx, addr, selLockTime)
		if err != nil {
			return err
		}
		n, err := decodeUint256(out)
		if err != nil {
			return err
		}
		lockTime = n.Int64()
		return nil
	})
	g.Go(func() error {
		out, err := f.call(gctx, addr, selResolveTime)
		if err != nil {
			return err
		}
		n, err := decodeUint256(out)
		if err != nil {
			return err
		}
		resolveTime = n.Int64()
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.MarketState{}, fmt.Errorf("chain: fetch market %s: %w", address, err)
	}

	state := domain.MarketState{
		Phase:       phaseFromCode(phaseCode),
		PoolA:       poolA,
		PoolB:       poolB,
		LockTime:    lockTime,
		ResolveTime: resolveTime,
	}
	switch winnerCode {
	case winnerA:
		side := domain.SideA
		state.Winner = &side
	case winnerB:
		side := domain.SideB
		state.Winner = &side
	}
	return state, nil
}

// FetchClaim reads the (aClaims, bClaims, redeemed) tuple for one user.
func (f *Fetcher) FetchClaim(ctx context.Context, market, user string) (domain.ClaimState, error) {
	addr, err := f.probe(ctx, market)
	if err != nil {
		return domain.ClaimState{}, err
	}
	if !common.IsHexAddress(user) {
		return domain.ClaimState{}, fmt.Errorf("chain: invalid user address %q", user)
	}

	out, err := f.call(ctx, addr, encodeAddressArg(selClaimsOf, common.HexToAddress(user)))
	if err != nil {
		return domain.ClaimState{}, fmt.Errorf("chain: fetch claim %s/%s: %w", market, user, err)
	}

	var state domain.ClaimState
	for i, dst := range []*string{&state.AClaims, &state.BClaims} {
		word, err := wordAt(out, i)
		if err != nil {
			return domain.ClaimState{}, fmt.Errorf("chain: fetch claim %s/%s: %w", market, user, err)
		}
		n, err := decodeUint256(word)
		if err != nil {
			return domain.ClaimState{}, fmt.Errorf("chain: fetch claim %s/%s: %w", market, user, err)
		}
		*dst = n.String()
	}
	word, err := wordAt(out, 2)
	if err != nil {
		return domain.ClaimState{}, fmt.Errorf("chain: fetch claim %s/%s: %w", market, user, err)
	}
	state.Redeemed, err = decodeBool(word)
	if err != nil {
		return domain.ClaimState{}, fmt.Errorf("chain: fetch claim %s/%s: %w", market, user, err)
	}
	return state, nil
}

// FetchBalance reads the ERC-20 balance of user on the given token contract.
func (f *Fetcher) FetchBalance(ctx context.Context, token, user string) (string, error) {
	addr, err := f.probe(ctx, token)
	if err != nil {
		return "", err
	}
	if !common.IsHexAddress(user) {
		return "", fmt.Errorf("chain: invalid user address %q", user)
	}

	out, err := f.call(ctx, addr, encodeAddressArg(selBalanceOf, common.HexToAddress(user)))
	if err != nil {
		return "", fmt.Errorf("chain: fetch balance %s/%s: %w", token, user, err)
	}
	n, err := decodeUint256(out)
	if err != nil {
		return "", fmt.Errorf("chain: fetch balance %s/%s: %w", token, user, err)
	}
	return n.String(), nil
}

// probe validates the address and checks for deployed code. A reference with
// no code is the absent-entity outcome, not an error.
func (f *Fetcher) probe(ctx context.Context, address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("chain: invalid contract address %q", address)
	}
	addr := common.HexToAddress(address)

	code, err := f.eth.CodeAt(ctx, addr, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("chain: code probe %s: %w", address, err)
	}
	if len(code) == 0 {
		return common.Address{}, fmt.Errorf("chain: %s: %w", address, domain.ErrAbsentEntity)
	}
	return addr, nil
}

// call performs one eth_call against the latest block and classifies the
// failure modes: a JSON-RPC level rejection (revert, bad input) is transient,
// an empty return is transient, everything else carries full context.
func (f *Fetcher) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := f.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			return nil, fmt.Errorf("%w: call rejected (code %d): %s", domain.ErrTransientChain, rpcErr.ErrorCode(), rpcErr.Error())
		}
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty return", domain.ErrTransientChain)
	}
	return out, nil
}

func phaseFromCode(code uint8) domain.Phase {
	switch code {
	case 0:
		return domain.PhaseTrading
	case 1:
		return domain.PhaseLocked
	case 2:
		return domain.PhaseResolved
	case 3:
		return domain.PhaseCancelled
	default:
		return domain.PhaseUnknown
	}
}

// Compile-time interface check.
var _ domain.StateFetcher = (*Fetcher)(nil)
