package domain

import "context"

// MarketState is the authoritative field set of one market contract, read in
// a single logical fetch. The underlying reads are not transactionally
// joined; the result is treated as atomic for caching purposes.
type MarketState struct {
	Phase       Phase
	PoolA       string
	PoolB       string
	Winner      *Side
	LockTime    int64
	ResolveTime int64
}

// ClaimState is the authoritative per-user claim tuple of one market.
type ClaimState struct {
	AClaims  string
	BClaims  string
	Redeemed bool
}

// StateFetcher reads authoritative values from the external ledger. All
// methods classify failures: ErrAbsentEntity when the reference holds no
// code, ErrTransientChain for malformed or rejected reads, anything else is
// unexpected and carries full context.
type StateFetcher interface {
	FetchMarket(ctx context.Context, address string) (MarketState, error)
	FetchClaim(ctx context.Context, market, user string) (ClaimState, error)
	FetchBalance(ctx context.Context, token, user string) (string, error)
}

// ContractRegistry resolves contract addresses by logical name, e.g.
// "stakeToken". ErrNotFound means the name is unregistered.
type ContractRegistry interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// MarketMutator performs ledger writes. The write path itself is a boundary
// collaborator; the core only consumes its success through the synchronous
// refresh of the entities it touched.
type MarketMutator interface {
	CloseMarket(ctx context.Context, address string) (txHash string, err error)
}
