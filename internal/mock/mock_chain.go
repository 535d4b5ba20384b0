// Package mock provides hand-rolled in-memory fakes for the domain
// interfaces, shared by the syncer and service test suites.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/arenabets/arenasync/internal/domain"
)

// Fetcher is an in-memory domain.StateFetcher. Entries absent from the
// maps report domain.ErrAbsentEntity; addresses present in Errs return
// that error instead.
type Fetcher struct {
	mu       sync.Mutex
	Markets  map[string]domain.MarketState
	Claims   map[string]domain.ClaimState
	Balances map[string]string
	Errs     map[string]error
	Calls    []string
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		Markets:  map[string]domain.MarketState{},
		Claims:   map[string]domain.ClaimState{},
		Balances: map[string]string{},
		Errs:     map[string]error{},
	}
}

func (f *Fetcher) record(call string) {
	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	f.mu.Unlock()
}

// CallCount returns how many recorded calls start with prefix.
func (f *Fetcher) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *Fetcher) FetchMarket(ctx context.Context, address string) (domain.MarketState, error) {
	f.record("market:" + address)
	if err, ok := f.Errs[address]; ok {
		return domain.MarketState{}, err
	}
	st, ok := f.Markets[address]
	if !ok {
		return domain.MarketState{}, fmt.Errorf("market %s: %w", address, domain.ErrAbsentEntity)
	}
	return st, nil
}

func (f *Fetcher) FetchClaim(ctx context.Context, market, user string) (domain.ClaimState, error) {
	key := market + "/" + user
	f.record("claim:" + key)
	if err, ok := f.Errs[key]; ok {
		return domain.ClaimState{}, err
	}
	st, ok := f.Claims[key]
	if !ok {
		return domain.ClaimState{}, fmt.Errorf("claim %s: %w", key, domain.ErrAbsentEntity)
	}
	return st, nil
}

func (f *Fetcher) FetchBalance(ctx context.Context, token, user string) (string, error) {
	key := token + "/" + user
	f.record("balance:" + key)
	if err, ok := f.Errs[key]; ok {
		return "", err
	}
	bal, ok := f.Balances[key]
	if !ok {
		return "", fmt.Errorf("balance %s: %w", key, domain.ErrAbsentEntity)
	}
	return bal, nil
}

// Registry maps contract names to addresses.
type Registry struct {
	Addresses map[string]string
}

func (r *Registry) Resolve(ctx context.Context, name string) (string, error) {
	addr, ok := r.Addresses[name]
	if !ok {
		return "", fmt.Errorf("contract %q: %w", name, domain.ErrNotFound)
	}
	return addr, nil
}

// Mutator records close requests and optionally mutates a Fetcher so
// the follow-up refresh observes the new on-chain state.
type Mutator struct {
	TxHash  string
	Err     error
	Closed  []string
	OnClose func(address string)
}

func (m *Mutator) CloseMarket(ctx context.Context, address string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.Closed = append(m.Closed, address)
	if m.OnClose != nil {
		m.OnClose(address)
	}
	return m.TxHash, nil
}
