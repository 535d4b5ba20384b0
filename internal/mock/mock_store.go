package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/arenabets/arenasync/internal/domain"
)

// MarketStore keeps snapshots keyed by address.
type MarketStore struct {
	mu   sync.Mutex
	Rows map[string]domain.MarketSnapshot
}

func NewMarketStore() *MarketStore {
	return &MarketStore{Rows: map[string]domain.MarketSnapshot{}}
}

func (s *MarketStore) Upsert(ctx context.Context, snap domain.MarketSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rows[snap.Address] = snap
	return nil
}

func (s *MarketStore) Get(ctx context.Context, address string) (domain.MarketSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.Rows[address]
	if !ok {
		return domain.MarketSnapshot{}, fmt.Errorf("market %s: %w", address, domain.ErrNotFound)
	}
	return snap, nil
}

func (s *MarketStore) ListByBatch(ctx context.Context, batch domain.BatchID) ([]domain.MarketSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MarketSnapshot
	for _, snap := range s.Rows {
		if snap.Batch.Compare(batch) == 0 {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (s *MarketStore) ListAll(ctx context.Context) ([]domain.MarketSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MarketSnapshot
	for _, snap := range s.Rows {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (s *MarketStore) CurrentBatch(ctx context.Context) (domain.BatchID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best domain.BatchID
	found := false
	for _, snap := range s.Rows {
		if !found || snap.Batch.Compare(best) > 0 {
			best = snap.Batch
			found = true
		}
	}
	if !found {
		return domain.BatchID{}, domain.ErrNotFound
	}
	return best, nil
}

func (s *MarketStore) MaxIndex(ctx context.Context, date time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := domain.Day(date)
	max, found := 0, false
	for _, snap := range s.Rows {
		if !snap.Batch.Date.Equal(day) {
			continue
		}
		if !found || snap.Batch.Index > max {
			max = snap.Batch.Index
			found = true
		}
	}
	if !found {
		return 0, domain.ErrNotFound
	}
	return max, nil
}

func (s *MarketStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rows = map[string]domain.MarketSnapshot{}
	return nil
}

// ClaimStore keys rows by market/user.
type ClaimStore struct {
	mu   sync.Mutex
	Rows map[string]domain.UserClaim
}

func NewClaimStore() *ClaimStore {
	return &ClaimStore{Rows: map[string]domain.UserClaim{}}
}

func (s *ClaimStore) Upsert(ctx context.Context, claim domain.UserClaim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rows[claim.Market+"/"+claim.User] = claim
	return nil
}

func (s *ClaimStore) Get(ctx context.Context, market, user string) (domain.UserClaim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.Rows[market+"/"+user]
	if !ok {
		return domain.UserClaim{}, fmt.Errorf("claim %s/%s: %w", market, user, domain.ErrNotFound)
	}
	return claim, nil
}

// BalanceStore keys rows by token/user.
type BalanceStore struct {
	mu   sync.Mutex
	Rows map[string]domain.UserBalance
}

func NewBalanceStore() *BalanceStore {
	return &BalanceStore{Rows: map[string]domain.UserBalance{}}
}

func (s *BalanceStore) Upsert(ctx context.Context, bal domain.UserBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rows[bal.User] = bal
	return nil
}

func (s *BalanceStore) Get(ctx context.Context, user string) (domain.UserBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, ok := s.Rows[user]
	if !ok {
		return domain.UserBalance{}, fmt.Errorf("balance %s: %w", user, domain.ErrNotFound)
	}
	return bal, nil
}

// LeaderboardStore keeps entry groups keyed by batch.
type LeaderboardStore struct {
	mu           sync.Mutex
	Groups       map[string][]domain.LeaderboardEntry
	batches      map[string]domain.BatchID
	ReplaceCalls int
}

func NewLeaderboardStore() *LeaderboardStore {
	return &LeaderboardStore{
		Groups:  map[string][]domain.LeaderboardEntry{},
		batches: map[string]domain.BatchID{},
	}
}

func (s *LeaderboardStore) ReplaceGroup(ctx context.Context, batch domain.BatchID, entries []domain.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReplaceCalls++
	s.Groups[batch.String()] = append([]domain.LeaderboardEntry(nil), entries...)
	s.batches[batch.String()] = batch
	return nil
}

func (s *LeaderboardStore) ListByBatch(ctx context.Context, batch domain.BatchID) ([]domain.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group := s.Groups[batch.String()]
	out := append([]domain.LeaderboardEntry(nil), group...)
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

func (s *LeaderboardStore) CurrentBatch(ctx context.Context) (domain.BatchID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best domain.BatchID
	found := false
	for _, b := range s.batches {
		if !found || b.Compare(best) > 0 {
			best = b
			found = true
		}
	}
	if !found {
		return domain.BatchID{}, domain.ErrNotFound
	}
	return best, nil
}

func (s *LeaderboardStore) MaxIndex(ctx context.Context, date time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := domain.Day(date)
	max, found := 0, false
	for _, b := range s.batches {
		if !b.Date.Equal(day) {
			continue
		}
		if !found || b.Index > max {
			max = b.Index
			found = true
		}
	}
	if !found {
		return 0, domain.ErrNotFound
	}
	return max, nil
}

func (s *LeaderboardStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Groups = map[string][]domain.LeaderboardEntry{}
	s.batches = map[string]domain.BatchID{}
	return nil
}

// SignalBus collects published payloads per channel.
type SignalBus struct {
	mu        sync.Mutex
	Published map[string][][]byte
}

func NewSignalBus() *SignalBus {
	return &SignalBus{Published: map[string][][]byte{}}
}

func (b *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Published[channel] = append(b.Published[channel], payload)
	return nil
}

func (b *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}
