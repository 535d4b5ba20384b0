package domain

import "fmt"

// LeaderboardEntry is one ranked row within a leaderboard batch. Rows are
// unique on (batch date, batch index, rank) and a whole (date, index) group
// is always replaced wholesale, never partially mutated.
type LeaderboardEntry struct {
	Batch   BatchID `json:"batch"`
	Rank    int     `json:"rank"`
	Name    string  `json:"name"`
	Score   int64   `json:"score"`
	LogoURL string  `json:"logo_url"`
}

// ValidateRanks checks that the ranks of entries form a permutation of 1..N.
func ValidateRanks(entries []LeaderboardEntry) error {
	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		if e.Rank < 1 || e.Rank > len(entries) {
			return fmt.Errorf("rank %d out of range 1..%d: %w", e.Rank, len(entries), ErrInvalidRanks)
		}
		if seen[e.Rank] {
			return fmt.Errorf("duplicate rank %d: %w", e.Rank, ErrInvalidRanks)
		}
		seen[e.Rank] = true
	}
	return nil
}
