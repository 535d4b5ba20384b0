package domain

import "time"

// UserClaim mirrors a user's claim tuple for one market. Claims are created
// lazily on first access and refreshed indefinitely, never deleted.
type UserClaim struct {
	Market       string    `json:"market"`
	User         string    `json:"user"`
	AClaims      string    `json:"a_claims"`
	BClaims      string    `json:"b_claims"`
	Redeemed     bool      `json:"redeemed"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}

// ClaimView is a claim plus the same serving metadata MarketView carries.
type ClaimView struct {
	UserClaim
	Cached bool `json:"cached"`
	Stale  bool `json:"stale"`
}

// UserBalance mirrors a user's stake-token balance. Created lazily.
type UserBalance struct {
	User         string    `json:"user"`
	Balance      string    `json:"balance"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}

// BalanceView is a balance plus serving metadata.
type BalanceView struct {
	UserBalance
	Cached bool `json:"cached"`
	Stale  bool `json:"stale"`
}
