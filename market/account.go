package market

import "time"

// Balance holds one currency's ledger split.
type Balance struct {
	Total float64
	Free  float64
	Used  float64
}

// Account is a per-currency balance map. For the live backend it is a cached
// mirror of the exchange account; FetchedAt records when it was last
// refreshed so callers can judge freshness instead of relying on an
// ambient TTL cache.
type Account struct {
	Balances  map[string]Balance
	FetchedAt time.Time
}

// NewAccount returns an account stamped now.
func NewAccount() Account {
	return Account{Balances: make(map[string]Balance), FetchedAt: time.Now()}
}

// Known reports whether the account has ever been fetched. Sizing against an
// unknown account must yield a zero order.
func (a Account) Known() bool {
	return !a.FetchedAt.IsZero() && a.Balances != nil
}

// Free returns the free balance for a currency, zero if absent.
func (a Account) Free(currency string) float64 {
	return a.Balances[currency].Free
}

// Age returns how stale the snapshot is.
func (a Account) Age() time.Duration {
	if a.FetchedAt.IsZero() {
		return 0
	}
	return time.Since(a.FetchedAt)
}
