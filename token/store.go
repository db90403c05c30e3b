package token

// Store is the single source of truth for the session credential pair. All
// components read it through the session layer or the refresh coordinator,
// never by reaching into persisted storage directly.
type Store interface {
	// Get returns the current pair; the zero Pair when none is held.
	Get() Pair
	// Set replaces the current pair.
	Set(pair Pair) error
	// Clear removes the pair entirely. Clearing an empty store is a no-op.
	Clear() error
}
