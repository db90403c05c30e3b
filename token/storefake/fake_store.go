package storefake

import (
	"sync"

	"github.com/minuetaitor/minuet-go/token"
)

var _ token.Store = (*FakeStore)(nil)

// FakeStore is an in-memory token.Store for tests, with call counters.
type FakeStore struct {
	mu         sync.RWMutex
	pair       token.Pair
	SetCalls   int
	ClearCalls int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

func (fs *FakeStore) Get() token.Pair {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.pair
}

func (fs *FakeStore) Set(pair token.Pair) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.pair = pair
	fs.SetCalls++
	return nil
}

func (fs *FakeStore) Clear() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.pair = token.Pair{}
	fs.ClearCalls++
	return nil
}
