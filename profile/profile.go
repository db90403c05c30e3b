// Package profile caches the authenticated user's identity, roles,
// permissions, and recent-connection metadata for the lifetime of a session
// window.
package profile

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/minuetaitor/minuet-go/api"
)

// Fetcher is the slice of the API client this store needs.
type Fetcher interface {
	Me(ctx context.Context) (*api.MeResponse, error)
}

type User struct {
	ID       string
	Username string
	FullName string
	Email    string
}

type Authz struct {
	Roles       []string
	Permissions []string
}

type Connections struct {
	Active *api.Connection
	Last   []api.Connection
}

type Meta struct {
	FetchedAt time.Time
}

// Profile is the normalised session profile.
type Profile struct {
	User        User
	Authz       Authz
	Connections Connections
	Meta        Meta
}

// Store caches the session profile. Loads are deduplicated (a load already
// in flight makes a second call a no-op) and cached for a TTL window; a
// failed reload keeps the previous data (stale-but-available over empty).
type Store struct {
	fetcher Fetcher
	ttl     time.Duration
	nowFunc func() time.Time
	log     zerolog.Logger

	mu      sync.Mutex
	data    Profile
	loading bool
	loadErr error
}

type StoreOption func(*Store)

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func NewStore(fetcher Fetcher, ttl time.Duration, log zerolog.Logger, options ...StoreOption) (*Store, error) {
	if fetcher == nil {
		return nil, errors.New("[profile.NewStore] fetcher is required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	s := &Store{
		fetcher: fetcher,
		ttl:     ttl,
		nowFunc: time.Now,
		log:     log.With().Str("component", "profile.Store").Logger(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// LoadFromAPI fetches and caches the session profile. With forceRefresh
// false, a fetch under the TTL window is a no-op; so is a call while
// another load is in flight.
func (s *Store) LoadFromAPI(ctx context.Context, forceRefresh bool) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil
	}
	fetchedAt := s.data.Meta.FetchedAt
	if !forceRefresh && !fetchedAt.IsZero() && s.nowFunc().Sub(fetchedAt) < s.ttl {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.mu.Unlock()

	me, err := s.fetcher.Me(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		// Keep whatever we had; stale data beats an empty header.
		s.loadErr = err
		s.log.Warn().Err(err).Msg("session profile load failed")
		return errors.Wrap(err, "[Store.LoadFromAPI]")
	}

	s.data = normalize(me, s.nowFunc())
	s.loadErr = nil
	return nil
}

// Current returns the cached profile (possibly the zero value).
func (s *Store) Current() Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// LoadError returns the error recorded by the last failed load, if any.
func (s *Store) LoadError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// ClearSession resets to the empty profile; called on logout.
func (s *Store) ClearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = Profile{}
	s.loadErr = nil
}

func normalize(me *api.MeResponse, now time.Time) Profile {
	return Profile{
		User: User{
			ID:       me.UserID,
			Username: me.Username,
			FullName: me.FullName,
			Email:    me.Email,
		},
		Authz: Authz{
			Roles:       me.Roles,
			Permissions: me.Permissions,
		},
		Connections: Connections{
			Active: me.ActiveConnection,
			Last:   me.LastConnections,
		},
		Meta: Meta{FetchedAt: now},
	}
}
