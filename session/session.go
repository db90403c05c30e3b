package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/minuetaitor/minuet-go/token"
)

// ErrStaleSession reports that a refresh result was discarded because the
// session it belonged to ended (or was replaced) while the refresh was in
// flight. The logout wins; the late pair is never applied.
var ErrStaleSession = errors.New("session ended while refresh was in flight")

// State is the externally visible authentication state. Refresh activity is
// invisible here; LoggedIn has no sub-states.
type State string

const (
	StateLoggedOut State = "logged_out"
	StateLoggedIn  State = "logged_in"
)

// Credentials is the login payload. Credential is a username or email.
type Credentials struct {
	Credential string `validate:"required"`
	Password   string `validate:"required"`
}

// LoginFunc performs the backend login call and returns the issued pair.
// Implemented as a function type to avoid an import cycle between session
// and the API client.
type LoginFunc func(ctx context.Context, creds Credentials) (token.Pair, error)

// Snapshot is a point-in-time copy of the session state handed to change
// listeners.
type Snapshot struct {
	State     State
	IsLoading bool
	ExpiresAt *time.Time
}

// Store owns the authentication state machine:
//
//	LoggedOut -> (login success) -> LoggedIn -> (logout | hard refresh failure) -> LoggedOut
//
// It is the only component that mutates authentication state; everything
// else observes it through Snapshot or the change listener.
type Store struct {
	mu          sync.Mutex
	tokens      token.Store
	login       LoginFunc
	state       State
	isLoading   bool
	epoch       uint64
	lastVisited string
	onChange    []func(Snapshot)
	onLogout    []func(reason string)
	onLogin     []func(ctx context.Context)
	validate    *validator.Validate
	nowFunc     func() time.Time
	log         zerolog.Logger
}

type StoreOption func(*Store)

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// NewStore initialises the session store, deriving the initial state from
// any persisted, non-expired token pair.
func NewStore(tokens token.Store, login LoginFunc, log zerolog.Logger, options ...StoreOption) (*Store, error) {
	if tokens == nil {
		return nil, errors.New("[session.NewStore] token store is required")
	}
	if login == nil {
		return nil, errors.New("[session.NewStore] login func is required")
	}

	s := &Store{
		tokens:   tokens,
		login:    login,
		state:    StateLoggedOut,
		validate: validator.New(),
		nowFunc:  time.Now,
		log:      log.With().Str("component", "session.Store").Logger(),
	}
	for _, opt := range options {
		opt(s)
	}

	if pair := tokens.Get(); !pair.Empty() && !pair.Expired(s.nowFunc()) {
		s.state = StateLoggedIn
	}
	return s, nil
}

// Snapshot returns the current externally visible state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state, IsLoading: s.isLoading}
	if pair := s.tokens.Get(); pair.ExpiresAt != nil {
		expiresAt := *pair.ExpiresAt
		snap.ExpiresAt = &expiresAt
	}
	return snap
}

func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateLoggedIn
}

// Epoch identifies the current login generation. It advances on every login
// and logout; a refresh result captured under an older epoch is stale and
// must not be applied.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// OnChange registers a listener invoked after every state transition. The
// listener runs outside the store lock.
func (s *Store) OnChange(listener func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, listener)
}

// OnLogout registers a hook invoked whenever the session ends, with the
// logout reason. Used to clear the profile cache and stop the auto-refresher.
func (s *Store) OnLogout(hook func(reason string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, hook)
}

// OnLogin registers a hook invoked after a successful login. Used to trigger
// the one-time session profile fetch.
func (s *Store) OnLogin(hook func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogin = append(s.onLogin, hook)
}

// Login authenticates against the backend. IsLoading is true only for the
// duration of this explicit call, never during background refresh.
func (s *Store) Login(ctx context.Context, creds Credentials) error {
	if err := s.validate.Struct(creds); err != nil {
		return errors.Wrap(err, "[Store.Login] invalid credentials payload")
	}

	s.mu.Lock()
	s.isLoading = true
	s.mu.Unlock()
	s.notify()

	pair, err := s.login(ctx, creds)

	s.mu.Lock()
	s.isLoading = false
	if err != nil {
		s.mu.Unlock()
		s.notify()
		return errors.Wrap(err, "[Store.Login] login call")
	}

	if storeErr := s.tokens.Set(pair); storeErr != nil {
		s.mu.Unlock()
		s.notify()
		return errors.Wrap(storeErr, "[Store.Login] persist token pair")
	}
	s.state = StateLoggedIn
	s.epoch++
	loginHooks := append([]func(ctx context.Context){}, s.onLogin...)
	s.mu.Unlock()

	s.log.Info().Msg("session established")
	s.notify()
	for _, hook := range loginHooks {
		hook(ctx)
	}
	return nil
}

// Logout ends the session. Idempotent: logging out while already logged out
// is a no-op and never fails.
func (s *Store) Logout(reason string) {
	s.mu.Lock()
	if s.state == StateLoggedOut {
		s.mu.Unlock()
		return
	}
	s.state = StateLoggedOut
	s.epoch++
	if err := s.tokens.Clear(); err != nil {
		s.log.Warn().Err(err).Msg("clearing token store on logout")
	}
	logoutHooks := append([]func(reason string){}, s.onLogout...)
	s.mu.Unlock()

	s.log.Info().Str("reason", reason).Msg("session ended")
	s.notify()
	for _, hook := range logoutHooks {
		hook(reason)
	}
}

// CompleteRefresh applies a refresh result obtained under the given epoch.
// A logout (or re-login) that happened while the refresh was in flight wins:
// the stale pair is discarded so it cannot repopulate cleared credentials.
func (s *Store) CompleteRefresh(pair token.Pair, epoch uint64) error {
	s.mu.Lock()
	if s.state != StateLoggedIn || s.epoch != epoch {
		s.mu.Unlock()
		s.log.Debug().Msg("discarding refresh result for a stale session")
		return ErrStaleSession
	}
	if err := s.tokens.Set(pair); err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "[Store.CompleteRefresh] persist token pair")
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

// SetLastVisited records the destination the user was on when a forced
// logout interrupted them, for post-login redirect.
func (s *Store) SetLastVisited(destination string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastVisited = destination
}

// LastVisited returns and clears the recorded destination.
func (s *Store) LastVisited() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	destination := s.lastVisited
	s.lastVisited = ""
	return destination
}

func (s *Store) notify() {
	s.mu.Lock()
	listeners := append([]func(Snapshot){}, s.onChange...)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(snap)
	}
}
