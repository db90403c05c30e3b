// Package refresh serialises token refresh so that at most one refresh call
// exists system-wide, no matter how many callers need one at once.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/minuetaitor/minuet-go/apierrors"
	"github.com/minuetaitor/minuet-go/session"
	"github.com/minuetaitor/minuet-go/token"
)

// RefreshFunc performs the raw backend refresh call. It must not route
// through the interceptor layer (a 401 on the refresh endpoint cannot
// trigger another refresh). Implemented as a function type to avoid an
// import cycle between this package and the API client.
type RefreshFunc func(ctx context.Context, refreshToken string) (token.Pair, error)

// inflight is the shared result of one refresh call. Waiters block on done;
// pair and err are immutable once done is closed.
type inflight struct {
	done chan struct{}
	pair token.Pair
	err  error
}

// Coordinator guarantees a single in-flight refresh. Callers that arrive
// while one is pending share its eventual result instead of issuing a
// duplicate call.
type Coordinator struct {
	tokens  token.Store
	auth    *session.Store
	refresh RefreshFunc
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	pending *inflight
}

type CoordinatorOption func(*Coordinator)

// WithTimeout bounds the background refresh call itself, independently of
// any one waiter's context.
func WithTimeout(timeout time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.timeout = timeout
	}
}

func NewCoordinator(tokens token.Store, auth *session.Store, refresh RefreshFunc, log zerolog.Logger, options ...CoordinatorOption) (*Coordinator, error) {
	if tokens == nil {
		return nil, errors.New("[refresh.NewCoordinator] token store is required")
	}
	if auth == nil {
		return nil, errors.New("[refresh.NewCoordinator] session store is required")
	}
	if refresh == nil {
		return nil, errors.New("[refresh.NewCoordinator] refresh func is required")
	}

	c := &Coordinator{
		tokens:  tokens,
		auth:    auth,
		refresh: refresh,
		timeout: 30 * time.Second,
		log:     log.With().Str("component", "refresh.Coordinator").Logger(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// RefreshNow obtains a fresh token pair, joining any refresh already in
// flight. The refresh itself runs on a detached context so one caller
// cancelling does not fail the other waiters; a cancelled caller stops
// waiting but the refresh completes and is applied.
func (c *Coordinator) RefreshNow(ctx context.Context) (token.Pair, error) {
	c.mu.Lock()
	if call := c.pending; call != nil {
		c.mu.Unlock()
		return c.wait(ctx, call)
	}

	refreshToken := c.tokens.Get().RefreshToken
	if refreshToken == "" {
		c.mu.Unlock()
		return token.Pair{}, apierrors.New(apierrors.CodeTokenMissing, "no refresh token held")
	}

	call := &inflight{done: make(chan struct{})}
	c.pending = call
	epoch := c.auth.Epoch()
	c.mu.Unlock()

	go c.run(call, refreshToken, epoch)
	return c.wait(ctx, call)
}

// InFlight reports whether a refresh is currently pending. The expiry
// watcher uses this to hold off a floor-triggered forced logout while a
// renewal might still land.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

func (c *Coordinator) wait(ctx context.Context, call *inflight) (token.Pair, error) {
	select {
	case <-call.done:
		return call.pair, call.err
	case <-ctx.Done():
		return token.Pair{}, errors.Wrap(ctx.Err(), "[Coordinator.RefreshNow] caller abandoned refresh wait")
	}
}

func (c *Coordinator) run(call *inflight, refreshToken string, epoch uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	pair, err := c.refresh(ctx, refreshToken)
	if err == nil {
		if applyErr := c.auth.CompleteRefresh(pair, epoch); applyErr != nil {
			// Logout won the race, or persistence failed. Waiters must
			// reject, not receive a pair the session no longer holds.
			pair, err = token.Pair{}, applyErr
		}
	}

	if err != nil {
		code := apierrors.CodeOf(err)
		if apierrors.IsHardLogout(code) {
			c.log.Warn().Str("code", string(code)).Msg("refresh failed irrecoverably, ending session")
			c.auth.Logout("refresh_failed")
		} else if !errors.Is(err, session.ErrStaleSession) {
			c.log.Debug().Str("code", string(code)).Msg("refresh failed transiently")
		}
	} else {
		c.log.Debug().Msg("token pair renewed")
	}

	// Clear pending before releasing waiters so a caller that arrives after
	// settlement starts a new refresh instead of reading a settled one.
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()

	call.pair, call.err = pair, err
	close(call.done)
}
