// Package autorefresh schedules silent token renewal ahead of expiry so an
// active session never runs into its own expiration.
package autorefresh

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/minuetaitor/minuet-go/token"
)

// Refresher is the slice of the refresh coordinator the scheduler needs.
type Refresher interface {
	RefreshNow(ctx context.Context) (token.Pair, error)
}

// Options tune when the proactive refresh fires relative to token expiry.
type Options struct {
	// LeadPercent is the fraction of the token TTL reserved before expiry.
	LeadPercent float64
	// MinLead is the floor on that reservation for short-lived tokens.
	MinLead time.Duration
	// Skew absorbs client/backend clock drift.
	Skew time.Duration
	// WakeDebounce collapses bursts of Wake calls into one rescheduling.
	WakeDebounce time.Duration
	// RetryInterval floors the rearm delay after a failed silent refresh,
	// so an already-due token cannot drive a hot retry loop.
	RetryInterval time.Duration
}

func (o *Options) applyDefaults() {
	if o.LeadPercent <= 0 {
		o.LeadPercent = 0.1
	}
	if o.MinLead <= 0 {
		o.MinLead = 30 * time.Second
	}
	if o.Skew < 0 {
		o.Skew = 0
	}
	if o.WakeDebounce <= 0 {
		o.WakeDebounce = 2 * time.Second
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 30 * time.Second
	}
}

// Lead returns the time reserved ahead of expiry for a token with the given
// TTL: max(MinLead, ceil(ttl*LeadPercent)) + Skew.
func (o Options) Lead(ttl time.Duration) time.Duration {
	lead := time.Duration(math.Ceil(ttl.Seconds()*o.LeadPercent)) * time.Second
	if lead < o.MinLead {
		lead = o.MinLead
	}
	return lead + o.Skew
}

// Delay returns how long to wait before proactively refreshing the pair.
// ok is false when nothing can be scheduled (no refresh token, or expiry
// unknown so there is no point to aim ahead of).
func (o Options) Delay(pair token.Pair, now time.Time) (delay time.Duration, ok bool) {
	if pair.RefreshToken == "" || pair.ExpiresAt == nil {
		return 0, false
	}
	ttl := pair.ExpiresAt.Sub(now)
	delay = pair.ExpiresAt.Add(-o.Lead(ttl)).Sub(now)
	if delay < 0 {
		delay = 0
	}
	return delay, true
}

// Scheduler keeps a single timer aimed ahead of the current token's expiry.
// After every fire it reschedules from whatever token is then current, so it
// self-heals across refresh cycles whether or not the refresh succeeded.
type Scheduler struct {
	tokens    token.Store
	refresher Refresher
	opts      Options
	nowFunc   func() time.Time
	log       zerolog.Logger

	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
	lastWake time.Time
}

type SchedulerOption func(*Scheduler)

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.nowFunc = now
	}
}

func NewScheduler(tokens token.Store, refresher Refresher, opts Options, log zerolog.Logger, options ...SchedulerOption) (*Scheduler, error) {
	if tokens == nil {
		return nil, errors.New("[autorefresh.NewScheduler] token store is required")
	}
	if refresher == nil {
		return nil, errors.New("[autorefresh.NewScheduler] refresher is required")
	}

	opts.applyDefaults()
	s := &Scheduler{
		tokens:    tokens,
		refresher: refresher,
		opts:      opts,
		nowFunc:   time.Now,
		log:       log.With().Str("component", "autorefresh.Scheduler").Logger(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Start arms the scheduler and returns a disposer that clears the timer.
// Callers must invoke the disposer on teardown to avoid leaked timers across
// repeated mounts.
func (s *Scheduler) Start() (stop func()) {
	s.Reschedule()
	return s.Stop
}

// Reschedule recomputes the timer from the current token. Safe to call at
// any time; with no refresh token (or after Stop) it clears any armed timer
// and does nothing else.
func (s *Scheduler) Reschedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rescheduleLocked(0)
}

func (s *Scheduler) rescheduleLocked(floor time.Duration) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.stopped {
		return
	}

	delay, ok := s.opts.Delay(s.tokens.Get(), s.nowFunc())
	if !ok {
		s.log.Debug().Msg("nothing schedulable, auto-refresh idle")
		return
	}

	if delay < floor {
		delay = floor
	}

	s.log.Debug().Dur("delay", delay).Msg("silent refresh scheduled")
	s.timer = time.AfterFunc(delay, s.fire)
}

// Wake re-evaluates scheduling immediately, debounced. Call it on the
// focus/visibility/online analogues of the host application: a suspended
// process may have slept through its timer.
func (s *Scheduler) Wake() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	if now.Sub(s.lastWake) < s.opts.WakeDebounce {
		return
	}
	s.lastWake = now
	s.rescheduleLocked(0)
}

// Stop clears the timer permanently. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.refresher.RefreshNow(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("silent refresh failed")
	}

	// Always rearm from the (possibly new) token: a success aims at the new
	// expiry, a failure gets another attempt before the old one.
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.rescheduleLocked(s.opts.RetryInterval)
		return
	}
	s.rescheduleLocked(0)
}
