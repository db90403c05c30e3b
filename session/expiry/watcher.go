// Package expiry watches the remaining session lifetime and drives the
// expiry warning: a countdown that offers the user a manual renewal before
// the session is forcibly ended.
package expiry

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/minuetaitor/minuet-go/session"
	"github.com/minuetaitor/minuet-go/token"
)

// Phase is the watcher's countdown state. PhaseForcedLogout is terminal for
// a countdown: once entered, the forced logout has fired exactly once and no
// further ticks occur until the watcher is started again after a new login.
type Phase string

const (
	PhaseHidden       Phase = "hidden"
	PhaseWarning      Phase = "warning"
	PhaseForcedLogout Phase = "forced_logout"
)

// Refresher is the slice of the refresh coordinator the watcher needs.
// InFlight lets the watcher hold the forced-logout floor while a renewal
// might still land.
type Refresher interface {
	RefreshNow(ctx context.Context) (token.Pair, error)
	InFlight() bool
}

// Notifier receives countdown events for display. Implementations must not
// block; they run on the watcher's timer goroutine.
type Notifier interface {
	// WarningShown fires once when the countdown becomes visible.
	WarningShown(remaining time.Duration)
	// Tick fires every poll while the warning is visible.
	Tick(remaining time.Duration)
	// WarningCleared fires when a renewal pushes expiry back past the
	// warning threshold.
	WarningCleared()
	// KeepAliveFailed fires when a manual renewal fails; the countdown
	// keeps running.
	KeepAliveFailed(err error)
	// ForcedLogout fires once when the hard floor ends the session.
	ForcedLogout()
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) WarningShown(time.Duration) {}
func (NopNotifier) Tick(time.Duration)         {}
func (NopNotifier) WarningCleared()            {}
func (NopNotifier) KeepAliveFailed(error)      {}
func (NopNotifier) ForcedLogout()              {}

// Options tune the countdown thresholds and poll cadence.
type Options struct {
	// WarnThreshold is the remaining lifetime at which the warning shows.
	WarnThreshold time.Duration
	// HardFloor is the remaining lifetime at which the session is forcibly
	// ended if the user has not acted.
	HardFloor time.Duration
	// HiddenPoll is the poll interval while no warning is visible.
	HiddenPoll time.Duration
	// WarningPoll is the poll interval while the countdown is visible.
	WarningPoll time.Duration
}

func (o *Options) applyDefaults() {
	if o.WarnThreshold <= 0 {
		o.WarnThreshold = 120 * time.Second
	}
	if o.HardFloor <= 0 {
		o.HardFloor = 10 * time.Second
	}
	if o.HiddenPoll <= 0 {
		o.HiddenPoll = 5 * time.Second
	}
	if o.WarningPoll <= 0 {
		o.WarningPoll = time.Second
	}
}

// Watcher polls the remaining time-to-expiry and walks the countdown state
// machine. It never schedules more than one timer at a time.
type Watcher struct {
	auth      *session.Store
	refresher Refresher
	notifier  Notifier
	opts      Options
	nowFunc   func() time.Time
	log       zerolog.Logger

	mu      sync.Mutex
	phase   Phase
	timer   *time.Timer
	running bool
	stopped bool
}

type WatcherOption func(*Watcher)

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) WatcherOption {
	return func(w *Watcher) {
		w.nowFunc = now
	}
}

func NewWatcher(auth *session.Store, refresher Refresher, notifier Notifier, opts Options, log zerolog.Logger, options ...WatcherOption) (*Watcher, error) {
	if auth == nil {
		return nil, errors.New("[expiry.NewWatcher] session store is required")
	}
	if refresher == nil {
		return nil, errors.New("[expiry.NewWatcher] refresher is required")
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}

	opts.applyDefaults()
	w := &Watcher{
		auth:      auth,
		refresher: refresher,
		notifier:  notifier,
		opts:      opts,
		phase:     PhaseHidden,
		nowFunc:   time.Now,
		log:       log.With().Str("component", "expiry.Watcher").Logger(),
	}
	for _, opt := range options {
		opt(w)
	}
	return w, nil
}

// Start begins polling and returns a disposer that clears the timer for
// good. Starting an already running watcher is a no-op; starting after the
// countdown ended (forced logout or authentication lost) begins a fresh
// countdown for the new session.
func (w *Watcher) Start() (stop func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.stopped && !w.running {
		w.running = true
		w.phase = PhaseHidden
		w.armLocked(w.opts.HiddenPoll)
	}
	return w.Stop
}

// Stop permanently clears the timer. Idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	w.haltLocked()
}

// Phase returns the current countdown state.
func (w *Watcher) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// KeepAlive manually renews the session from the warning dialog. On failure
// the countdown keeps running and the error is surfaced inline; the watcher
// does not auto-retry.
func (w *Watcher) KeepAlive(ctx context.Context) error {
	if _, err := w.refresher.RefreshNow(ctx); err != nil {
		w.notifier.KeepAliveFailed(err)
		return errors.Wrap(err, "[Watcher.KeepAlive] refresh")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.phase == PhaseWarning && w.remainingLocked() > w.opts.WarnThreshold {
		w.phase = PhaseHidden
		w.notifier.WarningCleared()
		w.armLocked(w.opts.HiddenPoll)
	}
	return nil
}

// LogoutNow ends the session from the warning dialog.
func (w *Watcher) LogoutNow() {
	w.auth.Logout("user_requested")
}

func (w *Watcher) armLocked(interval time.Duration) {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(interval, w.tick)
}

func (w *Watcher) haltLocked() {
	w.running = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) tick() {
	w.mu.Lock()
	if !w.running || w.stopped {
		w.mu.Unlock()
		return
	}

	// Authentication gone (logout from elsewhere): halt until restarted.
	if !w.auth.IsAuthenticated() {
		w.phase = PhaseHidden
		w.haltLocked()
		w.mu.Unlock()
		return
	}

	remaining := w.remainingLocked()
	forceLogout := false

	switch w.phase {
	case PhaseHidden:
		if remaining > 0 && remaining <= w.opts.WarnThreshold {
			w.phase = PhaseWarning
			w.notifier.WarningShown(remaining)
			w.armLocked(w.opts.WarningPoll)
			break
		}
		w.armLocked(w.opts.HiddenPoll)

	case PhaseWarning:
		if remaining > w.opts.WarnThreshold {
			w.phase = PhaseHidden
			w.notifier.WarningCleared()
			w.armLocked(w.opts.HiddenPoll)
			break
		}
		if remaining <= w.opts.HardFloor {
			if w.refresher.InFlight() {
				// A renewal might still land; hold the floor until it
				// settles rather than logging out under it.
				w.notifier.Tick(remaining)
				w.armLocked(w.opts.WarningPoll)
				break
			}
			w.phase = PhaseForcedLogout
			w.haltLocked()
			forceLogout = true
			break
		}
		w.notifier.Tick(remaining)
		w.armLocked(w.opts.WarningPoll)

	case PhaseForcedLogout:
		// Terminal; no rearm.
	}
	w.mu.Unlock()

	// Logout runs session hooks that may call back into the watcher, so it
	// must happen outside the lock.
	if forceLogout {
		w.log.Info().Msg("hard floor reached, forcing logout")
		w.notifier.ForcedLogout()
		w.auth.Logout("expired")
	}
}

// remainingLocked returns time until expiry. An unknown expiry reads as
// "plenty" so the countdown stays hidden; the next backend call will
// revalidate the token.
func (w *Watcher) remainingLocked() time.Duration {
	snap := w.auth.Snapshot()
	if snap.ExpiresAt == nil {
		return w.opts.WarnThreshold + time.Hour
	}
	return snap.ExpiresAt.Sub(w.nowFunc())
}
