// Package minuet is the Go client SDK for the MinuetAItor backend. It owns
// the session lifecycle: login, persisted credentials, silent token refresh,
// expiry warnings, and the authenticated API surface for clients, projects,
// minutes, tags, and teams.
package minuet

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/minuetaitor/minuet-go/api"
	"github.com/minuetaitor/minuet-go/internal/config"
	"github.com/minuetaitor/minuet-go/prefs"
	"github.com/minuetaitor/minuet-go/profile"
	"github.com/minuetaitor/minuet-go/session"
	"github.com/minuetaitor/minuet-go/session/autorefresh"
	"github.com/minuetaitor/minuet-go/session/expiry"
	"github.com/minuetaitor/minuet-go/session/refresh"
	"github.com/minuetaitor/minuet-go/token"
)

// Session is the constructed session context: every component the SDK runs
// on, wired once and passed around explicitly instead of living in
// package-level singletons.
type Session struct {
	Config      config.Config
	Tokens      token.Store
	Auth        *session.Store
	Refresher   *refresh.Coordinator
	AutoRefresh *autorefresh.Scheduler
	Expiry      *expiry.Watcher
	Profile     *profile.Store
	Prefs       *prefs.Store
	API         *api.Client

	log zerolog.Logger
}

type Option func(*builder)

type builder struct {
	tokens   token.Store
	notifier expiry.Notifier
	logger   *zerolog.Logger
}

// WithTokenStore replaces the default encrypted file store (primarily for
// testing, or for hosts with their own secret storage).
func WithTokenStore(tokens token.Store) Option {
	return func(b *builder) {
		b.tokens = tokens
	}
}

// WithExpiryNotifier wires the UI collaborator that renders the countdown.
func WithExpiryNotifier(notifier expiry.Notifier) Option {
	return func(b *builder) {
		b.notifier = notifier
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(b *builder) {
		b.logger = &logger
	}
}

// New builds a fully wired session context from the environment
// configuration.
func New(options ...Option) (*Session, error) {
	var b builder
	for _, opt := range options {
		opt(&b)
	}

	cfg := config.New()

	var log zerolog.Logger
	if b.logger != nil {
		log = *b.logger
	} else {
		level := zerolog.InfoLevel
		if cfg.AuthDebugEnabled() {
			level = zerolog.DebugLevel
		}
		log = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}

	tokens := b.tokens
	if tokens == nil {
		fileStore, err := token.NewFileStore(cfg.GetDataFolder(), log)
		if err != nil {
			return nil, errors.Wrap(err, "[minuet.New] token store")
		}
		tokens = fileStore
	}

	client, err := api.NewClient(cfg, tokens, log)
	if err != nil {
		return nil, errors.Wrap(err, "[minuet.New] api client")
	}

	auth, err := session.NewStore(tokens, func(ctx context.Context, creds session.Credentials) (token.Pair, error) {
		return client.Login(ctx, creds.Credential, creds.Password)
	}, log)
	if err != nil {
		return nil, errors.Wrap(err, "[minuet.New] session store")
	}

	coordinator, err := refresh.NewCoordinator(tokens, auth, client.RefreshSession, log,
		refresh.WithTimeout(cfg.GetRequestTimeout()))
	if err != nil {
		return nil, errors.Wrap(err, "[minuet.New] refresh coordinator")
	}
	client.SetRefresher(coordinator)
	client.SetLogoutHandler(auth.Logout)

	profileStore, err := profile.NewStore(client, cfg.GetProfileCacheTTL(), log)
	if err != nil {
		return nil, errors.Wrap(err, "[minuet.New] profile store")
	}

	prefsStore, err := prefs.NewStore(cfg.GetDataFolder(), log)
	if err != nil {
		return nil, errors.Wrap(err, "[minuet.New] preferences store")
	}

	scheduler, err := autorefresh.NewScheduler(tokens, coordinator, autorefresh.Options{
		LeadPercent: cfg.GetRefreshLeadPercent(),
		MinLead:     cfg.GetRefreshMinLead(),
		Skew:        cfg.GetRefreshSkew(),
	}, log)
	if err != nil {
		return nil, errors.Wrap(err, "[minuet.New] auto-refresh scheduler")
	}

	watcher, err := expiry.NewWatcher(auth, coordinator, b.notifier, expiry.Options{
		WarnThreshold: cfg.GetWarnThreshold(),
		HardFloor:     cfg.GetHardFloor(),
		HiddenPoll:    cfg.GetHiddenPollInterval(),
		WarningPoll:   cfg.GetWarningPollInterval(),
	}, log)
	if err != nil {
		return nil, errors.Wrap(err, "[minuet.New] expiry watcher")
	}

	auth.OnLogin(func(ctx context.Context) {
		if err := profileStore.LoadFromAPI(ctx, false); err != nil {
			log.Warn().Err(err).Msg("post-login profile fetch failed")
		}
		scheduler.Reschedule()
		watcher.Start()
	})
	auth.OnLogout(func(reason string) {
		profileStore.ClearSession()
		scheduler.Reschedule()
	})

	return &Session{
		Config:      cfg,
		Tokens:      tokens,
		Auth:        auth,
		Refresher:   coordinator,
		AutoRefresh: scheduler,
		Expiry:      watcher,
		Profile:     profileStore,
		Prefs:       prefsStore,
		API:         client,
		log:         log,
	}, nil
}

// Start arms the background machinery for an already-authenticated session
// (for example, one restored from disk). Safe to call when logged out; the
// components idle until a login arms them again through the session hooks.
func (s *Session) Start() {
	s.AutoRefresh.Reschedule()
	if s.Auth.IsAuthenticated() {
		s.Expiry.Start()
	}
}

// Close tears down timers and listeners. The session itself (tokens on
// disk) survives for the next process.
func (s *Session) Close() {
	s.AutoRefresh.Stop()
	s.Expiry.Stop()
}

// Login authenticates and arms the background machinery via the session
// hooks.
func (s *Session) Login(ctx context.Context, credential, password string) error {
	return s.Auth.Login(ctx, session.Credentials{Credential: credential, Password: password})
}

// Logout ends the session and stands the background machinery down.
func (s *Session) Logout(reason string) {
	s.Auth.Logout(reason)
}
