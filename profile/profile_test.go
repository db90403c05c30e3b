package profile_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/minuetaitor/minuet-go/api"
	"github.com/minuetaitor/minuet-go/profile"
)

type fakeFetcher struct {
	calls   atomic.Int64
	started chan struct{}
	release chan struct{}
	me      *api.MeResponse
	err     error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		started: make(chan struct{}, 16),
		me: &api.MeResponse{
			UserID:      "user-1",
			Username:    "ada",
			FullName:    "Ada Lovelace",
			Email:       "ada@example.com",
			Roles:       []string{"admin"},
			Permissions: []string{"minutes:write"},
			ActiveConnection: &api.Connection{
				ID: "conn-1", Device: "Firefox on Linux", IP: "203.0.113.7",
			},
		},
	}
}

func (f *fakeFetcher) Me(ctx context.Context) (*api.MeResponse, error) {
	f.calls.Add(1)
	f.started <- struct{}{}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.me, nil
}

func TestLoadFromAPI_CachesProfile(t *testing.T) {
	fetcher := newFakeFetcher()
	store, err := profile.NewStore(fetcher, 5*time.Minute, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, store.LoadFromAPI(context.Background(), false))

	got := store.Current()
	require.Equal(t, "user-1", got.User.ID)
	require.Equal(t, "ada", got.User.Username)
	require.Equal(t, []string{"admin"}, got.Authz.Roles)
	require.Equal(t, []string{"minutes:write"}, got.Authz.Permissions)
	require.NotNil(t, got.Connections.Active)
	require.Equal(t, "conn-1", got.Connections.Active.ID)
	require.False(t, got.Meta.FetchedAt.IsZero())
}

func TestLoadFromAPI_TTLWindowSkipsRefetch(t *testing.T) {
	now := time.Now()
	fetcher := newFakeFetcher()
	store, err := profile.NewStore(fetcher, 5*time.Minute, zerolog.Nop(),
		profile.WithNowFunc(func() time.Time { return now }))
	require.NoError(t, err)

	require.NoError(t, store.LoadFromAPI(context.Background(), false))
	require.NoError(t, store.LoadFromAPI(context.Background(), false))
	require.EqualValues(t, 1, fetcher.calls.Load())

	// Past the TTL the next load goes to the backend again.
	now = now.Add(6 * time.Minute)
	require.NoError(t, store.LoadFromAPI(context.Background(), false))
	require.EqualValues(t, 2, fetcher.calls.Load())
}

func TestLoadFromAPI_ForceRefreshBypassesTTL(t *testing.T) {
	fetcher := newFakeFetcher()
	store, err := profile.NewStore(fetcher, 5*time.Minute, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, store.LoadFromAPI(context.Background(), false))
	require.NoError(t, store.LoadFromAPI(context.Background(), true))
	require.EqualValues(t, 2, fetcher.calls.Load())
}

func TestLoadFromAPI_InFlightLoadDeduplicates(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.release = make(chan struct{})
	store, err := profile.NewStore(fetcher, 5*time.Minute, zerolog.Nop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(t, store.LoadFromAPI(context.Background(), false))
	}()
	<-fetcher.started

	// While the first load is in flight, further calls are no-ops, even
	// forced ones.
	require.NoError(t, store.LoadFromAPI(context.Background(), false))
	require.NoError(t, store.LoadFromAPI(context.Background(), true))

	close(fetcher.release)
	wg.Wait()
	require.EqualValues(t, 1, fetcher.calls.Load())
}

func TestLoadFromAPI_FailedReloadKeepsStaleData(t *testing.T) {
	fetcher := newFakeFetcher()
	store, err := profile.NewStore(fetcher, 5*time.Minute, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, store.LoadFromAPI(context.Background(), false))

	fetcher.err = errors.New("profile endpoint unavailable")
	require.Error(t, store.LoadFromAPI(context.Background(), true))

	// Stale data beats an empty profile; the failure is surfaced separately.
	got := store.Current()
	require.Equal(t, "ada", got.User.Username)
	require.Error(t, store.LoadError())

	// A later successful reload clears the recorded failure.
	fetcher.err = nil
	require.NoError(t, store.LoadFromAPI(context.Background(), true))
	require.NoError(t, store.LoadError())
}

func TestClearSession_ResetsProfile(t *testing.T) {
	fetcher := newFakeFetcher()
	store, err := profile.NewStore(fetcher, 5*time.Minute, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, store.LoadFromAPI(context.Background(), false))
	require.Equal(t, "ada", store.Current().User.Username)

	store.ClearSession()
	require.Equal(t, profile.Profile{}, store.Current())
	require.NoError(t, store.LoadError())

	// The next login loads fresh data.
	require.NoError(t, store.LoadFromAPI(context.Background(), false))
	require.Equal(t, "ada", store.Current().User.Username)
	require.EqualValues(t, 2, fetcher.calls.Load())
}
