package refresh_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/minuetaitor/minuet-go/apierrors"
	"github.com/minuetaitor/minuet-go/session"
	"github.com/minuetaitor/minuet-go/session/refresh"
	"github.com/minuetaitor/minuet-go/token"
	"github.com/minuetaitor/minuet-go/token/storefake"
)

type testFixture struct {
	tokens      *storefake.FakeStore
	auth        *session.Store
	coordinator *refresh.Coordinator

	refreshCalls atomic.Int64
	refreshErr   error
	release      chan struct{}
	started      chan struct{}
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		tokens:  storefake.NewFakeStore(),
		release: make(chan struct{}),
		started: make(chan struct{}, 64),
	}

	auth, err := session.NewStore(f.tokens, func(ctx context.Context, creds session.Credentials) (token.Pair, error) {
		return pairExpiring(time.Hour, "access-1"), nil
	}, zerolog.Nop())
	require.NoError(t, err)
	f.auth = auth

	coordinator, err := refresh.NewCoordinator(f.tokens, auth, f.refreshFunc, zerolog.Nop())
	require.NoError(t, err)
	f.coordinator = coordinator

	require.NoError(t, auth.Login(context.Background(), session.Credentials{
		Credential: "john.doe@example.com",
		Password:   "password123",
	}))
	return f
}

func (f *testFixture) refreshFunc(ctx context.Context, refreshToken string) (token.Pair, error) {
	f.refreshCalls.Add(1)
	f.started <- struct{}{}
	<-f.release
	if f.refreshErr != nil {
		return token.Pair{}, f.refreshErr
	}
	return pairExpiring(time.Hour, "access-renewed"), nil
}

func pairExpiring(in time.Duration, accessToken string) token.Pair {
	expiresAt := time.Now().Add(in)
	return token.Pair{AccessToken: accessToken, RefreshToken: "refresh-1", ExpiresAt: &expiresAt}
}

func TestRefreshNow_ConcurrentCallersShareOneCall(t *testing.T) {
	f := setupTestFixture(t)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]token.Pair, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.coordinator.RefreshNow(context.Background())
		}(i)
	}

	// Wait for the single network call to begin, then let it settle.
	<-f.started
	close(f.release)
	wg.Wait()

	require.EqualValues(t, 1, f.refreshCalls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "access-renewed", results[i].AccessToken)
	}
	require.Equal(t, "access-renewed", f.tokens.Get().AccessToken)
}

func TestRefreshNow_NewCallAfterSettlement(t *testing.T) {
	f := setupTestFixture(t)
	close(f.release)

	_, err := f.coordinator.RefreshNow(context.Background())
	require.NoError(t, err)
	_, err = f.coordinator.RefreshNow(context.Background())
	require.NoError(t, err)

	require.EqualValues(t, 2, f.refreshCalls.Load())
	require.False(t, f.coordinator.InFlight())
}

func TestRefreshNow_HardFailureLogsOutAndRejectsAllWaiters(t *testing.T) {
	f := setupTestFixture(t)
	f.refreshErr = apierrors.New(apierrors.CodeRefreshTokenInvalid, "refresh token revoked")

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.coordinator.RefreshNow(context.Background())
		}(i)
	}

	<-f.started
	close(f.release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.Error(t, errs[i])
		require.Equal(t, apierrors.CodeRefreshTokenInvalid, apierrors.CodeOf(errs[i]))
	}
	require.False(t, f.auth.IsAuthenticated())
	require.True(t, f.tokens.Get().Empty())
}

func TestRefreshNow_TransientFailureKeepsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.refreshErr = apierrors.New(apierrors.CodeNetworkError, "connection refused")
	close(f.release)

	_, err := f.coordinator.RefreshNow(context.Background())
	require.Error(t, err)
	require.Equal(t, apierrors.CodeNetworkError, apierrors.CodeOf(err))
	require.True(t, f.auth.IsAuthenticated())
	require.False(t, f.tokens.Get().Empty())
}

func TestRefreshNow_NoRefreshTokenHeld(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.tokens.Set(token.Pair{AccessToken: "access-only"}))

	_, err := f.coordinator.RefreshNow(context.Background())
	require.Equal(t, apierrors.CodeTokenMissing, apierrors.CodeOf(err))
	require.EqualValues(t, 0, f.refreshCalls.Load())
}

func TestRefreshNow_LogoutDuringRefreshWins(t *testing.T) {
	f := setupTestFixture(t)

	done := make(chan error, 1)
	go func() {
		_, err := f.coordinator.RefreshNow(context.Background())
		done <- err
	}()

	<-f.started
	f.auth.Logout("user_requested")
	close(f.release)

	err := <-done
	require.ErrorIs(t, err, session.ErrStaleSession)
	require.True(t, f.tokens.Get().Empty())
	require.False(t, f.auth.IsAuthenticated())
}

func TestRefreshNow_CancelledCallerDoesNotFailOthers(t *testing.T) {
	f := setupTestFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := f.coordinator.RefreshNow(ctx)
		cancelled <- err
	}()
	<-f.started
	cancel()
	require.ErrorIs(t, <-cancelled, context.Canceled)

	// The shared refresh still completes and applies.
	close(f.release)
	require.Eventually(t, func() bool {
		return f.tokens.Get().AccessToken == "access-renewed"
	}, time.Second, 10*time.Millisecond)
}
