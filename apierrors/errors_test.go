package apierrors_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/minuetaitor/minuet-go/apierrors"
)

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestFromResponse_KnownCodePassesThrough(t *testing.T) {
	resp := response(http.StatusUnauthorized, `{"error": {"code": "TOKEN_BLACKLISTED", "message": "token revoked"}}`)

	apiErr := apierrors.FromResponse(resp)
	require.Equal(t, apierrors.CodeTokenBlacklisted, apiErr.Code)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "token revoked", apiErr.Detail)
}

func TestFromResponse_UnknownCodeFallsBackToStatus(t *testing.T) {
	resp := response(http.StatusForbidden, `{"error": {"code": "SOMETHING_NEW", "message": "nope"}}`)

	apiErr := apierrors.FromResponse(resp)
	require.Equal(t, apierrors.CodeInsufficientPermissions, apiErr.Code)
	require.Equal(t, "nope", apiErr.Detail)
}

func TestFromResponse_DetailEnvelope(t *testing.T) {
	resp := response(http.StatusUnprocessableEntity, `{"detail": "title is required"}`)

	apiErr := apierrors.FromResponse(resp)
	require.Equal(t, apierrors.CodeValidationError, apiErr.Code)
	require.Equal(t, "title is required", apiErr.Detail)
}

func TestFromResponse_StatusMapping(t *testing.T) {
	cases := map[int]apierrors.Code{
		http.StatusUnauthorized:        apierrors.CodeTokenExpired,
		http.StatusForbidden:           apierrors.CodeInsufficientPermissions,
		http.StatusBadRequest:          apierrors.CodeValidationError,
		http.StatusTooManyRequests:     apierrors.CodeRateLimited,
		http.StatusBadGateway:          apierrors.CodeServiceUnavailable,
		http.StatusServiceUnavailable:  apierrors.CodeServiceUnavailable,
		http.StatusGatewayTimeout:      apierrors.CodeServiceUnavailable,
		http.StatusInternalServerError: apierrors.CodeUnknown,
	}
	for status, want := range cases {
		apiErr := apierrors.FromResponse(response(status, "not even json"))
		require.Equal(t, want, apiErr.Code, "status %d", status)
	}
}

func TestFromTransport_Classification(t *testing.T) {
	apiErr := apierrors.FromTransport(errors.New("connection refused"))
	require.Equal(t, apierrors.CodeNetworkError, apiErr.Code)

	apiErr = apierrors.FromTransport(errors.Wrap(context.DeadlineExceeded, "round trip"))
	require.Equal(t, apierrors.CodeTimeoutError, apiErr.Code)
}

func TestCodeOf_WalksWrappedChains(t *testing.T) {
	inner := apierrors.New(apierrors.CodeRefreshTokenInvalid, "refresh token revoked")
	wrapped := errors.Wrap(inner, "[Coordinator.run] refresh call")

	require.Equal(t, apierrors.CodeRefreshTokenInvalid, apierrors.CodeOf(wrapped))
	require.Equal(t, apierrors.CodeUnknown, apierrors.CodeOf(errors.New("unclassified")))
}

func TestHardLogoutSet(t *testing.T) {
	for _, code := range []apierrors.Code{
		apierrors.CodeTokenExpired,
		apierrors.CodeTokenBlacklisted,
		apierrors.CodeTokenMissing,
		apierrors.CodeRefreshTokenInvalid,
		apierrors.CodeUserInactive,
	} {
		require.True(t, apierrors.IsHardLogout(code), string(code))
		require.False(t, apierrors.IsRetryable(code), string(code))
	}

	require.False(t, apierrors.IsHardLogout(apierrors.CodeInvalidCredentials))
	require.False(t, apierrors.IsHardLogout(apierrors.CodeServiceUnavailable))
}

func TestRetryableSet(t *testing.T) {
	for _, code := range []apierrors.Code{
		apierrors.CodeServiceUnavailable,
		apierrors.CodeDatabaseError,
		apierrors.CodeNetworkError,
		apierrors.CodeTimeoutError,
	} {
		require.True(t, apierrors.IsRetryable(code), string(code))
	}
	require.False(t, apierrors.IsRetryable(apierrors.CodeValidationError))
}

func TestDescribe_FallsBackToUnknown(t *testing.T) {
	d := apierrors.Describe(apierrors.CodeRefreshTokenInvalid)
	require.Equal(t, "Session expired", d.Title)
	require.NotEmpty(t, d.Action)

	d = apierrors.Describe(apierrors.Code("NEVER_HEARD_OF_IT"))
	require.Equal(t, apierrors.CodeUnknown, d.Code)
}
