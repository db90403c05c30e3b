package api

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/minuetaitor/minuet-go/apierrors"
	"github.com/minuetaitor/minuet-go/token"
)

type loginRequest struct {
	Credential string `json:"credential" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// tokenWire is the shape of both /auth/login and /auth/refresh responses.
// Exp mirrors the access token's embedded expiry claim (epoch seconds) and
// serves as a fallback when the claim cannot be decoded locally.
type tokenWire struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Exp          int64  `json:"exp"`
}

func (w tokenWire) pair(previousRefreshToken string) token.Pair {
	refreshToken := w.RefreshToken
	if refreshToken == "" {
		// The refresh endpoint may omit the refresh token when it is not
		// rotated; the one we hold stays valid.
		refreshToken = previousRefreshToken
	}

	pair := token.NewPair(w.AccessToken, refreshToken)
	if pair.ExpiresAt == nil && w.Exp > 0 {
		expiresAt := time.Unix(w.Exp, 0)
		pair.ExpiresAt = &expiresAt
	}
	return pair
}

// Login exchanges credentials for a token pair. A 401 means wrong
// credentials, not an expired session, so it is remapped before surfacing.
func (c *Client) Login(ctx context.Context, credential, password string) (token.Pair, error) {
	payload := loginRequest{Credential: credential, Password: password}
	if err := c.validate.Struct(payload); err != nil {
		return token.Pair{}, errors.Wrap(err, "[Client.Login] invalid payload")
	}

	var wire tokenWire
	if apiErr := c.doOnce(ctx, http.MethodPost, "/auth/login", nil, payload, &wire, ""); apiErr != nil {
		if apiErr.Status == http.StatusUnauthorized {
			return token.Pair{}, apierrors.New(apierrors.CodeInvalidCredentials, apiErr.Detail)
		}
		return token.Pair{}, apiErr
	}

	if c.debugAuth {
		c.log.Debug().Int64("exp", wire.Exp).Msg("login issued token pair")
	}
	return wire.pair(""), nil
}

// RefreshSession exchanges a refresh token for a new pair. This is the raw
// call the refresh coordinator serialises; it deliberately bypasses the
// interceptor so a failure here can never trigger another refresh.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (token.Pair, error) {
	payload := struct {
		RefreshToken string `json:"refreshToken"`
	}{RefreshToken: refreshToken}

	var wire tokenWire
	if apiErr := c.doOnce(ctx, http.MethodPost, "/auth/refresh", nil, payload, &wire, ""); apiErr != nil {
		return token.Pair{}, apiErr
	}

	if c.debugAuth {
		c.log.Debug().Int64("exp", wire.Exp).Msg("refresh issued token pair")
	}
	return wire.pair(refreshToken), nil
}

// Connection describes one device/browser session known to the backend.
type Connection struct {
	ID        string    `json:"id"`
	Device    string    `json:"device"`
	IP        string    `json:"ip"`
	StartedAt time.Time `json:"started_at"`
}

// MeResponse is the backend's "who am I" document.
type MeResponse struct {
	UserID           string       `json:"user_id"`
	Username         string       `json:"username"`
	FullName         string       `json:"full_name"`
	Email            string       `json:"email"`
	Roles            []string     `json:"roles"`
	Permissions      []string     `json:"permissions"`
	ActiveConnection *Connection  `json:"active_connection"`
	LastConnections  []Connection `json:"last_connections"`
}

// Me fetches the authenticated user's profile, going through the full
// interceptor (bearer attachment, refresh-and-retry).
func (c *Client) Me(ctx context.Context) (*MeResponse, error) {
	var me MeResponse
	if err := c.get(ctx, "/auth/me", nil, &me); err != nil {
		return nil, errors.Wrap(err, "[Client.Me] fetch")
	}
	return &me, nil
}
