// Package api is the single point through which all MinuetAItor backend
// calls flow. Every request gets the bearer credential and a correlation ID
// attached; authentication failures are funneled through the refresh
// coordinator with a single retry.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/minuetaitor/minuet-go/apierrors"
	"github.com/minuetaitor/minuet-go/internal/config"
	"github.com/minuetaitor/minuet-go/token"
)

// Refresher is the slice of the refresh coordinator the client needs.
type Refresher interface {
	RefreshNow(ctx context.Context) (token.Pair, error)
}

// Client calls the backend REST API. Construct with NewClient, then wire the
// refresher and logout handler before issuing authenticated calls; both are
// settable after construction because the coordinator is itself built around
// this client's raw refresh call.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	tokens       token.Store
	refresher    Refresher
	onHardLogout func(reason string)
	validate     *validator.Validate
	debugAuth    bool
	log          zerolog.Logger
}

type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client (primarily for testing
// against httptest servers with custom transports).
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(cfg config.Config, tokens token.Store, log zerolog.Logger, options ...ClientOption) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("[api.NewClient] token store is required")
	}

	c := &Client{
		baseURL:    cfg.GetAPIBaseURL(),
		httpClient: &http.Client{Timeout: cfg.GetRequestTimeout()},
		tokens:     tokens,
		validate:   validator.New(),
		debugAuth:  cfg.AuthDebugEnabled(),
		log:        log.With().Str("component", "api.Client").Logger(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// SetRefresher wires the refresh coordinator. Until set, authentication
// failures are surfaced without a refresh attempt.
func (c *Client) SetRefresher(refresher Refresher) {
	c.refresher = refresher
}

// SetLogoutHandler wires the session logout path invoked on hard
// authentication failures.
func (c *Client) SetLogoutHandler(handler func(reason string)) {
	c.onHardLogout = handler
}

// do issues an authenticated JSON request. On an access-token-expired
// response it refreshes through the coordinator and retries the original
// request exactly once; a second authentication failure is surfaced as-is.
// Hard-logout codes end the session immediately and propagate.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	apiErr := c.doOnce(ctx, method, path, query, body, out, c.tokens.Get().AccessToken)
	if apiErr == nil {
		return nil
	}

	code := apiErr.Code

	// TOKEN_EXPIRED from a resource endpoint is recoverable: the refresh
	// token may still buy a new access token. The same code from the
	// refresh endpoint itself is hard; the coordinator handles that side.
	if code == apierrors.CodeTokenExpired && c.refresher != nil && c.tokens.Get().RefreshToken != "" {
		if c.debugAuth {
			c.log.Debug().Str("path", path).Msg("access token rejected, refreshing and retrying once")
		}
		pair, refreshErr := c.refresher.RefreshNow(ctx)
		if refreshErr != nil {
			return errors.Wrap(refreshErr, "[Client.do] refresh before retry")
		}
		if retryErr := c.doOnce(ctx, method, path, query, body, out, pair.AccessToken); retryErr != nil {
			// A hard code on the retried response still ends the session.
			// TOKEN_EXPIRED is excluded: the retry already consumed the one
			// refresh this request gets, so it surfaces as-is.
			if retryErr.Code != apierrors.CodeTokenExpired {
				c.hardLogoutCheck(retryErr.Code, path)
			}
			return retryErr
		}
		return nil
	}

	c.hardLogoutCheck(code, path)
	return apiErr
}

// hardLogoutCheck ends the session on codes no refresh can recover.
func (c *Client) hardLogoutCheck(code apierrors.Code, path string) {
	if !apierrors.IsHardLogout(code) {
		return
	}
	c.log.Warn().Str("code", string(code)).Str("path", path).Msg("irrecoverable auth failure")
	if c.onHardLogout != nil {
		c.onHardLogout(string(code))
	}
}

// doOnce performs a single round trip with the given access token.
func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, body, out any, accessToken string) *apierrors.Error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return apierrors.New(apierrors.CodeUnknown, fmt.Sprintf("encode request body: %v", err))
		}
		reqBody = bytes.NewReader(encoded)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return apierrors.New(apierrors.CodeUnknown, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierrors.FromTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apierrors.FromResponse(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apierrors.New(apierrors.CodeUnknown, fmt.Sprintf("decode response body: %v", err))
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}
