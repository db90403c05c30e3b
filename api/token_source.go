package api

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/minuetaitor/minuet-go/token"
)

// earlyExpiry treats a token this close to expiry as already stale, matching
// oauth2's own expiry delta.
const earlyExpiry = 10 * time.Second

// sessionTokenSource adapts the managed session to oauth2.TokenSource so
// third-party libraries ride the same refresh coordination instead of
// issuing their own refresh calls.
type sessionTokenSource struct {
	ctx       context.Context
	tokens    token.Store
	refresher Refresher
	nowFunc   func() time.Time
}

// TokenSource exposes the session as an oauth2.TokenSource. The context
// bounds any refresh the source has to perform.
func (c *Client) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &sessionTokenSource{
		ctx:       ctx,
		tokens:    c.tokens,
		refresher: c.refresher,
		nowFunc:   time.Now,
	}
}

func (ts *sessionTokenSource) Token() (*oauth2.Token, error) {
	pair := ts.tokens.Get()
	if pair.Empty() {
		return nil, errors.New("[sessionTokenSource.Token] no session held")
	}

	if ttl, ok := pair.TTL(ts.nowFunc()); ok && ttl <= earlyExpiry && ts.refresher != nil {
		renewed, err := ts.refresher.RefreshNow(ts.ctx)
		if err != nil {
			return nil, errors.Wrap(err, "[sessionTokenSource.Token] refresh")
		}
		pair = renewed
	}

	tok := &oauth2.Token{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
	}
	if pair.ExpiresAt != nil {
		tok.Expiry = *pair.ExpiresAt
	}
	return tok, nil
}
