package authz

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/blogd/internal/clock"
	"github.com/dmitrijs2005/blogd/internal/common"
)

type TokenVerifier interface {
	Verify(token string, now time.Time) (int64, error)
}

type RateLimiter interface {
	Allow(key string, now time.Time) bool
}

// Gate is the single admission path for every request on every transport.
type Gate struct {
	tokens  TokenVerifier
	limiter RateLimiter
	clock   clock.Clock
}

func NewGate(tokens TokenVerifier, limiter RateLimiter, clk clock.Clock) *Gate {
	return &Gate{tokens: tokens, limiter: limiter, clock: clk}
}

// Admit decides whether a request for op may reach the domain service.
//
// credential is the raw authorization value ("Bearer <token>") or empty;
// origin identifies the peer when there is no identity. A protected operation
// fails with ErrorUnauthorized before the limiter is consulted. A public
// operation ignores an unusable credential. The returned context carries the
// identity when one was established.
func (g *Gate) Admit(ctx context.Context, op Operation, credential, origin string) (context.Context, error) {
	now := g.clock.Now()

	id, err := g.authenticate(credential, now)
	if err != nil && op.RequiresAuth() {
		return ctx, err
	}

	key := "ip:" + origin
	if err == nil {
		key = "user:" + strconv.FormatInt(id.UserID, 10)
		ctx = WithIdentity(ctx, id)
	}

	if !g.limiter.Allow(key, now) {
		return ctx, common.ErrorRateLimited
	}

	return ctx, nil
}

func (g *Gate) authenticate(credential string, now time.Time) (Identity, error) {
	if credential == "" {
		return Identity{}, fmt.Errorf("%w: missing credential", common.ErrorUnauthorized)
	}

	token, ok := ExtractBearer(credential)
	if !ok {
		return Identity{}, fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrInvalidToken)
	}

	userID, err := g.tokens.Verify(token, now)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}

	return Identity{UserID: userID}, nil
}
