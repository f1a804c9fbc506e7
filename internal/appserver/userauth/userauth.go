// Package userauth implements the User-Auth Guard component (spec.md §4.10):
// decode+verify the session cookie, confirm the user exists, and attach
// claims to the request context, grounded on the original app server's
// middleware/user_auth.rs.
package userauth

import (
	"context"
	"errors"

	"github.com/sindrigils/chatroom/internal/appserver/apierrors"
	"github.com/sindrigils/chatroom/internal/appserver/persistence"
	"github.com/sindrigils/chatroom/internal/appserver/types"
	"github.com/gin-gonic/gin"
)

// ContextKeyClaims is the gin context key the verified claims are stashed under.
const ContextKeyClaims = "claims"

// Guard returns middleware that verifies the session cookie and attaches claims.
func Guard(tokens types.TokenService, persistenceSvc types.PersistenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Request.Cookie("session")
		if err != nil || cookie.Value == "" {
			unauthorized(c)
			return
		}

		claims, err := tokens.Verify(cookie.Value)
		if err != nil {
			unauthorized(c)
			return
		}

		if _, err := persistenceSvc.UserByID(c.Request.Context(), claims.Sub); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				unauthorized(c)
				return
			}
			apiErr := apierrors.New(apierrors.KindInternalServer, err)
			c.AbortWithStatusJSON(apierrors.Status(apiErr.Kind), apierrors.Body{Error: apiErr.Message})
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	err := apierrors.New(apierrors.KindUnauthorized, nil)
	c.AbortWithStatusJSON(apierrors.Status(err.Kind), apierrors.Body{Error: err.Message})
}

// FromContext returns the claims attached by Guard.
func FromContext(c *gin.Context) (types.Claims, bool) {
	v, ok := c.Get(ContextKeyClaims)
	if !ok {
		return types.Claims{}, false
	}
	claims, ok := v.(types.Claims)
	return claims, ok
}

// FromGoContext mirrors FromContext for code that only has a context.Context
// (e.g. websocket handlers that have already left gin's request lifecycle).
func FromGoContext(ctx context.Context) (types.Claims, bool) {
	claims, ok := ctx.Value(claimsCtxKey{}).(types.Claims)
	return claims, ok
}

type claimsCtxKey struct{}

// WithClaims returns a context carrying claims, for code that bridges from gin
// into a plain context.Context. The websocket upgrade handlers read claims
// with FromContext and do not call it.
func WithClaims(ctx context.Context, claims types.Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, claims)
}
