// Package lbauth implements the LB-Auth Guard component (spec.md §4.9):
// reject any request lacking a matching x-lb-secret header, grounded on the
// original app server's middleware/lb_auth.rs.
package lbauth

import (
	"github.com/sindrigils/chatroom/internal/appserver/apierrors"
	"github.com/gin-gonic/gin"
)

// Guard returns middleware rejecting requests without the shared secret.
func Guard(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Lb-Secret") != secret {
			err := apierrors.New(apierrors.KindUnauthorized, nil)
			c.AbortWithStatusJSON(apierrors.Status(err.Kind), apierrors.Body{Error: err.Message})
			return
		}
		c.Next()
	}
}
