// Package httpapi assembles the app server's gin router: public auth routes,
// protected chat CRUD and websocket routes, and the local health check,
// grounded on the original app server's routes/mod.rs for the route table
// and routes/{login,register,auth/{whoami,logout}}.rs for exact semantics.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/sindrigils/chatroom/internal/appserver/apierrors"
	"github.com/sindrigils/chatroom/internal/appserver/persistence"
	"github.com/sindrigils/chatroom/internal/appserver/types"
	"github.com/sindrigils/chatroom/internal/appserver/userauth"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// handleRegister hashes the password (bcrypt DEFAULT_COST) and creates the
// user, mirroring the original app server's routes/register.rs.
func (d Deps) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apierrors.New(apierrors.KindBadRequest, err))
		return
	}

	hash, err := d.Tokens.HashPassword(req.Password)
	if err != nil {
		writeError(c, apierrors.New(apierrors.KindInternalServer, err))
		return
	}

	user, err := d.Persistence.CreateUser(c.Request.Context(), req.Username, hash)
	if err != nil {
		writeError(c, apierrors.New(apierrors.KindInternalServer, err))
		return
	}

	c.JSON(http.StatusCreated, userResponse{ID: user.ID, Username: user.Username})
}

// handleLogin returns NotFound on a missing username, Unauthorized on a bad
// password, and otherwise signs a session JWT and sets the session cookie,
// mirroring the original app server's routes/login.rs.
func (d Deps) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apierrors.New(apierrors.KindBadRequest, err))
		return
	}

	user, err := d.Persistence.UserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			writeError(c, apierrors.New(apierrors.KindNotFound, err))
			return
		}
		writeError(c, apierrors.New(apierrors.KindInternalServer, err))
		return
	}

	if err := d.Tokens.ComparePassword(user.PasswordHash, req.Password); err != nil {
		writeError(c, apierrors.New(apierrors.KindUnauthorized, nil))
		return
	}

	token, err := d.Tokens.Sign(types.Claims{Sub: user.ID, Username: user.Username})
	if err != nil {
		writeError(c, apierrors.New(apierrors.KindInternalServer, err))
		return
	}

	setSessionCookie(c, token, d.SessionTTL, d.Production)
	c.JSON(http.StatusOK, userResponse{ID: user.ID, Username: user.Username})
}

// handleLogout clears the session cookie.
func (d Deps) handleLogout(c *gin.Context) {
	clearSessionCookie(c, d.Production)
	c.Status(http.StatusOK)
}

// handleWhoami returns the identity attached by the User-Auth Guard.
func (d Deps) handleWhoami(c *gin.Context) {
	claims, ok := userauth.FromContext(c)
	if !ok {
		writeError(c, apierrors.New(apierrors.KindUnauthorized, nil))
		return
	}
	c.JSON(http.StatusOK, userResponse{ID: claims.Sub, Username: claims.Username})
}

func setSessionCookie(c *gin.Context, token string, ttl time.Duration, production bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("session", token, int(ttl.Seconds()), "/", "", production, true)
}

func clearSessionCookie(c *gin.Context, production bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("session", "", -1, "/", "", production, true)
}
