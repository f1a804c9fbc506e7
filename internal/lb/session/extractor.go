// Package session implements the Session Extractor component, grounded on
// the original load balancer's routing/session_manager.rs: sticky cookie
// lookup plus unverified JWT payload parsing for a routing hint only. The LB
// never checks the token's signature — authenticity is the app server's job
// (spec.md §4.5, §9).
package session

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/sindrigils/chatroom/internal/lb/types"
)

// Extractor reads routing hints out of an inbound HTTP request.
type Extractor struct {
	StickyCookieName string
}

// New returns an Extractor configured with the sticky cookie's name.
func New(stickyCookieName string) *Extractor {
	return &Extractor{StickyCookieName: stickyCookieName}
}

// StickyID returns the raw sticky cookie value, if present.
func (e *Extractor) StickyID(r *http.Request) (types.BackendID, bool) {
	c, err := r.Cookie(e.StickyCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return types.BackendID(c.Value), true
}

// UserIDFromJWT decodes the "session" cookie's payload segment without
// verifying its signature, returning the sub claim as a decimal string if it
// parses as an unsigned integer.
func (e *Extractor) UserIDFromJWT(r *http.Request) (string, bool) {
	c, err := r.Cookie("session")
	if err != nil || c.Value == "" {
		return "", false
	}
	return parseSubUnverified(c.Value)
}

func parseSubUnverified(token string) (string, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", false
	}

	payload := parts[1]
	if rem := len(payload) % 4; rem != 0 {
		payload += strings.Repeat("=", 4-rem)
	}

	decoded, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return "", false
	}

	var claims map[string]interface{}
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return "", false
	}

	sub, ok := claims["sub"]
	if !ok {
		return "", false
	}

	switch v := sub.(type) {
	case float64:
		if v < 0 || v != math.Trunc(v) {
			return "", false
		}
		return strconv.FormatInt(int64(v), 10), true
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return strconv.FormatUint(n, 10), true
		}
	}
	return "", false
}

// Extract builds the full RoutingKey for a request.
func (e *Extractor) Extract(r *http.Request) types.RoutingKey {
	var key types.RoutingKey
	if id, ok := e.StickyID(r); ok {
		key.StickyBackend = id
		key.HasSticky = true
	}
	if uid, ok := e.UserIDFromJWT(r); ok {
		key.UserID = uid
		key.HasUser = true
	}
	return key
}
