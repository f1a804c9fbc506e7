// Package cookie implements the Sticky Cookie Writer component (spec.md
// §4.14): sets or refreshes the replica-id cookie only when it is missing or
// stale relative to the routing decision just made.
package cookie

import (
	"net/http"
	"time"

	"github.com/sindrigils/chatroom/internal/lb/types"
)

// Writer sets the LB's sticky cookie on responses.
type Writer struct {
	Name       string
	MaxAge     time.Duration
	Production bool
}

// New returns a Writer configured from the LB's resolved config.
func New(name string, maxAge time.Duration, production bool) *Writer {
	return &Writer{Name: name, MaxAge: maxAge, Production: production}
}

// WriteIfNeeded sets the sticky cookie on w when current (the value parsed
// from the request, possibly empty) does not already equal chosen.
func (wr *Writer) WriteIfNeeded(w http.ResponseWriter, current string, chosen types.BackendID) {
	if current == string(chosen) {
		return
	}

	sameSite := http.SameSiteLaxMode
	if wr.Production {
		sameSite = http.SameSiteStrictMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     wr.Name,
		Value:    string(chosen),
		Path:     "/",
		MaxAge:   int(wr.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   wr.Production,
		SameSite: sameSite,
	})
}
