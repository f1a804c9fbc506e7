package session

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeJWT(t *testing.T, payload map[string]interface{}) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256"}`))
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return header + "." + base64.RawURLEncoding.EncodeToString(body) + ".signature-not-checked"
}

func TestStickyID_PresentAndAbsent(t *testing.T) {
	e := New("lb_server_id")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "lb_server_id", Value: "s2"})
	id, ok := e.StickyID(r)
	require.True(t, ok)
	require.Equal(t, "s2", string(id))

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok = e.StickyID(r2)
	require.False(t, ok)
}

func TestUserIDFromJWT_DoesNotVerifySignature(t *testing.T) {
	e := New("lb_server_id")
	token := fakeJWT(t, map[string]interface{}{"sub": float64(42), "username": "alice"})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "session", Value: token})

	userID, ok := e.UserIDFromJWT(r)
	require.True(t, ok)
	require.Equal(t, "42", userID)
}

func TestUserIDFromJWT_MalformedTokenFails(t *testing.T) {
	e := New("lb_server_id")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "session", Value: "not-a-jwt"})

	_, ok := e.UserIDFromJWT(r)
	require.False(t, ok)
}

func TestUserIDFromJWT_NonNumericSubFails(t *testing.T) {
	e := New("lb_server_id")
	token := fakeJWT(t, map[string]interface{}{"sub": "alice"})
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "session", Value: token})

	_, ok := e.UserIDFromJWT(r)
	require.False(t, ok)
}
