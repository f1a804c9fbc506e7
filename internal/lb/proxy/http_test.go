package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sindrigils/chatroom/internal/lb/types"
	"github.com/stretchr/testify/require"
)

func TestForward_InjectsHeadersAndStripsHopByHop(t *testing.T) {
	var gotHost, gotForwardedBy, gotForwardedServer, gotLbSecret, gotConnection string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Host
		gotForwardedBy = r.Header.Get("X-Forwarded-By")
		gotForwardedServer = r.Header.Get("X-Forwarded-Server")
		gotLbSecret = r.Header.Get("X-Lb-Secret")
		gotConnection = r.Header.Get("Connection")
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hello"))
	}))
	defer backend.Close()

	p := NewHTTP("super-secret")
	req := httptest.NewRequest(http.MethodGet, "/rooms/42", nil)
	req.Header.Set("Connection", "keep-alive")
	rec := httptest.NewRecorder()

	err := p.Forward(rec, req, types.Backend{ID: "s1", BaseURL: backend.URL})
	require.NoError(t, err)

	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, "yes", rec.Header().Get("X-Upstream"))
	require.Equal(t, "rust-load-balancer", rec.Header().Get("X-Served-By"))
	require.Equal(t, "rust-load-balancer", gotForwardedBy)
	require.Equal(t, "s1", gotForwardedServer)
	require.Equal(t, "super-secret", gotLbSecret)
	require.Empty(t, gotConnection, "hop-by-hop Connection header must not reach the backend")
	require.NotEmpty(t, gotHost)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Equal(t, "hello", string(body))
}

func TestForward_BadGatewayOnUnreachableBackend(t *testing.T) {
	p := NewHTTP("secret")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	err := p.Forward(rec, req, types.Backend{ID: "s1", BaseURL: "http://127.0.0.1:1"})
	require.Error(t, err)
}

func TestHostOf_StripsScheme(t *testing.T) {
	require.Equal(t, "localhost:3001", hostOf("http://localhost:3001"))
	require.Equal(t, "localhost:3001", hostOf("https://localhost:3001"))
	require.True(t, strings.Contains(hostOf("http://example.com/"), "example.com"))
}
