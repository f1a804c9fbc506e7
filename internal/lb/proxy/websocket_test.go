package proxy

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sindrigils/chatroom/internal/lb/types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWSRegistry struct {
	mu      sync.Mutex
	added   []types.BackendID
	closeCh chan struct{}
}

func (f *fakeWSRegistry) Add(backend types.BackendID, userID string) (types.ConnID, <-chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, backend)
	if f.closeCh == nil {
		f.closeCh = make(chan struct{})
	}
	return types.ConnID("conn_1"), f.closeCh
}

func (f *fakeWSRegistry) Remove(id types.ConnID) {}

type fakeConnCounter struct {
	mu   sync.Mutex
	incs int
	decs int
}

func (f *fakeConnCounter) Inc(id types.BackendID) {
	f.mu.Lock()
	f.incs++
	f.mu.Unlock()
}

func (f *fakeConnCounter) Dec(id types.BackendID) {
	f.mu.Lock()
	f.decs++
	f.mu.Unlock()
}

func echoBackend(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
}

func TestProxy_SplicesFramesBothWays(t *testing.T) {
	backendSrv := echoBackend(t)
	defer backendSrv.Close()

	registry := &fakeWSRegistry{}
	counters := &fakeConnCounter{}
	wsProxy := NewWebSocket(registry, counters, "secret", zap.NewNop())

	lbSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backend := types.Backend{ID: "s1", BaseURL: backendSrv.URL}
		_ = wsProxy.Proxy(w, r, backend, "7")
	}))
	defer lbSrv.Close()

	clientURL := "ws" + strings.TrimPrefix(lbSrv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(clientURL, nil)
	require.NoError(t, err)
	defer clientConn.Close()

	require.NoError(t, clientConn.WriteMessage(websocket.TextMessage, []byte("hello")))
	clientConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	mt, data, err := clientConn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, mt)
	require.Equal(t, "hello", string(data))

	require.NoError(t, clientConn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))

	registry.mu.Lock()
	require.Equal(t, []types.BackendID{"s1"}, registry.added)
	registry.mu.Unlock()
}

func TestToWSURL_TranslatesScheme(t *testing.T) {
	require.Equal(t, "ws://localhost:3001", toWSURL("http://localhost:3001"))
	require.Equal(t, "wss://localhost:3001", toWSURL("https://localhost:3001"))
}
