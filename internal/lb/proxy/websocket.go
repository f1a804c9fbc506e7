package proxy

import (
	"net/http"
	"strings"
	"time"

	"github.com/sindrigils/chatroom/internal/lb/apierrors"
	"github.com/sindrigils/chatroom/internal/lb/types"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSRegistry is the subset of the WS Connection Registry the proxy needs.
type WSRegistry interface {
	Add(backend types.BackendID, userID string) (types.ConnID, <-chan struct{})
	Remove(id types.ConnID)
}

// ConnCounter is the subset of the Backend Registry used to track
// active connections around each proxied session.
type ConnCounter interface {
	Inc(id types.BackendID)
	Dec(id types.BackendID)
}

// WebSocketProxy upgrades the client side and splices frames to a dialed
// backend connection, grounded on proxy_service.rs's
// handle_websocket_upgrade/proxy_websocket_connection.
type WebSocketProxy struct {
	upgrader websocket.Upgrader
	dialer   *websocket.Dialer
	registry WSRegistry
	counters ConnCounter
	lbSecret string
	log      *zap.Logger
}

// NewWebSocket builds a WebSocketProxy.
func NewWebSocket(registry WSRegistry, counters ConnCounter, lbSecret string, log *zap.Logger) *WebSocketProxy {
	return &WebSocketProxy{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		registry: registry,
		counters: counters,
		lbSecret: lbSecret,
		log:      log,
	}
}

// Proxy performs the upgrade, dials the backend, and splices frames until
// either side closes or the WS registry signals a drain. The upgrade itself
// always succeeds to the client regardless of backend dial outcome: a dial
// failure is surfaced as an immediate close frame, per spec.md §4.8.
func (p *WebSocketProxy) Proxy(w http.ResponseWriter, r *http.Request, backend types.Backend, userID string) error {
	clientConn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return apierrors.New(apierrors.KindWsUpgradeFailed, err)
	}
	defer clientConn.Close()

	backendURL := toWSURL(backend.BaseURL) + r.URL.RequestURI()

	header := http.Header{}
	if sessionCookie, err := r.Cookie("session"); err == nil && sessionCookie.Value != "" {
		header.Set("Cookie", "session="+sessionCookie.Value)
	}
	header.Set("X-Lb-Secret", p.lbSecret)
	header.Set("X-Forwarded-By", forwardedBy)

	backendConn, _, err := p.dialer.Dial(backendURL, header)
	if err != nil {
		p.log.Warn("backend websocket dial failed", zap.String("backend_id", string(backend.ID)), zap.Error(err))
		_ = clientConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "backend unavailable"))
		return apierrors.New(apierrors.KindWsConnectionFailed, err)
	}
	defer backendConn.Close()

	connID, closeSignal := p.registry.Add(backend.ID, userID)
	p.counters.Inc(backend.ID)
	defer func() {
		p.registry.Remove(connID)
		p.counters.Dec(backend.ID)
	}()

	done := make(chan struct{}, 2)
	go splice(clientConn, backendConn, done, p.log)
	go splice(backendConn, clientConn, done, p.log)

	select {
	case <-done:
	case <-closeSignal:
		_ = clientConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "backend draining"))
	}
	return nil
}

// splice relays frames from src to dst, translating text/binary/ping/pong/
// close frame-for-frame (close payloads preserve code+reason) until either
// side errors or closes. Ping and pong frames are relayed from src's control
// handlers, since ReadMessage only returns data frames.
func splice(src, dst *websocket.Conn, done chan<- struct{}, log *zap.Logger) {
	defer func() { done <- struct{}{} }()

	src.SetPingHandler(func(appData string) error {
		return dst.WriteControl(websocket.PingMessage, []byte(appData), time.Now().Add(time.Second))
	})
	src.SetPongHandler(func(appData string) error {
		return dst.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	for {
		messageType, data, err := src.ReadMessage()
		if err != nil {
			if closeErr, ok := err.(*websocket.CloseError); ok {
				_ = dst.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(closeErr.Code, closeErr.Text))
			}
			return
		}

		switch messageType {
		case websocket.TextMessage, websocket.BinaryMessage:
			if err := dst.WriteMessage(messageType, data); err != nil {
				return
			}
		case websocket.PingMessage:
			if err := dst.WriteMessage(websocket.PingMessage, data); err != nil {
				return
			}
		case websocket.PongMessage:
			if err := dst.WriteMessage(websocket.PongMessage, data); err != nil {
				return
			}
		case websocket.CloseMessage:
			_ = dst.WriteMessage(websocket.CloseMessage, data)
			return
		default:
			log.Debug("dropping unknown websocket frame type")
		}
	}
}

func toWSURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	default:
		return "ws://" + baseURL
	}
}
