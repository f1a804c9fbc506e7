package httpapi

import (
	"net/http"
	"strconv"

	"github.com/sindrigils/chatroom/internal/appserver/apierrors"
	"github.com/sindrigils/chatroom/internal/appserver/metrics"
	"github.com/sindrigils/chatroom/internal/appserver/userauth"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleChatWS upgrades to the Chat Fan-out Core (spec.md §6 GET
// /ws/chat?chat_id={id}); the socket's identity comes from the User-Auth
// Guard, exactly as the original app server's ws/chat.rs reads claims.
func (d Deps) handleChatWS(c *gin.Context) {
	claims, ok := userauth.FromContext(c)
	if !ok {
		writeError(c, apierrors.New(apierrors.KindUnauthorized, nil))
		return
	}

	chatID, err := strconv.Atoi(c.Query("chat_id"))
	if err != nil {
		writeError(c, apierrors.New(apierrors.KindBadRequest, err))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		d.Log.Warn("chat websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	metrics.ActiveChatSockets.Inc()
	defer metrics.ActiveChatSockets.Dec()

	d.Chat.ServeChat(c.Request.Context(), conn, chatID, claims.Sub, claims.Username)
}

// handleChatListWS upgrades to the Chat-List Fan-out component (spec.md §6
// GET /ws/chat-list).
func (d Deps) handleChatListWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		d.Log.Warn("chat-list websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	d.Chat.ServeChatList(c.Request.Context(), conn)
}
