// Package chat implements the Chat Fan-out Core and Chat-List Fan-out
// components (spec.md §4.11, §4.12), grounded on the original app server's
// ws/chat.rs for event shapes and lifecycle ordering. Cross-socket delivery
// goes exclusively through the bus — see spec.md §9's explicit rejection of
// the in-process broadcaster design visible in ws/chat_list.rs and
// ws/broadcaster.rs.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sindrigils/chatroom/internal/appserver/types"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const historyListSize = 10

// IncomingMessage is the tagged union of inbound chat-socket frames.
type IncomingMessage struct {
	Type            string `json:"type"`
	Content         string `json:"content,omitempty"`
	CurrentInput    string `json:"current_input,omitempty"`
}

// OutgoingMessage is the tagged union of suggestion-mode replies.
type OutgoingMessage struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// PreviousMessage is the fixed encoding for chat_messages:{roomId} entries,
// per spec.md §9's note that the recent-history encoding is underspecified
// in the source and should be fixed at implementation time.
type PreviousMessage struct {
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// sink serializes writes to one client socket; shared by the subscriber
// relay task and the suggestion handler (spec.md §4.11, §9).
type sink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *sink) writeText(payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(payload))
}

func (s *sink) writeJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.writeText(string(data))
}

// Core runs one chat socket's full lifecycle.
type Core struct {
	bus         types.BusService
	persistence types.PersistenceService
	suggestor   types.Suggestor
	log         *zap.Logger
}

// New builds a Core wired to the bus, persistence, and suggestor ports.
func New(bus types.BusService, persistence types.PersistenceService, suggestor types.Suggestor, log *zap.Logger) *Core {
	return &Core{bus: bus, persistence: persistence, suggestor: suggestor, log: log}
}

func roomChannel(chatID int) string { return fmt.Sprintf("chat:%d", chatID) }

const chatListChannel = "chat_list"

// ServeChat runs the Chat Fan-out Core lifecycle for one upgraded socket
// (spec.md §4.11): insert OnlineUser, spawn the subscriber relay, publish
// join/count/list, then loop on inbound frames until the socket closes.
func (c *Core) ServeChat(ctx context.Context, conn *websocket.Conn, chatID, userID int, username string) {
	sk := &sink{conn: conn}
	channel := roomChannel(chatID)

	if err := c.persistence.AddOnlineUser(ctx, userID, chatID); err != nil {
		c.log.Warn("add online user failed", zap.Error(err))
	}

	subCtx, cancelSub := context.WithCancel(ctx)
	defer cancelSub()
	go c.relaySubscriber(subCtx, channel, sk)

	c.sendJoinNotification(ctx, chatID, username)
	c.updateUserCount(ctx, chatID)
	c.broadcastUserList(ctx, chatID)

	c.inboundLoop(ctx, conn, sk, chatID, userID, username)

	if err := c.persistence.RemoveOnlineUser(ctx, userID, chatID); err != nil {
		c.log.Warn("remove online user failed", zap.Error(err))
	}
	c.sendLeaveNotification(ctx, chatID, username)
	c.updateUserCount(ctx, chatID)
	c.broadcastUserList(ctx, chatID)
}

// relaySubscriber opens a bus subscription to channel and relays every
// payload verbatim as a text frame until ctx is canceled or the socket dies.
// A connect failure terminates only this task; the socket stays open
// (spec.md §4.11's failure semantics).
func (c *Core) relaySubscriber(ctx context.Context, channel string, sk *sink) {
	sub, err := c.bus.Subscribe(ctx, channel)
	if err != nil {
		c.log.Warn("subscribe failed", zap.String("channel", channel), zap.Error(err))
		return
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub.Channel():
			if !ok {
				return
			}
			if err := sk.writeText(payload); err != nil {
				return
			}
		}
	}
}

func (c *Core) inboundLoop(ctx context.Context, conn *websocket.Conn, sk *sink, chatID, userID int, username string) {
	channel := roomChannel(chatID)
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var incoming IncomingMessage
		if err := json.Unmarshal(data, &incoming); err != nil {
			c.log.Warn("invalid inbound chat frame", zap.Error(err))
			continue
		}

		switch incoming.Type {
		case "chat_message":
			c.handleChatMessage(ctx, chatID, userID, username, incoming.Content, channel)
		case "request_suggestion":
			c.handleSuggestionRequest(ctx, incoming.CurrentInput, sk)
		default:
			c.log.Warn("unknown inbound chat frame type", zap.String("type", incoming.Type))
		}
	}
}

func (c *Core) handleChatMessage(ctx context.Context, chatID, userID int, username, content, channel string) {
	msg, err := c.persistence.InsertMessage(ctx, chatID, userID, content)
	if err != nil {
		c.log.Warn("insert message failed", zap.Error(err))
	}

	payload, _ := json.Marshal(map[string]string{
		"type":    "message",
		"content": fmt.Sprintf("%s: %s", username, content),
	})
	if err := c.bus.Publish(ctx, channel, string(payload)); err != nil {
		c.log.Warn("publish chat message failed", zap.Error(err))
	}

	prev, _ := json.Marshal(PreviousMessage{
		Sender:    username,
		Content:   content,
		CreatedAt: msg.CreatedAt.Format(time.RFC3339),
	})
	if err := c.bus.ListPush(ctx, fmt.Sprintf("chat_messages:%d", chatID), string(prev), historyListSize); err != nil {
		c.log.Warn("push chat history failed", zap.Error(err))
	}
}

// handleSuggestionRequest calls the suggestor port and writes the reply to
// this socket only, never to other room subscribers (spec.md §8 scenario 5).
// Suggestion failures never close the socket, only produce a suggestion_error
// frame (spec.md §4.11, §7).
func (c *Core) handleSuggestionRequest(ctx context.Context, currentInput string, sk *sink) {
	suggestCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	text, err := c.suggestor.Suggest(suggestCtx, currentInput)
	if err != nil {
		_ = sk.writeJSON(OutgoingMessage{Type: "suggestion_error", Error: "Suggestion unavailable"})
		return
	}
	_ = sk.writeJSON(OutgoingMessage{Type: "suggestion", Text: text})
}

func (c *Core) sendJoinNotification(ctx context.Context, chatID int, username string) {
	c.publishSystemMessage(ctx, chatID, "join", fmt.Sprintf("%s joined the chat", username), username)
}

func (c *Core) sendLeaveNotification(ctx context.Context, chatID int, username string) {
	c.publishSystemMessage(ctx, chatID, "leave", fmt.Sprintf("%s left the chat", username), username)
}

func (c *Core) publishSystemMessage(ctx context.Context, chatID int, subtype, content, username string) {
	payload, _ := json.Marshal(map[string]string{
		"type":    "system_message",
		"subtype": subtype,
		"content": content,
		"username": username,
	})
	if err := c.bus.Publish(ctx, roomChannel(chatID), string(payload)); err != nil {
		c.log.Warn("publish system message failed", zap.Error(err))
	}
}

func (c *Core) updateUserCount(ctx context.Context, chatID int) {
	count, err := c.persistence.OnlineUserCount(ctx, chatID)
	if err != nil {
		c.log.Warn("online user count failed", zap.Error(err))
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"type":   "user_count",
		"chatId": chatID,
		"content": count,
	})
	if err := c.bus.Publish(ctx, chatListChannel, string(payload)); err != nil {
		c.log.Warn("publish user count failed", zap.Error(err))
	}
}

func (c *Core) broadcastUserList(ctx context.Context, chatID int) {
	names, err := c.persistence.OnlineUsernames(ctx, chatID)
	if err != nil {
		c.log.Warn("online usernames failed", zap.Error(err))
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"type":    "user_list",
		"content": names,
	})
	if err := c.bus.Publish(ctx, roomChannel(chatID), string(payload)); err != nil {
		c.log.Warn("publish user list failed", zap.Error(err))
	}
}

// RecentHistory returns the bounded chat_messages:{roomId} list, newest
// first, for GET /chat/{id} to surface alongside the chat's metadata.
func (c *Core) RecentHistory(ctx context.Context, chatID int) ([]string, error) {
	return c.bus.ListRange(ctx, fmt.Sprintf("chat_messages:%d", chatID), 0, int64(historyListSize-1))
}

// ServeChatList runs the Chat-List Fan-out component (spec.md §4.12):
// subscribe to the single chat_list channel and relay every payload until
// the client disconnects. Inbound frames (pings/pongs) are ignored.
func (c *Core) ServeChatList(ctx context.Context, conn *websocket.Conn) {
	sk := &sink{conn: conn}

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.relaySubscriber(subCtx, chatListChannel, sk)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
