package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sindrigils/chatroom/internal/appserver/types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type fakeSubscription struct {
	ch chan string
}

func (f *fakeSubscription) Channel() <-chan string { return f.ch }
func (f *fakeSubscription) Close() error {
	return nil
}

type fakeBus struct {
	mu         sync.Mutex
	published  []string
	history    []string
	subscribed []string
}

func newFakeBus() *fakeBus { return &fakeBus{} }

func (f *fakeBus) Publish(ctx context.Context, channel, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeBus) Subscribe(ctx context.Context, channel string) (types.Subscription, error) {
	f.mu.Lock()
	f.subscribed = append(f.subscribed, channel)
	f.mu.Unlock()
	return &fakeSubscription{ch: make(chan string, 4)}, nil
}

func (f *fakeBus) ListPush(ctx context.Context, key, value string, trimTo int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append([]string{value}, f.history...)
	if len(f.history) > trimTo {
		f.history = f.history[:trimTo]
	}
	return nil
}

func (f *fakeBus) ListRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.history...), nil
}

type fakePersistence struct {
	mu         sync.Mutex
	addCalls   int
	removeCalls int
}

func (f *fakePersistence) CreateUser(ctx context.Context, username, passwordHash string) (types.User, error) {
	return types.User{}, nil
}
func (f *fakePersistence) UserByUsername(ctx context.Context, username string) (types.User, error) {
	return types.User{}, nil
}
func (f *fakePersistence) UserByID(ctx context.Context, id int) (types.User, error) {
	return types.User{ID: id}, nil
}
func (f *fakePersistence) CreateChat(ctx context.Context, name string, ownerID int) (types.Chat, error) {
	return types.Chat{}, nil
}
func (f *fakePersistence) ListChats(ctx context.Context) ([]types.Chat, error) { return nil, nil }
func (f *fakePersistence) ChatByID(ctx context.Context, id int) (types.Chat, error) {
	return types.Chat{ID: id}, nil
}
func (f *fakePersistence) ChatsByNameLike(ctx context.Context, pattern string) ([]types.Chat, error) {
	return nil, nil
}
func (f *fakePersistence) InsertMessage(ctx context.Context, chatID, senderID int, content string) (types.Message, error) {
	return types.Message{ChatID: chatID, SenderID: senderID, Content: content, CreatedAt: time.Now()}, nil
}
func (f *fakePersistence) AddOnlineUser(ctx context.Context, userID, chatID int) error {
	f.mu.Lock()
	f.addCalls++
	f.mu.Unlock()
	return nil
}
func (f *fakePersistence) RemoveOnlineUser(ctx context.Context, userID, chatID int) error {
	f.mu.Lock()
	f.removeCalls++
	f.mu.Unlock()
	return nil
}
func (f *fakePersistence) OnlineUserCount(ctx context.Context, chatID int) (int, error) { return 1, nil }
func (f *fakePersistence) OnlineUsernames(ctx context.Context, chatID int) ([]string, error) {
	return []string{"alice"}, nil
}

type fakeSuggestor struct {
	text string
	err  error
}

func (f *fakeSuggestor) Suggest(ctx context.Context, currentInput string) (string, error) {
	return f.text, f.err
}

func dialChatSocket(t *testing.T, handler http.HandlerFunc) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServeChat_SingleJoinAndLeavePerConnection(t *testing.T) {
	// Registered before dialChatSocket, so it runs after that helper's cleanups
	// have closed the test server and client connection.
	ignoreExisting := goleak.IgnoreCurrent()
	t.Cleanup(func() { goleak.VerifyNone(t, ignoreExisting) })

	bus := newFakeBus()
	persistence := &fakePersistence{}
	core := New(bus, persistence, &fakeSuggestor{}, zap.NewNop())

	upgrader := websocket.Upgrader{}
	done := make(chan struct{})
	client := dialChatSocket(t, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		core.ServeChat(r.Context(), conn, 1, 7, "alice")
		close(done)
	})

	client.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeChat did not return after client disconnect")
	}

	persistence.mu.Lock()
	require.Equal(t, 1, persistence.addCalls)
	require.Equal(t, 1, persistence.removeCalls)
	persistence.mu.Unlock()
}

func TestHandleChatMessage_PublishesAndPushesHistory(t *testing.T) {
	bus := newFakeBus()
	persistence := &fakePersistence{}
	core := New(bus, persistence, &fakeSuggestor{}, zap.NewNop())

	core.handleChatMessage(t.Context(), 1, 7, "alice", "hello room", roomChannel(1))

	bus.mu.Lock()
	defer bus.mu.Unlock()
	require.Len(t, bus.published, 1)
	require.Contains(t, bus.published[0], "alice: hello room")
	require.Len(t, bus.history, 1)
	require.Contains(t, bus.history[0], "hello room")
}

func TestHandleSuggestionRequest_ErrorNeverClosesSocket(t *testing.T) {
	bus := newFakeBus()
	persistence := &fakePersistence{}
	core := New(bus, persistence, &fakeSuggestor{err: context.DeadlineExceeded}, zap.NewNop())

	upgrader := websocket.Upgrader{}
	client := dialChatSocket(t, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		sk := &sink{conn: conn}
		core.handleSuggestionRequest(r.Context(), "partial text", sk)
	})

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(data), "suggestion_error")
}

func TestRecentHistory_ReturnsBoundedList(t *testing.T) {
	bus := newFakeBus()
	core := New(bus, &fakePersistence{}, &fakeSuggestor{}, zap.NewNop())

	for i := 0; i < 15; i++ {
		require.NoError(t, bus.ListPush(t.Context(), "chat_messages:1", "entry", historyListSize))
	}

	history, err := core.RecentHistory(t.Context(), 1)
	require.NoError(t, err)
	require.Len(t, history, historyListSize)
}
