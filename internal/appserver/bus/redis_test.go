package bus

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewFromClient(client)
}

func TestPublishSubscribe_RelaysPayload(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()

	sub, err := svc.Subscribe(ctx, "chat:1")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, svc.Publish(ctx, "chat:1", `{"type":"message"}`))

	select {
	case payload := <-sub.Channel():
		require.Equal(t, `{"type":"message"}`, payload)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestListPush_TrimsToBound(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()

	for i := 0; i < 15; i++ {
		require.NoError(t, svc.ListPush(ctx, "chat_messages:1", "msg", 10))
	}

	values, err := svc.ListRange(ctx, "chat_messages:1", 0, -1)
	require.NoError(t, err)
	require.Len(t, values, 10)
}

func TestListRange_NewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()

	require.NoError(t, svc.ListPush(ctx, "chat_messages:1", "first", 10))
	require.NoError(t, svc.ListPush(ctx, "chat_messages:1", "second", 10))

	values, err := svc.ListRange(ctx, "chat_messages:1", 0, 9)
	require.NoError(t, err)
	require.Equal(t, []string{"second", "first"}, values)
}

func TestSubscription_CloseStopsRelay(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()

	sub, err := svc.Subscribe(ctx, "chat:2")
	require.NoError(t, err)

	require.NoError(t, sub.Close())

	_, ok := <-sub.Channel()
	require.False(t, ok, "channel should be closed once the subscription is closed")
}
