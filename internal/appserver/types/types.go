// Package types collects the app server's port interfaces — persistence,
// bus, suggestor, and token service — mirroring the teacher's practice of a
// single types.go naming cross-package contracts (internal/v1/types).
package types

import (
	"context"
	"time"
)

// User is a persisted account.
type User struct {
	ID           int
	Username     string
	PasswordHash string
}

// Chat is a persisted chat room.
type Chat struct {
	ID          int
	Name        string
	OwnerID     int
	ActiveUsers int
}

// Message is a persisted chat message.
type Message struct {
	ID        int
	ChatID    int
	SenderID  int
	Content   string
	CreatedAt time.Time
}

// PersistenceService is the relational-store port named in spec.md §1 as a
// generic "persistence" port.
type PersistenceService interface {
	CreateUser(ctx context.Context, username, passwordHash string) (User, error)
	UserByUsername(ctx context.Context, username string) (User, error)
	UserByID(ctx context.Context, id int) (User, error)

	CreateChat(ctx context.Context, name string, ownerID int) (Chat, error)
	ListChats(ctx context.Context) ([]Chat, error)
	ChatByID(ctx context.Context, id int) (Chat, error)
	ChatsByNameLike(ctx context.Context, pattern string) ([]Chat, error)

	InsertMessage(ctx context.Context, chatID, senderID int, content string) (Message, error)

	AddOnlineUser(ctx context.Context, userID, chatID int) error
	RemoveOnlineUser(ctx context.Context, userID, chatID int) error
	OnlineUserCount(ctx context.Context, chatID int) (int, error)
	OnlineUsernames(ctx context.Context, chatID int) ([]string, error)
}

// BusService is the pub/sub + bounded-list port named in spec.md §1 as a
// generic "bus" port.
type BusService interface {
	Publish(ctx context.Context, channel, payload string) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	ListPush(ctx context.Context, key, value string, trimTo int) error
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// Subscription delivers payloads published to one channel.
type Subscription interface {
	Channel() <-chan string
	Close() error
}

// Suggestor is the completion-service port named in spec.md §1 as a generic
// "suggestor" port.
type Suggestor interface {
	Suggest(ctx context.Context, currentInput string) (string, error)
}

// Claims is the JWT payload signed into the session cookie (spec.md §6).
type Claims struct {
	Sub      int    `json:"sub"`
	Username string `json:"username"`
	Exp      int64  `json:"exp"`
}

// TokenService is the crypto/JWT port named in spec.md §1 as a generic
// "crypto" port, realized here with a local HS256 secret.
type TokenService interface {
	Sign(claims Claims) (string, error)
	Verify(token string) (Claims, error)
	HashPassword(plain string) (string, error)
	ComparePassword(hash, plain string) error
}
