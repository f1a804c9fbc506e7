// Package persistence implements the app server's concrete persistence port
// over Postgres via pgx, realizing the relational store spec.md §1 names
// only as a generic "persistence" port. Table shapes follow the original app
// server's migration/src/m20220101_000001_create_table.rs (users, chats,
// messages) and models/{user,chat}.rs and entity/message.rs for field
// shapes. The online_users table is new: the original app server never
// persists presence, tracking it only in the in-memory DashMap in ws/chat.rs,
// which does not survive a replica restart or fan out across replicas behind
// a load balancer — spec.md §4.11/§9 require persisted presence instead.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/sindrigils/chatroom/internal/appserver/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the pgx-backed persistence adapter.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL and verifies connectivity.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Migrate creates the tables the app server needs if they don't already
// exist; schema migration tooling proper is out of scope (spec.md §1).
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS chats (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			owner_id INTEGER NOT NULL REFERENCES users(id)
		);
		CREATE TABLE IF NOT EXISTS messages (
			id SERIAL PRIMARY KEY,
			chat_id INTEGER NOT NULL REFERENCES chats(id),
			sender_id INTEGER NOT NULL REFERENCES users(id),
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS online_users (
			user_id INTEGER NOT NULL REFERENCES users(id),
			chat_id INTEGER NOT NULL REFERENCES chats(id),
			joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, chat_id)
		);
	`)
	return err
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (types.User, error) {
	var id int
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id`,
		username, passwordHash,
	).Scan(&id)
	if err != nil {
		return types.User{}, err
	}
	return types.User{ID: id, Username: username, PasswordHash: passwordHash}, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (types.User, error) {
	var u types.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash FROM users WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.User{}, ErrNotFound
	}
	return u, err
}

func (s *Store) UserByID(ctx context.Context, id int) (types.User, error) {
	var u types.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.User{}, ErrNotFound
	}
	return u, err
}

func (s *Store) CreateChat(ctx context.Context, name string, ownerID int) (types.Chat, error) {
	var id int
	err := s.pool.QueryRow(ctx,
		`INSERT INTO chats (name, owner_id) VALUES ($1, $2) RETURNING id`, name, ownerID,
	).Scan(&id)
	if err != nil {
		return types.Chat{}, err
	}
	return types.Chat{ID: id, Name: name, OwnerID: ownerID}, nil
}

func (s *Store) ListChats(ctx context.Context) ([]types.Chat, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, owner_id FROM chats ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChats(rows)
}

func (s *Store) ChatByID(ctx context.Context, id int) (types.Chat, error) {
	var c types.Chat
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, owner_id FROM chats WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.OwnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Chat{}, ErrNotFound
	}
	return c, err
}

func (s *Store) ChatsByNameLike(ctx context.Context, pattern string) ([]types.Chat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, owner_id FROM chats WHERE name ILIKE $1 ORDER BY id`, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChats(rows)
}

func scanChats(rows pgx.Rows) ([]types.Chat, error) {
	var out []types.Chat
	for rows.Next() {
		var c types.Chat
		if err := rows.Scan(&c.ID, &c.Name, &c.OwnerID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) InsertMessage(ctx context.Context, chatID, senderID int, content string) (types.Message, error) {
	var id int
	var createdAt time.Time
	err := s.pool.QueryRow(ctx,
		`INSERT INTO messages (chat_id, sender_id, content) VALUES ($1, $2, $3) RETURNING id, created_at`,
		chatID, senderID, content,
	).Scan(&id, &createdAt)
	if err != nil {
		return types.Message{}, err
	}
	return types.Message{ID: id, ChatID: chatID, SenderID: senderID, Content: content, CreatedAt: createdAt}, nil
}

func (s *Store) AddOnlineUser(ctx context.Context, userID, chatID int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO online_users (user_id, chat_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, chat_id) DO NOTHING`, userID, chatID)
	return err
}

func (s *Store) RemoveOnlineUser(ctx context.Context, userID, chatID int) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM online_users WHERE user_id = $1 AND chat_id = $2`, userID, chatID)
	return err
}

func (s *Store) OnlineUserCount(ctx context.Context, chatID int) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM online_users WHERE chat_id = $1`, chatID).Scan(&count)
	return count, err
}

func (s *Store) OnlineUsernames(ctx context.Context, chatID int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT u.username FROM online_users o JOIN users u ON u.id = o.user_id WHERE o.chat_id = $1`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ErrNotFound is returned when a lookup by id/username finds no row.
var ErrNotFound = errors.New("not found")

var _ types.PersistenceService = (*Store)(nil)
