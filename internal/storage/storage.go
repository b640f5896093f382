// Package storage persists users, chats and messages for the API server.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/zhouzirui/z-messenger/internal/model/auth"
	"github.com/zhouzirui/z-messenger/internal/model/chat"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// UserStore keeps registered accounts.
type UserStore interface {
	CreateUser(ctx context.Context, login, passwordHash string) (auth.User, error)
	FindUserByLogin(ctx context.Context, login string) (auth.User, error)
}

// ChatStore keeps chats.
type ChatStore interface {
	CreateChat(ctx context.Context, c chat.Chat) (chat.Chat, error)
	GetChat(ctx context.Context, id int64) (chat.Chat, error)
	UpdateChat(ctx context.Context, update chat.Update) (chat.Chat, error)
	ListChatsByCreator(ctx context.Context, creatorID int64) ([]chat.Chat, error)
}

// MessageStore keeps chat messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, m chat.Message) (chat.Message, error)
	GetMessage(ctx context.Context, id int64) (chat.Message, error)
	UpdateMessageContent(ctx context.Context, id int64, content string) (chat.Message, error)
	DeleteMessage(ctx context.Context, id int64) error
	ListMessages(ctx context.Context, chatID int64) ([]chat.Message, error)
}

// Store is the full persistence surface used by the services.
type Store interface {
	UserStore
	ChatStore
	MessageStore
	Close() error
}

// Open returns the store selected by driver.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "sqlite", "sqlite3":
		return NewSQLiteStore(path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
