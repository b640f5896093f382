package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zhouzirui/z-messenger/internal/model/auth"
	"github.com/zhouzirui/z-messenger/internal/model/chat"
)

// MemoryStore implements Store with maps guarded by a RWMutex, suitable for tests and demos.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]auth.User
	chats    map[int64]chat.Chat
	messages map[int64]chat.Message

	lastUserID    int64
	lastChatID    int64
	lastMessageID int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]auth.User),
		chats:    make(map[int64]chat.Chat),
		messages: make(map[int64]chat.Message),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, login, passwordHash string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[login]; ok {
		return auth.User{}, ErrConflict
	}
	s.lastUserID++
	user := auth.User{
		ID:           s.lastUserID,
		Login:        login,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[login] = user
	return user, nil
}

func (s *MemoryStore) FindUserByLogin(_ context.Context, login string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[login]
	if !ok {
		return auth.User{}, ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) CreateChat(_ context.Context, c chat.Chat) (chat.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastChatID++
	c.ID = s.lastChatID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.chats[c.ID] = c
	return c, nil
}

func (s *MemoryStore) GetChat(_ context.Context, id int64) (chat.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chats[id]
	if !ok {
		return chat.Chat{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) UpdateChat(_ context.Context, update chat.Update) (chat.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[update.ChatID]
	if !ok {
		return chat.Chat{}, ErrNotFound
	}
	if update.Name != nil {
		c.Name = *update.Name
	}
	if update.AvatarURL != nil {
		c.AvatarURL = *update.AvatarURL
	}
	s.chats[c.ID] = c
	return c, nil
}

func (s *MemoryStore) ListChatsByCreator(_ context.Context, creatorID int64) ([]chat.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]chat.Chat, 0, 8)
	for _, c := range s.chats {
		if c.CreatorID == creatorID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateMessage(_ context.Context, m chat.Message) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[m.ChatID]; !ok {
		return chat.Message{}, ErrNotFound
	}
	s.lastMessageID++
	m.ID = s.lastMessageID
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	s.messages[m.ID] = m
	return m, nil
}

func (s *MemoryStore) GetMessage(_ context.Context, id int64) (chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return chat.Message{}, ErrNotFound
	}
	return m, nil
}

func (s *MemoryStore) UpdateMessageContent(_ context.Context, id int64, content string) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return chat.Message{}, ErrNotFound
	}
	m.Content = content
	s.messages[id] = m
	return m, nil
}

func (s *MemoryStore) DeleteMessage(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[id]; !ok {
		return ErrNotFound
	}
	delete(s.messages, id)
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, chatID int64) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]chat.Message, 0, 16)
	for _, m := range s.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	sortMessages(out)
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func sortMessages(messages []chat.Message) {
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].Timestamp.Equal(messages[j].Timestamp) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
}
