package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/z-messenger/internal/model/chat"
	"github.com/zhouzirui/z-messenger/internal/storage"
)

var (
	ErrNameRequired    = errors.New("chat name is required")
	ErrContentRequired = errors.New("message content is required")
	ErrChatNotFound    = errors.New("chat not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrForbidden       = errors.New("not allowed")
)

// Service encapsulates chat and message management on top of a store.
type Service struct {
	chats    storage.ChatStore
	messages storage.MessageStore
	hub      *Hub
}

// NewService wires the chat service to its stores. Message changes are published on hub.
func NewService(chats storage.ChatStore, messages storage.MessageStore, hub *Hub) *Service {
	if hub == nil {
		hub = NewHub()
	}
	return &Service{chats: chats, messages: messages, hub: hub}
}

// Hub returns the event hub message changes are published on.
func (s *Service) Hub() *Hub {
	return s.hub
}

// CreateChat provisions a chat owned by creatorID.
func (s *Service) CreateChat(ctx context.Context, creatorID int64, name string, isGroup bool) (chat.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return chat.Chat{}, ErrNameRequired
	}

	created, err := s.chats.CreateChat(ctx, chat.Chat{Name: name, CreatorID: creatorID, IsGroup: isGroup})
	if err != nil {
		return chat.Chat{}, err
	}
	log.Info().Int64("chat_id", created.ID).Int64("creator_id", creatorID).Msg("[chat] chat created")
	return created, nil
}

// UpdateChat applies a partial update. Only the creator may change a chat.
func (s *Service) UpdateChat(ctx context.Context, userID int64, update chat.Update) (chat.Chat, error) {
	existing, err := s.GetChat(ctx, update.ChatID)
	if err != nil {
		return chat.Chat{}, err
	}
	if existing.CreatorID != userID {
		return chat.Chat{}, ErrForbidden
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return chat.Chat{}, ErrNameRequired
	}

	updated, err := s.chats.UpdateChat(ctx, update)
	if errors.Is(err, storage.ErrNotFound) {
		return chat.Chat{}, ErrChatNotFound
	}
	return updated, err
}

// GetChat retrieves a chat by identifier.
func (s *Service) GetChat(ctx context.Context, chatID int64) (chat.Chat, error) {
	c, err := s.chats.GetChat(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		return chat.Chat{}, ErrChatNotFound
	}
	return c, err
}

// ListChats returns the chats created by userID in creation order.
func (s *Service) ListChats(ctx context.Context, userID int64) ([]chat.Chat, error) {
	return s.chats.ListChatsByCreator(ctx, userID)
}

// SendMessage appends a message to a chat and notifies live subscribers.
func (s *Service) SendMessage(ctx context.Context, senderID, chatID int64, content string) (chat.Message, error) {
	if strings.TrimSpace(content) == "" {
		return chat.Message{}, ErrContentRequired
	}

	message, err := s.messages.CreateMessage(ctx, chat.Message{ChatID: chatID, SenderID: senderID, Content: content})
	if errors.Is(err, storage.ErrNotFound) {
		return chat.Message{}, ErrChatNotFound
	}
	if err != nil {
		return chat.Message{}, err
	}

	s.hub.Publish(chat.Event{Type: chat.EventMessageCreated, ChatID: chatID, Message: message})
	return message, nil
}

// EditMessage replaces the content of a message written by userID.
func (s *Service) EditMessage(ctx context.Context, userID, messageID int64, content string) (chat.Message, error) {
	if strings.TrimSpace(content) == "" {
		return chat.Message{}, ErrContentRequired
	}
	if _, err := s.ownedMessage(ctx, userID, messageID); err != nil {
		return chat.Message{}, err
	}

	updated, err := s.messages.UpdateMessageContent(ctx, messageID, content)
	if errors.Is(err, storage.ErrNotFound) {
		return chat.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return chat.Message{}, err
	}

	s.hub.Publish(chat.Event{Type: chat.EventMessageUpdated, ChatID: updated.ChatID, Message: updated})
	return updated, nil
}

// DeleteMessage removes a message written by userID.
func (s *Service) DeleteMessage(ctx context.Context, userID, messageID int64) error {
	existing, err := s.ownedMessage(ctx, userID, messageID)
	if err != nil {
		return err
	}

	if err := s.messages.DeleteMessage(ctx, messageID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrMessageNotFound
		}
		return err
	}

	s.hub.Publish(chat.Event{Type: chat.EventMessageDeleted, ChatID: existing.ChatID, Message: existing})
	return nil
}

// LoadTranscript returns a chat's messages ordered by timestamp.
func (s *Service) LoadTranscript(ctx context.Context, chatID int64) ([]chat.Message, error) {
	if _, err := s.GetChat(ctx, chatID); err != nil {
		return nil, err
	}
	return s.messages.ListMessages(ctx, chatID)
}

func (s *Service) ownedMessage(ctx context.Context, userID, messageID int64) (chat.Message, error) {
	existing, err := s.messages.GetMessage(ctx, messageID)
	if errors.Is(err, storage.ErrNotFound) {
		return chat.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return chat.Message{}, err
	}
	if existing.SenderID != userID {
		return chat.Message{}, ErrForbidden
	}
	return existing, nil
}
