package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	model "github.com/zhouzirui/z-messenger/internal/model/chat"
	chat "github.com/zhouzirui/z-messenger/internal/service/chat"
	"github.com/zhouzirui/z-messenger/internal/storage"
)

func newService() *chat.Service {
	store := storage.NewMemoryStore()
	return chat.NewService(store, store, chat.NewHub())
}

func TestServiceCreateAndListChats(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.CreateChat(ctx, 1, "General", true); err != nil {
		t.Fatalf("CreateChat err: %v", err)
	}
	if _, err := svc.CreateChat(ctx, 2, "Other", false); err != nil {
		t.Fatalf("CreateChat err: %v", err)
	}

	chats, err := svc.ListChats(ctx, 1)
	if err != nil {
		t.Fatalf("ListChats err: %v", err)
	}
	if len(chats) != 1 || chats[0].Name != "General" {
		t.Fatalf("unexpected chats: %+v", chats)
	}
}

func TestServiceCreateChatRequiresName(t *testing.T) {
	svc := newService()
	if _, err := svc.CreateChat(context.Background(), 1, "   ", false); !errors.Is(err, chat.ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
}

func TestServiceUpdateChatOnlyByCreator(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	created, _ := svc.CreateChat(ctx, 1, "General", true)

	name := "Lobby"
	if _, err := svc.UpdateChat(ctx, 2, model.Update{ChatID: created.ID, Name: &name}); !errors.Is(err, chat.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	updated, err := svc.UpdateChat(ctx, 1, model.Update{ChatID: created.ID, Name: &name})
	if err != nil {
		t.Fatalf("UpdateChat err: %v", err)
	}
	if updated.Name != "Lobby" {
		t.Fatalf("unexpected name %q", updated.Name)
	}

	if _, err := svc.UpdateChat(ctx, 1, model.Update{ChatID: 99, Name: &name}); !errors.Is(err, chat.ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
}

func TestServiceSendMessagePublishesEvent(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	created, _ := svc.CreateChat(ctx, 1, "General", true)

	events, cancel := svc.Hub().Subscribe(created.ID)
	defer cancel()

	msg, err := svc.SendMessage(ctx, 1, created.ID, "hello")
	if err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Type != model.EventMessageCreated || ev.Message.ID != msg.ID {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("expected message.created event")
	}
}

func TestServiceSendMessageUnknownChat(t *testing.T) {
	svc := newService()
	if _, err := svc.SendMessage(context.Background(), 1, 42, "hi"); !errors.Is(err, chat.ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
}

func TestServiceEditAndDeleteRequireSender(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	created, _ := svc.CreateChat(ctx, 1, "General", true)
	msg, _ := svc.SendMessage(ctx, 1, created.ID, "hello")

	if _, err := svc.EditMessage(ctx, 2, msg.ID, "hijack"); !errors.Is(err, chat.ErrForbidden) {
		t.Fatalf("expected ErrForbidden on edit, got %v", err)
	}
	if err := svc.DeleteMessage(ctx, 2, msg.ID); !errors.Is(err, chat.ErrForbidden) {
		t.Fatalf("expected ErrForbidden on delete, got %v", err)
	}

	edited, err := svc.EditMessage(ctx, 1, msg.ID, "hello again")
	if err != nil {
		t.Fatalf("EditMessage err: %v", err)
	}
	if edited.Content != "hello again" {
		t.Fatalf("unexpected content %q", edited.Content)
	}

	if err := svc.DeleteMessage(ctx, 1, msg.ID); err != nil {
		t.Fatalf("DeleteMessage err: %v", err)
	}
	if err := svc.DeleteMessage(ctx, 1, msg.ID); !errors.Is(err, chat.ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestServiceLoadTranscriptEmptyChat(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	created, _ := svc.CreateChat(ctx, 1, "General", true)

	msgs, err := svc.LoadTranscript(ctx, created.ID)
	if err != nil {
		t.Fatalf("LoadTranscript err: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages, got %d", len(msgs))
	}

	if _, err := svc.LoadTranscript(ctx, 77); !errors.Is(err, chat.ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
}

func TestHubCancelStopsDelivery(t *testing.T) {
	hub := chat.NewHub()
	events, cancel := hub.Subscribe(5)
	if hub.Subscribers(5) != 1 {
		t.Fatalf("expected one subscriber")
	}
	cancel()
	cancel()

	if hub.Subscribers(5) != 0 {
		t.Fatalf("expected no subscribers after cancel")
	}
	if _, ok := <-events; ok {
		t.Fatal("expected closed channel")
	}
	hub.Publish(model.Event{ChatID: 5})
}
