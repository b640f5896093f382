package view

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/zhouzirui/z-messenger/internal/client/app"
	"github.com/zhouzirui/z-messenger/internal/model/chat"
)

func TestTerminalRenderReplacesList(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)

	term.ShowChats()
	term.RenderChats([]chat.Summary{{Name: "Old"}})
	term.RenderChats([]chat.Summary{{Name: "General"}, {Name: "Random"}})

	if term.Section() != SectionChats {
		t.Fatalf("expected chats section, got %v", term.Section())
	}
	if got := term.Chats(); !reflect.DeepEqual(got, []string{"General", "Random"}) {
		t.Fatalf("unexpected chats %v", got)
	}
	out := buf.String()
	if strings.Index(out, "General") > strings.Index(out, "Random") {
		t.Fatalf("items rendered out of order: %q", out)
	}
}

func TestTerminalNotifyAndNavigate(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)

	term.ShowAuth()
	term.Notify("Error: user already exists")
	term.Navigate(app.PageChats)

	if term.Section() != SectionAuth {
		t.Fatalf("expected auth section")
	}
	if term.Location() != app.PageChats {
		t.Fatalf("unexpected location %q", term.Location())
	}
	if !strings.Contains(buf.String(), "user already exists") {
		t.Fatalf("notice missing from output: %q", buf.String())
	}
}

func TestTerminalEmptyList(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)
	term.RenderChats(nil)
	if !strings.Contains(buf.String(), "(no chats)") {
		t.Fatalf("expected placeholder, got %q", buf.String())
	}
	if len(term.Chats()) != 0 {
		t.Fatalf("expected no chats")
	}
}
