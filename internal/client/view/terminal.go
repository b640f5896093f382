// Package view renders the client state as plain lines on a terminal.
package view

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/zhouzirui/z-messenger/internal/client/app"
	"github.com/zhouzirui/z-messenger/internal/model/chat"
)

// Section is the visible part of the page.
type Section int

const (
	SectionNone Section = iota
	SectionAuth
	SectionChats
)

// Terminal writes every view change to w as it happens and remembers the
// current section, location and chat list.
type Terminal struct {
	mu       sync.Mutex
	w        io.Writer
	section  Section
	location app.Page
	chats    []string
}

func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

func (t *Terminal) ShowAuth() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.section = SectionAuth
	fmt.Fprintln(t.w, dimStyle.Render("Not logged in. Use `messenger login` or `messenger register`."))
}

func (t *Terminal) ShowChats() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.section = SectionChats
}

func (t *Terminal) RenderChats(items []chat.Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chats = t.chats[:0]
	var b strings.Builder
	b.WriteString(headerStyle.Render("Chats"))
	b.WriteByte('\n')
	if len(items) == 0 {
		b.WriteString(itemStyle.Render(dimStyle.Render("(no chats)")))
		b.WriteByte('\n')
	}
	for _, it := range items {
		t.chats = append(t.chats, it.Name)
		b.WriteString(itemStyle.Render(it.Name))
		b.WriteByte('\n')
	}
	io.WriteString(t.w, b.String())
}

func (t *Terminal) Notify(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	style := noticeStyle
	if strings.HasPrefix(msg, "Error:") {
		style = errorStyle
	}
	fmt.Fprintln(t.w, style.Render(msg))
}

func (t *Terminal) Navigate(page app.Page) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.location = page
}

// Section returns the section shown last.
func (t *Terminal) Section() Section {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.section
}

// Location returns the last navigation target, empty if none happened.
func (t *Terminal) Location() app.Page {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.location
}

// Chats returns the names currently rendered.
func (t *Terminal) Chats() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.chats...)
}
