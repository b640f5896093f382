package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhouzirui/z-messenger/internal/client/app"
	"github.com/zhouzirui/z-messenger/internal/model/chat"
)

type (
	showAuthMsg  struct{}
	showChatsMsg struct{}
	renderMsg    struct{ items []chat.Summary }
	noticeMsg    string
	navigateMsg  app.Page
	opDoneMsg    struct{ err error }
)

// bridge implements app.View by turning each call into a tea.Msg. Controller
// calls run inside tea.Cmd goroutines, so send never runs on the update loop.
type bridge struct {
	send func(tea.Msg)
}

func (b *bridge) ShowAuth() { b.send(showAuthMsg{}) }

func (b *bridge) ShowChats() { b.send(showChatsMsg{}) }

func (b *bridge) RenderChats(items []chat.Summary) {
	b.send(renderMsg{items: append([]chat.Summary(nil), items...)})
}

func (b *bridge) Notify(msg string) { b.send(noticeMsg(msg)) }

func (b *bridge) Navigate(page app.Page) { b.send(navigateMsg(page)) }
