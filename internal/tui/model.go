// Package tui is the full-screen terminal front end of the messenger client.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/z-messenger/internal/client/app"
	"github.com/zhouzirui/z-messenger/internal/client/session"
	"github.com/zhouzirui/z-messenger/internal/model/chat"
)

type section int

const (
	sectionLoading section = iota
	sectionAuth
	sectionChats
)

// auth form field indices
const (
	fieldUsername = iota
	fieldPassword
	fieldCount
)

type Model struct {
	ctx      context.Context
	app      *app.App
	section  section
	inputs   [fieldCount]textinput.Model
	focus    int
	chats    []chat.Summary
	cursor   int
	notice   string
	busy     bool
	width    int
	height   int
	quitting bool
}

func NewModel(ctx context.Context, a *app.App) Model {
	user := textinput.New()
	user.Placeholder = "username"
	user.CharLimit = 64
	user.Focus()

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.CharLimit = 128
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'

	return Model{
		ctx:    ctx,
		app:    a,
		inputs: [fieldCount]textinput.Model{user, pass},
		width:  80,
		height: 24,
	}
}

// Run starts the program on the alternate screen and blocks until it exits.
func Run(ctx context.Context, client app.API, store session.Store) error {
	b := &bridge{}
	m := NewModel(ctx, app.New(client, store, b))
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	b.send = p.Send
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initialize())
}

func (m Model) initialize() tea.Cmd {
	return func() tea.Msg {
		_, err := m.app.Initialize(m.ctx)
		return opDoneMsg{err: err}
	}
}

func (m Model) run(fn func(ctx context.Context) error) (Model, tea.Cmd) {
	m.busy = true
	m.notice = ""
	ctx := m.ctx
	return m, func() tea.Msg { return opDoneMsg{err: fn(ctx)} }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case showAuthMsg:
		m.section = sectionAuth
		m.chats = nil
		m.cursor = 0
		return m, nil

	case showChatsMsg:
		m.section = sectionChats
		return m, nil

	case renderMsg:
		m.chats = msg.items
		if m.cursor >= len(m.chats) {
			m.cursor = max(0, len(m.chats)-1)
		}
		return m, nil

	case noticeMsg:
		m.notice = string(msg)
		return m, nil

	case navigateMsg:
		switch app.Page(msg) {
		case app.PageChats:
			m.inputs[fieldPassword].SetValue("")
			return m, m.initialize()
		case app.PageLanding:
			m.section = sectionAuth
			m.chats = nil
			m.cursor = 0
		}
		return m, nil

	case opDoneMsg:
		m.busy = false
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.section {
		case sectionAuth:
			return m.updateAuth(msg)
		case sectionChats:
			return m.updateChats(msg)
		}
	}
	return m, nil
}

func (m Model) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.quitting = true
		return m, tea.Quit

	case "tab", "down":
		m.inputs[m.focus].Blur()
		m.focus = (m.focus + 1) % fieldCount
		m.inputs[m.focus].Focus()
		return m, nil

	case "shift+tab", "up":
		m.inputs[m.focus].Blur()
		m.focus = (m.focus - 1 + fieldCount) % fieldCount
		m.inputs[m.focus].Focus()
		return m, nil

	case "enter", "ctrl+r":
		if m.busy {
			return m, nil
		}
		username := strings.TrimSpace(m.inputs[fieldUsername].Value())
		password := m.inputs[fieldPassword].Value()
		if msg.String() == "ctrl+r" {
			return m.run(func(ctx context.Context) error { return m.app.Register(ctx, username, password) })
		}
		return m.run(func(ctx context.Context) error { return m.app.Login(ctx, username, password) })
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) updateChats(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.chats)-1 {
			m.cursor++
		}

	case "r":
		if m.busy {
			return m, nil
		}
		return m.run(m.app.FetchAndRenderChats)

	case "x":
		return m.run(m.app.Logout)
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var body, help string
	switch m.section {
	case sectionLoading:
		body = dimStyle.Render("loading...")
	case sectionAuth:
		body = m.viewAuth()
		help = "tab: switch field • enter: login • ctrl+r: register • esc: quit"
	case sectionChats:
		body = m.viewChats()
		help = "↑/↓: move • r: refresh • x: logout • q: quit"
	}

	parts := []string{titleStyle.Render("z-messenger"), body}
	if m.busy {
		parts = append(parts, dimStyle.Render("working..."))
	}
	if m.notice != "" {
		style := noticeStyle
		if strings.HasPrefix(m.notice, "Error:") || strings.HasPrefix(m.notice, "Session expired") {
			style = errorStyle
		}
		parts = append(parts, style.Render(m.notice))
	}
	if help != "" {
		parts = append(parts, helpStyle.Render(help))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewAuth() string {
	rows := []string{
		lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render("Username"), m.inputs[fieldUsername].View()),
		lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render("Password"), m.inputs[fieldPassword].View()),
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) viewChats() string {
	if len(m.chats) == 0 {
		return dimStyle.Render("  (no chats)")
	}
	var b strings.Builder
	for i, c := range m.chats {
		style := normalStyle
		if i == m.cursor {
			style = selectedStyle
		}
		b.WriteString(style.Render(c.Name))
		if i < len(m.chats)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
