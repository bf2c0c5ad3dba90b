// Package tui is the interactive chat surface: a bubbletea program with a
// plain-terminal fallback for pipes and dumb terminals.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/calendarik-app/calendarik/internal/chat"
)

// ---------- messages produced by service commands ----------

type historyMsg struct{ msgs []chat.Message }
type replyMsg struct{ reply *chat.Reply }
type chatsMsg struct{ chats []chatSummary }
type personalityMsg struct{ personality string }
type errMsg struct{ err error }

type chatSummary struct {
	id    int
	title string
}

// ---------- styles ----------

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	statusNameStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("2")).
			Bold(true)
)

var dotSpinner = spinner.Spinner{
	Frames: []string{"·", "✢", "✳", "✶", "✻", "✽", "✻", "✶", "✳", "✢"},
	FPS:    120 * time.Millisecond,
}

// TUIConfig carries the identity shown in the status bar.
type TUIConfig struct {
	Version string
	Email   string
}

// Model is the bubbletea model for the chat view.
type Model struct {
	svc *chat.Service
	cfg TUIConfig

	textinput textinput.Model
	spinner   spinner.Model

	width   int
	height  int
	waiting bool

	quitting bool
	err      error

	mdRenderer      *glamour.TermRenderer
	mdRendererWidth int
}

// NewModel creates the initial chat model.
func NewModel(svc *chat.Service, cfg TUIConfig) Model {
	ti := textinput.New()
	ti.Prompt = "❯ "
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = dotSpinner
	sp.Style = spinnerStyle

	return Model{
		svc:       svc,
		cfg:       cfg,
		textinput: ti,
		spinner:   sp,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.Println(renderWelcome(m.cfg)),
		loadHistoryCmd(m.svc),
		textinput.Blink,
	)
}

// ---------- service commands ----------

func loadHistoryCmd(svc *chat.Service) tea.Cmd {
	return func() tea.Msg {
		msgs, err := svc.History(context.Background())
		if err != nil {
			// Offline start still shows the cached transcript.
			if cached, cerr := svc.CachedHistory(); cerr == nil && len(cached) > 0 {
				return historyMsg{msgs: cached}
			}
			return errMsg{err: err}
		}
		return historyMsg{msgs: msgs}
	}
}

func sendCmd(svc *chat.Service, text string) tea.Cmd {
	return func() tea.Msg {
		reply, err := svc.Send(context.Background(), text)
		if err != nil {
			return errMsg{err: err}
		}
		return replyMsg{reply: reply}
	}
}

func listChatsCmd(svc *chat.Service) tea.Cmd {
	return func() tea.Msg {
		chats, err := svc.Chats(context.Background())
		if err != nil {
			return errMsg{err: err}
		}
		out := make([]chatSummary, 0, len(chats))
		for _, c := range chats {
			out = append(out, chatSummary{id: c.ID, title: c.Title})
		}
		return chatsMsg{chats: out}
	}
}

func setPersonalityCmd(svc *chat.Service, p string) tea.Cmd {
	return func() tea.Msg {
		if err := svc.SetPersonality(context.Background(), p); err != nil {
			return errMsg{err: err}
		}
		return personalityMsg{personality: p}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textinput.Width = m.width - 4

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if m.waiting {
				return m, nil
			}
			text := strings.TrimSpace(m.textinput.Value())
			if text == "" {
				return m, nil
			}
			m.textinput.SetValue("")
			if cmd, handled := m.handleSlash(text); handled {
				if cmd != nil {
					cmds = append(cmds, cmd)
				}
				return m, tea.Batch(cmds...)
			}
			m.waiting = true
			cmds = append(cmds,
				tea.Println(userStyle.Render("You: ")+text),
				sendCmd(m.svc, text),
				m.spinner.Tick,
			)
			return m, tea.Batch(cmds...)
		}
		var cmd tea.Cmd
		m.textinput, cmd = m.textinput.Update(msg)
		cmds = append(cmds, cmd)

	case historyMsg:
		if len(msg.msgs) > 0 {
			cmds = append(cmds, tea.Println(m.renderTranscript(msg.msgs)))
		}

	case replyMsg:
		m.waiting = false
		var parts []string
		if msg.reply.NewChat {
			title := msg.reply.Title
			if title == "" {
				title = fmt.Sprintf("chat %d", msg.reply.ChatID)
			}
			parts = append(parts, systemStyle.Render("started "+title))
		}
		parts = append(parts, m.renderMarkdown(msg.reply.Assistant.Content))
		cmds = append(cmds, tea.Println(strings.Join(parts, "\n")))

	case chatsMsg:
		var lines []string
		for _, c := range msg.chats {
			lines = append(lines, fmt.Sprintf("  %d. %s", c.id, c.title))
		}
		if len(lines) == 0 {
			lines = []string{"  (no chats yet)"}
		}
		cmds = append(cmds, tea.Println(systemStyle.Render(strings.Join(lines, "\n"))))

	case personalityMsg:
		cmds = append(cmds, tea.Println(systemStyle.Render("personality set to "+msg.personality)))

	case errMsg:
		m.waiting = false
		m.err = msg.err
		cmds = append(cmds, tea.Println(errorStyle.Render("Error: "+msg.err.Error())))
	}

	return m, tea.Batch(cmds...)
}

// handleSlash executes a slash command. Returns handled=false for normal text.
func (m *Model) handleSlash(text string) (tea.Cmd, bool) {
	if !strings.HasPrefix(text, "/") {
		return nil, false
	}
	name, arg := splitSlash(text)
	switch name {
	case "help":
		return tea.Println(systemStyle.Render(helpText())), true
	case "history":
		return loadHistoryCmd(m.svc), true
	case "chats":
		return listChatsCmd(m.svc), true
	case "personality":
		if arg == "" {
			return tea.Println(systemStyle.Render(
				"current: " + m.svc.ActivePersonality() + "  (valid: " + strings.Join(chat.Personalities, ", ") + ")")), true
		}
		return setPersonalityCmd(m.svc, arg), true
	case "quit", "exit":
		m.quitting = true
		return tea.Quit, true
	default:
		return tea.Println(errorStyle.Render("unknown command: /" + name)), true
	}
}

// splitSlash splits "/personality coach" into ("personality", "coach").
func splitSlash(text string) (string, string) {
	text = strings.TrimPrefix(text, "/")
	name, arg, _ := strings.Cut(text, " ")
	return strings.ToLower(strings.TrimSpace(name)), strings.TrimSpace(arg)
}

func helpText() string {
	return strings.Join([]string{
		"  /help                show this help",
		"  /history             reload the conversation from the server",
		"  /chats               list your conversations",
		"  /personality [name]  show or change the assistant personality",
		"  /quit                leave the chat",
	}, "\n")
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var live string
	if m.waiting {
		live = spinnerStyle.Render(m.spinner.View()) + hintStyle.Render(" Thinking…")
	}

	var parts []string
	if live != "" {
		parts = append(parts, live)
	}
	parts = append(parts, m.textinput.View(), m.renderStatusBar())
	return strings.Join(parts, "\n")
}

func (m *Model) renderStatusBar() string {
	status := statusNameStyle.Render(" calendarik") +
		statusBarStyle.Render(" │ "+m.cfg.Email) +
		statusBarStyle.Render(" │ "+m.svc.ActivePersonality())
	width := m.width
	if width <= 0 {
		width = 80
	}
	return separatorStyle.Width(width).Render(strings.Repeat("─", width)) + "\n" + status
}

// renderTranscript renders a history load as alternating user/assistant blocks.
func (m *Model) renderTranscript(msgs []chat.Message) string {
	var parts []string
	for _, msg := range msgs {
		if msg.Role == "user" {
			parts = append(parts, userStyle.Render("You: ")+msg.Content)
		} else {
			parts = append(parts, m.renderMarkdown(msg.Content))
		}
	}
	return strings.Join(parts, "\n")
}

// ---------- markdown rendering ----------

func (m *Model) getMarkdownRenderer() *glamour.TermRenderer {
	width := m.width
	if width <= 0 {
		width = 80
	}
	wrapWidth := width - 4
	if m.mdRenderer != nil && m.mdRendererWidth == wrapWidth {
		return m.mdRenderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return nil
	}
	m.mdRenderer = r
	m.mdRendererWidth = wrapWidth
	return r
}

func (m *Model) renderMarkdown(text string) string {
	r := m.getMarkdownRenderer()
	if r == nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}

func renderWelcome(cfg TUIConfig) string {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	return systemStyle.Render(fmt.Sprintf("calendarik %s · signed in as %s · /help for commands", version, cfg.Email))
}
