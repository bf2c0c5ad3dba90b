package tui

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/calendarik-app/calendarik/internal/chat"
)

// Run starts the interactive chat. It picks the bubbletea TUI when stdout is a
// terminal and falls back to the plain loop otherwise, or when plain is forced.
func Run(ctx context.Context, svc *chat.Service, cfg TUIConfig, forcePlain bool) error {
	if forcePlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return RunPlain(ctx, svc, cfg)
	}

	p := tea.NewProgram(NewModel(svc, cfg))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat ui: %w", err)
	}
	return nil
}
