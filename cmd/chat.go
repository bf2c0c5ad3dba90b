package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calendarik-app/calendarik/internal/chat"
	"github.com/calendarik-app/calendarik/internal/tui"
)

var offlineFlag bool

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&offlineFlag, "offline", false, "show the cached transcript without contacting the backend")
	return cmd
}

// runChat is shared by the chat subcommand and the bare root invocation.
func runChat(ctx context.Context) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	cache := openChatCache(app)
	if cache != nil {
		defer cache.Close()
	}

	if offlineFlag {
		return runOffline(app, cache)
	}

	if err := app.restore(ctx); err != nil {
		return err
	}

	svc := chat.NewService(app.client, app.session, cache,
		chat.WithPersonality(app.cfg.Chat.Personality),
		chat.WithLanguage(app.cfg.Chat.Language),
		chat.WithServiceLogger(app.log),
	)

	cfg := tui.TUIConfig{
		Version: displayVersion(),
		Email:   app.session.User().Email,
	}
	return tui.Run(ctx, svc, cfg, plainFlag)
}

// openChatCache opens the local transcript cache. A cache failure degrades to
// no caching rather than blocking the chat.
func openChatCache(app *app) chat.Store {
	path := app.cfg.Chat.HistoryDB
	if path == "" {
		p, err := chat.DefaultDBPath()
		if err != nil {
			app.log.Warn("transcript cache disabled", "err", err)
			return nil
		}
		path = p
	}
	store, err := chat.NewSQLiteStore(path)
	if err != nil {
		app.log.Warn("transcript cache disabled", "err", err)
		return nil
	}
	return store
}

// runOffline prints cached conversations without touching the backend.
func runOffline(app *app, cache chat.Store) error {
	if cache == nil {
		return fmt.Errorf("no transcript cache available")
	}
	chats, err := cache.Chats()
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		fmt.Println("No cached conversations.")
		return nil
	}
	for _, c := range chats {
		fmt.Printf("─ %s (%d messages, %s)\n", c.Title, c.Messages, c.UpdatedAt.Format("2006-01-02 15:04"))
		msgs, err := cache.Messages(c.ID)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			if m.Role == "user" {
				fmt.Printf("  You: %s\n", m.Content)
			} else {
				fmt.Printf("  %s\n", m.Content)
			}
		}
		fmt.Println()
	}
	return nil
}
