package tui

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/calendarik-app/calendarik/internal/chat"
)

// RunPlain runs the chat loop with plain terminal output. It is used when the
// TUI is disabled or stdout is not a terminal.
func RunPlain(ctx context.Context, svc *chat.Service, cfg TUIConfig) error {
	fmt.Printf("calendarik %s · signed in as %s · /help for commands\n", versionOrDev(cfg.Version), cfg.Email)

	if msgs, err := svc.History(ctx); err == nil {
		printPlainTranscript(msgs)
	} else if cached, cerr := svc.CachedHistory(); cerr == nil && len(cached) > 0 {
		fmt.Println("(offline, showing cached transcript)")
		printPlainTranscript(cached)
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return nil // EOF
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "/") {
			if quit := runPlainSlash(ctx, svc, text); quit {
				return nil
			}
			continue
		}

		reply, err := svc.Send(ctx, text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		if reply.NewChat && reply.Title != "" {
			fmt.Printf("(started %s)\n", reply.Title)
		}
		fmt.Println(reply.Assistant.Content)
	}
}

func runPlainSlash(ctx context.Context, svc *chat.Service, text string) (quit bool) {
	name, arg := splitSlash(text)
	switch name {
	case "help":
		fmt.Println(helpText())
	case "history":
		msgs, err := svc.History(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		printPlainTranscript(msgs)
	case "chats":
		chats, err := svc.Chats(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		if len(chats) == 0 {
			fmt.Println("(no chats yet)")
			return false
		}
		for _, c := range chats {
			fmt.Printf("  %d. %s\n", c.ID, c.Title)
		}
	case "personality":
		if arg == "" {
			fmt.Printf("current: %s  (valid: %s)\n", svc.ActivePersonality(), strings.Join(chat.Personalities, ", "))
			return false
		}
		if err := svc.SetPersonality(ctx, arg); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		fmt.Printf("personality set to %s\n", arg)
	case "quit", "exit":
		return true
	default:
		fmt.Fprintf(os.Stderr, "unknown command: /%s\n", name)
	}
	return false
}

func printPlainTranscript(msgs []chat.Message) {
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for _, m := range msgs {
		if m.Role == "user" {
			fmt.Fprintf(w, "You: %s\n", m.Content)
		} else {
			fmt.Fprintln(w, m.Content)
		}
	}
}

func versionOrDev(v string) string {
	if v == "" {
		return "dev"
	}
	return v
}
