package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/calendarik-app/calendarik/internal/chat"
)

func TestSplitSlash(t *testing.T) {
	cases := []struct {
		in        string
		name, arg string
	}{
		{"/help", "help", ""},
		{"/personality coach", "personality", "coach"},
		{"/PERSONALITY  coach ", "personality", "coach"},
		{"/quit", "quit", ""},
	}
	for _, tc := range cases {
		name, arg := splitSlash(tc.in)
		if name != tc.name || arg != tc.arg {
			t.Errorf("splitSlash(%q) = (%q, %q), want (%q, %q)", tc.in, name, arg, tc.name, tc.arg)
		}
	}
}

func TestHelpTextListsCommands(t *testing.T) {
	help := helpText()
	for _, cmd := range []string{"/help", "/history", "/chats", "/personality", "/quit"} {
		if !strings.Contains(help, cmd) {
			t.Errorf("help text missing %s", cmd)
		}
	}
}

func TestRenderTranscriptRoles(t *testing.T) {
	m := Model{}
	now := time.Now()
	out := m.renderTranscript([]chat.Message{
		{Role: "user", Content: "what's on today?", CreatedAt: now},
		{Role: "assistant", Content: "Two meetings.", CreatedAt: now},
	})
	if !strings.Contains(out, "what's on today?") {
		t.Error("user message missing from transcript")
	}
	if !strings.Contains(out, "Two meetings.") {
		t.Error("assistant message missing from transcript")
	}
	if !strings.Contains(out, "You: ") {
		t.Error("user messages should carry the You: prefix")
	}
}

func TestVersionOrDev(t *testing.T) {
	if got := versionOrDev(""); got != "dev" {
		t.Errorf("versionOrDev(\"\") = %q, want dev", got)
	}
	if got := versionOrDev("1.2.0"); got != "1.2.0" {
		t.Errorf("versionOrDev = %q, want 1.2.0", got)
	}
}
