// Package chat orchestrates the assistant conversation: history loading,
// message send with lazy chat creation, personality switching, and a local
// transcript cache for offline viewing.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/calendarik-app/calendarik/internal/api"
)

// Personalities the backend accepts for the assistant.
var Personalities = []string{"assistant", "coach", "friend", "girlfriend", "boyfriend"}

// ValidPersonality reports whether p is one of the accepted personalities.
func ValidPersonality(p string) bool {
	for _, v := range Personalities {
		if v == p {
			return true
		}
	}
	return false
}

// Message is one transcript entry. Local messages get a client-generated ID
// so the cache can hold them before the backend has assigned anything.
type Message struct {
	ID        string
	ChatID    int
	Role      string // "user" | "assistant"
	Content   string
	CreatedAt time.Time
}

// backend is the slice of the API client the chat service needs.
type backend interface {
	Chat(ctx context.Context, token string, id int) (*api.Chat, error)
	Chats(ctx context.Context, token string) ([]api.Chat, error)
	SendMessage(ctx context.Context, token string, msg api.SendMessageRequest) (*api.SendMessageResponse, error)
	UpdatePersonality(ctx context.Context, token, personality string) (*api.User, error)
}

// session is the slice of the session manager the chat service needs.
type session interface {
	AccessToken() string
	User() *api.User
	SetUser(fn func(*api.User))
}

// Service ties the backend chat endpoints to the session and the local cache.
type Service struct {
	backend backend
	session session
	cache   Store
	log     *slog.Logger

	// personality/language are client-side overrides from config; empty
	// personality falls back to the profile's stored preference.
	personality string
	language    string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithPersonality sets a client-side personality override.
func WithPersonality(p string) ServiceOption {
	return func(s *Service) { s.personality = p }
}

// WithLanguage sets the language hint sent with every message.
func WithLanguage(l string) ServiceOption {
	return func(s *Service) { s.language = l }
}

// WithServiceLogger attaches a logger.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) { s.log = log }
}

// NewService creates the chat orchestrator. cache may be nil (no local copy).
func NewService(b backend, sess session, cache Store, opts ...ServiceOption) *Service {
	s := &Service{
		backend: b,
		session: sess,
		cache:   cache,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ActivePersonality resolves the personality for outgoing messages:
// config override, then profile preference, then "assistant".
func (s *Service) ActivePersonality() string {
	if s.personality != "" {
		return s.personality
	}
	if u := s.session.User(); u != nil && u.ChatPersonality != "" {
		return u.ChatPersonality
	}
	return "assistant"
}

// activeChatID is the profile's current chat, 0 when none exists yet.
func (s *Service) activeChatID() int {
	if u := s.session.User(); u != nil {
		return u.ChatID
	}
	return 0
}

// History loads the active chat's messages from the backend and mirrors them
// into the local cache. A user without a chat yet gets an empty history.
func (s *Service) History(ctx context.Context) ([]Message, error) {
	chatID := s.activeChatID()
	if chatID == 0 {
		return nil, nil
	}

	ch, err := s.backend.Chat(ctx, s.session.AccessToken(), chatID)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}

	msgs := make([]Message, 0, len(ch.Messages))
	for _, m := range ch.Messages {
		msgs = append(msgs, Message{
			ID:        fmt.Sprintf("srv-%d", m.ID),
			ChatID:    m.ChatID,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}

	if s.cache != nil {
		if err := s.cache.UpsertChat(ch.ID, ch.Title); err != nil {
			s.log.Warn("caching chat failed", "err", err)
		} else if err := s.cache.ReplaceMessages(ch.ID, msgs); err != nil {
			s.log.Warn("caching history failed", "err", err)
		}
	}
	return msgs, nil
}

// CachedHistory returns the locally cached transcript of the active chat,
// for offline use.
func (s *Service) CachedHistory() ([]Message, error) {
	if s.cache == nil {
		return nil, nil
	}
	chatID := s.activeChatID()
	if chatID == 0 {
		return nil, nil
	}
	return s.cache.Messages(chatID)
}

// Reply is the outcome of a send: the user's message as recorded locally and
// the assistant's answer.
type Reply struct {
	Sent      Message
	Assistant Message
	ChatID    int
	NewChat   bool
	Title     string
}

// Send submits text to the assistant. When the profile has no chat yet the
// backend creates one; the new chat id is mirrored into the profile so
// subsequent sends land in the same conversation.
func (s *Service) Send(ctx context.Context, text string) (*Reply, error) {
	chatID := s.activeChatID()

	sent := Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      "user",
		Content:   text,
		CreatedAt: time.Now(),
	}

	resp, err := s.backend.SendMessage(ctx, s.session.AccessToken(), api.SendMessageRequest{
		Message:     text,
		ChatID:      chatID,
		Personality: s.ActivePersonality(),
		Language:    s.language,
	})
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	newChat := chatID == 0 && resp.ChatID != 0
	if newChat {
		s.session.SetUser(func(u *api.User) { u.ChatID = resp.ChatID })
	}
	sent.ChatID = resp.ChatID

	assistant := Message{
		ID:        uuid.NewString(),
		ChatID:    resp.ChatID,
		Role:      "assistant",
		Content:   resp.Message,
		CreatedAt: time.Now(),
	}

	if s.cache != nil {
		title := resp.Title
		if title == "" {
			title = firstWords(text, 50)
		}
		if err := s.cache.UpsertChat(resp.ChatID, title); err != nil {
			s.log.Warn("caching chat failed", "err", err)
		} else {
			if err := s.cache.AppendMessage(sent); err != nil {
				s.log.Warn("caching sent message failed", "err", err)
			}
			if err := s.cache.AppendMessage(assistant); err != nil {
				s.log.Warn("caching reply failed", "err", err)
			}
		}
	}

	return &Reply{
		Sent:      sent,
		Assistant: assistant,
		ChatID:    resp.ChatID,
		NewChat:   newChat,
		Title:     resp.Title,
	}, nil
}

// SetPersonality validates and persists a new assistant personality, then
// mirrors it into the cached profile without a re-fetch.
func (s *Service) SetPersonality(ctx context.Context, personality string) error {
	if !ValidPersonality(personality) {
		return fmt.Errorf("invalid personality %q (valid: %v)", personality, Personalities)
	}
	if _, err := s.backend.UpdatePersonality(ctx, s.session.AccessToken(), personality); err != nil {
		return fmt.Errorf("update personality: %w", err)
	}
	s.session.SetUser(func(u *api.User) { u.ChatPersonality = personality })
	return nil
}

// Chats lists the user's conversations.
func (s *Service) Chats(ctx context.Context) ([]api.Chat, error) {
	return s.backend.Chats(ctx, s.session.AccessToken())
}

// firstWords truncates text for use as a fallback chat title.
func firstWords(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
