package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/calendarik-app/calendarik/internal/api"
)

// fakeSession is an in-memory stand-in for the auth manager.
type fakeSession struct {
	mu   sync.Mutex
	user api.User
}

func (s *fakeSession) AccessToken() string { return "tok" }

func (s *fakeSession) User() *api.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user
	return &u
}

func (s *fakeSession) SetUser(fn func(*api.User)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.user)
}

// fakeChatBackend scripts the chat endpoints.
type fakeChatBackend struct {
	chat        *api.Chat
	sendFunc    func(msg api.SendMessageRequest) (*api.SendMessageResponse, error)
	personality string
}

func (b *fakeChatBackend) Chat(_ context.Context, _ string, id int) (*api.Chat, error) {
	return b.chat, nil
}

func (b *fakeChatBackend) Chats(_ context.Context, _ string) ([]api.Chat, error) {
	if b.chat == nil {
		return nil, nil
	}
	return []api.Chat{*b.chat}, nil
}

func (b *fakeChatBackend) SendMessage(_ context.Context, _ string, msg api.SendMessageRequest) (*api.SendMessageResponse, error) {
	return b.sendFunc(msg)
}

func (b *fakeChatBackend) UpdatePersonality(_ context.Context, _ string, p string) (*api.User, error) {
	b.personality = p
	return &api.User{ID: 1, ChatPersonality: p}, nil
}

func TestSendAdoptsNewChatID(t *testing.T) {
	sess := &fakeSession{user: api.User{ID: 1, ChatPersonality: "assistant"}}
	backend := &fakeChatBackend{
		sendFunc: func(msg api.SendMessageRequest) (*api.SendMessageResponse, error) {
			if msg.ChatID != 0 {
				t.Errorf("first send should carry chat_id 0, got %d", msg.ChatID)
			}
			return &api.SendMessageResponse{Message: "hi!", ChatID: 42, Title: "greeting"}, nil
		},
	}
	svc := NewService(backend, sess, newTestStore(t))

	reply, err := svc.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !reply.NewChat || reply.ChatID != 42 {
		t.Errorf("reply = %+v, want new chat 42", reply)
	}
	if sess.User().ChatID != 42 {
		t.Errorf("profile chat_id = %d, want 42 (mirrored)", sess.User().ChatID)
	}
	if reply.Assistant.Content != "hi!" {
		t.Errorf("assistant content = %q", reply.Assistant.Content)
	}
}

func TestSendUsesActivePersonality(t *testing.T) {
	sess := &fakeSession{user: api.User{ID: 1, ChatID: 5, ChatPersonality: "friend"}}
	var got api.SendMessageRequest
	backend := &fakeChatBackend{
		sendFunc: func(msg api.SendMessageRequest) (*api.SendMessageResponse, error) {
			got = msg
			return &api.SendMessageResponse{Message: "ok", ChatID: 5}, nil
		},
	}

	// Profile preference applies by default.
	svc := NewService(backend, sess, nil, WithLanguage("en"))
	if _, err := svc.Send(context.Background(), "hey"); err != nil {
		t.Fatal(err)
	}
	if got.Personality != "friend" || got.Language != "en" || got.ChatID != 5 {
		t.Errorf("request = %+v, want friend/en/5", got)
	}

	// Config override wins over the profile.
	svc = NewService(backend, sess, nil, WithPersonality("coach"))
	if _, err := svc.Send(context.Background(), "hey"); err != nil {
		t.Fatal(err)
	}
	if got.Personality != "coach" {
		t.Errorf("personality = %q, want config override", got.Personality)
	}
}

func TestSendCachesTranscript(t *testing.T) {
	sess := &fakeSession{user: api.User{ID: 1, ChatID: 7}}
	backend := &fakeChatBackend{
		sendFunc: func(msg api.SendMessageRequest) (*api.SendMessageResponse, error) {
			return &api.SendMessageResponse{Message: "answer", ChatID: 7}, nil
		},
	}
	store := newTestStore(t)
	svc := NewService(backend, sess, store)

	if _, err := svc.Send(context.Background(), "question"); err != nil {
		t.Fatal(err)
	}

	cached, err := svc.CachedHistory()
	if err != nil {
		t.Fatalf("CachedHistory: %v", err)
	}
	if len(cached) != 2 {
		t.Fatalf("cached %d messages, want 2", len(cached))
	}
	if cached[0].Role != "user" || cached[0].Content != "question" {
		t.Errorf("first cached = %+v", cached[0])
	}
	if cached[1].Role != "assistant" || cached[1].Content != "answer" {
		t.Errorf("second cached = %+v", cached[1])
	}
}

func TestSetPersonality(t *testing.T) {
	sess := &fakeSession{user: api.User{ID: 1, ChatPersonality: "assistant"}}
	backend := &fakeChatBackend{}
	svc := NewService(backend, sess, nil)

	if err := svc.SetPersonality(context.Background(), "robot"); err == nil {
		t.Fatal("unknown personality should be rejected before any network call")
	}
	if backend.personality != "" {
		t.Error("invalid personality must not reach the backend")
	}

	if err := svc.SetPersonality(context.Background(), "coach"); err != nil {
		t.Fatalf("SetPersonality: %v", err)
	}
	if backend.personality != "coach" {
		t.Errorf("backend personality = %q, want coach", backend.personality)
	}
	if sess.User().ChatPersonality != "coach" {
		t.Error("profile should mirror the personality optimistically")
	}
}

func TestHistoryWithoutChat(t *testing.T) {
	sess := &fakeSession{user: api.User{ID: 1}}
	svc := NewService(&fakeChatBackend{}, sess, nil)

	msgs, err := svc.History(context.Background())
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if msgs != nil {
		t.Errorf("user without a chat should get empty history, got %+v", msgs)
	}
}
