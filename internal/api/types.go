package api

import "time"

// TokenPair is the credential pair returned by the login and refresh endpoints.
// Both values are opaque bearer strings; the access token embeds its expiry.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
}

// User is the backend user profile.
type User struct {
	ID              int    `json:"id"`
	Email           string `json:"email"`
	FullName        string `json:"full_name"`
	Timezone        string `json:"timezone"`
	Gender          string `json:"gender"`
	IsActive        bool   `json:"is_active"`
	ChatPersonality string `json:"chat_personality"`
	ChatID          int    `json:"chat_id"`
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Timezone string `json:"timezone,omitempty"`
	Gender   string `json:"gender,omitempty"`
}

// ChatMessage is a single stored message in a chat.
type ChatMessage struct {
	ID        int       `json:"id"`
	ChatID    int       `json:"chat_id"`
	Role      string    `json:"role"` // "user" | "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Chat is a conversation with its message history.
type Chat struct {
	ID        int           `json:"id"`
	Title     string        `json:"title"`
	OwnerID   int           `json:"owner_id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Messages  []ChatMessage `json:"messages"`
}

// SendMessageRequest is the payload for the AI analyze endpoint.
// ChatID 0 asks the backend to create a new chat for the message.
type SendMessageRequest struct {
	Message     string `json:"message"`
	ChatID      int    `json:"chat_id,omitempty"`
	Personality string `json:"personality"`
	Language    string `json:"language,omitempty"`
}

// SendMessageResponse is the assistant's reply.
type SendMessageResponse struct {
	Message string `json:"message"`
	ChatID  int    `json:"chat_id"`
	Title   string `json:"title,omitempty"`
}

// Event is a calendar event as stored by the backend. RRule, when set, is an
// iCalendar recurrence rule expanded client-side for range queries.
type Event struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	AllDay      bool       `json:"all_day"`
	Priority    string     `json:"priority"` // low | medium | high
	Type        string     `json:"type"`     // task | meeting | deadline | personal
	RRule       string     `json:"rrule,omitempty"`
	OwnerID     int        `json:"owner_id"`
}

// EventDraft is the create/update payload for an event.
type EventDraft struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	AllDay      bool       `json:"all_day"`
	Priority    string     `json:"priority,omitempty"`
	Type        string     `json:"type,omitempty"`
	RRule       string     `json:"rrule,omitempty"`
}

// SpeechToken is a short-lived token for the speech-recognition service.
type SpeechToken struct {
	Token  string `json:"token"`
	Region string `json:"region"`
}
