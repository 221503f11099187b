// Package event defines the realtime events emitted to live connections.
// Field names and event names are part of the client protocol and must not
// change.
package event

// DomainEvent is anything that can be pushed to a live connection.
type DomainEvent interface {
	Name() string
}

type UserStatus struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Status   string `json:"status"` // online or offline
}

func (UserStatus) Name() string { return "user_status" }

type NewMessage struct {
	MessageID      string `json:"message_id"`
	SenderID       string `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	Content        string `json:"content"`
	Type           string `json:"type"`
	Timestamp      string `json:"timestamp"`
	IsGroup        bool   `json:"is_group"`
	RecipientID    string `json:"recipient_id"`
}

func (NewMessage) Name() string { return "new_message" }

type TypingIndicator struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	IsTyping  bool   `json:"is_typing"`
	Timestamp string `json:"timestamp"`
}

func (TypingIndicator) Name() string { return "typing_indicator" }

type ContactAdded struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

func (ContactAdded) Name() string { return "contact_added" }

type ContactRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

func (ContactRequest) Name() string { return "contact_request" }

type Error struct {
	Message string `json:"message"`
}

func (Error) Name() string { return "error" }
