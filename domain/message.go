// Package domain contains core concepts of the chat system.
// This file defines Message records and the tombstone rule.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageType classifies message content. Content itself is opaque.
type MessageType string

const (
	MessageText    MessageType = "text"
	MessageImage   MessageType = "image"
	MessageItem    MessageType = "item"
	MessageDeleted MessageType = "deleted"
)

// ParseMessageType returns the type for a raw wire value, defaulting to text.
func ParseMessageType(raw string) MessageType {
	switch MessageType(raw) {
	case MessageText, MessageImage, MessageItem, MessageDeleted:
		return MessageType(raw)
	}
	return MessageText
}

// Message is immutable once created, except for Type which may only advance
// to the deleted tombstone. Rows are never physically removed.
type Message struct {
	ID          uuid.UUID
	SenderID    string
	RecipientID string // user id or group id, disambiguated by IsGroup
	Content     string
	Type        MessageType
	SentAt      time.Time
	IsGroup     bool
}

// CanAdvance reports whether a message type change is allowed. The only
// legal move is towards the tombstone.
func CanAdvance(from, to MessageType) bool {
	return to == MessageDeleted && from != MessageDeleted
}
