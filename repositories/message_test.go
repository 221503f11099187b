package repositories

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"pulsechat/domain"
	"pulsechat/errors"
)

func TestMessageRepository_GetMessages_SortedNewestFirst(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(newTestDB(t), slog.Default(), nil)

	at := time.Now().UTC()
	for i, sender := range []string{"alice", "bob", "alice"} {
		req.NoError(repo.StoreMessage(domain.Message{
			ID:          uuid.New(),
			SenderID:    sender,
			RecipientID: other(sender),
			Content:     fmt.Sprintf("message %d", i),
			Type:        domain.MessageText,
			SentAt:      at.Add(time.Duration(i) * time.Minute),
		}))
	}

	fetched, _, err := repo.GetMessages(domain.DMRoom("alice", "bob"), nil)
	req.NoError(err)
	req.Len(fetched, 3)
	req.Equal("message 2", fetched[0].Content)
	req.Equal("message 0", fetched[2].Content)
}

func other(sender string) string {
	if sender == "alice" {
		return "bob"
	}
	return "alice"
}

func TestMessageRepository_Pagination(t *testing.T) {
	req := require.New(t)
	limit := 4
	repo := NewMessageRepository(newTestDB(t), slog.Default(), &limit)
	room := domain.DMRoom("alice", "bob")
	now := time.Now().UTC()

	for i := 1; i <= 10; i++ {
		req.NoError(repo.StoreMessage(domain.Message{
			ID:          uuid.New(),
			SenderID:    "alice",
			RecipientID: "bob",
			Content:     fmt.Sprintf("message %d", i),
			Type:        domain.MessageText,
			SentAt:      now.Add(time.Duration(i) * time.Minute),
		}))
	}

	// Page 1: the four newest.
	page1, cursor1, err := repo.GetMessages(room, nil)
	req.NoError(err)
	req.Len(page1, 4)
	req.Equal("message 10", page1[0].Content)
	req.Equal("message 7", page1[3].Content)
	req.NotEmpty(cursor1)

	// Page 2 continues without duplicates.
	page2, cursor2, err := repo.GetMessages(room, cursor1)
	req.NoError(err)
	req.Len(page2, 4)
	req.Equal("message 6", page2[0].Content)
	req.Equal("message 3", page2[3].Content)

	// Page 3 drains the rest.
	page3, cursor3, err := repo.GetMessages(room, cursor2)
	req.NoError(err)
	req.Len(page3, 2)
	req.Equal("message 1", page3[1].Content)

	// The drained page carries no cursor, so clients know to stop.
	page4, cursor4, err := repo.GetMessages(room, cursor3)
	req.NoError(err)
	req.Empty(page4)
	req.Nil(cursor4)
}

func TestMessageRepository_HasMessageSince(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(newTestDB(t), slog.Default(), nil)
	now := time.Now().UTC()

	// Alice messaged inside the window, Bob only before it.
	req.NoError(repo.StoreMessage(domain.Message{
		ID: uuid.New(), SenderID: "alice", RecipientID: "bob",
		Content: "recent", Type: domain.MessageText, SentAt: now.Add(-time.Hour),
	}))
	req.NoError(repo.StoreMessage(domain.Message{
		ID: uuid.New(), SenderID: "bob", RecipientID: "alice",
		Content: "stale", Type: domain.MessageText, SentAt: now.Add(-30 * time.Hour),
	}))

	since := now.Add(-24 * time.Hour)

	aliceSent, err := repo.HasMessageSince("alice", "bob", since)
	req.NoError(err)
	req.True(aliceSent)

	bobSent, err := repo.HasMessageSince("bob", "alice", since)
	req.NoError(err)
	req.False(bobSent)
}

func TestMessageRepository_HasMessageSince_IgnoresTombstones(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(newTestDB(t), slog.Default(), nil)
	now := time.Now().UTC()
	room := domain.DMRoom("alice", "bob")

	id := uuid.New()
	req.NoError(repo.StoreMessage(domain.Message{
		ID: id, SenderID: "alice", RecipientID: "bob",
		Content: "oops", Type: domain.MessageText, SentAt: now.Add(-time.Hour),
	}))
	req.NoError(repo.Tombstone(room, id))

	sent, err := repo.HasMessageSince("alice", "bob", now.Add(-24*time.Hour))
	req.NoError(err)
	req.False(sent)
}

func TestMessageRepository_Tombstone(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(newTestDB(t), slog.Default(), nil)
	room := domain.DMRoom("alice", "bob")

	id := uuid.New()
	req.NoError(repo.StoreMessage(domain.Message{
		ID: id, SenderID: "alice", RecipientID: "bob",
		Content: "delete me", Type: domain.MessageText, SentAt: time.Now().UTC(),
	}))

	req.NoError(repo.Tombstone(room, id))

	// The row survives with the tombstone type and its content intact.
	msg, err := repo.GetMessage(id)
	req.NoError(err)
	req.Equal(domain.MessageDeleted, msg.Type)

	// Tombstoning twice is a conflict, not an idempotent no-op.
	req.ErrorIs(repo.Tombstone(room, id), errors.ErrConflict)

	// Unknown ids surface as not found.
	req.ErrorIs(repo.Tombstone(room, uuid.New()), errors.ErrNotFound)
}

func TestMessageRepository_GetMessage_ViaIDIndex(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(newTestDB(t), slog.Default(), nil)

	id := uuid.New()
	sentAt := time.Now().UTC().Truncate(time.Millisecond)
	req.NoError(repo.StoreMessage(domain.Message{
		ID: id, SenderID: "alice", RecipientID: "bob",
		Content: "find me", Type: domain.MessageText, SentAt: sentAt,
	}))

	msg, err := repo.GetMessage(id)
	req.NoError(err)
	req.Equal("find me", msg.Content)
	req.True(sentAt.Equal(msg.SentAt))

	_, err = repo.GetMessage(uuid.New())
	req.ErrorIs(err, errors.ErrNotFound)
}
