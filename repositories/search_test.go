package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"pulsechat/domain"
)

func newTestIndex(t *testing.T) IMessageIndex {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return NewMessageIndex(writer)
}

func message(sender, recipient, content string) domain.Message {
	return domain.Message{
		ID:          uuid.New(),
		SenderID:    sender,
		RecipientID: recipient,
		Content:     content,
		Type:        domain.MessageText,
		SentAt:      time.Now().UTC(),
	}
}

func TestMessageIndex_Search(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	index := newTestIndex(t)

	mine := message("alice", "bob", "the launch is friday")
	theirs := message("carol", "dave", "the launch slipped again")
	req.NoError(index.Index(mine))
	req.NoError(index.Index(theirs))

	// Only conversations the searcher takes part in come back.
	ids, err := index.Search(ctx, "alice", "launch", 10)
	req.NoError(err)
	req.Equal([]string{mine.ID.String()}, ids)

	// Recipients can find the message too.
	ids, err = index.Search(ctx, "bob", "launch", 10)
	req.NoError(err)
	req.Equal([]string{mine.ID.String()}, ids)

	// Outsiders see nothing.
	ids, err = index.Search(ctx, "eve", "launch", 10)
	req.NoError(err)
	req.Empty(ids)
}

func TestMessageIndex_Remove(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	index := newTestIndex(t)

	msg := message("alice", "bob", "forget this one")
	req.NoError(index.Index(msg))
	req.NoError(index.Remove(msg.ID.String()))

	ids, err := index.Search(ctx, "alice", "forget", 10)
	req.NoError(err)
	req.Empty(ids)
}
