//go:generate go run go.uber.org/mock/mockgen -source=search.go -destination=../mocks/mock_message_index.go -package=mocks
package repositories

import (
	"context"
	"fmt"

	"github.com/blugelabs/bluge"

	"pulsechat/domain"
)

// IMessageIndex is the full-text index over message content. Tombstoned
// messages are removed from the index but kept in primary storage.
type IMessageIndex interface {
	Index(m domain.Message) error
	Remove(messageID string) error
	Search(ctx context.Context, userID, query string, limit int) ([]string, error)
}

type MessageIndex struct {
	writer *bluge.Writer
}

func NewMessageIndex(writer *bluge.Writer) IMessageIndex {
	return &MessageIndex{writer: writer}
}

// Index makes a message searchable by its content. Sender and recipient ids
// are kept as keyword fields so results can be restricted to conversations
// the searching user takes part in.
func (i *MessageIndex) Index(m domain.Message) error {
	doc := bluge.NewDocument(m.ID.String()).
		AddField(bluge.NewTextField("content", m.Content)).
		AddField(bluge.NewKeywordField("sender_id", m.SenderID)).
		AddField(bluge.NewKeywordField("recipient_id", m.RecipientID))
	return i.writer.Update(doc.ID(), doc)
}

func (i *MessageIndex) Remove(messageID string) error {
	doc := bluge.NewDocument(messageID)
	return i.writer.Delete(doc.ID())
}

// Search returns ids of messages matching the query, restricted to messages
// the user sent or received, best match first.
func (i *MessageIndex) Search(ctx context.Context, userID, query string, limit int) ([]string, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	participant := bluge.NewBooleanQuery().
		AddShould(bluge.NewTermQuery(userID).SetField("sender_id")).
		AddShould(bluge.NewTermQuery(userID).SetField("recipient_id")).
		SetMinShould(1)

	full := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField("content")).
		AddMust(participant)

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, full))
	if err != nil {
		return nil, err
	}

	var ids []string
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, fmt.Errorf("search iteration failed: %w", err)
		}
		if match == nil {
			break
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				ids = append(ids, string(value))
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}
