//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"pulsechat/domain"
	"pulsechat/errors"
)

type IMessageRepository interface {
	StoreMessage(m domain.Message) error
	GetMessages(room domain.RoomID, cursor *string) ([]domain.Message, *string, error)
	GetMessage(id uuid.UUID) (domain.Message, error)
	HasMessageSince(senderID, recipientID string, since time.Time) (bool, error)
	Tombstone(room domain.RoomID, messageID uuid.UUID) error
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) IMessageRepository {
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

type diskMessage struct {
	ID          string    `cbor:"1,keyasint"`
	SenderID    string    `cbor:"2,keyasint"`
	RecipientID string    `cbor:"3,keyasint"`
	Content     string    `cbor:"4,keyasint"`
	Type        string    `cbor:"5,keyasint"`
	SentAt      int64     `cbor:"6,keyasint"` // unix nanoseconds
	IsGroup     bool      `cbor:"7,keyasint"`
}

// messageKey is formatted as "msg:{room}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
func messageKey(room domain.RoomID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", room, at.UnixNano(), id))
}

// StoreMessage persists a message. An id lookup key is written alongside so
// tombstoning does not require knowing the timestamp.
func (m *MessageRepository) StoreMessage(msg domain.Message) error {
	data, err := cbor.Marshal(fromMessage(msg))
	if err != nil {
		return err
	}
	room := domain.ResolveRoom(msg.SenderID, msg.RecipientID, msg.IsGroup)
	key := messageKey(room, msg.SentAt, msg.ID)
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		// Secondary index: message id -> primary key.
		return txn.Set([]byte("msgid:"+msg.ID.String()), key)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return nil
}

// GetMessages retrieves messages for a room, newest first, using a reverse
// prefix scan. Thanks to the padded timestamp in the key, messages are
// naturally sorted by time. It stops once the configured limit is reached
// and returns a cursor for the next page.
func (m *MessageRepository) GetMessages(room domain.RoomID, cursor *string) ([]domain.Message, *string, error) {
	var stored []diskMessage
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", room)
		prefix := []byte(prefixStr)

		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		if cursor == nil {
			// Seek past the newest possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		} else {
			seekKey = append(prefix, []byte(*cursor)...)
		}
		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(stored) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			var dm diskMessage
			err := item.Value(func(val []byte) error {
				return cbor.Unmarshal(val, &dm)
			})
			if err != nil {
				return err
			}
			stored = append(stored, dm)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	if len(stored) == 0 {
		return nil, nil, nil
	}

	messages := make([]domain.Message, 0, len(stored))
	for _, dm := range stored {
		msg, err := toMessage(dm)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, msg)
	}
	return messages, &lastKey, nil
}

// GetMessage resolves a message through the id index.
func (m *MessageRepository) GetMessage(id uuid.UUID) (domain.Message, error) {
	var dm diskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("msgid:" + id.String()))
		if err != nil {
			return err
		}
		var primary []byte
		if err := item.Value(func(val []byte) error {
			primary = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}
		item, err = txn.Get(primary)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &dm)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Message{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return toMessage(dm)
}

// HasMessageSince reports whether senderID sent recipientID at least one
// non-tombstoned direct message after the given instant. It walks the DM
// room backwards and stops at the first key older than the window.
func (m *MessageRepository) HasMessageSince(senderID, recipientID string, since time.Time) (bool, error) {
	room := domain.DMRoom(senderID, recipientID)
	found := false
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", room)
		prefix := []byte(prefixStr)

		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(prefix, []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			var dm diskMessage
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &dm)
			})
			if err != nil {
				return err
			}
			if time.Unix(0, dm.SentAt).Before(since) {
				return nil
			}
			if dm.SenderID == senderID && dm.Type != string(domain.MessageDeleted) {
				found = true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return found, nil
}

// Tombstone advances a message type to deleted in place. The row itself is
// never removed.
func (m *MessageRepository) Tombstone(room domain.RoomID, messageID uuid.UUID) error {
	err := m.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("msgid:" + messageID.String()))
		if err != nil {
			return err
		}
		var primary []byte
		if err := item.Value(func(val []byte) error {
			primary = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}

		item, err = txn.Get(primary)
		if err != nil {
			return err
		}
		var dm diskMessage
		if err := item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &dm)
		}); err != nil {
			return err
		}

		if !domain.CanAdvance(domain.MessageType(dm.Type), domain.MessageDeleted) {
			return errors.ErrConflict
		}
		dm.Type = string(domain.MessageDeleted)
		data, err := cbor.Marshal(dm)
		if err != nil {
			return err
		}
		return txn.Set(primary, data)
	})
	if err == badger.ErrKeyNotFound {
		return errors.ErrNotFound
	}
	return err
}

func fromMessage(msg domain.Message) diskMessage {
	return diskMessage{
		ID:          msg.ID.String(),
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Content:     msg.Content,
		Type:        string(msg.Type),
		SentAt:      msg.SentAt.UnixNano(),
		IsGroup:     msg.IsGroup,
	}
}

func toMessage(dm diskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(dm.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:          parsedID,
		SenderID:    dm.SenderID,
		RecipientID: dm.RecipientID,
		Content:     dm.Content,
		Type:        domain.MessageType(dm.Type),
		SentAt:      time.Unix(0, dm.SentAt).UTC(),
		IsGroup:     dm.IsGroup,
	}, nil
}
