package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pulsechat/domain"
	"pulsechat/errors"
	"pulsechat/repositories"
)

type IMessageService interface {
	Send(ctx context.Context, senderID, recipientID, content, msgType string, isGroup bool) (domain.Message, error)
	History(userID, peerID string, isGroup bool, cursor *string) ([]domain.Message, *string, error)
	Delete(userID string, messageID uuid.UUID) error
	Search(ctx context.Context, userID, query string, limit int) ([]domain.Message, error)
}

// MessageService validates, persists, and indexes messages. Persistence
// completes before the caller is allowed to fan the event out: a message is
// only broadcast once it is durable.
type MessageService struct {
	messages         repositories.IMessageRepository
	index            repositories.IMessageIndex
	users            repositories.IUserRepository
	groups           repositories.IGroupRepository
	contacts         IContactService
	streaks          *StreakTracker
	log              *slog.Logger
	maxContentLength int
}

func NewMessageService(
	messages repositories.IMessageRepository,
	index repositories.IMessageIndex,
	users repositories.IUserRepository,
	groups repositories.IGroupRepository,
	contacts IContactService,
	streaks *StreakTracker,
	log *slog.Logger,
	maxContentLength int,
) *MessageService {
	return &MessageService{
		messages:         messages,
		index:            index,
		users:            users,
		groups:           groups,
		contacts:         contacts,
		streaks:          streaks,
		log:              log,
		maxContentLength: maxContentLength,
	}
}

// Send runs the full accept path: destination checks, relationship precheck,
// durable store, search indexing, the last-words hook, and an opportunistic
// streak evaluation for direct messages.
func (s *MessageService) Send(ctx context.Context, senderID, recipientID, content, msgType string, isGroup bool) (domain.Message, error) {
	if content == "" {
		return domain.Message{}, fmt.Errorf("%w: empty content", errors.ErrValidation)
	}
	if s.maxContentLength > 0 && len(content) > s.maxContentLength {
		return domain.Message{}, fmt.Errorf("%w: content exceeds %d bytes", errors.ErrValidation, s.maxContentLength)
	}

	if isGroup {
		member, err := s.groups.IsMember(recipientID, senderID)
		if err != nil {
			return domain.Message{}, err
		}
		if !member {
			return domain.Message{}, fmt.Errorf("%w: not a member of group %s", errors.ErrForbidden, recipientID)
		}
	} else {
		if _, err := s.users.GetByID(recipientID); err != nil {
			return domain.Message{}, err
		}
		if err := s.contacts.SendPrecheck(senderID, recipientID); err != nil {
			return domain.Message{}, err
		}
	}

	msg := domain.Message{
		ID:          uuid.New(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		Type:        domain.ParseMessageType(msgType),
		SentAt:      time.Now().UTC(),
		IsGroup:     isGroup,
	}
	if err := s.messages.StoreMessage(msg); err != nil {
		return domain.Message{}, err
	}
	if err := s.index.Index(msg); err != nil {
		// The message is durable; a stale search index is acceptable.
		s.log.Warn("Message indexing failed", "message_id", msg.ID, "error", err)
	}

	if !isGroup {
		if err := s.contacts.AfterMessageSent(senderID, recipientID); err != nil {
			s.log.Error("Last-words hook failed", "sender", senderID, "recipient", recipientID, "error", err)
		}
		if _, err := s.streaks.Evaluate(senderID, recipientID, msg.SentAt); err != nil {
			s.log.Warn("Streak evaluation failed", "sender", senderID, "recipient", recipientID, "error", err)
		}
	}
	return msg, nil
}

// History pages through a conversation, newest first.
func (s *MessageService) History(userID, peerID string, isGroup bool, cursor *string) ([]domain.Message, *string, error) {
	if isGroup {
		member, err := s.groups.IsMember(peerID, userID)
		if err != nil {
			return nil, nil, err
		}
		if !member {
			return nil, nil, errors.ErrForbidden
		}
	}
	room := domain.ResolveRoom(userID, peerID, isGroup)
	return s.messages.GetMessages(room, cursor)
}

// Delete tombstones a message. Only the sender may delete, and the type can
// only ever advance towards the tombstone.
func (s *MessageService) Delete(userID string, messageID uuid.UUID) error {
	msg, err := s.messages.GetMessage(messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return errors.ErrForbidden
	}
	room := domain.ResolveRoom(msg.SenderID, msg.RecipientID, msg.IsGroup)
	if err := s.messages.Tombstone(room, messageID); err != nil {
		return err
	}
	if err := s.index.Remove(messageID.String()); err != nil {
		s.log.Warn("Index removal failed", "message_id", messageID, "error", err)
	}
	return nil
}

// Search resolves full-text matches back to message records. Ids whose
// message has since been tombstoned are skipped.
func (s *MessageService) Search(ctx context.Context, userID, query string, limit int) ([]domain.Message, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", errors.ErrValidation)
	}
	ids, err := s.index.Search(ctx, userID, query, limit)
	if err != nil {
		return nil, err
	}

	var results []domain.Message
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		msg, err := s.messages.GetMessage(parsed)
		if stderrors.Is(err, errors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if msg.Type == domain.MessageDeleted {
			continue
		}
		results = append(results, msg)
	}
	return results, nil
}
