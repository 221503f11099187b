package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pulsechat/domain"
	"pulsechat/errors"
	"pulsechat/mocks"
	"pulsechat/repositories"
)

type messageServiceFixture struct {
	svc      *MessageService
	messages *mocks.MockIMessageRepository
	index    *mocks.MockIMessageIndex
	users    *mocks.MockIUserRepository
	groups   *mocks.MockIGroupRepository
	contacts *mocks.MockIContactRepository
}

func newMessageService(t *testing.T) messageServiceFixture {
	ctrl := gomock.NewController(t)
	messages := mocks.NewMockIMessageRepository(ctrl)
	index := mocks.NewMockIMessageIndex(ctrl)
	users := mocks.NewMockIUserRepository(ctrl)
	groups := mocks.NewMockIGroupRepository(ctrl)
	contacts := mocks.NewMockIContactRepository(ctrl)

	streaks := NewStreakTracker(contacts, messages, slog.Default())
	contactService := NewContactService(contacts, users, streaks, slog.Default())
	svc := NewMessageService(messages, index, users, groups, contactService, streaks, slog.Default(), 2000)

	return messageServiceFixture{
		svc: svc, messages: messages, index: index,
		users: users, groups: groups, contacts: contacts,
	}
}

func TestMessageService_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("should store before indexing and run the post-send hooks", func(t *testing.T) {
		req := require.New(t)
		f := newMessageService(t)

		f.users.EXPECT().GetByID("bob").Return(repositories.Account{ID: "bob"}, nil)
		// Precheck: no outbound edge, sending is allowed.
		f.contacts.EXPECT().Get("alice", "bob").Return(domain.ContactEdge{}, errors.ErrNotFound)

		stored := false
		f.messages.EXPECT().StoreMessage(gomock.Any()).
			DoAndReturn(func(m domain.Message) error {
				stored = true
				return nil
			})
		f.index.EXPECT().Index(gomock.Any()).
			DoAndReturn(func(m domain.Message) error {
				require.New(t).True(stored, "index must only see durable messages")
				return nil
			})
		// Last-words hook then streak evaluation, both edge lookups.
		f.contacts.EXPECT().Get("alice", "bob").Return(domain.ContactEdge{}, errors.ErrNotFound).Times(2)

		msg, err := f.svc.Send(ctx, "alice", "bob", "hello", "text", false)

		req.NoError(err)
		req.Equal("alice", msg.SenderID)
		req.Equal(domain.MessageText, msg.Type)
		req.False(msg.IsGroup)
	})

	t.Run("should refuse empty content", func(t *testing.T) {
		req := require.New(t)
		f := newMessageService(t)

		_, err := f.svc.Send(ctx, "alice", "bob", "", "text", false)

		req.ErrorIs(err, errors.ErrValidation)
	})

	t.Run("should refuse oversized content", func(t *testing.T) {
		req := require.New(t)
		f := newMessageService(t)

		big := make([]byte, 2001)
		for i := range big {
			big[i] = 'a'
		}

		_, err := f.svc.Send(ctx, "alice", "bob", string(big), "text", false)

		req.ErrorIs(err, errors.ErrValidation)
	})

	t.Run("should refuse a blocked direction before storing anything", func(t *testing.T) {
		req := require.New(t)
		f := newMessageService(t)

		f.users.EXPECT().GetByID("bob").Return(repositories.Account{ID: "bob"}, nil)
		f.contacts.EXPECT().Get("alice", "bob").
			Return(domain.ContactEdge{OwnerID: "alice", PeerID: "bob", Status: domain.StatusFBlocked}, nil)
		f.messages.EXPECT().StoreMessage(gomock.Any()).Times(0)

		_, err := f.svc.Send(ctx, "alice", "bob", "hello", "text", false)

		req.ErrorIs(err, errors.ErrConflict)
	})

	t.Run("should flip the last-words edge after the grace message", func(t *testing.T) {
		req := require.New(t)
		f := newMessageService(t)

		f.users.EXPECT().GetByID("bob").Return(repositories.Account{ID: "bob"}, nil)
		lastWords := domain.ContactEdge{OwnerID: "alice", PeerID: "bob", Status: domain.StatusLastWords}
		// Precheck sees LASTWORDS and lets the message through.
		f.contacts.EXPECT().Get("alice", "bob").Return(lastWords, nil)
		f.messages.EXPECT().StoreMessage(gomock.Any()).Return(nil)
		f.index.EXPECT().Index(gomock.Any()).Return(nil)
		// The hook sees the same edge and closes the door.
		f.contacts.EXPECT().Get("alice", "bob").Return(lastWords, nil)
		f.contacts.EXPECT().Update(gomock.Any()).
			DoAndReturn(func(edge domain.ContactEdge) error {
				require.New(t).Equal(domain.StatusFBlocked, edge.Status)
				return nil
			})
		// Streak evaluation runs afterwards; the pair has no mirror edge.
		f.contacts.EXPECT().Get("alice", "bob").
			Return(domain.ContactEdge{OwnerID: "alice", PeerID: "bob", Status: domain.StatusFBlocked}, nil)
		f.contacts.EXPECT().Get("bob", "alice").Return(domain.ContactEdge{}, errors.ErrNotFound)

		_, err := f.svc.Send(ctx, "alice", "bob", "goodbye", "text", false)

		req.NoError(err)
	})

	t.Run("should refuse group sends from non-members", func(t *testing.T) {
		req := require.New(t)
		f := newMessageService(t)

		f.groups.EXPECT().IsMember("g1", "alice").Return(false, nil)
		f.messages.EXPECT().StoreMessage(gomock.Any()).Times(0)

		_, err := f.svc.Send(ctx, "alice", "g1", "hello", "text", true)

		req.ErrorIs(err, errors.ErrForbidden)
	})

	t.Run("should still succeed when indexing fails", func(t *testing.T) {
		req := require.New(t)
		f := newMessageService(t)

		f.groups.EXPECT().IsMember("g1", "alice").Return(true, nil)
		f.messages.EXPECT().StoreMessage(gomock.Any()).Return(nil)
		f.index.EXPECT().Index(gomock.Any()).Return(errors.ErrPersistence)

		msg, err := f.svc.Send(ctx, "alice", "g1", "hello", "text", true)

		req.NoError(err)
		req.True(msg.IsGroup)
	})
}

func TestMessageService_History(t *testing.T) {
	t.Run("should resolve the canonical DM room", func(t *testing.T) {
		req := require.New(t)
		f := newMessageService(t)

		f.messages.EXPECT().GetMessages(domain.RoomID("dm_alice_bob"), nil).
			Return([]domain.Message{}, nil, nil)

		_, _, err := f.svc.History("bob", "alice", false, nil)

		req.NoError(err)
	})

	t.Run("should refuse group history for non-members", func(t *testing.T) {
		req := require.New(t)
		f := newMessageService(t)

		f.groups.EXPECT().IsMember("g1", "alice").Return(false, nil)

		_, _, err := f.svc.History("alice", "g1", true, nil)

		req.ErrorIs(err, errors.ErrForbidden)
	})
}

func TestMessageService_Delete(t *testing.T) {
	id := uuid.New()

	t.Run("should tombstone and deindex the sender's own message", func(t *testing.T) {
		req := require.New(t)
		f := newMessageService(t)

		f.messages.EXPECT().GetMessage(id).Return(domain.Message{
			ID: id, SenderID: "alice", RecipientID: "bob", SentAt: time.Now().UTC(),
		}, nil)
		f.messages.EXPECT().Tombstone(domain.RoomID("dm_alice_bob"), id).Return(nil)
		f.index.EXPECT().Remove(id.String()).Return(nil)

		req.NoError(f.svc.Delete("alice", id))
	})

	t.Run("should refuse deleting someone else's message", func(t *testing.T) {
		req := require.New(t)
		f := newMessageService(t)

		f.messages.EXPECT().GetMessage(id).Return(domain.Message{
			ID: id, SenderID: "alice", RecipientID: "bob",
		}, nil)
		f.messages.EXPECT().Tombstone(gomock.Any(), gomock.Any()).Times(0)

		req.ErrorIs(f.svc.Delete("bob", id), errors.ErrForbidden)
	})
}

func TestMessageService_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("should skip tombstoned matches", func(t *testing.T) {
		req := require.New(t)
		f := newMessageService(t)

		live := uuid.New()
		deleted := uuid.New()
		f.index.EXPECT().Search(ctx, "alice", "hello", 10).
			Return([]string{live.String(), deleted.String()}, nil)
		f.messages.EXPECT().GetMessage(live).
			Return(domain.Message{ID: live, SenderID: "alice", Content: "hello", Type: domain.MessageText}, nil)
		f.messages.EXPECT().GetMessage(deleted).
			Return(domain.Message{ID: deleted, Type: domain.MessageDeleted}, nil)

		results, err := f.svc.Search(ctx, "alice", "hello", 10)

		req.NoError(err)
		req.Len(results, 1)
		req.Equal(live, results[0].ID)
	})

	t.Run("should refuse an empty query", func(t *testing.T) {
		req := require.New(t)
		f := newMessageService(t)

		_, err := f.svc.Search(ctx, "alice", "", 10)

		req.ErrorIs(err, errors.ErrValidation)
	})
}
