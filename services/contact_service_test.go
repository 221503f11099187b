package services

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pulsechat/domain"
	"pulsechat/errors"
	"pulsechat/mocks"
	"pulsechat/repositories"
)

func newContactService(t *testing.T) (*ContactService, *mocks.MockIContactRepository, *mocks.MockIUserRepository, *mocks.MockIMessageRepository) {
	ctrl := gomock.NewController(t)
	contacts := mocks.NewMockIContactRepository(ctrl)
	users := mocks.NewMockIUserRepository(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	streaks := NewStreakTracker(contacts, messages, slog.Default())
	return NewContactService(contacts, users, streaks, slog.Default()), contacts, users, messages
}

func TestContactService_AddContactByName(t *testing.T) {
	t.Run("should create a NEW edge towards a known peer", func(t *testing.T) {
		req := require.New(t)
		svc, contacts, users, _ := newContactService(t)

		users.EXPECT().GetByUsername("bob").
			Return(repositories.Account{ID: "bob-id", Username: "bob"}, nil)
		contacts.EXPECT().Create(gomock.Any()).
			DoAndReturn(func(edge domain.ContactEdge) error {
				r := require.New(t)
				r.Equal("alice-id", edge.OwnerID)
				r.Equal("bob-id", edge.PeerID)
				r.Equal(domain.StatusNew, edge.Status)
				return nil
			})

		view, suggestions, err := svc.AddContactByName("alice-id", "bob")

		req.NoError(err)
		req.Empty(suggestions)
		req.Equal("bob-id", view.ContactID)
		req.Equal(domain.StatusNew, view.Status)
	})

	t.Run("should return fuzzy suggestions for an unknown name", func(t *testing.T) {
		req := require.New(t)
		svc, _, users, _ := newContactService(t)

		users.EXPECT().GetByUsername("boob").
			Return(repositories.Account{}, errors.ErrNotFound)
		users.EXPECT().SuggestUsernames("boob", "alice-id").
			Return([]string{"bob", "boo"}, nil)

		_, suggestions, err := svc.AddContactByName("alice-id", "boob")

		req.ErrorIs(err, errors.ErrNotFound)
		req.Equal([]string{"bob", "boo"}, suggestions)
	})

	t.Run("should refuse adding yourself", func(t *testing.T) {
		req := require.New(t)
		svc, contacts, users, _ := newContactService(t)

		users.EXPECT().GetByUsername("alice").
			Return(repositories.Account{ID: "alice-id", Username: "alice"}, nil)
		contacts.EXPECT().Create(gomock.Any()).Times(0)

		_, _, err := svc.AddContactByName("alice-id", "alice")

		req.ErrorIs(err, errors.ErrValidation)
	})

	t.Run("should surface a duplicate edge", func(t *testing.T) {
		req := require.New(t)
		svc, contacts, users, _ := newContactService(t)

		users.EXPECT().GetByUsername("bob").
			Return(repositories.Account{ID: "bob-id", Username: "bob"}, nil)
		contacts.EXPECT().Create(gomock.Any()).Return(errors.ErrAlreadyExists)

		_, _, err := svc.AddContactByName("alice-id", "bob")

		req.ErrorIs(err, errors.ErrAlreadyExists)
	})
}

func TestContactService_ChangeStatus(t *testing.T) {
	edge := func(owner, peer string, status domain.ContactStatus) domain.ContactEdge {
		return domain.ContactEdge{OwnerID: owner, PeerID: peer, Status: status}
	}

	t.Run("should go pending on a first friend request", func(t *testing.T) {
		req := require.New(t)
		svc, contacts, _, _ := newContactService(t)

		contacts.EXPECT().Get("alice", "bob").Return(edge("alice", "bob", domain.StatusNew), nil)
		contacts.EXPECT().Get("bob", "alice").Return(edge("bob", "alice", domain.StatusNew), nil)
		contacts.EXPECT().UpdatePair(gomock.Any(), gomock.Any()).
			DoAndReturn(func(owner, reciprocal domain.ContactEdge) error {
				r := require.New(t)
				r.Equal(domain.StatusPendingFriend, owner.Status)
				r.Equal(domain.StatusFFriend, reciprocal.Status)
				return nil
			})

		status, err := svc.ChangeStatus("alice", "bob", "friend")

		req.NoError(err)
		req.Equal(domain.StatusPendingFriend, status)
	})

	t.Run("should become mutual when answering an outstanding request", func(t *testing.T) {
		req := require.New(t)
		svc, contacts, _, _ := newContactService(t)

		contacts.EXPECT().Get("bob", "alice").Return(edge("bob", "alice", domain.StatusFFriend), nil)
		contacts.EXPECT().Get("alice", "bob").Return(edge("alice", "bob", domain.StatusPendingFriend), nil)
		contacts.EXPECT().UpdatePair(gomock.Any(), gomock.Any()).
			DoAndReturn(func(owner, reciprocal domain.ContactEdge) error {
				r := require.New(t)
				r.Equal(domain.StatusFriend, owner.Status)
				r.Equal(domain.StatusFriend, reciprocal.Status)
				return nil
			})

		status, err := svc.ChangeStatus("bob", "alice", "friend")

		req.NoError(err)
		req.Equal(domain.StatusFriend, status)
	})

	t.Run("should materialize a missing reciprocal edge when blocking", func(t *testing.T) {
		req := require.New(t)
		svc, contacts, _, _ := newContactService(t)

		contacts.EXPECT().Get("alice", "bob").Return(edge("alice", "bob", domain.StatusFriend), nil)
		contacts.EXPECT().Get("bob", "alice").Return(domain.ContactEdge{}, errors.ErrNotFound)
		contacts.EXPECT().UpdatePair(gomock.Any(), gomock.Any()).
			DoAndReturn(func(owner, reciprocal domain.ContactEdge) error {
				r := require.New(t)
				r.Equal(domain.StatusBlock, owner.Status)
				r.Equal("bob", reciprocal.OwnerID)
				r.Equal("alice", reciprocal.PeerID)
				r.Equal(domain.StatusLastWords, reciprocal.Status)
				return nil
			})

		status, err := svc.ChangeStatus("alice", "bob", "block")

		req.NoError(err)
		req.Equal(domain.StatusBlock, status)
	})

	t.Run("should refuse unfriending someone who blocked you", func(t *testing.T) {
		req := require.New(t)
		svc, contacts, _, _ := newContactService(t)

		contacts.EXPECT().Get("alice", "bob").Return(edge("alice", "bob", domain.StatusLastWords), nil)
		contacts.EXPECT().Get("bob", "alice").Return(edge("bob", "alice", domain.StatusBlock), nil)
		contacts.EXPECT().UpdatePair(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.ChangeStatus("alice", "bob", "unfriend")

		req.ErrorIs(err, errors.ErrConflict)
	})

	t.Run("should refuse system-managed statuses", func(t *testing.T) {
		req := require.New(t)
		svc, _, _, _ := newContactService(t)

		_, err := svc.ChangeStatus("alice", "bob", "fblocked")

		req.ErrorIs(err, errors.ErrForbidden)
	})

	t.Run("should fail when the owner has no edge", func(t *testing.T) {
		req := require.New(t)
		svc, contacts, _, _ := newContactService(t)

		contacts.EXPECT().Get("alice", "bob").Return(domain.ContactEdge{}, errors.ErrNotFound)

		_, err := svc.ChangeStatus("alice", "bob", "friend")

		req.ErrorIs(err, errors.ErrNotFound)
	})
}

func TestContactService_SendPrecheck(t *testing.T) {
	edge := func(status domain.ContactStatus) domain.ContactEdge {
		return domain.ContactEdge{OwnerID: "alice", PeerID: "bob", Status: status}
	}

	t.Run("should pass without any edge", func(t *testing.T) {
		req := require.New(t)
		svc, contacts, _, _ := newContactService(t)

		contacts.EXPECT().Get("alice", "bob").Return(domain.ContactEdge{}, errors.ErrNotFound)

		req.NoError(svc.SendPrecheck("alice", "bob"))
	})

	t.Run("should pass during the last-words grace", func(t *testing.T) {
		req := require.New(t)
		svc, contacts, _, _ := newContactService(t)

		contacts.EXPECT().Get("alice", "bob").Return(edge(domain.StatusLastWords), nil)

		req.NoError(svc.SendPrecheck("alice", "bob"))
	})

	t.Run("should refuse once the grace is spent", func(t *testing.T) {
		req := require.New(t)
		svc, contacts, _, _ := newContactService(t)

		contacts.EXPECT().Get("alice", "bob").Return(edge(domain.StatusFBlocked), nil)

		err := svc.SendPrecheck("alice", "bob")

		req.ErrorIs(err, errors.ErrConflict)
		req.ErrorIs(err, errors.ErrBlocked)
	})

	t.Run("should refuse sending to someone you blocked", func(t *testing.T) {
		req := require.New(t)
		svc, contacts, _, _ := newContactService(t)

		contacts.EXPECT().Get("alice", "bob").Return(edge(domain.StatusBlock), nil)

		req.ErrorIs(svc.SendPrecheck("alice", "bob"), errors.ErrConflict)
	})
}

func TestContactService_AfterMessageSent(t *testing.T) {
	t.Run("should close the door after the grace message", func(t *testing.T) {
		req := require.New(t)
		svc, contacts, _, _ := newContactService(t)

		contacts.EXPECT().Get("alice", "bob").
			Return(domain.ContactEdge{OwnerID: "alice", PeerID: "bob", Status: domain.StatusLastWords}, nil)
		contacts.EXPECT().Update(gomock.Any()).
			DoAndReturn(func(edge domain.ContactEdge) error {
				require.New(t).Equal(domain.StatusFBlocked, edge.Status)
				return nil
			})

		req.NoError(svc.AfterMessageSent("alice", "bob"))
	})

	t.Run("should leave ordinary edges alone", func(t *testing.T) {
		req := require.New(t)
		svc, contacts, _, _ := newContactService(t)

		contacts.EXPECT().Get("alice", "bob").
			Return(domain.ContactEdge{OwnerID: "alice", PeerID: "bob", Status: domain.StatusFriend}, nil)
		contacts.EXPECT().Update(gomock.Any()).Times(0)

		req.NoError(svc.AfterMessageSent("alice", "bob"))
	})
}

func TestContactService_FriendPeers(t *testing.T) {
	req := require.New(t)
	svc, contacts, _, _ := newContactService(t)

	contacts.EXPECT().ListByOwner("alice").Return([]domain.ContactEdge{
		{OwnerID: "alice", PeerID: "bob", Status: domain.StatusFriend},
		{OwnerID: "alice", PeerID: "carol", Status: domain.StatusBlock},
		{OwnerID: "alice", PeerID: "dave", Status: domain.StatusFriend},
		{OwnerID: "alice", PeerID: "erin", Status: domain.StatusPendingFriend},
	}, nil)

	peers, err := svc.FriendPeers("alice")

	req.NoError(err)
	req.Equal([]string{"bob", "dave"}, peers)
}

func TestContactService_ListContacts(t *testing.T) {
	req := require.New(t)
	svc, contacts, users, _ := newContactService(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	today := domain.DayKey(now)

	contacts.EXPECT().ListByOwner("alice").Return([]domain.ContactEdge{
		{OwnerID: "alice", PeerID: "bob", Status: domain.StatusFriend, Streak: 4, LastStreakUpdate: today},
	}, nil)
	users.EXPECT().GetByID("bob").
		Return(repositories.Account{ID: "bob", Username: "bob", ProfilePicture: "pic"}, nil)
	// Streak already evaluated today: cached value, no message scan.
	contacts.EXPECT().Get("alice", "bob").
		Return(domain.ContactEdge{OwnerID: "alice", PeerID: "bob", Streak: 4, LastStreakUpdate: today}, nil)
	contacts.EXPECT().Get("bob", "alice").
		Return(domain.ContactEdge{OwnerID: "bob", PeerID: "alice", Streak: 4, LastStreakUpdate: today}, nil)

	views, err := svc.ListContacts("alice", now)

	req.NoError(err)
	req.Len(views, 1)
	req.Equal("bob", views[0].ContactID)
	req.Equal(uint32(4), views[0].Streak)
}
