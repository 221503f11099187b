package services

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"pulsechat/domain"
	"pulsechat/errors"
	"pulsechat/repositories"
)

type IContactService interface {
	AddContact(ownerID, peerID string) (domain.ContactView, []string, error)
	AddContactByName(ownerID, peerUsername string) (domain.ContactView, []string, error)
	ChangeStatus(ownerID, peerID, requested string) (domain.ContactStatus, error)
	SendPrecheck(senderID, recipientID string) error
	AfterMessageSent(senderID, recipientID string) error
	ListContacts(ownerID string, now time.Time) ([]domain.ContactView, error)
	FriendPeers(ownerID string) ([]string, error)
}

// ContactService owns the bidirectional relationship state machine. All
// transitions touching both sides of a pair go through the repository's
// UpdatePair so a half-applied mutation can never be observed.
type ContactService struct {
	contacts repositories.IContactRepository
	users    repositories.IUserRepository
	streaks  *StreakTracker
	log      *slog.Logger
}

func NewContactService(
	contacts repositories.IContactRepository,
	users repositories.IUserRepository,
	streaks *StreakTracker,
	log *slog.Logger,
) *ContactService {
	return &ContactService{contacts: contacts, users: users, streaks: streaks, log: log}
}

// AddContact creates the owner's edge towards an existing peer with status
// NEW. The peer side stays absent until the peer reacts.
func (s *ContactService) AddContact(ownerID, peerID string) (domain.ContactView, []string, error) {
	peer, err := s.users.GetByID(peerID)
	if err != nil {
		return domain.ContactView{}, nil, err
	}
	return s.createEdge(ownerID, peer)
}

// AddContactByName resolves the peer by username. When the name is unknown,
// fuzzy suggestions are returned alongside ErrNotFound so the caller can
// offer alternatives.
func (s *ContactService) AddContactByName(ownerID, peerUsername string) (domain.ContactView, []string, error) {
	peer, err := s.users.GetByUsername(peerUsername)
	if stderrors.Is(err, errors.ErrNotFound) {
		suggestions, suggestErr := s.users.SuggestUsernames(peerUsername, ownerID)
		if suggestErr != nil {
			s.log.Warn("Username suggestion lookup failed", "input", peerUsername, "error", suggestErr)
		}
		return domain.ContactView{}, suggestions, errors.ErrNotFound
	}
	if err != nil {
		return domain.ContactView{}, nil, err
	}
	return s.createEdge(ownerID, peer)
}

func (s *ContactService) createEdge(ownerID string, peer repositories.Account) (domain.ContactView, []string, error) {
	if peer.ID == ownerID {
		return domain.ContactView{}, nil, fmt.Errorf("%w: cannot add yourself", errors.ErrValidation)
	}
	edge := domain.ContactEdge{
		OwnerID:   ownerID,
		PeerID:    peer.ID,
		Status:    domain.StatusNew,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.contacts.Create(edge); err != nil {
		return domain.ContactView{}, nil, err
	}
	return domain.ContactView{
		ContactID:      peer.ID,
		Name:           peer.Username,
		ProfilePicture: peer.ProfilePicture,
		Status:         domain.StatusNew,
	}, nil, nil
}

// ChangeStatus applies a user-requested transition jointly to both edges of
// the pair. A missing reciprocal edge is materialized with the neutral NEW
// default before the transition is computed, and both writes commit in one
// transaction.
func (s *ContactService) ChangeStatus(ownerID, peerID, requested string) (domain.ContactStatus, error) {
	action, err := domain.ParseRequest(requested)
	if err != nil {
		return "", err
	}

	owner, err := s.contacts.Get(ownerID, peerID)
	if err != nil {
		return "", err
	}

	reciprocal, err := s.contacts.Get(peerID, ownerID)
	if stderrors.Is(err, errors.ErrNotFound) {
		reciprocal = domain.ContactEdge{
			OwnerID:   peerID,
			PeerID:    ownerID,
			Status:    domain.StatusNew,
			CreatedAt: time.Now().UTC(),
		}
	} else if err != nil {
		return "", err
	}

	outcome, err := domain.Transition(action, owner.Status, reciprocal.Status)
	if err != nil {
		return "", fmt.Errorf("%s -> %s while peer is %s: %w",
			owner.Status, requested, reciprocal.Status, err)
	}

	owner.Status = outcome.Owner
	reciprocal.Status = outcome.Reciprocal
	if err := s.contacts.UpdatePair(owner, reciprocal); err != nil {
		return "", err
	}
	return outcome.Owner, nil
}

// SendPrecheck gates a direct message send on the sender's outbound edge.
// BLOCK and FBLOCKED edges fail; LASTWORDS passes exactly once, the
// post-send hook closes the door afterwards. Absent edges pass: messaging
// does not require a prior contact entry.
func (s *ContactService) SendPrecheck(senderID, recipientID string) error {
	edge, err := s.contacts.Get(senderID, recipientID)
	if stderrors.Is(err, errors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	switch edge.Status {
	case domain.StatusBlock, domain.StatusFBlocked:
		return fmt.Errorf("%w: %v", errors.ErrConflict, errors.ErrBlocked)
	default:
		return nil
	}
}

// AfterMessageSent is the last-words hook, called once a direct message has
// been durably stored. If the sender spent their grace message, their edge
// advances to FBLOCKED; the blocker's reciprocal edge stays BLOCK.
func (s *ContactService) AfterMessageSent(senderID, recipientID string) error {
	edge, err := s.contacts.Get(senderID, recipientID)
	if stderrors.Is(err, errors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if edge.Status != domain.StatusLastWords {
		return nil
	}
	edge.Status = domain.StatusFBlocked
	return s.contacts.Update(edge)
}

// ListContacts returns the owner's edges joined with peer display metadata.
// Streaks are re-evaluated opportunistically while listing.
func (s *ContactService) ListContacts(ownerID string, now time.Time) ([]domain.ContactView, error) {
	edges, err := s.contacts.ListByOwner(ownerID)
	if err != nil {
		return nil, err
	}

	views := make([]domain.ContactView, 0, len(edges))
	for _, edge := range edges {
		peer, err := s.users.GetByID(edge.PeerID)
		if err != nil {
			s.log.Warn("Skipping contact with unknown peer", "owner", ownerID, "peer", edge.PeerID)
			continue
		}
		streak := edge.Streak
		if result, err := s.streaks.Evaluate(ownerID, edge.PeerID, now); err == nil {
			streak = result.Streak
		}
		views = append(views, domain.ContactView{
			ContactID:      peer.ID,
			Name:           peer.Username,
			ProfilePicture: peer.ProfilePicture,
			Status:         edge.Status,
			Streak:         streak,
		})
	}
	return views, nil
}

// FriendPeers returns the ids of peers whose edge from the owner is FRIEND.
// The registry uses it to derive the DM rooms to join at connect time.
func (s *ContactService) FriendPeers(ownerID string) ([]string, error) {
	edges, err := s.contacts.ListByOwner(ownerID)
	if err != nil {
		return nil, err
	}
	friends := lo.Filter(edges, func(e domain.ContactEdge, _ int) bool {
		return e.Status == domain.StatusFriend
	})
	return lo.Map(friends, func(e domain.ContactEdge, _ int) string {
		return e.PeerID
	}), nil
}
