package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pulsechat/domain"
	"pulsechat/errors"
)

func TestContactRepository_CreateAndGet(t *testing.T) {
	req := require.New(t)
	repo := NewContactRepository(newTestDB(t))

	edge := domain.ContactEdge{
		OwnerID:   "alice",
		PeerID:    "bob",
		Status:    domain.StatusNew,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	req.NoError(repo.Create(edge))

	fetched, err := repo.Get("alice", "bob")
	req.NoError(err)
	req.Equal(edge.OwnerID, fetched.OwnerID)
	req.Equal(edge.PeerID, fetched.PeerID)
	req.Equal(domain.StatusNew, fetched.Status)

	// The reciprocal direction is a separate record and does not exist yet.
	_, err = repo.Get("bob", "alice")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestContactRepository_Create_RefusesDuplicate(t *testing.T) {
	req := require.New(t)
	repo := NewContactRepository(newTestDB(t))

	edge := domain.ContactEdge{OwnerID: "alice", PeerID: "bob", Status: domain.StatusNew}
	req.NoError(repo.Create(edge))
	req.ErrorIs(repo.Create(edge), errors.ErrAlreadyExists)
}

func TestContactRepository_UpdatePair_WritesBothDirections(t *testing.T) {
	req := require.New(t)
	repo := NewContactRepository(newTestDB(t))

	req.NoError(repo.Create(domain.ContactEdge{OwnerID: "alice", PeerID: "bob", Status: domain.StatusNew}))
	req.NoError(repo.Create(domain.ContactEdge{OwnerID: "bob", PeerID: "alice", Status: domain.StatusNew}))

	// When a joint transition commits
	owner := domain.ContactEdge{OwnerID: "alice", PeerID: "bob", Status: domain.StatusBlock}
	reciprocal := domain.ContactEdge{OwnerID: "bob", PeerID: "alice", Status: domain.StatusLastWords}
	req.NoError(repo.UpdatePair(owner, reciprocal))

	// Then both directions reflect it
	a, err := repo.Get("alice", "bob")
	req.NoError(err)
	req.Equal(domain.StatusBlock, a.Status)

	b, err := repo.Get("bob", "alice")
	req.NoError(err)
	req.Equal(domain.StatusLastWords, b.Status)
	req.True(domain.CompatiblePairing(a.Status, b.Status))
}

func TestContactRepository_ListByOwner(t *testing.T) {
	req := require.New(t)
	repo := NewContactRepository(newTestDB(t))

	req.NoError(repo.Create(domain.ContactEdge{OwnerID: "alice", PeerID: "bob", Status: domain.StatusFriend}))
	req.NoError(repo.Create(domain.ContactEdge{OwnerID: "alice", PeerID: "carol", Status: domain.StatusNew}))
	// Another owner's edge must not leak into the scan.
	req.NoError(repo.Create(domain.ContactEdge{OwnerID: "bob", PeerID: "alice", Status: domain.StatusFriend}))

	edges, err := repo.ListByOwner("alice")
	req.NoError(err)
	req.Len(edges, 2)
	for _, edge := range edges {
		req.Equal("alice", edge.OwnerID)
	}
}

func TestContactRepository_RoundTripsStreakFields(t *testing.T) {
	req := require.New(t)
	repo := NewContactRepository(newTestDB(t))

	until := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	edge := domain.ContactEdge{
		OwnerID:          "alice",
		PeerID:           "bob",
		Status:           domain.StatusFriend,
		Streak:           12,
		LastStreakUpdate: "2025-06-01",
		TimeoutUntil:     &until,
	}
	req.NoError(repo.Create(edge))

	fetched, err := repo.Get("alice", "bob")
	req.NoError(err)
	req.Equal(uint32(12), fetched.Streak)
	req.Equal("2025-06-01", fetched.LastStreakUpdate)
	req.NotNil(fetched.TimeoutUntil)
	req.True(until.Equal(*fetched.TimeoutUntil))
}
