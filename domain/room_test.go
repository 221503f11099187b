package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDMRoom_IsSymmetric(t *testing.T) {
	req := require.New(t)

	// Both participants must land in the same room whoever sends first.
	req.Equal(DMRoom("alice", "bob"), DMRoom("bob", "alice"))
	req.Equal(RoomID("dm_alice_bob"), DMRoom("bob", "alice"))
}

func TestResolveRoom(t *testing.T) {
	req := require.New(t)

	req.Equal(RoomID("group_g42"), ResolveRoom("alice", "g42", true))
	req.Equal(RoomID("dm_alice_bob"), ResolveRoom("alice", "bob", false))
	req.Equal(RoomID("dm_alice_bob"), ResolveRoom("bob", "alice", false))
}
