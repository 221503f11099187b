package domain

import "fmt"

// RoomID identifies one logical broadcast group: a DM pair or a group.
type RoomID string

// DMRoom builds the canonical room id for a pair of users. Both participants
// compute the same id regardless of who is the sender.
func DMRoom(a, b string) RoomID {
	if b < a {
		a, b = b, a
	}
	return RoomID(fmt.Sprintf("dm_%s_%s", a, b))
}

// GroupRoom builds the room id for a group.
func GroupRoom(groupID string) RoomID {
	return RoomID(fmt.Sprintf("group_%s", groupID))
}

// ResolveRoom maps a message destination to its room.
func ResolveRoom(senderID, destinationID string, isGroup bool) RoomID {
	if isGroup {
		return GroupRoom(destinationID)
	}
	return DMRoom(senderID, destinationID)
}
