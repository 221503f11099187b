// Package domain contains core concepts of the chat system.
// This file defines the directed contact edge and the joint status machine
// that keeps both sides of a pair consistent.
package domain

import (
	"time"

	"pulsechat/errors"
)

// ContactStatus is the closed set of states a directed edge can hold.
// FFRIEND marks an edge awaiting the owner's answer to a friend request;
// PENDINGFRIEND marks the requester's side of the same pair.
type ContactStatus string

const (
	StatusNew           ContactStatus = "new"
	StatusFriend        ContactStatus = "friend"
	StatusPendingFriend ContactStatus = "pending_friend"
	StatusFFriend       ContactStatus = "ffriend"
	StatusLastWords     ContactStatus = "last_words"
	StatusBlock         ContactStatus = "block"
	StatusFBlocked      ContactStatus = "fblocked"
	StatusTimeout       ContactStatus = "timeout"
	StatusNotConnected  ContactStatus = "ntcon"
)

// RequestedAction is a user-settable transition request. Unblock and unfriend
// are requests only, never stored as an edge status.
type RequestedAction string

const (
	RequestFriend   RequestedAction = "friend"
	RequestBlock    RequestedAction = "block"
	RequestUnblock  RequestedAction = "unblock"
	RequestUnfriend RequestedAction = "unfriend"
)

// ParseRequest validates a raw status request from a client.
// System-managed statuses are rejected with ErrForbidden, anything
// unknown with ErrValidation.
func ParseRequest(raw string) (RequestedAction, error) {
	switch RequestedAction(raw) {
	case RequestFriend, RequestBlock, RequestUnblock, RequestUnfriend:
		return RequestedAction(raw), nil
	}
	switch ContactStatus(raw) {
	case StatusNew, StatusPendingFriend, StatusFFriend, StatusLastWords,
		StatusFBlocked, StatusTimeout, StatusNotConnected:
		return "", errors.ErrForbidden
	}
	return "", errors.ErrValidation
}

// ContactEdge is one directed relationship record: how OwnerID currently
// treats PeerID. The reciprocal direction is a separate record.
type ContactEdge struct {
	OwnerID          string
	PeerID           string
	Status           ContactStatus
	Streak           uint32
	LastStreakUpdate string // calendar day key, empty if never evaluated
	TimeoutUntil     *time.Time
	CreatedAt        time.Time
}

// EdgePair is the joint outcome of a transition: the new status on the
// owner's edge and on the reciprocal edge.
type EdgePair struct {
	Owner      ContactStatus
	Reciprocal ContactStatus
}

// Transition computes the joint status outcome when the owner requests
// action against the current pair of statuses. A missing reciprocal edge
// must be presented as StatusNew by the caller. The returned pair is applied
// atomically or not at all.
func Transition(action RequestedAction, owner, reciprocal ContactStatus) (EdgePair, error) {
	switch action {
	case RequestBlock:
		// Blocking is always immediately effective for the blocker. A mutual
		// block leaves the reciprocal edge untouched.
		if reciprocal == StatusBlock {
			return EdgePair{Owner: StatusBlock, Reciprocal: StatusBlock}, nil
		}
		return EdgePair{Owner: StatusBlock, Reciprocal: StatusLastWords}, nil

	case RequestUnblock:
		switch reciprocal {
		case StatusBlock:
			// Blocked by the other party takes precedence.
			return EdgePair{}, errors.ErrConflict
		case StatusLastWords, StatusFBlocked:
			return EdgePair{Owner: StatusFriend, Reciprocal: StatusFriend}, nil
		default:
			return EdgePair{Owner: owner, Reciprocal: reciprocal}, nil
		}

	case RequestFriend:
		switch reciprocal {
		case StatusBlock, StatusLastWords, StatusFBlocked:
			return EdgePair{}, errors.ErrConflict
		case StatusPendingFriend, StatusFFriend:
			// Mutual accept: the peer already has a request outstanding.
			return EdgePair{Owner: StatusFriend, Reciprocal: StatusFriend}, nil
		default:
			return EdgePair{Owner: StatusPendingFriend, Reciprocal: StatusFFriend}, nil
		}

	case RequestUnfriend:
		switch reciprocal {
		case StatusBlock, StatusFBlocked, StatusLastWords:
			return EdgePair{}, errors.ErrConflict
		default:
			return EdgePair{Owner: StatusNotConnected, Reciprocal: StatusNotConnected}, nil
		}
	}
	return EdgePair{}, errors.ErrValidation
}

// CompatiblePairing reports whether two reciprocal edge statuses form one of
// the pairings reachable through the status machine. A missing edge counts
// as StatusNew.
func CompatiblePairing(a, b ContactStatus) bool {
	if a > b {
		a, b = b, a
	}
	switch [2]ContactStatus{a, b} {
	case [2]ContactStatus{StatusNew, StatusNew},
		[2]ContactStatus{StatusFriend, StatusFriend},
		[2]ContactStatus{StatusFFriend, StatusPendingFriend},
		[2]ContactStatus{StatusBlock, StatusLastWords},
		[2]ContactStatus{StatusBlock, StatusFBlocked},
		[2]ContactStatus{StatusBlock, StatusBlock},
		[2]ContactStatus{StatusNotConnected, StatusNotConnected}:
		return true
	}
	return false
}

// DayKey collapses a timestamp to its UTC calendar day. Streak evaluation is
// idempotent within one key.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
