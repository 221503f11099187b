package domain

import "time"

// DefaultProfilePicture is applied to accounts created without an avatar.
const DefaultProfilePicture = "https://www.svgrepo.com/show/535711/user.svg"

type User struct {
	ID             string
	Username       string
	ProfilePicture string
	CreatedAt      time.Time
	IsOnline       bool
}

// ContactView is one row of a user's contact list: the edge joined with the
// peer's display metadata. No lazy loading, the repository fills everything.
type ContactView struct {
	ContactID      string
	Name           string
	ProfilePicture string
	Status         ContactStatus
	Streak         uint32
	IsGroup        bool
}
