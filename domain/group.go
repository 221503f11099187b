package domain

import "time"

type Group struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
}
