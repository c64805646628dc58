package model

import "time"

// User is a person known to the queue, possibly with several remote profiles.
type User struct {
	ID            int64
	Name          string
	IsCharmer     bool
	IsCommunity   bool
	IsContributor bool
}

// Profile links a User to their identity on one Source. (SourceID, Username)
// is unique.
type Profile struct {
	ID       int64
	UserID   int64
	SourceID int64
	Name     string
	Username string
	URL      string
	Claimed  string
	Created  time.Time
	Updated  time.Time
}

// Address is an email address known for a user.
type Address struct {
	ID        int64
	UserID    int64
	ProfileID int64
	Email     string
}
