package model

import "errors"

var (
	// ErrNotFound means the local or remote record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrMalformed means a remote or stored value could not be interpreted.
	ErrMalformed = errors.New("malformed value")
	// ErrMissingArgument is returned by Refresh when neither a record nor an id is given.
	ErrMissingArgument = errors.New("need a record or an id to refresh")
	// ErrUnsupportedType is returned when a review type has no reconciler.
	ErrUnsupportedType = errors.New("unsupported review type")
)

// ErrLocked is returned when a review is already claimed by another user.
var ErrLocked = errors.New("review is locked by another user")
