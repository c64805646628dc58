package driven

import "context"

// DatabaseProbe reports on the backing database.
type DatabaseProbe interface {
	Ping(ctx context.Context) error
	// SchemaVersion returns the applied migration version and whether the
	// last migration left the schema dirty.
	SchemaVersion() (version uint, dirty bool, err error)
}
