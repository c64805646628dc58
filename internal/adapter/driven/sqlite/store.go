package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UnitOfWork = (*Store)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conns routes reads and writes. Outside a transaction reads go to the reader
// pool and writes to the single writer; inside one both go to the *sql.Tx.
type conns struct {
	r querier
	w querier
}

func dbConns(db *DB) conns {
	return conns{r: db.Reader, w: db.Writer}
}

// Store is the SQLite implementation of the UnitOfWork port.
type Store struct {
	db *DB
	scope
}

// NewStore creates a Store backed by the given DB.
func NewStore(db *DB) *Store {
	return &Store{db: db, scope: scope{c: dbConns(db)}}
}

// WithinTx runs fn inside a transaction on the writer connection.
func (s *Store) WithinTx(ctx context.Context, fn func(tx driven.Tx) error) (err error) {
	tx, err := s.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(scope{c: conns{r: tx, w: tx}}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// scope implements driven.Tx over a pair of connections.
type scope struct {
	c conns
}

func (s scope) Reviews() driven.ReviewStore       { return &ReviewRepo{c: s.c} }
func (s scope) Votes() driven.VoteStore           { return &VoteRepo{c: s.c} }
func (s scope) History() driven.HistoryStore      { return &HistoryRepo{c: s.c} }
func (s scope) Tests() driven.TestStore           { return &TestRepo{c: s.c} }
func (s scope) Users() driven.UserStore           { return &UserRepo{c: s.c} }
func (s scope) References() driven.ReferenceStore { return &ReferenceRepo{c: s.c} }

type scanner interface {
	Scan(dest ...any) error
}

// formatTime renders a timestamp for storage. The zero time is stored as NULL.
func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a stored timestamp.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %q", s)
}

// parseNullTime parses a nullable stored timestamp; NULL becomes the zero time.
func parseNullTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return parseTime(s.String)
}

// nullID maps the zero ID to NULL for optional foreign keys.
func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
