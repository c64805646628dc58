package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.HistoryStore = (*HistoryRepo)(nil)

// HistoryRepo is the SQLite implementation of the HistoryStore port interface.
type HistoryRepo struct {
	c conns
}

// NewHistoryRepo creates a new HistoryRepo backed by the given DB.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{c: dbConns(db)}
}

// Append records a history entry. Entries are never updated or deleted.
func (r *HistoryRepo) Append(ctx context.Context, entry *model.ReviewHistory) error {
	const query = `
		INSERT INTO review_history (review_id, user_id, what, prev, new, api_url, changed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if entry.Changed.IsZero() {
		entry.Changed = time.Now().UTC()
	}

	res, err := r.c.w.ExecContext(ctx, query,
		entry.ReviewID, nullID(entry.UserID), entry.What, entry.Prev, entry.New,
		entry.APIURL, formatTime(entry.Changed),
	)
	if err != nil {
		return fmt.Errorf("append history for review %d: %w", entry.ReviewID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("append history for review %d: last insert id: %w", entry.ReviewID, err)
	}
	entry.ID = id

	return nil
}

// ListByReview returns a review's history, oldest first.
func (r *HistoryRepo) ListByReview(ctx context.Context, reviewID int64) ([]model.ReviewHistory, error) {
	const query = `
		SELECT h.id, h.review_id, h.user_id, h.what, h.prev, h.new, h.api_url, h.changed, COALESCE(u.name, '')
		FROM review_history h
		LEFT JOIN users u ON u.id = h.user_id
		WHERE h.review_id = ?
		ORDER BY h.id
	`

	rows, err := r.c.r.QueryContext(ctx, query, reviewID)
	if err != nil {
		return nil, fmt.Errorf("query history for review %d: %w", reviewID, err)
	}
	defer rows.Close()

	var entries []model.ReviewHistory
	for rows.Next() {
		var h model.ReviewHistory
		var userID sql.NullInt64
		var changed string

		if err := rows.Scan(&h.ID, &h.ReviewID, &userID, &h.What, &h.Prev, &h.New, &h.APIURL, &changed, &h.UserName); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.UserID = userID.Int64

		if h.Changed, err = parseTime(changed); err != nil {
			return nil, fmt.Errorf("parse changed: %w", err)
		}

		entries = append(entries, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return entries, nil
}
