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
var _ driven.TestStore = (*TestRepo)(nil)

// TestRepo is the SQLite implementation of the TestStore port interface.
type TestRepo struct {
	c conns
}

// NewTestRepo creates a new TestRepo backed by the given DB.
func NewTestRepo(db *DB) *TestRepo {
	return &TestRepo{c: dbConns(db)}
}

// Add records a new test result for a review.
func (r *TestRepo) Add(ctx context.Context, test *model.ReviewTest) error {
	const query = `
		INSERT INTO review_test (review_id, requester_id, status, url, substrate, created, finished, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	if test.Created.IsZero() {
		test.Created = time.Now().UTC()
	}

	res, err := r.c.w.ExecContext(ctx, query,
		test.ReviewID, nullID(test.RequesterID), string(test.Status), test.URL, test.Substrate,
		formatTime(test.Created), formatTime(test.Finished), formatTime(test.Updated),
	)
	if err != nil {
		return fmt.Errorf("add test for review %d: %w", test.ReviewID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("add test for review %d: last insert id: %w", test.ReviewID, err)
	}
	test.ID = id

	return nil
}

// ListByReview returns a review's test results ordered by ID.
func (r *TestRepo) ListByReview(ctx context.Context, reviewID int64) ([]model.ReviewTest, error) {
	const query = `
		SELECT id, review_id, requester_id, status, url, substrate, created, finished, updated
		FROM review_test
		WHERE review_id = ?
		ORDER BY id
	`

	rows, err := r.c.r.QueryContext(ctx, query, reviewID)
	if err != nil {
		return nil, fmt.Errorf("query tests for review %d: %w", reviewID, err)
	}
	defer rows.Close()

	var tests []model.ReviewTest
	for rows.Next() {
		var t model.ReviewTest
		var requesterID sql.NullInt64
		var status, created string
		var finished, updated sql.NullString

		if err := rows.Scan(&t.ID, &t.ReviewID, &requesterID, &status, &t.URL, &t.Substrate, &created, &finished, &updated); err != nil {
			return nil, fmt.Errorf("scan test: %w", err)
		}
		t.RequesterID = requesterID.Int64
		t.Status = model.TestStatus(status)

		if t.Created, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("parse created: %w", err)
		}
		if t.Finished, err = parseNullTime(finished); err != nil {
			return nil, fmt.Errorf("parse finished: %w", err)
		}
		if t.Updated, err = parseNullTime(updated); err != nil {
			return nil, fmt.Errorf("parse updated: %w", err)
		}

		tests = append(tests, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tests: %w", err)
	}

	return tests, nil
}
