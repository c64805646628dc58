package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReviewStore = (*ReviewRepo)(nil)

// ReviewRepo is the SQLite implementation of the ReviewStore port interface.
type ReviewRepo struct {
	c conns
}

// NewReviewRepo creates a new ReviewRepo backed by the given DB.
func NewReviewRepo(db *DB) *ReviewRepo {
	return &ReviewRepo{c: dbConns(db)}
}

const reviewSelect = `
	SELECT r.id, r.review_category_id, r.source_id, r.project_id, r.user_id, r.series_id, r.lock_id,
	       r.title, r.type, r.url, r.api_url, r.state, r.created, r.updated, r.syncd, r.locked,
	       COALESCE(o.name, ''), COALESCE(l.name, ''), COALESCE(s.slug, ''), COALESCE(se.slug, '')
	FROM review r
	LEFT JOIN users o ON o.id = r.user_id
	LEFT JOIN users l ON l.id = r.lock_id
	LEFT JOIN source s ON s.id = r.source_id
	LEFT JOIN series se ON se.id = r.series_id
`

// GetByAPIURL returns the review with the given API URL, or nil if absent.
func (r *ReviewRepo) GetByAPIURL(ctx context.Context, apiURL string) (*model.Review, error) {
	row := r.c.r.QueryRowContext(ctx, reviewSelect+` WHERE r.api_url = ?`, apiURL)

	review, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get review %s: %w", apiURL, err)
	}

	return review, nil
}

// GetByID returns the review with the given ID, or nil if absent.
func (r *ReviewRepo) GetByID(ctx context.Context, id int64) (*model.Review, error) {
	row := r.c.r.QueryRowContext(ctx, reviewSelect+` WHERE r.id = ?`, id)

	review, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get review %d: %w", id, err)
	}

	return review, nil
}

// Save inserts a new review or updates an existing one.
func (r *ReviewRepo) Save(ctx context.Context, review *model.Review) error {
	now := time.Now().UTC()
	if review.Created.IsZero() {
		review.Created = now
	}
	if review.Updated.IsZero() {
		review.Updated = review.Created
	}
	if review.Syncd.IsZero() {
		review.Syncd = now
	}

	if review.ID == 0 {
		return r.insert(ctx, review)
	}
	return r.update(ctx, review)
}

func (r *ReviewRepo) insert(ctx context.Context, review *model.Review) error {
	const query = `
		INSERT INTO review (
			review_category_id, source_id, project_id, user_id, series_id, lock_id,
			title, type, url, api_url, state, created, updated, syncd, locked
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.c.w.ExecContext(ctx, query, r.args(review)...)
	if err != nil {
		return fmt.Errorf("insert review %s: %w", review.APIURL, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert review %s: last insert id: %w", review.APIURL, err)
	}
	review.ID = id

	return nil
}

func (r *ReviewRepo) update(ctx context.Context, review *model.Review) error {
	const query = `
		UPDATE review SET
			review_category_id = ?, source_id = ?, project_id = ?, user_id = ?, series_id = ?, lock_id = ?,
			title = ?, type = ?, url = ?, api_url = ?, state = ?, created = ?, updated = ?, syncd = ?, locked = ?
		WHERE id = ?
	`

	args := append(r.args(review), review.ID)
	res, err := r.c.w.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update review %d: %w", review.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update review %d: rows affected: %w", review.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update review %d: %w", review.ID, model.ErrNotFound)
	}

	return nil
}

func (r *ReviewRepo) args(review *model.Review) []any {
	return []any{
		nullID(review.CategoryID), nullID(review.SourceID), nullID(review.ProjectID),
		nullID(review.OwnerID), nullID(review.SeriesID), nullID(review.LockerID),
		review.Title, string(review.Type), review.URL, review.APIURL, string(review.State),
		formatTime(review.Created), formatTime(review.Updated), formatTime(review.Syncd),
		formatTime(review.Locked),
	}
}

// List returns reviews in the given states (all when none are given), most
// recently updated first.
func (r *ReviewRepo) List(ctx context.Context, states ...model.ReviewState) ([]model.Review, error) {
	query := reviewSelect
	args := make([]any, 0, len(states))

	if len(states) > 0 {
		placeholders := make([]string, len(states))
		for i, st := range states {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		query += ` WHERE r.state IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY r.updated DESC, r.id DESC`

	rows, err := r.c.r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, *review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}

	return reviews, nil
}

// FreshestUpdate returns the newest updated timestamp among the source's reviews.
func (r *ReviewRepo) FreshestUpdate(ctx context.Context, sourceSlug string) (time.Time, error) {
	const query = `
		SELECT MAX(r.updated)
		FROM review r
		JOIN source s ON s.id = r.source_id
		WHERE s.slug = ?
	`

	var updated sql.NullString
	if err := r.c.r.QueryRowContext(ctx, query, sourceSlug).Scan(&updated); err != nil {
		return time.Time{}, fmt.Errorf("freshest update for %s: %w", sourceSlug, err)
	}

	t, err := parseNullTime(updated)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse updated: %w", err)
	}

	return t, nil
}

func scanReview(s scanner) (*model.Review, error) {
	var review model.Review
	var categoryID, sourceID, projectID, ownerID, seriesID, lockID sql.NullInt64
	var reviewType, state, created, updated, syncd string
	var locked sql.NullString

	err := s.Scan(
		&review.ID, &categoryID, &sourceID, &projectID, &ownerID, &seriesID, &lockID,
		&review.Title, &reviewType, &review.URL, &review.APIURL, &state,
		&created, &updated, &syncd, &locked,
		&review.OwnerName, &review.LockerName, &review.SourceSlug, &review.SeriesSlug,
	)
	if err != nil {
		return nil, err
	}

	review.CategoryID = categoryID.Int64
	review.SourceID = sourceID.Int64
	review.ProjectID = projectID.Int64
	review.OwnerID = ownerID.Int64
	review.SeriesID = seriesID.Int64
	review.LockerID = lockID.Int64

	if review.Type, err = model.ParseReviewType(reviewType); err != nil {
		return nil, err
	}
	if review.State, err = model.ParseReviewState(state); err != nil {
		return nil, err
	}

	if review.Created, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse created: %w", err)
	}
	if review.Updated, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("parse updated: %w", err)
	}
	if review.Syncd, err = parseTime(syncd); err != nil {
		return nil, fmt.Errorf("parse syncd: %w", err)
	}
	if review.Locked, err = parseNullTime(locked); err != nil {
		return nil, fmt.Errorf("parse locked: %w", err)
	}

	return &review, nil
}
