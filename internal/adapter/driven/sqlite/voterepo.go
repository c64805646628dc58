package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.VoteStore = (*VoteRepo)(nil)

// VoteRepo is the SQLite implementation of the VoteStore port interface.
type VoteRepo struct {
	c conns
}

// NewVoteRepo creates a new VoteRepo backed by the given DB.
func NewVoteRepo(db *DB) *VoteRepo {
	return &VoteRepo{c: dbConns(db)}
}

const voteSelect = `
	SELECT v.id, v.comment_id, v.user_id, v.review_id, v.vote, v.created, COALESCE(u.name, '')
	FROM review_vote v
	LEFT JOIN users u ON u.id = v.user_id
`

// GetByCommentID returns the vote for a remote comment, or nil if absent.
func (r *VoteRepo) GetByCommentID(ctx context.Context, commentID string) (*model.ReviewVote, error) {
	row := r.c.r.QueryRowContext(ctx, voteSelect+` WHERE v.comment_id = ?`, commentID)

	vote, err := scanVote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vote %s: %w", commentID, err)
	}

	return vote, nil
}

// Create inserts a vote. A vote that exists without a created timestamp is
// completed in place instead of duplicated; one that has a timestamp is left
// alone and Create reports false.
func (r *VoteRepo) Create(ctx context.Context, vote *model.ReviewVote) (bool, error) {
	const query = `
		INSERT INTO review_vote (comment_id, user_id, review_id, vote, created)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(comment_id) DO UPDATE SET
			user_id = excluded.user_id,
			review_id = excluded.review_id,
			vote = excluded.vote,
			created = excluded.created
		WHERE review_vote.created IS NULL
		RETURNING id
	`

	err := r.c.w.QueryRowContext(ctx, query,
		vote.CommentID, nullID(vote.OwnerID), vote.ReviewID, string(vote.Vote), formatTime(vote.Created),
	).Scan(&vote.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create vote %s: %w", vote.CommentID, err)
	}

	return true, nil
}

// ListByReview returns the votes of a review ordered by creation time.
func (r *VoteRepo) ListByReview(ctx context.Context, reviewID int64) ([]model.ReviewVote, error) {
	rows, err := r.c.r.QueryContext(ctx, voteSelect+` WHERE v.review_id = ? ORDER BY v.created, v.id`, reviewID)
	if err != nil {
		return nil, fmt.Errorf("query votes for review %d: %w", reviewID, err)
	}
	defer rows.Close()

	var votes []model.ReviewVote
	for rows.Next() {
		vote, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		votes = append(votes, *vote)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate votes: %w", err)
	}

	return votes, nil
}

func scanVote(s scanner) (*model.ReviewVote, error) {
	var vote model.ReviewVote
	var ownerID sql.NullInt64
	var kind string
	var created sql.NullString

	err := s.Scan(&vote.ID, &vote.CommentID, &ownerID, &vote.ReviewID, &kind, &created, &vote.OwnerName)
	if err != nil {
		return nil, err
	}

	vote.OwnerID = ownerID.Int64

	if vote.Vote, err = model.ParseVoteKind(kind); err != nil {
		return nil, err
	}
	if vote.Created, err = parseNullTime(created); err != nil {
		return nil, fmt.Errorf("parse created: %w", err)
	}

	return &vote, nil
}
