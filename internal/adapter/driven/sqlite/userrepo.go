package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UserStore = (*UserRepo)(nil)

// UserRepo is the SQLite implementation of the UserStore port interface.
type UserRepo struct {
	c conns
}

// NewUserRepo creates a new UserRepo backed by the given DB.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{c: dbConns(db)}
}

const userSelect = `SELECT u.id, u.name, u.is_charmer, u.is_community, u.is_contributor FROM users u`

// GetByID returns the user with the given ID, or nil if absent.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := scanUser(r.c.r.QueryRowContext(ctx, userSelect+` WHERE u.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

// GetByProfile returns the user owning the given source profile, or nil if absent.
func (r *UserRepo) GetByProfile(ctx context.Context, sourceID int64, username string) (*model.User, error) {
	const query = userSelect + `
		JOIN profile p ON p.user_id = u.id
		WHERE p.source_id = ? AND p.username = ?
	`

	user, err := scanUser(r.c.r.QueryRowContext(ctx, query, sourceID, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by profile %d/%s: %w", sourceID, username, err)
	}
	return user, nil
}

// Create inserts a user together with its first profile.
func (r *UserRepo) Create(ctx context.Context, user *model.User, profile *model.Profile) error {
	const insertUser = `
		INSERT INTO users (name, is_charmer, is_community, is_contributor)
		VALUES (?, ?, ?, ?)
	`
	const insertProfile = `
		INSERT INTO profile (user_id, source_id, name, username, url, claimed, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.c.w.ExecContext(ctx, insertUser,
		user.Name, boolInt(user.IsCharmer), boolInt(user.IsCommunity), boolInt(user.IsContributor),
	)
	if err != nil {
		return fmt.Errorf("insert user %s: %w", user.Name, err)
	}
	if user.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("insert user %s: last insert id: %w", user.Name, err)
	}

	if profile == nil {
		return nil
	}

	profile.UserID = user.ID
	if profile.Created.IsZero() {
		profile.Created = time.Now().UTC()
	}

	res, err = r.c.w.ExecContext(ctx, insertProfile,
		profile.UserID, profile.SourceID, profile.Name, profile.Username, profile.URL,
		profile.Claimed, formatTime(profile.Created), formatTime(profile.Updated),
	)
	if err != nil {
		return fmt.Errorf("insert profile %s: %w", profile.Username, err)
	}
	if profile.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("insert profile %s: last insert id: %w", profile.Username, err)
	}

	return nil
}

// AddAddress records an email address for a user.
func (r *UserRepo) AddAddress(ctx context.Context, addr *model.Address) error {
	const query = `INSERT INTO emails (user_id, profile_id, email) VALUES (?, ?, ?)`

	res, err := r.c.w.ExecContext(ctx, query, addr.UserID, nullID(addr.ProfileID), addr.Email)
	if err != nil {
		return fmt.Errorf("add address for user %d: %w", addr.UserID, err)
	}
	if addr.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("add address for user %d: last insert id: %w", addr.UserID, err)
	}

	return nil
}

func scanUser(s scanner) (*model.User, error) {
	var user model.User
	var charmer, community, contributor int

	if err := s.Scan(&user.ID, &user.Name, &charmer, &community, &contributor); err != nil {
		return nil, err
	}

	user.IsCharmer = charmer != 0
	user.IsCommunity = community != 0
	user.IsContributor = contributor != 0

	return &user, nil
}
