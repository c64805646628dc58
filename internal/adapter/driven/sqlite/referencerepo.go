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
var _ driven.ReferenceStore = (*ReferenceRepo)(nil)

// ReferenceRepo is the SQLite implementation of the ReferenceStore port
// interface, covering sources, categories, series and projects.
type ReferenceRepo struct {
	c conns
}

// NewReferenceRepo creates a new ReferenceRepo backed by the given DB.
func NewReferenceRepo(db *DB) *ReferenceRepo {
	return &ReferenceRepo{c: dbConns(db)}
}

// SourceBySlug returns the source with the given slug.
func (r *ReferenceRepo) SourceBySlug(ctx context.Context, slug string) (*model.Source, error) {
	var s model.Source
	err := r.c.r.QueryRowContext(ctx, `SELECT id, name, slug FROM source WHERE slug = ?`, slug).
		Scan(&s.ID, &s.Name, &s.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("source %s: %w", slug, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get source %s: %w", slug, err)
	}
	return &s, nil
}

// CategoryBySlug returns the review category with the given slug.
func (r *ReferenceRepo) CategoryBySlug(ctx context.Context, slug string) (*model.ReviewCategory, error) {
	var c model.ReviewCategory
	err := r.c.r.QueryRowContext(ctx, `SELECT id, name, slug FROM review_category WHERE slug = ?`, slug).
		Scan(&c.ID, &c.Name, &c.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %s: %w", slug, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get category %s: %w", slug, err)
	}
	return &c, nil
}

// SeriesBySlug returns the series with the given slug.
func (r *ReferenceRepo) SeriesBySlug(ctx context.Context, slug string) (*model.Series, error) {
	var s model.Series
	var active int
	err := r.c.r.QueryRowContext(ctx, `SELECT id, name, slug, active FROM series WHERE slug = ?`, slug).
		Scan(&s.ID, &s.Name, &s.Slug, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("series %s: %w", slug, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get series %s: %w", slug, err)
	}
	s.Active = active != 0
	return &s, nil
}

// EnsureSeries upserts the series by slug. Name and Active follow the remote
// on every call.
func (r *ReferenceRepo) EnsureSeries(ctx context.Context, s model.Series) (*model.Series, error) {
	const query = `
		INSERT INTO series (name, slug, active) VALUES (?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			active = excluded.active
	`

	if _, err := r.c.w.ExecContext(ctx, query, s.Name, s.Slug, boolInt(s.Active)); err != nil {
		return nil, fmt.Errorf("ensure series %s: %w", s.Slug, err)
	}

	return r.seriesFromWriter(ctx, s.Slug)
}

// seriesFromWriter reads through the write connection so a row written by
// EnsureSeries is visible before the surrounding transaction commits.
func (r *ReferenceRepo) seriesFromWriter(ctx context.Context, slug string) (*model.Series, error) {
	var s model.Series
	var active int
	err := r.c.w.QueryRowContext(ctx, `SELECT id, name, slug, active FROM series WHERE slug = ?`, slug).
		Scan(&s.ID, &s.Name, &s.Slug, &active)
	if err != nil {
		return nil, fmt.Errorf("get series %s: %w", slug, err)
	}
	s.Active = active != 0
	return &s, nil
}

// EnsureProject looks the project up by URL and creates it when absent.
func (r *ReferenceRepo) EnsureProject(ctx context.Context, p model.Project) (*model.Project, error) {
	const query = `
		INSERT INTO project (name, url) VALUES (?, ?)
		ON CONFLICT(url) DO NOTHING
	`

	if _, err := r.c.w.ExecContext(ctx, query, p.Name, p.URL); err != nil {
		return nil, fmt.Errorf("ensure project %s: %w", p.URL, err)
	}

	var out model.Project
	err := r.c.w.QueryRowContext(ctx, `SELECT id, name, url FROM project WHERE url = ?`, p.URL).
		Scan(&out.ID, &out.Name, &out.URL)
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", p.URL, err)
	}

	return &out, nil
}
