/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kentakayama/afc-simulator/internal/domain"
	"github.com/kentakayama/afc-simulator/internal/domain/model"
)

// FixtureRepository handles uploaded fixture persistence.
type FixtureRepository struct {
	db *sql.DB
}

func NewFixtureRepository(db *sql.DB) *FixtureRepository {
	return &FixtureRepository{db: db}
}

// Upsert stores a fixture, replacing the document of an existing name, and
// returns its id.
func (r *FixtureRepository) Upsert(ctx context.Context, f *model.Fixture) (int64, error) {
	const q = `
		INSERT INTO fixtures (name, document, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, q, f.Name, f.Document, f.CreatedAt, f.CreatedAt).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert fixture: %w", err)
	}
	return id, nil
}

// FindByName returns a fixture by lookup name.
func (r *FixtureRepository) FindByName(ctx context.Context, name string) (*model.Fixture, error) {
	const q = `
		SELECT id, name, document, created_at, updated_at
		FROM fixtures
		WHERE name = ?
		LIMIT 1
	`
	var f model.Fixture
	if err := r.db.QueryRowContext(ctx, q, name).Scan(&f.ID, &f.Name, &f.Document, &f.CreatedAt, &f.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan fixture: %w", err)
	}
	return &f, nil
}

// ListNames returns the names of every stored fixture in ascending order.
func (r *FixtureRepository) ListNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM fixtures ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query fixtures: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan fixture name: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// DeleteByName removes a fixture.
func (r *FixtureRepository) DeleteByName(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM fixtures WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete fixture: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
