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

	"github.com/kentakayama/afc-simulator/internal/domain/model"
)

// RFVerdictRepository handles RF verdict persistence.
type RFVerdictRepository struct {
	db *sql.DB
}

func NewRFVerdictRepository(db *sql.DB) *RFVerdictRepository {
	return &RFVerdictRepository{db: db}
}

// Create inserts a verdict and returns the inserted id.
func (r *RFVerdictRepository) Create(ctx context.Context, v *model.RFVerdict) (int64, error) {
	const q = `
		INSERT INTO rf_verdicts (exchange_id, mode, power_pass, adjacent_pass, reason, report, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	var adjacent sql.NullBool
	if v.AdjacentPass != nil {
		adjacent = sql.NullBool{Bool: *v.AdjacentPass, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, q, v.ExchangeID, v.Mode, v.PowerPass, adjacent, v.Reason, v.Report, v.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert rf_verdict: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListByExchangeID returns the verdicts of an exchange, oldest first.
func (r *RFVerdictRepository) ListByExchangeID(ctx context.Context, exchangeID string) ([]*model.RFVerdict, error) {
	const q = `
		SELECT id, exchange_id, mode, power_pass, adjacent_pass, reason, report, created_at
		FROM rf_verdicts
		WHERE exchange_id = ?
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, q, exchangeID)
	if err != nil {
		return nil, fmt.Errorf("query rf_verdicts: %w", err)
	}
	defer rows.Close()

	var out []*model.RFVerdict
	for rows.Next() {
		var v model.RFVerdict
		var adjacent sql.NullBool
		if err := rows.Scan(&v.ID, &v.ExchangeID, &v.Mode, &v.PowerPass, &adjacent, &v.Reason, &v.Report, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rf_verdict: %w", err)
		}
		if adjacent.Valid {
			b := adjacent.Bool
			v.AdjacentPass = &b
		}
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rf_verdicts: %w", err)
	}
	return out, nil
}
