/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kentakayama/afc-simulator/internal/domain"
	"github.com/kentakayama/afc-simulator/internal/domain/model"
	"github.com/mattn/go-sqlite3"
)

// ExchangeRepository handles exchange history persistence.
type ExchangeRepository struct {
	db *sql.DB
}

func NewExchangeRepository(db *sql.DB) *ExchangeRepository {
	return &ExchangeRepository{db: db}
}

// Create inserts an exchange and returns the inserted id.
func (r *ExchangeRepository) Create(ctx context.Context, e *model.Exchange) (int64, error) {
	const q = `
		INSERT INTO exchanges (exchange_id, request_id, serial_number, test_vector, response_code, valid_request, request, response, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, q,
		e.ExchangeID, e.RequestID, e.SerialNumber, e.TestVector, e.ResponseCode, e.ValidRequest,
		e.Request, e.Response, e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("exchange %s: %w", e.ExchangeID, domain.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert exchange: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

const exchangeColumns = `id, exchange_id, request_id, serial_number, test_vector, response_code, valid_request, request, response, created_at`

func scanExchange(s interface{ Scan(...any) error }) (*model.Exchange, error) {
	var e model.Exchange
	if err := s.Scan(&e.ID, &e.ExchangeID, &e.RequestID, &e.SerialNumber, &e.TestVector,
		&e.ResponseCode, &e.ValidRequest, &e.Request, &e.Response, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// FindByExchangeID returns an exchange by its public identifier.
func (r *ExchangeRepository) FindByExchangeID(ctx context.Context, exchangeID string) (*model.Exchange, error) {
	q := `SELECT ` + exchangeColumns + ` FROM exchanges WHERE exchange_id = ? LIMIT 1`
	e, err := scanExchange(r.db.QueryRowContext(ctx, q, exchangeID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan exchange: %w", err)
	}
	return e, nil
}

// ListRecent returns up to limit exchanges, newest first.
func (r *ExchangeRepository) ListRecent(ctx context.Context, limit int) ([]*model.Exchange, error) {
	q := `SELECT ` + exchangeColumns + ` FROM exchanges ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	var out []*model.Exchange
	for rows.Next() {
		e, err := scanExchange(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exchanges: %w", err)
	}
	return out, nil
}
