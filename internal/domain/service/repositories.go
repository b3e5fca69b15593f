/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package service

import (
	"context"

	"github.com/kentakayama/afc-simulator/internal/domain/model"
)

// ExchangeRepository defines the interface for exchange history persistence.
type ExchangeRepository interface {
	Create(ctx context.Context, e *model.Exchange) (int64, error)
	FindByExchangeID(ctx context.Context, exchangeID string) (*model.Exchange, error)
	ListRecent(ctx context.Context, limit int) ([]*model.Exchange, error)
}

// RFVerdictRepository defines the interface for RF verdict persistence.
type RFVerdictRepository interface {
	Create(ctx context.Context, v *model.RFVerdict) (int64, error)
	ListByExchangeID(ctx context.Context, exchangeID string) ([]*model.RFVerdict, error)
}

// FixtureRepository defines the interface for uploaded fixture persistence.
type FixtureRepository interface {
	Upsert(ctx context.Context, f *model.Fixture) (int64, error)
	FindByName(ctx context.Context, name string) (*model.Fixture, error)
	ListNames(ctx context.Context) ([]string, error)
	DeleteByName(ctx context.Context, name string) error
}
