/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import "time"

// Fixture is an uploaded response fixture. Name is the lookup name, optionally
// prefixed with a regulatory domain directory.
type Fixture struct {
	ID        int64
	Name      string
	Document  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}
