/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package domain

import "errors"

var (
	ErrNotFound = errors.New("item not found")
	// ErrDuplicate is returned when a record with the same public
	// identifier already exists.
	ErrDuplicate = errors.New("item already exists")
)
