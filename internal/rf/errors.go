/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package rf

import "errors"

var (
	ErrInvalidReport = errors.New("invalid RF measurement report")
	ErrUnknownMode   = errors.New("unknown validation mode")
)
