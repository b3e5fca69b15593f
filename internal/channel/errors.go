/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package channel

import "errors"

var (
	ErrUnknownDomain    = errors.New("unknown regulatory domain")
	ErrUnknownBandwidth = errors.New("bandwidth is not a channelization tier")
	ErrInvalidTable     = errors.New("invalid channelization table")
)
