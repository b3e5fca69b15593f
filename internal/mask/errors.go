/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package mask

import "errors"

var (
	ErrNoCandidates     = errors.New("no candidate channels at the requested bandwidth")
	ErrEmptyComplement  = errors.New("every candidate channel was already picked")
	ErrUnknownBandwidth = errors.New("bandwidth is not a tier of the domain")
)
