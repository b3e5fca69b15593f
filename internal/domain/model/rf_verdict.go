/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import "time"

// RFVerdict records the validation of a measurement report against the
// response of an exchange.
type RFVerdict struct {
	ID         int64
	ExchangeID string
	Mode       string
	PowerPass  bool
	// AdjacentPass is nil for modes without an adjacent emission check.
	AdjacentPass *bool
	Reason       string
	Report       []byte
	CreatedAt    time.Time
}

// Pass reports whether every check of the verdict passed.
func (v *RFVerdict) Pass() bool {
	return v.PowerPass && (v.AdjacentPass == nil || *v.AdjacentPass)
}
