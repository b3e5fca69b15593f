/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import "time"

// Exchange is one answered Available Spectrum Inquiry.
type Exchange struct {
	ID           int64
	ExchangeID   string
	RequestID    string
	SerialNumber string
	TestVector   int
	ResponseCode int
	ValidRequest bool
	// Request is the received JSON body.
	Request []byte
	// Response is the CBOR encoding of the sent response envelope.
	Response  []byte
	CreatedAt time.Time
}
