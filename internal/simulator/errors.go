/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package simulator

import "errors"

var (
	ErrInvalidSettings = errors.New("invalid settings")
	ErrNoExchange      = errors.New("no inquiry has been answered yet")
	ErrNoSigner        = errors.New("evidence signing is not configured")
	ErrUploadDisabled  = errors.New("fixture upload is not configured")
	ErrInvalidEvidence = errors.New("invalid evidence")
)
