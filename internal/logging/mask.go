/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package logging

// MaskSerial masks a device serial number for log output. It keeps the first
// three characters and the last one. Serial numbers of four characters or
// fewer, and every serial when enabled is false, are returned as is.
func MaskSerial(serial string, enabled bool) string {
	if !enabled || len(serial) <= 4 {
		return serial
	}
	return serial[:3] + "*" + serial[len(serial)-1:]
}
