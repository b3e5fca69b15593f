/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package afc

// VerifyRequestInfo reports whether the device identification of the first
// request is usable: a serial number and at least one certification carrying
// an id and either a rulesetId or the older nra member.
func VerifyRequestInfo(e *InquiryEnvelope) bool {
	req := e.Request()
	if req == nil || req.DeviceDescriptor == nil {
		return false
	}
	dev := req.DeviceDescriptor
	if dev.SerialNumber == nil || len(dev.CertificationID) == 0 {
		return false
	}
	for _, c := range dev.CertificationID {
		if c.ID == nil {
			return false
		}
		if c.RulesetID == nil && c.NRA == nil {
			return false
		}
	}
	return true
}
