/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package afc

import (
	"strings"
	"testing"
)

const validInquiry = `{
  "version": "1.4",
  "availableSpectrumInquiryRequests": [{
    "requestId": "REQ-1",
    "deviceDescriptor": {
      "serialNumber": "SN123456",
      "certificationId": [{"rulesetId": "US_47_CFR_PART_15_SUBPART_E", "id": "FCCID-1"}]
    },
    "location": {
      "ellipse": {
        "center": {"longitude": -97.7, "latitude": 30.2},
        "majorAxis": 100, "minorAxis": 50, "orientation": 45
      },
      "elevation": {"height": 3, "heightType": "AGL", "verticalUncertainty": 2},
      "indoorDeployment": 2
    },
    "inquiredFrequencyRange": [{"lowFrequency": 5925, "highFrequency": 6425}],
    "inquiredChannels": [{"globalOperatingClass": 133, "channelCfi": [7]}]
  }]
}`

// mustDecode decodes an inquiry and fails the test on transport errors.
func mustDecode(t *testing.T, body string) *InquiryEnvelope {
	t.Helper()
	env, err := DecodeInquiry([]byte(body))
	if err != nil {
		t.Fatalf("DecodeInquiry error: %v", err)
	}
	return env
}

// without returns validInquiry with the first occurrence of old replaced.
func without(t *testing.T, old, replacement string) string {
	t.Helper()
	if !strings.Contains(validInquiry, old) {
		t.Fatalf("fixture does not contain %q", old)
	}
	return strings.Replace(validInquiry, old, replacement, 1)
}

func intPtr(v int) *int { return &v }
