/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package afc

// Classification tells which inquiry lists a request carries.
type Classification int

const (
	ClassNeither Classification = iota
	ClassFrequency
	ClassChannel
	ClassBoth
)

// Classify inspects the non-empty inquiry lists of req.
func Classify(req *InquiryRequest) Classification {
	if req == nil {
		return ClassNeither
	}
	hasFreq := len(req.InquiredFrequencyRange) > 0
	hasChan := len(req.InquiredChannels) > 0
	switch {
	case hasFreq && hasChan:
		return ClassBoth
	case hasChan:
		return ClassChannel
	case hasFreq:
		return ClassFrequency
	default:
		return ClassNeither
	}
}

// TestVector returns the fixture vector number answering the classification,
// or 0 for ClassNeither.
func (c Classification) TestVector() int {
	switch c {
	case ClassFrequency:
		return 1
	case ClassChannel:
		return 2
	case ClassBoth:
		return 3
	default:
		return 0
	}
}

// ClassificationOfVector is the inverse of TestVector.
func ClassificationOfVector(vector int) Classification {
	switch vector {
	case 1:
		return ClassFrequency
	case 2:
		return ClassChannel
	case 3:
		return ClassBoth
	default:
		return ClassNeither
	}
}

// WantsFrequencyInfo reports whether responses of this class carry
// availableFrequencyInfo.
func (c Classification) WantsFrequencyInfo() bool {
	return c == ClassFrequency || c == ClassBoth
}

// WantsChannelInfo reports whether responses of this class carry
// availableChannelInfo.
func (c Classification) WantsChannelInfo() bool {
	return c == ClassChannel || c == ClassBoth
}

func (c Classification) String() string {
	switch c {
	case ClassFrequency:
		return "frequency"
	case ClassChannel:
		return "channel"
	case ClassBoth:
		return "both"
	default:
		return "neither"
	}
}
