/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package channel

const (
	// BaseFrequencyMHz is the frequency of CFI 0 in the 6 GHz band.
	BaseFrequencyMHz = 5950
	// CFISpacingMHz is the frequency distance between two adjacent CFIs.
	CFISpacingMHz = 5
	// PrimaryBandwidth is the width of the channels every tier aggregates.
	PrimaryBandwidth = 20

	// NoCFI is returned by lookups that find no matching channel.
	NoCFI = 0
)

// FrequencyRange is a closed range in MHz.
type FrequencyRange struct {
	Low  int
	High int
}

// Within reports whether r lies inside outer.
func (r FrequencyRange) Within(outer FrequencyRange) bool {
	return r.Low >= outer.Low && r.High <= outer.High
}

// CfiToFreq returns the center frequency in MHz of a CFI.
func CfiToFreq(cfi int) int {
	return BaseFrequencyMHz + CFISpacingMHz*cfi
}

// FreqToCfi is the inverse of CfiToFreq. ok is false when freq does not sit on
// the CFI grid.
func FreqToCfi(freq int) (cfi int, ok bool) {
	offset := freq - BaseFrequencyMHz
	if offset%CFISpacingMHz != 0 {
		return NoCFI, false
	}
	return offset / CFISpacingMHz, true
}

// IsPrimary reports whether cfi is aligned on the 20 MHz grid.
func IsPrimary(cfi int) bool {
	return cfi%4 == 1
}

// PrimaryChannelsOf lists the 20 MHz CFIs aggregated under the channel cfi of
// the given bandwidth, in ascending order.
func PrimaryChannelsOf(cfi, bandwidth int) []int {
	if bandwidth <= PrimaryBandwidth {
		return []int{cfi}
	}
	span := bandwidth/10 - 2
	out := make([]int, 0, bandwidth/PrimaryBandwidth)
	for c := cfi - span; c <= cfi+span; c += 4 {
		out = append(out, c)
	}
	return out
}

// RangeOf returns the frequency range occupied by channel cfi.
func RangeOf(cfi, bandwidth int) FrequencyRange {
	center := CfiToFreq(cfi)
	return FrequencyRange{Low: center - bandwidth/2, High: center + bandwidth/2}
}
