/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCfiToFreq(t *testing.T) {
	assert.Equal(t, 5955, CfiToFreq(1))
	assert.Equal(t, 5985, CfiToFreq(7))
	assert.Equal(t, 6105, CfiToFreq(31))
	assert.Equal(t, 5935, CfiToFreq(-3))
}

func TestFreqToCfi(t *testing.T) {
	cfi, ok := FreqToCfi(6135)
	assert.True(t, ok)
	assert.Equal(t, 37, cfi)

	cfi, ok = FreqToCfi(6136)
	assert.False(t, ok)
	assert.Equal(t, NoCFI, cfi)
}

func TestPrimaryChannelsOf(t *testing.T) {
	assert.Equal(t, []int{37}, PrimaryChannelsOf(37, 20))
	assert.Equal(t, []int{1, 5}, PrimaryChannelsOf(3, 40))
	assert.Equal(t, []int{1, 5, 9, 13}, PrimaryChannelsOf(7, 80))
	assert.Equal(t, []int{33, 37, 41, 45, 49, 53, 57, 61}, PrimaryChannelsOf(47, 160))

	p320 := PrimaryChannelsOf(31, 320)
	assert.Len(t, p320, 16)
	assert.Equal(t, 1, p320[0])
	assert.Equal(t, 61, p320[15])
}

func TestRangeOf(t *testing.T) {
	assert.Equal(t, FrequencyRange{Low: 5945, High: 6025}, RangeOf(7, 80))
	assert.Equal(t, FrequencyRange{Low: 5945, High: 5965}, RangeOf(1, 20))
}

func TestFrequencyRangeWithin(t *testing.T) {
	outer := FrequencyRange{Low: 5925, High: 6425}
	assert.True(t, FrequencyRange{Low: 5945, High: 5965}.Within(outer))
	assert.True(t, outer.Within(outer))
	assert.False(t, FrequencyRange{Low: 6415, High: 6435}.Within(outer))
}

func TestIsPrimary(t *testing.T) {
	assert.True(t, IsPrimary(1))
	assert.True(t, IsPrimary(233))
	assert.False(t, IsPrimary(3))
	assert.False(t, IsPrimary(2))
}
