//go:build property
// +build property

/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package channel_test

import (
	"slices"
	"testing"

	"github.com/kentakayama/afc-simulator/internal/channel"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: CfisFromFrequencyRanges(ranges(PrimaryChannelsOf(cfi))) == [cfi]
func TestTierCfiRoundTrip(t *testing.T) {
	tables, err := channel.Default()
	if err != nil {
		t.Fatalf("Default error: %v", err)
	}
	d, err := tables.Domain("US")
	if err != nil {
		t.Fatalf("Domain error: %v", err)
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("expanding then re-deriving a tier CFI is the identity", prop.ForAll(
		func(bw int, idx int) bool {
			cfis := d.CFIs(bw)
			cfi := cfis[idx%len(cfis)]
			var ranges []channel.FrequencyRange
			for _, p := range channel.PrimaryChannelsOf(cfi, bw) {
				ranges = append(ranges, channel.RangeOf(p, channel.PrimaryBandwidth))
			}
			return slices.Equal(d.CfisFromFrequencyRanges(ranges, bw), []int{cfi})
		},
		gen.OneConstOf(20, 40, 80, 160, 320),
		gen.IntRange(0, 1000),
	))

	properties.Property("every primary of a non-overlapping tier maps back to its tier CFI", prop.ForAll(
		func(bw int, idx int) bool {
			cfis := d.CFIs(bw)
			cfi := cfis[idx%len(cfis)]
			for _, p := range channel.PrimaryChannelsOf(cfi, bw) {
				if d.CfiFromOperatingChannel(p, bw) != cfi {
					return false
				}
			}
			return true
		},
		gen.OneConstOf(20, 40, 80, 160),
		gen.IntRange(0, 1000),
	))

	properties.Property("CFI and frequency conversions are inverse", prop.ForAll(
		func(cfi int) bool {
			back, ok := channel.FreqToCfi(channel.CfiToFreq(cfi))
			return ok && back == cfi
		},
		gen.IntRange(-10, 260),
	))

	properties.TestingRun(t)
}
