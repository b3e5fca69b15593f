//go:build property
// +build property

/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package mask

import (
	"testing"

	"github.com/kentakayama/afc-simulator/internal/channel"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestGeneratedMaskProperties(t *testing.T) {
	d := loadDomain(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("wider tiers aggregate complete primary sets only", prop.ForAll(
		func(seed uint64, bw int, powerOnly bool) bool {
			m, err := NewSeededGenerator(d, seed).Generate(Options{Bandwidth: bw, PowerOnly: powerOnly})
			if err != nil {
				return false
			}
			for _, tier := range d.Bandwidths() {
				if tier == channel.PrimaryBandwidth {
					continue
				}
				for _, cfi := range d.CFIs(tier) {
					low, complete := m.minPsd(channel.PrimaryChannelsOf(cfi, tier))
					got, ok := m.EIRP(tier, cfi)
					if ok != complete {
						return false
					}
					if ok && got != Round1(min(low+BandwidthGain(tier), d.EIRPCeiling)) {
						return false
					}
				}
			}
			return true
		},
		gen.UInt64(),
		gen.OneConstOf(20, 40, 80, 160, 320),
		gen.Bool(),
	))

	properties.Property("picks are half the tier and expand to the mask primaries", prop.ForAll(
		func(seed uint64, bw int) bool {
			m, err := NewSeededGenerator(d, seed).Generate(Options{Bandwidth: bw})
			if err != nil {
				return false
			}
			if len(m.Pick) != len(d.CFIs(bw))/2 {
				return false
			}
			for _, cfi := range m.Pick {
				for _, p := range channel.PrimaryChannelsOf(cfi, bw) {
					if _, ok := m.Primaries[p]; !ok {
						return false
					}
				}
			}
			return true
		},
		gen.UInt64(),
		gen.OneConstOf(20, 40, 80, 160, 320),
	))

	properties.TestingRun(t)
}
