/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package mask

import (
	"maps"
	"math"
	"slices"

	"github.com/kentakayama/afc-simulator/internal/afc"
	"github.com/kentakayama/afc-simulator/internal/channel"
)

// PrimaryPower is the advertised power of one 20 MHz channel.
type PrimaryPower struct {
	MaxPsd  float64
	MaxEirp float64
}

// SpectrumMask maps primary channels to their power and every wider tier
// channel whose primaries are all present to an aggregated EIRP.
type SpectrumMask struct {
	Bandwidth int
	// Pick is the sorted set of tier CFIs the mask was drawn for.
	Pick      []int
	Primaries map[int]PrimaryPower
	// Tiers holds bandwidth -> CFI -> max EIRP for the wider tiers.
	Tiers map[int]map[int]float64

	domain *channel.Domain
}

// Round1 rounds v to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// BandwidthGain returns 10*log10(bandwidth).
func BandwidthGain(bandwidth int) float64 {
	return 10 * math.Log10(float64(bandwidth))
}

// Aggregate builds a mask from per-primary PSD values. Every wider tier CFI of
// d whose primaries all appear in psd gets min(PSD) + 10*log10(bw), capped at
// the domain EIRP ceiling.
func Aggregate(d *channel.Domain, psd map[int]float64) *SpectrumMask {
	m := &SpectrumMask{
		Primaries: make(map[int]PrimaryPower, len(psd)),
		Tiers:     make(map[int]map[int]float64),
		domain:    d,
	}
	for cfi, p := range psd {
		m.Primaries[cfi] = PrimaryPower{
			MaxPsd:  p,
			MaxEirp: Round1(p + BandwidthGain(channel.PrimaryBandwidth)),
		}
	}
	for _, bw := range d.Bandwidths() {
		if bw == channel.PrimaryBandwidth {
			continue
		}
		for _, cfi := range d.CFIs(bw) {
			low, ok := m.minPsd(channel.PrimaryChannelsOf(cfi, bw))
			if !ok {
				continue
			}
			eirp := min(low+BandwidthGain(bw), d.EIRPCeiling)
			if m.Tiers[bw] == nil {
				m.Tiers[bw] = make(map[int]float64)
			}
			m.Tiers[bw][cfi] = Round1(eirp)
		}
	}
	return m
}

func (m *SpectrumMask) minPsd(primaries []int) (float64, bool) {
	low := math.Inf(1)
	for _, p := range primaries {
		pp, ok := m.Primaries[p]
		if !ok {
			return 0, false
		}
		low = min(low, pp.MaxPsd)
	}
	return low, true
}

// EIRP returns the advertised EIRP of a channel of any tier.
func (m *SpectrumMask) EIRP(bandwidth, cfi int) (float64, bool) {
	if bandwidth == channel.PrimaryBandwidth {
		p, ok := m.Primaries[cfi]
		return p.MaxEirp, ok
	}
	v, ok := m.Tiers[bandwidth][cfi]
	return v, ok
}

// PrimaryCFIs lists the primaries of the mask in ascending order.
func (m *SpectrumMask) PrimaryCFIs() []int {
	return slices.Sorted(maps.Keys(m.Primaries))
}

// FrequencyInfo renders one entry per primary channel, center +/- 10 MHz.
func (m *SpectrumMask) FrequencyInfo() []afc.AvailableFrequencyInfo {
	out := make([]afc.AvailableFrequencyInfo, 0, len(m.Primaries))
	for _, cfi := range m.PrimaryCFIs() {
		r := channel.RangeOf(cfi, channel.PrimaryBandwidth)
		out = append(out, afc.AvailableFrequencyInfo{
			FrequencyRange: afc.FrequencyRange{LowFrequency: r.Low, HighFrequency: r.High},
			MaxPsd:         m.Primaries[cfi].MaxPsd,
		})
	}
	return out
}

// ChannelInfo renders one entry per populated tier, narrowest first.
func (m *SpectrumMask) ChannelInfo() []afc.AvailableChannelInfo {
	out := []afc.AvailableChannelInfo{}
	if m.domain == nil {
		return out
	}
	for _, bw := range m.domain.Bandwidths() {
		class, ok := m.domain.OperatingClass(bw)
		if !ok {
			continue
		}
		var cfis []int
		if bw == channel.PrimaryBandwidth {
			cfis = m.PrimaryCFIs()
		} else {
			cfis = slices.Sorted(maps.Keys(m.Tiers[bw]))
		}
		if len(cfis) == 0 {
			continue
		}
		info := afc.AvailableChannelInfo{
			GlobalOperatingClass: class,
			ChannelCfi:           cfis,
			MaxEirp:              make([]float64, len(cfis)),
		}
		for i, cfi := range cfis {
			info.MaxEirp[i], _ = m.EIRP(bw, cfi)
		}
		out = append(out, info)
	}
	return out
}

// Response renders the mask in the shape a classification asks for.
func (m *SpectrumMask) Response(class afc.Classification) afc.InquiryResponse {
	resp := afc.InquiryResponse{
		RequestID: "0",
		Response:  afc.ResponseStatus{ResponseCode: afc.CodeSuccess, ShortDescription: "Success"},
	}
	if class.WantsFrequencyInfo() {
		resp.AvailableFrequencyInfo = m.FrequencyInfo()
	}
	if class.WantsChannelInfo() {
		resp.AvailableChannelInfo = m.ChannelInfo()
	}
	return resp
}
