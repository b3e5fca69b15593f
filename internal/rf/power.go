/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package rf

import (
	"math"

	"github.com/kentakayama/afc-simulator/internal/afc"
	"github.com/kentakayama/afc-simulator/internal/channel"
)

// AggregateEIRP sums PSD samples as powers: 10*log10(sum(10^(psd/10))).
func AggregateEIRP(psd []float64) float64 {
	var linear float64
	for _, p := range psd {
		linear += math.Pow(10, p/10)
	}
	return 10 * math.Log10(linear)
}

// CenterPower returns the EIRP a device on channel cfi centered at freq may
// use: the advertised channel EIRP when there is one, otherwise the PSD of the
// frequency range containing freq scaled to the channel bandwidth and capped
// at the domain ceiling.
func CenterPower(resp *afc.InquiryResponse, d *channel.Domain, freq, cfi int) (float64, bool) {
	if resp == nil {
		return 0, false
	}
	power, found := 0.0, false
	for _, info := range resp.AvailableChannelInfo {
		for i, c := range info.ChannelCfi {
			if c == cfi && i < len(info.MaxEirp) {
				power, found = info.MaxEirp[i], true
			}
		}
	}
	if found {
		return power, true
	}
	for _, info := range resp.AvailableFrequencyInfo {
		r := info.FrequencyRange
		if r.LowFrequency < freq && freq < r.HighFrequency {
			power = info.MaxPsd + 10*math.Log10(float64(d.BandwidthOfCfi(cfi)))
			return min(power, d.EIRPCeiling), true
		}
	}
	return 0, false
}
