/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package afc

import (
	"github.com/kentakayama/afc-simulator/internal/channel"
	"github.com/kentakayama/afc-simulator/internal/util"
)

// Constraints is what a request asked about: operating classes with optional
// CFI restrictions, and frequency ranges.
type Constraints struct {
	classes map[int]util.Set[int]
	ranges  []channel.FrequencyRange
}

// ConstraintsOf collects the inquiry lists of req. Entries missing their
// mandatory members are skipped.
func ConstraintsOf(req *InquiryRequest) Constraints {
	var c Constraints
	if req == nil {
		return c
	}
	if len(req.InquiredChannels) > 0 {
		c.classes = make(map[int]util.Set[int])
		for _, ch := range req.InquiredChannels {
			if ch.GlobalOperatingClass == nil {
				continue
			}
			class := *ch.GlobalOperatingClass
			cfis, seen := c.classes[class]
			switch {
			case seen && cfis == nil:
				// already unrestricted
			case len(ch.ChannelCfi) == 0:
				c.classes[class] = nil
			case seen:
				for _, cfi := range ch.ChannelCfi {
					cfis.Add(cfi)
				}
			default:
				c.classes[class] = util.SetOf(ch.ChannelCfi...)
			}
		}
	}
	if len(req.InquiredFrequencyRange) > 0 {
		c.ranges = make([]channel.FrequencyRange, 0, len(req.InquiredFrequencyRange))
		for _, r := range req.InquiredFrequencyRange {
			if r.LowFrequency == nil || r.HighFrequency == nil {
				continue
			}
			c.ranges = append(c.ranges, channel.FrequencyRange{Low: *r.LowFrequency, High: *r.HighFrequency})
		}
	}
	return c
}

// HasChannels reports whether operating classes were inquired.
func (c Constraints) HasChannels() bool {
	return c.classes != nil
}

// HasFrequencyRanges reports whether frequency ranges were inquired.
func (c Constraints) HasFrequencyRanges() bool {
	return c.ranges != nil
}

// CFIs returns the CFIs inquired for an operating class. restricted is false
// when the whole class was inquired.
func (c Constraints) CFIs(class int) (cfis []int, restricted bool) {
	set, ok := c.classes[class]
	if !ok || set == nil {
		return nil, false
	}
	return util.Sorted(set), true
}

// HasClass reports whether an operating class was inquired.
func (c Constraints) HasClass(class int) bool {
	_, ok := c.classes[class]
	return ok
}

// FrequencyRanges returns the inquired ranges.
func (c Constraints) FrequencyRanges() []channel.FrequencyRange {
	return c.ranges
}

// Filter restricts resp to what c asked about. Channel entries survive only
// for inquired operating classes, reduced to the inquired CFIs when the class
// was restricted; frequency entries survive only when their range lies within
// an inquired range. A list the request did not ask about is dropped.
// Filtering is idempotent.
func Filter(resp *InquiryResponse, c Constraints) {
	if resp == nil {
		return
	}
	switch {
	case !c.HasChannels():
		resp.AvailableChannelInfo = nil
	case resp.AvailableChannelInfo != nil:
		kept := make([]AvailableChannelInfo, 0, len(resp.AvailableChannelInfo))
		for _, info := range resp.AvailableChannelInfo {
			if !c.HasClass(info.GlobalOperatingClass) {
				continue
			}
			allowed := c.classes[info.GlobalOperatingClass]
			if allowed == nil {
				kept = append(kept, info)
				continue
			}
			if reduced, ok := intersectChannels(info, allowed); ok {
				kept = append(kept, reduced)
			}
		}
		resp.AvailableChannelInfo = kept
	}

	switch {
	case !c.HasFrequencyRanges():
		resp.AvailableFrequencyInfo = nil
	case resp.AvailableFrequencyInfo != nil:
		kept := make([]AvailableFrequencyInfo, 0, len(resp.AvailableFrequencyInfo))
		for _, info := range resp.AvailableFrequencyInfo {
			r := channel.FrequencyRange{Low: info.FrequencyRange.LowFrequency, High: info.FrequencyRange.HighFrequency}
			for _, inquired := range c.ranges {
				if r.Within(inquired) {
					kept = append(kept, info)
					break
				}
			}
		}
		resp.AvailableFrequencyInfo = kept
	}
}

func intersectChannels(info AvailableChannelInfo, allowed util.Set[int]) (AvailableChannelInfo, bool) {
	out := AvailableChannelInfo{
		GlobalOperatingClass: info.GlobalOperatingClass,
		ChannelCfi:           []int{},
		MaxEirp:              []float64{},
	}
	n := min(len(info.ChannelCfi), len(info.MaxEirp))
	for i := 0; i < n; i++ {
		if allowed.Has(info.ChannelCfi[i]) {
			out.ChannelCfi = append(out.ChannelCfi, info.ChannelCfi[i])
			out.MaxEirp = append(out.MaxEirp, info.MaxEirp[i])
		}
	}
	return out, len(out.ChannelCfi) > 0
}
