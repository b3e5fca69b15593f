/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package afc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResponse() InquiryResponse {
	return InquiryResponse{
		RequestID: "0",
		AvailableFrequencyInfo: []AvailableFrequencyInfo{
			{FrequencyRange: FrequencyRange{LowFrequency: 5945, HighFrequency: 5965}, MaxPsd: 17},
			{FrequencyRange: FrequencyRange{LowFrequency: 6025, HighFrequency: 6105}, MaxPsd: 14},
			{FrequencyRange: FrequencyRange{LowFrequency: 6525, HighFrequency: 6545}, MaxPsd: 12},
		},
		AvailableChannelInfo: []AvailableChannelInfo{
			{GlobalOperatingClass: 131, ChannelCfi: []int{1, 5, 9, 13}, MaxEirp: []float64{30, 30, 29.5, 29.5}},
			{GlobalOperatingClass: 133, ChannelCfi: []int{7, 23, 39}, MaxEirp: []float64{30, 31.5, 33}},
			{GlobalOperatingClass: 134, ChannelCfi: []int{15, 47}, MaxEirp: []float64{36, 34}},
		},
		Response: ResponseStatus{ResponseCode: CodeSuccess, ShortDescription: "Success"},
	}
}

func channelsRequest(chans ...InquiredChannel) *InquiryRequest {
	return &InquiryRequest{InquiredChannels: chans}
}

func TestFilter_SingleChannel(t *testing.T) {
	resp := sampleResponse()
	req := channelsRequest(InquiredChannel{GlobalOperatingClass: intPtr(133), ChannelCfi: []int{7}})
	Filter(&resp, ConstraintsOf(req))

	assert.Equal(t, []AvailableChannelInfo{
		{GlobalOperatingClass: 133, ChannelCfi: []int{7}, MaxEirp: []float64{30}},
	}, resp.AvailableChannelInfo)
	assert.Nil(t, resp.AvailableFrequencyInfo)
}

func TestFilter_WholeClassAndUnion(t *testing.T) {
	resp := sampleResponse()
	req := channelsRequest(
		InquiredChannel{GlobalOperatingClass: intPtr(131), ChannelCfi: []int{13}},
		InquiredChannel{GlobalOperatingClass: intPtr(131), ChannelCfi: []int{1, 77}},
		InquiredChannel{GlobalOperatingClass: intPtr(134)},
	)
	Filter(&resp, ConstraintsOf(req))

	require.Len(t, resp.AvailableChannelInfo, 2)
	assert.Equal(t, []int{1, 13}, resp.AvailableChannelInfo[0].ChannelCfi)
	assert.Equal(t, []float64{30, 29.5}, resp.AvailableChannelInfo[0].MaxEirp)
	assert.Equal(t, []int{15, 47}, resp.AvailableChannelInfo[1].ChannelCfi)
}

func TestFilter_NoOverlapDropsEntry(t *testing.T) {
	resp := sampleResponse()
	req := channelsRequest(InquiredChannel{GlobalOperatingClass: intPtr(133), ChannelCfi: []int{55}})
	Filter(&resp, ConstraintsOf(req))

	// inquired but nothing available: an empty list, not an absent one
	assert.NotNil(t, resp.AvailableChannelInfo)
	assert.Empty(t, resp.AvailableChannelInfo)
}

func TestFilter_FrequencyRanges(t *testing.T) {
	resp := sampleResponse()
	req := &InquiryRequest{InquiredFrequencyRange: []InquiredFrequencyRange{
		{LowFrequency: intPtr(5925), HighFrequency: intPtr(6100)},
		{LowFrequency: intPtr(6500), HighFrequency: intPtr(6600)},
	}}
	Filter(&resp, ConstraintsOf(req))

	require.Len(t, resp.AvailableFrequencyInfo, 2)
	assert.Equal(t, 5945, resp.AvailableFrequencyInfo[0].FrequencyRange.LowFrequency)
	assert.Equal(t, 6525, resp.AvailableFrequencyInfo[1].FrequencyRange.LowFrequency)
	assert.Nil(t, resp.AvailableChannelInfo)
}

func TestFilter_Idempotent(t *testing.T) {
	req := &InquiryRequest{
		InquiredChannels: []InquiredChannel{
			{GlobalOperatingClass: intPtr(131), ChannelCfi: []int{5, 9, 200}},
			{GlobalOperatingClass: intPtr(133)},
			{GlobalOperatingClass: intPtr(137)},
		},
		InquiredFrequencyRange: []InquiredFrequencyRange{
			{LowFrequency: intPtr(5945), HighFrequency: intPtr(6105)},
		},
	}
	c := ConstraintsOf(req)

	once := sampleResponse()
	Filter(&once, c)
	twice := once.Clone()
	Filter(&twice, c)
	assert.Equal(t, once, twice)
}

func TestConstraintsOf(t *testing.T) {
	c := ConstraintsOf(nil)
	assert.False(t, c.HasChannels())
	assert.False(t, c.HasFrequencyRanges())

	c = ConstraintsOf(channelsRequest(
		InquiredChannel{GlobalOperatingClass: intPtr(134)},
		InquiredChannel{GlobalOperatingClass: intPtr(134), ChannelCfi: []int{15}},
		InquiredChannel{GlobalOperatingClass: intPtr(133), ChannelCfi: []int{39, 7}},
	))
	cfis, restricted := c.CFIs(134)
	assert.False(t, restricted)
	assert.Nil(t, cfis)
	cfis, restricted = c.CFIs(133)
	assert.True(t, restricted)
	assert.Equal(t, []int{7, 39}, cfis)
	assert.False(t, c.HasClass(131))
}
