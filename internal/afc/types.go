/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package afc

import (
	"encoding/json"
	"slices"
)

// ExpireTimeLayout is the layout of availabilityExpireTime.
const ExpireTimeLayout = "2006-01-02T15:04:05Z"

// InquiryEnvelope is the body of an Available Spectrum Inquiry request.
// Pointer and slice fields are nil when absent from the JSON document.
type InquiryEnvelope struct {
	Version          *string           `json:"version,omitempty"`
	Requests         []InquiryRequest  `json:"availableSpectrumInquiryRequests,omitzero"`
	VendorExtensions []json.RawMessage `json:"vendorExtensions,omitzero"`

	invalidParams []string
}

type InquiryRequest struct {
	RequestID              *string                  `json:"requestId,omitempty"`
	DeviceDescriptor       *DeviceDescriptor        `json:"deviceDescriptor,omitempty"`
	Location               *Location                `json:"location,omitempty"`
	InquiredFrequencyRange []InquiredFrequencyRange `json:"inquiredFrequencyRange,omitzero"`
	InquiredChannels       []InquiredChannel        `json:"inquiredChannels,omitzero"`
	MinDesiredPower        *float64                 `json:"minDesiredPower,omitempty"`
	VendorExtensions       []json.RawMessage        `json:"vendorExtensions,omitzero"`
}

type DeviceDescriptor struct {
	SerialNumber    *string           `json:"serialNumber,omitempty"`
	CertificationID []CertificationID `json:"certificationId,omitzero"`
	// RulesetIDs is only sent by pre-1.4 devices.
	RulesetIDs []string `json:"rulesetIds,omitzero"`
}

type CertificationID struct {
	RulesetID *string `json:"rulesetId,omitempty"`
	// NRA is the pre-1.4 spelling of the certifying authority.
	NRA *string `json:"nra,omitempty"`
	ID  *string `json:"id,omitempty"`
}

type Point struct {
	Longitude *float64 `json:"longitude,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
}

type Ellipse struct {
	Center      *Point   `json:"center,omitempty"`
	MajorAxis   *float64 `json:"majorAxis,omitempty"`
	MinorAxis   *float64 `json:"minorAxis,omitempty"`
	Orientation *float64 `json:"orientation,omitempty"`
}

type LinearPolygon struct {
	OuterBoundary []Point `json:"outerBoundary,omitzero"`
}

type Vector struct {
	Length *float64 `json:"length,omitempty"`
	Angle  *float64 `json:"angle,omitempty"`
}

type RadialPolygon struct {
	Center        *Point   `json:"center,omitempty"`
	OuterBoundary []Vector `json:"outerBoundary,omitzero"`
}

type Elevation struct {
	Height              *float64 `json:"height,omitempty"`
	HeightType          *string  `json:"heightType,omitempty"`
	VerticalUncertainty *float64 `json:"verticalUncertainty,omitempty"`
}

// Location carries exactly one of Ellipse, LinearPolygon or RadialPolygon in
// a valid request.
type Location struct {
	Ellipse          *Ellipse       `json:"ellipse,omitempty"`
	LinearPolygon    *LinearPolygon `json:"linearPolygon,omitempty"`
	RadialPolygon    *RadialPolygon `json:"radialPolygon,omitempty"`
	Elevation        *Elevation     `json:"elevation,omitempty"`
	IndoorDeployment *int           `json:"indoorDeployment,omitempty"`
}

type InquiredFrequencyRange struct {
	LowFrequency  *int `json:"lowFrequency,omitempty"`
	HighFrequency *int `json:"highFrequency,omitempty"`
}

type InquiredChannel struct {
	GlobalOperatingClass *int  `json:"globalOperatingClass,omitempty"`
	ChannelCfi           []int `json:"channelCfi,omitzero"`
}

// ResponseEnvelope is the body of an Available Spectrum Inquiry response.
type ResponseEnvelope struct {
	Version   string            `json:"version"`
	Responses []InquiryResponse `json:"availableSpectrumInquiryResponses"`
}

type InquiryResponse struct {
	RequestID              string                   `json:"requestId"`
	RulesetID              string                   `json:"rulesetId,omitempty"`
	AvailabilityExpireTime string                   `json:"availabilityExpireTime,omitempty"`
	AvailableFrequencyInfo []AvailableFrequencyInfo `json:"availableFrequencyInfo,omitzero"`
	AvailableChannelInfo   []AvailableChannelInfo   `json:"availableChannelInfo,omitzero"`
	Response               ResponseStatus           `json:"response"`
}

type FrequencyRange struct {
	LowFrequency  int `json:"lowFrequency"`
	HighFrequency int `json:"highFrequency"`
}

type AvailableFrequencyInfo struct {
	FrequencyRange FrequencyRange `json:"frequencyRange"`
	MaxPsd         float64        `json:"maxPsd"`
}

// AvailableChannelInfo holds parallel CFI and max EIRP arrays of one
// operating class.
type AvailableChannelInfo struct {
	GlobalOperatingClass int       `json:"globalOperatingClass"`
	ChannelCfi           []int     `json:"channelCfi"`
	MaxEirp              []float64 `json:"maxEirp"`
}

type ResponseStatus struct {
	ResponseCode     ResponseCode      `json:"responseCode"`
	ShortDescription string            `json:"shortDescription,omitempty"`
	SupplementalInfo *SupplementalInfo `json:"supplementalInfo,omitempty"`
}

type SupplementalInfo struct {
	MissingParams    []string `json:"missingParams,omitempty"`
	InvalidParams    []string `json:"invalidParams,omitempty"`
	UnexpectedParams []string `json:"unexpectedParams,omitempty"`
}

// Request returns the first request of the envelope, or nil.
func (e *InquiryEnvelope) Request() *InquiryRequest {
	if e == nil || len(e.Requests) == 0 {
		return nil
	}
	return &e.Requests[0]
}

// VersionOrEmpty returns the version string, or "" when absent.
func (e *InquiryEnvelope) VersionOrEmpty() string {
	if e == nil || e.Version == nil {
		return ""
	}
	return *e.Version
}

// RequestIDOrDefault returns the request identifier, or "0" when it cannot be
// read.
func (e *InquiryEnvelope) RequestIDOrDefault() string {
	if r := e.Request(); r != nil && r.RequestID != nil {
		return *r.RequestID
	}
	return "0"
}

// SerialNumber returns the device serial number, or "".
func (r *InquiryRequest) SerialNumber() string {
	if r == nil || r.DeviceDescriptor == nil || r.DeviceDescriptor.SerialNumber == nil {
		return ""
	}
	return *r.DeviceDescriptor.SerialNumber
}

// RulesetIDs returns the ruleset identifiers of every certification entry, in
// order, followed by the pre-1.4 rulesetIds list.
func (r *InquiryRequest) RulesetIDs() []string {
	if r == nil || r.DeviceDescriptor == nil {
		return nil
	}
	var out []string
	for _, c := range r.DeviceDescriptor.CertificationID {
		if c.RulesetID != nil {
			out = append(out, *c.RulesetID)
		}
	}
	return append(out, r.DeviceDescriptor.RulesetIDs...)
}

// First returns the response of the envelope, or nil.
func (e *ResponseEnvelope) First() *InquiryResponse {
	if e == nil || len(e.Responses) == 0 {
		return nil
	}
	return &e.Responses[0]
}

// Clone returns a deep copy of e.
func (e *ResponseEnvelope) Clone() *ResponseEnvelope {
	if e == nil {
		return nil
	}
	out := &ResponseEnvelope{Version: e.Version}
	if e.Responses != nil {
		out.Responses = make([]InquiryResponse, len(e.Responses))
		for i := range e.Responses {
			out.Responses[i] = e.Responses[i].Clone()
		}
	}
	return out
}

// Clone returns a deep copy of r.
func (r InquiryResponse) Clone() InquiryResponse {
	out := r
	out.AvailableFrequencyInfo = slices.Clone(r.AvailableFrequencyInfo)
	if r.AvailableChannelInfo != nil {
		out.AvailableChannelInfo = make([]AvailableChannelInfo, len(r.AvailableChannelInfo))
		for i, c := range r.AvailableChannelInfo {
			out.AvailableChannelInfo[i] = AvailableChannelInfo{
				GlobalOperatingClass: c.GlobalOperatingClass,
				ChannelCfi:           slices.Clone(c.ChannelCfi),
				MaxEirp:              slices.Clone(c.MaxEirp),
			}
		}
	}
	if r.Response.SupplementalInfo != nil {
		s := *r.Response.SupplementalInfo
		s.MissingParams = slices.Clone(s.MissingParams)
		s.InvalidParams = slices.Clone(s.InvalidParams)
		s.UnexpectedParams = slices.Clone(s.UnexpectedParams)
		out.Response.SupplementalInfo = &s
	}
	return out
}
