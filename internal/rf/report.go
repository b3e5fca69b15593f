/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package rf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/kentakayama/afc-simulator/internal/channel"
	"github.com/kentakayama/afc-simulator/resources"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const reportSchemaURL = "https://afc-simulator.local/schema/rf_measurement_report.schema.json"

// PsdSample is the PSD captured at one frequency, in dBm/MHz.
type PsdSample struct {
	FreqMHz   float64   `json:"freqMhz"`
	PsdDbmMHz []float64 `json:"psdDbmMHz"`
}

// Max returns the highest PSD of the sample.
func (s PsdSample) Max() float64 {
	out := math.Inf(-1)
	for _, v := range s.PsdDbmMHz {
		out = max(out, v)
	}
	return out
}

// Capture is one analyzer packet.
type Capture struct {
	MaxEirp       *float64    `json:"maxEirp,omitempty"`
	MaxPSD        *float64    `json:"maxPSD,omitempty"`
	FreqPsdPerMHz []PsdSample `json:"freqPsdPerMHz,omitempty"`
}

// Report is an RF measurement report taken on one channel.
type Report struct {
	CentralFreq  float64   `json:"centralFreq"`
	ChannelWidth int       `json:"channelWidth"`
	Data         []Capture `json:"data"`
}

type reportDocument struct {
	Report *Report `json:"rfMeasurementReport"`
}

var reportSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(reportSchemaURL, bytes.NewReader(resources.RFMeasurementReportSchema)); err != nil {
		return nil, fmt.Errorf("load report schema: %w", err)
	}
	return c.Compile(reportSchemaURL)
})

// ParseReport checks a report document against its JSON schema, decodes it
// and fills in the derived capture values.
func ParseReport(data []byte) (*Report, error) {
	schema, err := reportSchema()
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	var rd reportDocument
	if err := json.Unmarshal(data, &rd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	if err := rd.Report.Normalize(); err != nil {
		return nil, err
	}
	return rd.Report, nil
}

// MarshalJSON wraps the report in its rfMeasurementReport member.
func (r *Report) MarshalJSON() ([]byte, error) {
	type plain Report
	return json.Marshal(struct {
		Report *plain `json:"rfMeasurementReport"`
	}{(*plain)(r)})
}

// Normalize derives maxPSD from the highest sample and maxEirp from the
// per-MHz maxima of captures that omit them.
func (r *Report) Normalize() error {
	for i := range r.Data {
		c := &r.Data[i]
		if c.MaxPSD != nil && c.MaxEirp != nil {
			continue
		}
		if len(c.FreqPsdPerMHz) == 0 {
			return fmt.Errorf("%w: capture %d has neither power values nor samples", ErrInvalidReport, i)
		}
		maxima := make([]float64, 0, len(c.FreqPsdPerMHz))
		for _, s := range c.FreqPsdPerMHz {
			if len(s.PsdDbmMHz) > 0 {
				maxima = append(maxima, s.Max())
			}
		}
		if len(maxima) == 0 {
			return fmt.Errorf("%w: capture %d has empty samples", ErrInvalidReport, i)
		}
		if c.MaxPSD == nil {
			v := slices.Max(maxima)
			c.MaxPSD = &v
		}
		if c.MaxEirp == nil {
			v := AggregateEIRP(maxima)
			c.MaxEirp = &v
		}
	}
	return nil
}

// CenterCFI returns the channel index of the central frequency.
func (r *Report) CenterCFI() (int, bool) {
	if r.CentralFreq != math.Trunc(r.CentralFreq) {
		return channel.NoCFI, false
	}
	return channel.FreqToCfi(int(r.CentralFreq))
}

