/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package rf

import (
	"fmt"
	"log"
	"math"

	"github.com/kentakayama/afc-simulator/internal/afc"
	"github.com/kentakayama/afc-simulator/internal/channel"
)

// LPICeiling is the PSD limit of a low power indoor device in dBm/MHz.
const LPICeiling = 5.0

// Verdict is the outcome of one check. A failing verdict carries the reason.
type Verdict struct {
	Pass   bool   `json:"pass"`
	Reason string `json:"reason,omitempty"`
}

// Mode selects the checks Validate runs.
type Mode string

const (
	ModeFrequency Mode = "freq"
	ModeChannel   Mode = "chan"
	ModeBoth      Mode = "both"
	ModeLPI       Mode = "lpi"
	ModeFC        Mode = "fc"
)

// ParseMode resolves a mode name.
func ParseMode(name string) (Mode, error) {
	switch m := Mode(name); m {
	case ModeFrequency, ModeChannel, ModeBoth, ModeLPI, ModeFC:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
}

// Result collects the verdicts of one validation. Adjacent is nil for modes
// that do not check adjacent emissions.
type Result struct {
	Mode     Mode     `json:"mode"`
	Power    Verdict  `json:"power"`
	Adjacent *Verdict `json:"adjacent,omitempty"`
}

// Pass reports whether every check of the result passed.
func (r Result) Pass() bool {
	return r.Power.Pass && (r.Adjacent == nil || r.Adjacent.Pass)
}

// Validator checks one measurement report against the response the device
// was given.
type Validator struct {
	report   *Report
	freqInfo []afc.AvailableFrequencyInfo
	chanInfo []afc.AvailableChannelInfo
	logger   *log.Logger
}

func NewValidator(resp *afc.InquiryResponse, report *Report, logger *log.Logger) *Validator {
	if logger == nil {
		logger = log.Default()
	}
	v := &Validator{report: report, logger: logger}
	if resp != nil {
		v.freqInfo = resp.AvailableFrequencyInfo
		v.chanInfo = resp.AvailableChannelInfo
	}
	return v
}

// Validate runs the checks of mode. criteriaPSD is only used by ModeFC.
func (v *Validator) Validate(mode Mode, criteriaPSD float64) (Result, error) {
	res := Result{Mode: mode}
	switch mode {
	case ModeFrequency:
		res.Power = v.ByFrequency()
		adjacent := v.AdjacentEmissions()
		res.Adjacent = &adjacent
	case ModeChannel:
		res.Power = v.ByChannel()
	case ModeBoth:
		power, adjacent := v.Both()
		res.Power, res.Adjacent = power, &adjacent
	case ModeLPI:
		res.Power = v.LPIPower()
	case ModeFC:
		res.Power = v.FCPower(criteriaPSD)
	default:
		return res, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return res, nil
}

func (v *Validator) fail(format string, args ...any) Verdict {
	reason := fmt.Sprintf(format, args...)
	v.logger.Printf("rf validation failed: %s", reason)
	return Verdict{Reason: reason}
}

func (v *Validator) hasData() bool {
	return v.report != nil && len(v.report.Data) > 0
}

// precheck fails when the response lacks the info a check needs or the report
// has no captures.
func (v *Validator) precheck(advertised int, member string) (Verdict, bool) {
	if advertised == 0 && v.hasData() {
		return v.fail("no %s in the response", member), false
	}
	if !v.hasData() {
		return v.fail("no data in rfMeasurementReport"), false
	}
	return Verdict{}, true
}

func (v *Validator) within(capture int, name string, value *float64, limit float64) (Verdict, bool) {
	if value == nil {
		return v.fail("capture %d has no %s", capture, name), false
	}
	if *value > limit {
		return v.fail("capture %d %s %g exceeds the permitted %g", capture, name, *value, limit), false
	}
	return Verdict{}, true
}

// matchRanges returns the PSD of every advertised range inside the window of
// width MHz centered on freq.
func (v *Validator) matchRanges(freq float64, width int) []float64 {
	window := channel.FrequencyRange{
		Low:  int(freq - float64(width)/2),
		High: int(freq + float64(width)/2),
	}
	var out []float64
	for _, info := range v.freqInfo {
		r := channel.FrequencyRange{Low: info.FrequencyRange.LowFrequency, High: info.FrequencyRange.HighFrequency}
		if r.Within(window) {
			out = append(out, info.MaxPsd)
		}
	}
	return out
}

func minOf(values []float64) float64 {
	out := math.Inf(1)
	for _, x := range values {
		out = min(out, x)
	}
	return out
}

// LimitByFrequency returns the lowest PSD advertised inside the window of
// width MHz centered on freq.
func (v *Validator) LimitByFrequency(freq float64, width int) (float64, bool) {
	m := v.matchRanges(freq, width)
	if len(m) == 0 {
		return 0, false
	}
	return minOf(m), true
}

// LimitByChannel returns the EIRP advertised for cfi.
func (v *Validator) LimitByChannel(cfi int) (float64, bool) {
	for _, info := range v.chanInfo {
		for i, c := range info.ChannelCfi {
			if c == cfi && i < len(info.MaxEirp) {
				return info.MaxEirp[i], true
			}
		}
	}
	return 0, false
}

// Limits holds the PSD and EIRP advertised for one channel. A nil member was
// not advertised.
type Limits struct {
	PSD  *float64 `json:"psd,omitempty"`
	EIRP *float64 `json:"eirp,omitempty"`
}

// LimitByBoth combines LimitByFrequency at the center of cfi with
// LimitByChannel.
func (v *Validator) LimitByBoth(cfi, width int) Limits {
	var l Limits
	if psd, ok := v.LimitByFrequency(float64(channel.CfiToFreq(cfi)), width); ok {
		l.PSD = &psd
	}
	if eirp, ok := v.LimitByChannel(cfi); ok {
		l.EIRP = &eirp
	}
	return l
}

// ByFrequency checks every capture's max PSD against the lowest PSD
// advertised inside the measured channel.
func (v *Validator) ByFrequency() Verdict {
	if verdict, ok := v.precheck(len(v.freqInfo), "availableFrequencyInfo"); !ok {
		return verdict
	}
	allowed, ok := v.LimitByFrequency(v.report.CentralFreq, v.report.ChannelWidth)
	if !ok {
		return v.fail("freq %g width %d: no matching frequency range in the response", v.report.CentralFreq, v.report.ChannelWidth)
	}
	for i, c := range v.report.Data {
		if verdict, ok := v.within(i, "maxPSD", c.MaxPSD, allowed); !ok {
			return verdict
		}
	}
	return Verdict{Pass: true}
}

// ByChannel checks every capture's max EIRP against the EIRP advertised for
// the measured channel.
func (v *Validator) ByChannel() Verdict {
	if verdict, ok := v.precheck(len(v.chanInfo), "availableChannelInfo"); !ok {
		return verdict
	}
	cfi, ok := v.report.CenterCFI()
	if !ok {
		return v.fail("central frequency %g is not on the channel grid", v.report.CentralFreq)
	}
	allowed, ok := v.LimitByChannel(cfi)
	if !ok {
		return v.fail("channel %d is not available in the response", cfi)
	}
	for i, c := range v.report.Data {
		if verdict, ok := v.within(i, "maxEirp", c.MaxEirp, allowed); !ok {
			return verdict
		}
	}
	return Verdict{Pass: true}
}

// Both requires the frequency and channel checks to pass before checking
// adjacent emissions.
func (v *Validator) Both() (power, adjacent Verdict) {
	if power = v.ByFrequency(); !power.Pass {
		return power, Verdict{Reason: "not checked: " + power.Reason}
	}
	if power = v.ByChannel(); !power.Pass {
		return power, Verdict{Reason: "not checked: " + power.Reason}
	}
	return power, v.AdjacentEmissions()
}

// AdjacentEmissions checks every per-MHz sample against the PSD advertised
// around its frequency. Samples where nothing was advertised pass unless they
// exceed the bound of the device's own center frequency. A center frequency
// sample without an advertised bound fails.
func (v *Validator) AdjacentEmissions() Verdict {
	if verdict, ok := v.precheck(len(v.freqInfo), "availableFrequencyInfo"); !ok {
		return verdict
	}
	center := v.report.CentralFreq
	width := v.report.ChannelWidth
	centerBound, haveCenter := v.LimitByFrequency(center, width)

	for _, c := range v.report.Data {
		for _, s := range c.FreqPsdPerMHz {
			allowed, ok := v.LimitByFrequency(s.FreqMHz, width)
			switch {
			case ok:
			case s.FreqMHz == center:
				return v.fail("center frequency %g has no advertised range", center)
			case haveCenter:
				allowed = centerBound
			default:
				continue
			}
			for _, psd := range s.PsdDbmMHz {
				if psd > allowed {
					return v.fail("freq %g psd %g exceeds permitted PSD %g", s.FreqMHz, psd, allowed)
				}
			}
		}
	}
	return Verdict{Pass: true}
}

// LPIPower checks that no capture exceeds the low power indoor ceiling.
func (v *Validator) LPIPower() Verdict {
	return v.ceiling(LPICeiling)
}

// FCPower checks that no capture exceeds criteriaPSD.
func (v *Validator) FCPower(criteriaPSD float64) Verdict {
	return v.ceiling(criteriaPSD)
}

func (v *Validator) ceiling(limit float64) Verdict {
	if !v.hasData() {
		return v.fail("no data in rfMeasurementReport")
	}
	for i, c := range v.report.Data {
		if verdict, ok := v.within(i, "maxPSD", c.MaxPSD, limit); !ok {
			return verdict
		}
	}
	return Verdict{Pass: true}
}
