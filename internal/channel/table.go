/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package channel

import (
	"fmt"
	"slices"
	"sort"

	"github.com/kentakayama/afc-simulator/internal/util"
	"github.com/kentakayama/afc-simulator/resources"
	"gopkg.in/yaml.v3"
)

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Tier describes one bandwidth of a domain and its valid CFIs. The CFIs are
// either listed or described by First/Last/Step.
type Tier struct {
	Bandwidth      int   `yaml:"bandwidth"`
	OperatingClass int   `yaml:"operatingClass"`
	First          int   `yaml:"first"`
	Last           int   `yaml:"last"`
	Step           int   `yaml:"step"`
	CFIs           []int `yaml:"cfis"`
}

// DrawShift overrides the PSD draw bounds of one bandwidth depending on
// whether the pick is fresh or a changed one.
type DrawShift struct {
	Bandwidth int   `yaml:"bandwidth"`
	Fresh     Range `yaml:"fresh"`
	Changed   Range `yaml:"changed"`
}

// Domain is the channelization of one regulatory domain. It is read-only
// after Load.
type Domain struct {
	Code        string      `yaml:"code"`
	RulesetIDs  []string    `yaml:"rulesetIds"`
	PSDRange    Range       `yaml:"psdRange"`
	EIRPCeiling float64     `yaml:"eirpCeiling"`
	Tiers       []Tier      `yaml:"tiers"`
	Auxiliary   []Tier      `yaml:"auxiliary"`
	DrawShifts  []DrawShift `yaml:"drawShift"`

	cfis    map[int][]int
	members map[int]util.Set[int]
	classes map[int]int
}

// Tables indexes the known domains by country code.
type Tables struct {
	domains map[string]*Domain
}

type tablesFile struct {
	Domains []*Domain `yaml:"domains"`
}

// Default loads the tables bundled with the simulator.
func Default() (*Tables, error) {
	return Load(resources.ChannelTablesYAML)
}

// Load parses a YAML channelization document.
func Load(data []byte) (*Tables, error) {
	var f tablesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	if len(f.Domains) == 0 {
		return nil, fmt.Errorf("%w: no domains", ErrInvalidTable)
	}
	t := &Tables{domains: make(map[string]*Domain, len(f.Domains))}
	for _, d := range f.Domains {
		if err := d.index(); err != nil {
			return nil, err
		}
		if _, dup := t.domains[d.Code]; dup {
			return nil, fmt.Errorf("%w: duplicate domain %q", ErrInvalidTable, d.Code)
		}
		t.domains[d.Code] = d
	}
	return t, nil
}

// Domain returns the channelization of a country code.
func (t *Tables) Domain(code string) (*Domain, error) {
	d, ok := t.domains[code]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, code)
	}
	return d, nil
}

// Codes lists the known domain codes in ascending order.
func (t *Tables) Codes() []string {
	out := make([]string, 0, len(t.domains))
	for code := range t.domains {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func (d *Domain) index() error {
	if d.Code == "" {
		return fmt.Errorf("%w: domain without code", ErrInvalidTable)
	}
	if d.PSDRange.Min > d.PSDRange.Max {
		return fmt.Errorf("%w: %s psdRange min > max", ErrInvalidTable, d.Code)
	}
	d.cfis = make(map[int][]int)
	d.members = make(map[int]util.Set[int])
	d.classes = make(map[int]int)

	for _, tier := range d.Tiers {
		cfis, err := tier.expand()
		if err != nil {
			return fmt.Errorf("%w: %s %d MHz: %v", ErrInvalidTable, d.Code, tier.Bandwidth, err)
		}
		if _, dup := d.cfis[tier.Bandwidth]; dup {
			return fmt.Errorf("%w: %s duplicate %d MHz tier", ErrInvalidTable, d.Code, tier.Bandwidth)
		}
		d.cfis[tier.Bandwidth] = cfis
		d.members[tier.Bandwidth] = util.SetOf(cfis...)
		d.classes[tier.OperatingClass] = tier.Bandwidth
	}
	primaries, ok := d.members[PrimaryBandwidth]
	if !ok {
		return fmt.Errorf("%w: %s has no %d MHz tier", ErrInvalidTable, d.Code, PrimaryBandwidth)
	}
	for bw, cfis := range d.cfis {
		for _, cfi := range cfis {
			if bw == PrimaryBandwidth && !IsPrimary(cfi) {
				return fmt.Errorf("%w: %s CFI %d is not 20 MHz aligned", ErrInvalidTable, d.Code, cfi)
			}
			if !primaries.HasAll(PrimaryChannelsOf(cfi, bw)...) {
				return fmt.Errorf("%w: %s %d MHz CFI %d spans unknown primaries", ErrInvalidTable, d.Code, bw, cfi)
			}
		}
	}
	for _, aux := range d.Auxiliary {
		d.classes[aux.OperatingClass] = aux.Bandwidth
	}
	return nil
}

func (t Tier) expand() ([]int, error) {
	switch t.Bandwidth {
	case 20, 40, 80, 160, 320:
	default:
		return nil, ErrUnknownBandwidth
	}
	if len(t.CFIs) > 0 {
		out := slices.Clone(t.CFIs)
		slices.Sort(out)
		return out, nil
	}
	if t.Step <= 0 || t.Last < t.First {
		return nil, fmt.Errorf("bad range first=%d last=%d step=%d", t.First, t.Last, t.Step)
	}
	var out []int
	for c := t.First; c <= t.Last; c += t.Step {
		out = append(out, c)
	}
	return out, nil
}

// Bandwidths lists the tiers of the domain in ascending order.
func (d *Domain) Bandwidths() []int {
	out := make([]int, 0, len(d.cfis))
	for bw := range d.cfis {
		out = append(out, bw)
	}
	slices.Sort(out)
	return out
}

// CFIs returns the ordered CFIs of one tier, or nil for an unknown tier.
func (d *Domain) CFIs(bandwidth int) []int {
	return slices.Clone(d.cfis[bandwidth])
}

// Contains reports whether cfi is a valid channel of the given tier.
func (d *Domain) Contains(bandwidth, cfi int) bool {
	m, ok := d.members[bandwidth]
	return ok && m.Has(cfi)
}

// OperatingClass returns the global operating class of a generated tier.
func (d *Domain) OperatingClass(bandwidth int) (int, bool) {
	for _, tier := range d.Tiers {
		if tier.Bandwidth == bandwidth {
			return tier.OperatingClass, true
		}
	}
	return 0, false
}

// BandwidthOfOperatingClass resolves a global operating class, auxiliary ones
// included.
func (d *Domain) BandwidthOfOperatingClass(class int) (int, bool) {
	bw, ok := d.classes[class]
	return bw, ok
}

// BandwidthOfCfi returns the narrowest tier whose CFI set contains cfi,
// defaulting to 20 MHz.
func (d *Domain) BandwidthOfCfi(cfi int) int {
	for _, bw := range d.Bandwidths() {
		if d.members[bw].Has(cfi) {
			return bw
		}
	}
	return PrimaryBandwidth
}

// CfisFromFrequencyRanges computes the 20 MHz CFIs fully covered by ranges
// and, for wider bandwidths, the tier CFIs whose whole aggregation set is
// covered.
func (d *Domain) CfisFromFrequencyRanges(ranges []FrequencyRange, bandwidth int) []int {
	covered := util.NewSet[int]()
	for _, cfi := range d.cfis[PrimaryBandwidth] {
		r := RangeOf(cfi, PrimaryBandwidth)
		for _, inquired := range ranges {
			if r.Within(inquired) {
				covered.Add(cfi)
				break
			}
		}
	}
	if bandwidth == PrimaryBandwidth {
		return util.Sorted(covered)
	}
	var out []int
	for _, cfi := range d.cfis[bandwidth] {
		if covered.HasAll(PrimaryChannelsOf(cfi, bandwidth)...) {
			out = append(out, cfi)
		}
	}
	return out
}

// CfiFromOperatingChannel maps a 20 MHz operating channel to the CFI of the
// tier channel containing it. It returns NoCFI when the channel is not 20 MHz
// aligned or no tier channel contains it.
func (d *Domain) CfiFromOperatingChannel(channel, bandwidth int) int {
	if !IsPrimary(channel) {
		return NoCFI
	}
	half := bandwidth / 10
	for _, cfi := range d.cfis[bandwidth] {
		if cfi-half < channel && channel < cfi+half {
			return cfi
		}
	}
	return NoCFI
}

// DrawRange returns the PSD bounds to draw from for a bandwidth.
func (d *Domain) DrawRange(bandwidth int, changed bool) Range {
	for _, s := range d.DrawShifts {
		if s.Bandwidth != bandwidth {
			continue
		}
		if changed {
			return s.Changed
		}
		return s.Fresh
	}
	return d.PSDRange
}

// AcceptsRuleset reports whether id is a ruleset of the domain.
func (d *Domain) AcceptsRuleset(id string) bool {
	return slices.Contains(d.RulesetIDs, id)
}
