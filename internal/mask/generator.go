/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package mask

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/kentakayama/afc-simulator/internal/channel"
	"github.com/kentakayama/afc-simulator/internal/util"
)

// Options select how a mask is drawn.
type Options struct {
	// Bandwidth is the tier the channels are picked from.
	Bandwidth int
	// Candidates restricts the pick to these tier CFIs. nil means every CFI
	// of the tier.
	Candidates []int
	// PowerOnly keeps every primary channel of the domain and only draws
	// their power.
	PowerOnly bool
	// Complement picks the candidates the previous draw left out.
	Complement bool
}

// Generator draws spectrum masks for one domain. It remembers its last pick
// for complement draws and is safe for concurrent use.
type Generator struct {
	domain *channel.Domain

	mu       sync.Mutex
	rng      *rand.Rand
	lastPick []int
}

// NewGenerator returns a generator drawing from rng. A nil rng is seeded from
// the runtime random source.
func NewGenerator(d *channel.Domain, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{domain: d, rng: rng}
}

// NewSeededGenerator returns a generator whose output is reproducible for a
// given seed.
func NewSeededGenerator(d *channel.Domain, seed uint64) *Generator {
	return NewGenerator(d, rand.New(rand.NewPCG(seed, seed)))
}

// Generate draws a new mask.
func (g *Generator) Generate(opts Options) (*SpectrumMask, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	tier := g.domain.CFIs(opts.Bandwidth)
	if tier == nil {
		return nil, fmt.Errorf("%w: %d MHz", ErrUnknownBandwidth, opts.Bandwidth)
	}
	changed := opts.Complement && len(g.lastPick) > 0

	var pick, primaries []int
	if opts.PowerOnly {
		primaries = g.domain.CFIs(channel.PrimaryBandwidth)
		pick = slices.Clone(tier)
	} else {
		candidates, err := g.candidates(tier, opts.Candidates)
		if err != nil {
			return nil, err
		}
		pick, err = g.choose(candidates, opts.Complement)
		if err != nil {
			return nil, err
		}
		g.lastPick = slices.Clone(pick)

		expanded := util.NewSet[int]()
		for _, cfi := range pick {
			for _, p := range channel.PrimaryChannelsOf(cfi, opts.Bandwidth) {
				expanded.Add(p)
			}
		}
		primaries = util.Sorted(expanded)
	}

	bounds := g.domain.DrawRange(opts.Bandwidth, changed)
	psd := make(map[int]float64, len(primaries))
	for _, p := range primaries {
		psd[p] = Round1(bounds.Min + g.rng.Float64()*(bounds.Max-bounds.Min))
	}

	m := Aggregate(g.domain, psd)
	m.Bandwidth = opts.Bandwidth
	m.Pick = pick
	return m, nil
}

// candidates keeps the requested CFIs that belong to the tier, in tier order.
func (g *Generator) candidates(tier, requested []int) ([]int, error) {
	if requested == nil {
		return tier, nil
	}
	want := util.SetOf(requested...)
	var out []int
	for _, cfi := range tier {
		if want.Has(cfi) {
			out = append(out, cfi)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoCandidates
	}
	return out, nil
}

func (g *Generator) choose(candidates []int, complement bool) ([]int, error) {
	var pick []int
	switch {
	case len(candidates) < 2:
		pick = slices.Clone(candidates)
	case complement && len(g.lastPick) > 0:
		left := util.SetOf(candidates...).Difference(util.SetOf(g.lastPick...))
		if left.Len() == 0 {
			return nil, ErrEmptyComplement
		}
		pick = util.Sorted(left)
	default:
		for _, i := range g.rng.Perm(len(candidates))[:len(candidates)/2] {
			pick = append(pick, candidates[i])
		}
	}
	slices.Sort(pick)
	return pick, nil
}

// LastPick returns the tier CFIs of the previous draw.
func (g *Generator) LastPick() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.lastPick)
}

// Forget clears the previous pick.
func (g *Generator) Forget() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastPick = nil
}

// Domain returns the channelization the generator draws from.
func (g *Generator) Domain() *channel.Domain {
	return g.domain
}
