/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package simulator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/kentakayama/afc-simulator/internal/afc"
	"github.com/kentakayama/afc-simulator/internal/channel"
	"github.com/kentakayama/afc-simulator/internal/domain/model"
	"github.com/kentakayama/afc-simulator/internal/fixture"
	"github.com/kentakayama/afc-simulator/internal/logging"
	"github.com/kentakayama/afc-simulator/internal/mask"
)

// exchange identifies one inquiry while it is being answered.
type exchange struct {
	epoch   uint64
	id      string
	headers map[string]string
	request []byte
	serial  string
	vector  int
	valid   bool
}

// answer is an accepted inquiry waiting to be stamped and filtered.
type answer struct {
	base        afc.InquiryResponse
	constraints afc.Constraints
	rulesetID   string
	release     <-chan struct{}
	wait        time.Duration
}

// HandleInquiry answers one inquiry body. A body that is not a JSON inquiry
// object is rejected with an error wrapping afc.ErrMalformedInquiry and
// leaves the session untouched; every other outcome, protocol failures
// included, is a response envelope.
func (s *Simulator) HandleInquiry(ctx context.Context, headers map[string]string, body []byte) (*afc.ResponseEnvelope, error) {
	start := s.now()
	env, err := afc.DecodeInquiry(body)
	if err != nil {
		return nil, err
	}
	version := env.VersionOrEmpty()
	requestID := env.RequestIDOrDefault()

	ex := &exchange{
		id:      uuid.NewString(),
		headers: headers,
		request: append([]byte(nil), body...),
		serial:  env.Request().SerialNumber(),
	}

	ans, rejected, rec := s.begin(ctx, env, ex)
	if rejected != nil {
		s.persist(ctx, rec)
		s.metrics.ObserveInquiry(int(rejected.First().Response.ResponseCode), s.now().Sub(start))
		return rejected, nil
	}

	if ans.release != nil {
		s.awaitRelease(ans.release)
	}
	if ans.wait > 0 {
		s.logger.Printf("waits for %v before sending the response", ans.wait)
		s.sleep(ans.wait)
	}

	out, rec := s.finish(ex, ans, version, requestID)
	s.persist(ctx, rec)
	s.metrics.ObserveInquiry(int(out.First().Response.ResponseCode), s.now().Sub(start))
	return out, nil
}

// begin opens the exchange and accepts it. A rejected inquiry comes back as
// its error response together with the record to persist.
func (s *Simulator) begin(ctx context.Context, env *afc.InquiryEnvelope, ex *exchange) (*answer, *afc.ResponseEnvelope, *model.Exchange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex.epoch = s.sess.epoch
	s.sess.exchangeID = ex.id
	s.sess.headers = ex.headers
	s.sess.request = ex.request
	s.sess.validRequest = false
	s.appendTranscriptLocked(ex.request)
	s.logger.Printf("inquiry %s received: requestId %s serialNumber %s",
		ex.id, env.RequestIDOrDefault(), logging.MaskSerial(ex.serial, s.maskSerial))

	ans, perr := s.acceptLocked(ctx, env, ex)
	if perr != nil {
		s.logger.Printf("inquiry %s rejected: %v", ex.id, perr)
		resp := afc.ErrorResponse(env.VersionOrEmpty(), env.RequestIDOrDefault(), perr)
		return nil, resp, s.recordLocked(ex, resp)
	}
	s.sess.state = StateAwaiting
	return ans, nil, nil
}

// finish stamps and filters the accepted answer.
func (s *Simulator) finish(ex *exchange, ans *answer, version, requestID string) (*afc.ResponseEnvelope, *model.Exchange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ex.epoch == s.sess.epoch {
		s.sess.state = StateResponding
	}
	resp := ans.base
	resp.RequestID = requestID
	resp.RulesetID = ans.rulesetID
	resp.AvailabilityExpireTime = s.now().UTC().Add(24 * time.Hour).Format(afc.ExpireTimeLayout)
	afc.Filter(&resp, ans.constraints)
	out := &afc.ResponseEnvelope{Version: version, Responses: []afc.InquiryResponse{resp}}
	return out, s.recordLocked(ex, out)
}

// acceptLocked validates the inquiry and selects what answers it.
func (s *Simulator) acceptLocked(ctx context.Context, env *afc.InquiryEnvelope, ex *exchange) (*answer, *afc.ProtocolError) {
	if perr := env.Validate(s.versions); perr != nil {
		return nil, perr
	}
	if !afc.VerifyRequestInfo(env) {
		s.logger.Printf("inquiry %s: device descriptor lacks a usable certification", ex.id)
	}
	req := env.Request()
	d := s.sess.domain
	rulesets := req.RulesetIDs()
	if !slices.ContainsFunc(rulesets, d.AcceptsRuleset) {
		s.logger.Printf("no rulesetId of %v belongs to domain %s", rulesets, d.Code)
		return nil, afc.InvalidParams("rulesetId")
	}
	s.sess.validRequest = true
	ex.valid = true

	class := afc.Classify(req)
	vector := s.sess.testVector
	if vector == 0 {
		vector = class.TestVector()
	}
	if vector == 0 {
		s.logger.Printf("inquiry asks for neither channels nor frequencies")
		return nil, afc.GeneralFailure()
	}
	ex.vector = vector
	constraints := afc.ConstraintsOf(req)

	var base afc.InquiryResponse
	if s.sess.random {
		m, err := s.generateLocked(constraints)
		if err != nil {
			s.logger.Printf("failed to generate a spectrum mask: %v", err)
			if errors.Is(err, mask.ErrNoCandidates) || errors.Is(err, mask.ErrEmptyComplement) {
				return nil, afc.UnsupportedSpectrum()
			}
			return nil, afc.GeneralFailure()
		}
		base = m.Response(afc.ClassificationOfVector(vector))
		s.sess.current = &fixture.Fixture{
			TestCaseID: &fixture.TestCaseID{
				UnitUnderTest: s.sess.unitUnderTest,
				Purpose:       s.sess.purpose,
				TestVector:    vector,
				Phase:         s.sess.phase,
			},
			Description: fmt.Sprintf("generated %d MHz mask, pick %v", m.Bandwidth, m.Pick),
			Responses:   &afc.ResponseEnvelope{Version: afc.ProtocolVersion, Responses: []afc.InquiryResponse{base.Clone()}},
		}
	} else {
		key := fixture.Key{
			UnitUnderTest: s.sess.unitUnderTest,
			Purpose:       s.sess.purpose,
			Vector:        vector,
			Phase:         s.sess.phase,
			Domain:        d.Code,
		}
		f, name, err := fixture.Lookup(ctx, s.fixtures, key)
		if err != nil {
			s.logger.Printf("test vector %s is not available: %v", key, err)
			return nil, afc.GeneralFailure()
		}
		s.logger.Printf("test vector %d answered from %s", vector, name)
		s.sess.current = f
		base = f.Response()
	}

	ans := &answer{
		base:        base,
		constraints: constraints,
		rulesetID:   rulesets[0],
		wait:        s.sess.wait,
	}
	if s.sess.hold {
		ans.release = s.sess.release
	}
	return ans, nil
}

// generateLocked returns the mask of the current activation, drawing it on
// first use.
func (s *Simulator) generateLocked(c afc.Constraints) (*mask.SpectrumMask, error) {
	if s.sess.generated != nil {
		return s.sess.generated, nil
	}
	d := s.sess.domain
	opts := mask.Options{
		Bandwidth:  s.sess.width,
		Candidates: candidatesOf(d, c, s.sess.width),
		PowerOnly:  s.sess.powerOnly,
		Complement: s.sess.complement,
	}
	m, err := s.generatorLocked(d).Generate(opts)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("generated %d MHz mask in %s, pick %v", m.Bandwidth, d.Code, m.Pick)
	s.sess.generated = m
	return m, nil
}

// candidatesOf derives the tier CFIs an inquiry allows: the CFIs inquired in
// the tier's operating class, else the CFIs covered by the inquired frequency
// ranges, else nil for the whole tier.
func candidatesOf(d *channel.Domain, c afc.Constraints, width int) []int {
	if class, ok := d.OperatingClass(width); ok && c.HasClass(class) {
		if cfis, restricted := c.CFIs(class); restricted {
			return cfis
		}
		return nil
	}
	if c.HasFrequencyRanges() {
		cfis := d.CfisFromFrequencyRanges(c.FrequencyRanges(), width)
		if cfis == nil {
			cfis = []int{}
		}
		return cfis
	}
	return nil
}

// awaitRelease blocks until the hold is released, or the hold timeout passes.
func (s *Simulator) awaitRelease(release <-chan struct{}) {
	s.logger.Printf("hold an Available Spectrum Inquiry Response")
	s.metrics.HoldStarted()
	defer s.metrics.HoldEnded()

	var timeout <-chan time.Time
	if s.holdTimeout > 0 {
		t := time.NewTimer(s.holdTimeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-release:
	case <-timeout:
		s.logger.Printf("hold timed out after %v", s.holdTimeout)
	}
}

// recordLocked keeps resp as the last sent response and returns the record
// to persist. A response released after a reset or a new activation is sent
// but neither recorded nor persisted.
func (s *Simulator) recordLocked(ex *exchange, resp *afc.ResponseEnvelope) *model.Exchange {
	s.appendTranscriptLocked(resp)
	if ex.epoch != s.sess.epoch {
		return nil
	}
	s.sess.exchangeID = ex.id
	s.sess.response = resp
	s.sess.state = StateResponded

	encoded, err := cbor.Marshal(resp)
	if err != nil {
		s.logger.Printf("failed to encode response of %s: %v", ex.id, err)
	}
	first := resp.First()
	return &model.Exchange{
		ExchangeID:   ex.id,
		RequestID:    first.RequestID,
		SerialNumber: ex.serial,
		TestVector:   ex.vector,
		ResponseCode: int(first.Response.ResponseCode),
		ValidRequest: ex.valid,
		Request:      ex.request,
		Response:     encoded,
		CreatedAt:    s.now().UTC(),
	}
}

func (s *Simulator) persist(ctx context.Context, rec *model.Exchange) {
	if rec == nil || s.exchanges == nil {
		return
	}
	if _, err := s.exchanges.Create(ctx, rec); err != nil {
		s.logger.Printf("failed to store exchange %s: %v", rec.ExchangeID, err)
	}
}
