/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"maps"
	"sync"
	"time"

	"github.com/kentakayama/afc-simulator/internal/afc"
	"github.com/kentakayama/afc-simulator/internal/channel"
	"github.com/kentakayama/afc-simulator/internal/domain/model"
	"github.com/kentakayama/afc-simulator/internal/domain/service"
	"github.com/kentakayama/afc-simulator/internal/fixture"
	"github.com/kentakayama/afc-simulator/internal/mask"
)

// DefaultChannelWidth is the tier generated masks are drawn at unless
// configured otherwise.
const DefaultChannelWidth = 320

// Recorder receives the metrics of the simulator.
type Recorder interface {
	ObserveInquiry(code int, elapsed time.Duration)
	HoldStarted()
	HoldEnded()
	ObserveVerdict(mode string, pass bool)
}

type noopRecorder struct{}

func (noopRecorder) ObserveInquiry(int, time.Duration) {}
func (noopRecorder) HoldStarted()                      {}
func (noopRecorder) HoldEnded()                        {}
func (noopRecorder) ObserveVerdict(string, bool)       {}

// Options wires the collaborators of a Simulator. Tables and Fixtures are
// required.
type Options struct {
	Tables   *channel.Tables
	Domain   string
	Versions afc.VersionPolicy
	Fixtures fixture.Source
	Uploads  *fixture.RepositorySource

	Exchanges service.ExchangeRepository
	Verdicts  service.RFVerdictRepository
	Metrics   Recorder
	Signer    *EvidenceSigner

	// HoldTimeout releases a held response after this long. Zero waits for
	// an explicit release.
	HoldTimeout time.Duration
	// Seed makes generated masks reproducible. Zero draws from the runtime
	// random source.
	Seed       uint64
	MaskSerial bool
	Logger     *log.Logger

	Now   func() time.Time
	Sleep func(time.Duration)
}

// session is the state of the one device under test.
type session struct {
	state State
	// epoch changes on reset and on every activation; an inquiry released
	// after that does not overwrite the new session's record.
	epoch uint64

	unitUnderTest string
	purpose       string
	testVector    int
	phase         int
	wait          time.Duration

	hold    bool
	release chan struct{}

	random     bool
	complement bool
	powerOnly  bool
	width      int
	domain     *channel.Domain
	generated  *mask.SpectrumMask

	current      *fixture.Fixture
	exchangeID   string
	headers      map[string]string
	request      json.RawMessage
	response     *afc.ResponseEnvelope
	validRequest bool

	transcript string
}

// Simulator answers Available Spectrum Inquiries for one session under test
// and keeps what it sent for inspection. It is safe for concurrent use.
type Simulator struct {
	tables        *channel.Tables
	defaultDomain *channel.Domain
	versions      afc.VersionPolicy
	fixtures      fixture.Source
	uploads       *fixture.RepositorySource
	exchanges     service.ExchangeRepository
	verdicts      service.RFVerdictRepository
	metrics       Recorder
	signer        *EvidenceSigner
	holdTimeout   time.Duration
	seed          uint64
	maskSerial    bool
	logger        *log.Logger
	now           func() time.Time
	sleep         func(time.Duration)

	mu         sync.Mutex
	sess       session
	generators map[string]*mask.Generator
}

func New(opts Options) (*Simulator, error) {
	if opts.Tables == nil {
		return nil, errors.New("channel tables are required")
	}
	if opts.Fixtures == nil {
		return nil, errors.New("fixture source is required")
	}
	code := opts.Domain
	if code == "" {
		code = "US"
	}
	d, err := opts.Tables.Domain(code)
	if err != nil {
		return nil, err
	}
	versions := opts.Versions
	if versions == nil {
		versions, err = afc.NewVersionConstraint(afc.ProtocolVersion)
		if err != nil {
			return nil, err
		}
	}
	s := &Simulator{
		tables:        opts.Tables,
		defaultDomain: d,
		versions:      versions,
		fixtures:      opts.Fixtures,
		uploads:       opts.Uploads,
		exchanges:     opts.Exchanges,
		verdicts:      opts.Verdicts,
		metrics:       opts.Metrics,
		signer:        opts.Signer,
		holdTimeout:   opts.HoldTimeout,
		seed:          opts.Seed,
		maskSerial:    opts.MaskSerial,
		logger:        opts.Logger,
		now:           opts.Now,
		sleep:         opts.Sleep,
		generators:    make(map[string]*mask.Generator),
	}
	if s.metrics == nil {
		s.metrics = noopRecorder{}
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sleep == nil {
		s.sleep = time.Sleep
	}
	s.resetLocked("")
	return s, nil
}

// resetLocked returns the session to IDLE, releasing any held inquiry.
func (s *Simulator) resetLocked(transcript string) {
	s.releaseLocked()
	epoch := s.sess.epoch + 1
	s.sess = session{
		state:         StateIdle,
		epoch:         epoch,
		unitUnderTest: fixture.DefaultPrefix,
		width:         DefaultChannelWidth,
		domain:        s.defaultDomain,
		transcript:    transcript,
	}
	for _, g := range s.generators {
		g.Forget()
	}
}

func (s *Simulator) releaseLocked() {
	s.sess.hold = false
	if s.sess.release != nil {
		close(s.sess.release)
		s.sess.release = nil
	}
}

func (s *Simulator) setHoldLocked(hold bool) {
	if !hold {
		s.releaseLocked()
		return
	}
	s.sess.hold = true
	if s.sess.release == nil {
		s.sess.release = make(chan struct{})
	}
}

// Configure applies a control call. Invalid settings leave the session
// untouched.
func (s *Simulator) Configure(st Settings) error {
	if err := st.check(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.sess.domain
	if st.Domain != nil {
		var err error
		if d, err = s.tables.Domain(*st.Domain); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
		}
	}
	width := s.sess.width
	if st.ChannelWidth != nil {
		width = *st.ChannelWidth
	}
	if d.CFIs(width) == nil {
		return fmt.Errorf("%w: channelWidth %d is not a tier of %s", ErrInvalidSettings, width, d.Code)
	}

	if st.Purpose != nil {
		s.sess.epoch++
		s.sess.unitUnderTest = *st.UnitUnderTest
		s.sess.purpose = *st.Purpose
		s.sess.phase = 0
		s.sess.wait = 0
		s.sess.current = nil
		s.sess.exchangeID = ""
		s.sess.headers = nil
		s.sess.request = nil
		s.sess.response = nil
	}
	if st.TestVector != nil {
		s.sess.testVector = *st.TestVector
	}
	if st.Phase != nil {
		s.sess.phase = *st.Phase
	}
	if st.RespWaitTime != nil {
		s.sess.wait = seconds(*st.RespWaitTime)
	}
	if st.Random != nil {
		s.sess.random = *st.Random
	}
	if st.DifferenceLastPicks != nil {
		s.sess.complement = *st.DifferenceLastPicks
	}
	if st.OnlyRandomPower != nil {
		s.sess.powerOnly = *st.OnlyRandomPower
	}
	s.sess.width = width
	s.sess.domain = d
	if st.activatesGenerator() {
		s.sess.generated = nil
	}
	if st.HoldResponse != nil {
		s.setHoldLocked(*st.HoldResponse)
		s.logger.Printf("holdResponse %v", *st.HoldResponse)
	}

	switch s.sess.state {
	case StateAwaiting, StateResponding:
	default:
		s.sess.state = StateConfigured
	}
	return nil
}

// Reset returns the session to IDLE. A non-empty transcript path makes every
// following request and response be appended to that file.
func (s *Simulator) Reset(transcript string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(transcript)
}

// Close releases any held inquiry.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
	return nil
}

// Status is a snapshot of the session.
type Status struct {
	State                  State                 `json:"state"`
	Domain                 string                `json:"domain"`
	ExchangeID             string                `json:"exchangeId,omitempty"`
	CurrentTestVector      *fixture.Fixture      `json:"currentTestVector"`
	ReceivedRequestHeaders map[string]string     `json:"receivedRequestHeaders"`
	ReceivedRequest        json.RawMessage       `json:"receivedRequest"`
	SentResponse           *afc.ResponseEnvelope `json:"sentResponse"`
	ValidRequest           bool                  `json:"valid_request"`
	HoldResponse           bool                  `json:"holdResponse"`
}

var emptyObject = json.RawMessage(`{}`)

func (s *Simulator) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		State:                  s.sess.state,
		Domain:                 s.sess.domain.Code,
		ExchangeID:             s.sess.exchangeID,
		CurrentTestVector:      s.sess.current,
		ReceivedRequestHeaders: maps.Clone(s.sess.headers),
		ReceivedRequest:        s.sess.request,
		SentResponse:           s.sess.response.Clone(),
		ValidRequest:           s.sess.validRequest,
		HoldResponse:           s.sess.hold,
	}
	if st.ReceivedRequestHeaders == nil {
		st.ReceivedRequestHeaders = map[string]string{}
	}
	if len(st.ReceivedRequest) == 0 {
		st.ReceivedRequest = emptyObject
	}
	return st
}

// Exchanges lists the most recent persisted exchanges, newest first.
func (s *Simulator) Exchanges(ctx context.Context, limit int) ([]*model.Exchange, error) {
	if s.exchanges == nil {
		return nil, nil
	}
	return s.exchanges.ListRecent(ctx, limit)
}

// UploadFixture stores a fixture document for the active domain. Uploaded
// fixtures take precedence over files.
func (s *Simulator) UploadFixture(ctx context.Context, document []byte) (string, error) {
	if s.uploads == nil {
		return "", ErrUploadDisabled
	}
	s.mu.Lock()
	code := s.sess.domain.Code
	s.mu.Unlock()
	return s.uploads.Upload(ctx, code, document)
}

// FixtureNames lists the uploaded fixtures.
func (s *Simulator) FixtureNames(ctx context.Context) ([]string, error) {
	if s.uploads == nil {
		return nil, ErrUploadDisabled
	}
	return s.uploads.Names(ctx)
}

// DeleteFixture removes an uploaded fixture by its lookup name.
func (s *Simulator) DeleteFixture(ctx context.Context, name string) error {
	if s.uploads == nil {
		return ErrUploadDisabled
	}
	return s.uploads.Delete(ctx, name)
}

func (s *Simulator) generatorLocked(d *channel.Domain) *mask.Generator {
	g, ok := s.generators[d.Code]
	if !ok {
		if s.seed != 0 {
			g = mask.NewSeededGenerator(d, s.seed)
		} else {
			g = mask.NewGenerator(d, nil)
		}
		s.generators[d.Code] = g
	}
	return g
}
