/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/kentakayama/afc-simulator/internal/afc"
	"github.com/kentakayama/afc-simulator/internal/channel"
	"github.com/kentakayama/afc-simulator/internal/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInquiry = `{
  "version": "1.4",
  "availableSpectrumInquiryRequests": [{
    "requestId": "REQ-7",
    "deviceDescriptor": {
      "serialNumber": "SN123456",
      "certificationId": [{"rulesetId": "US_47_CFR_PART_15_SUBPART_E", "id": "FCCID-1"}]
    },
    "location": {
      "ellipse": {
        "center": {"longitude": -97.7, "latitude": 30.2},
        "majorAxis": 100, "minorAxis": 50, "orientation": 45
      }
    },
    "inquiredFrequencyRange": [{"lowFrequency": 5925, "highFrequency": 6425}],
    "inquiredChannels": [{"globalOperatingClass": 133, "channelCfi": [7]}]
  }]
}`

const bothFixture = `{
  "testCaseID": {"unitUnderTest": "T", "purpose": "P", "testVector": 3},
  "responses": {"version": "1.4", "availableSpectrumInquiryResponses": [{
    "requestId": "0",
    "availableFrequencyInfo": [
      {"frequencyRange": {"lowFrequency": 5945, "highFrequency": 5965}, "maxPsd": 20},
      {"frequencyRange": {"lowFrequency": 6525, "highFrequency": 6545}, "maxPsd": 10}
    ],
    "availableChannelInfo": [
      {"globalOperatingClass": 133, "channelCfi": [7, 23], "maxEirp": [30, 31]},
      {"globalOperatingClass": 134, "channelCfi": [15], "maxEirp": [33]}
    ],
    "response": {"responseCode": 0, "shortDescription": "Success"}
  }]}
}`

func channelFixture(vector, phase int, eirp float64) string {
	doc := map[string]any{
		"testCaseID": map[string]any{"unitUnderTest": "T", "purpose": "P", "testVector": vector, "phase": phase},
		"responses": map[string]any{
			"version": "1.4",
			"availableSpectrumInquiryResponses": []any{map[string]any{
				"requestId": "0",
				"availableChannelInfo": []any{map[string]any{
					"globalOperatingClass": 133, "channelCfi": []int{7}, "maxEirp": []float64{eirp},
				}},
				"response": map[string]any{"responseCode": 0, "shortDescription": "Success"},
			}},
		},
	}
	out, _ := json.Marshal(doc)
	return string(out)
}

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

type testEnv struct {
	sim    *Simulator
	logs   *bytes.Buffer
	slept  []time.Duration
	tables *channel.Tables
}

func newTestEnv(t *testing.T, tweak ...func(*Options)) *testEnv {
	t.Helper()
	tables, err := channel.Default()
	require.NoError(t, err)
	embedded, err := fixture.Embedded()
	require.NoError(t, err)
	files := fixture.NewFSSource(fstest.MapFS{
		"T_P_3.json":        {Data: []byte(bothFixture)},
		"T_P_2.json":        {Data: []byte(channelFixture(2, 0, 25))},
		"T_P_2_phase2.json": {Data: []byte(channelFixture(2, 2, 21))},
	})

	env := &testEnv{logs: &bytes.Buffer{}, tables: tables}
	opts := Options{
		Tables:   tables,
		Domain:   "US",
		Fixtures: fixture.Chain{files, embedded},
		Logger:   log.New(env.logs, "", 0),
		Now:      func() time.Time { return testNow },
		Sleep:    func(d time.Duration) { env.slept = append(env.slept, d) },
		Seed:     7,
	}
	for _, f := range tweak {
		f(&opts)
	}
	env.sim, err = New(opts)
	require.NoError(t, err)
	return env
}

// inquiry returns testInquiry after edit has changed its first request.
func inquiry(t *testing.T, edit func(req map[string]any)) []byte {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(testInquiry), &doc))
	if edit != nil {
		edit(doc["availableSpectrumInquiryRequests"].([]any)[0].(map[string]any))
	}
	out, err := json.Marshal(doc)
	require.NoError(t, err)
	return out
}

func ask(t *testing.T, sim *Simulator, body []byte) *afc.InquiryResponse {
	t.Helper()
	resp, err := sim.HandleInquiry(context.Background(), map[string]string{"Content-Type": "application/json"}, body)
	if err != nil {
		t.Fatalf("HandleInquiry error: %v", err)
	}
	require.Len(t, resp.Responses, 1)
	return resp.First()
}

func configure(t *testing.T, sim *Simulator, st Settings) {
	t.Helper()
	if err := sim.Configure(st); err != nil {
		t.Fatalf("Configure error: %v", err)
	}
}

func ptr[T any](v T) *T { return &v }

func activateTP() Settings {
	return Settings{UnitUnderTest: ptr("T"), Purpose: ptr("P")}
}

func TestHandleInquiry_FixtureIsStampedAndFiltered(t *testing.T) {
	env := newTestEnv(t)
	configure(t, env.sim, activateTP())

	resp, err := env.sim.HandleInquiry(context.Background(), map[string]string{"X-Test": "1"}, []byte(testInquiry))
	require.NoError(t, err)
	assert.Equal(t, "1.4", resp.Version)

	got := resp.First()
	assert.Equal(t, "REQ-7", got.RequestID)
	assert.Equal(t, "US_47_CFR_PART_15_SUBPART_E", got.RulesetID)
	assert.Equal(t, "2026-01-03T03:04:05Z", got.AvailabilityExpireTime)
	assert.Equal(t, afc.CodeSuccess, got.Response.ResponseCode)
	assert.Equal(t, []afc.AvailableChannelInfo{{GlobalOperatingClass: 133, ChannelCfi: []int{7}, MaxEirp: []float64{30}}}, got.AvailableChannelInfo)
	assert.Equal(t, []afc.AvailableFrequencyInfo{{FrequencyRange: afc.FrequencyRange{LowFrequency: 5945, HighFrequency: 5965}, MaxPsd: 20}}, got.AvailableFrequencyInfo)

	st := env.sim.Status()
	assert.Equal(t, StateResponded, st.State)
	assert.True(t, st.ValidRequest)
	assert.NotEmpty(t, st.ExchangeID)
	assert.Equal(t, "1", st.ReceivedRequestHeaders["X-Test"])
	assert.JSONEq(t, testInquiry, string(st.ReceivedRequest))
	require.NotNil(t, st.CurrentTestVector)
	assert.Equal(t, 3, st.CurrentTestVector.TestCaseID.TestVector)
	// the fixture itself is not modified by filtering
	assert.Len(t, st.CurrentTestVector.Responses.First().AvailableChannelInfo, 2)
	assert.Equal(t, got.RequestID, st.SentResponse.First().RequestID)
}

func TestHandleInquiry_DefaultFixtureWhenIdle(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, StateIdle, env.sim.Status().State)

	got := ask(t, env.sim, []byte(testInquiry))
	assert.Equal(t, afc.CodeSuccess, got.Response.ResponseCode)
	assert.Equal(t, "REQ-7", got.RequestID)
	assert.Equal(t, StateResponded, env.sim.Status().State)
}

func TestHandleInquiry_MissingSerialNumber(t *testing.T) {
	env := newTestEnv(t)
	configure(t, env.sim, activateTP())
	body := inquiry(t, func(req map[string]any) {
		delete(req["deviceDescriptor"].(map[string]any), "serialNumber")
	})

	got := ask(t, env.sim, body)
	assert.Equal(t, afc.CodeMissingParam, got.Response.ResponseCode)
	require.NotNil(t, got.Response.SupplementalInfo)
	assert.Equal(t, []string{"serialNumber"}, got.Response.SupplementalInfo.MissingParams)
	assert.Equal(t, "REQ-7", got.RequestID)
	assert.Empty(t, got.AvailableChannelInfo)

	st := env.sim.Status()
	assert.False(t, st.ValidRequest)
	assert.Equal(t, StateResponded, st.State)
	assert.Equal(t, afc.CodeMissingParam, st.SentResponse.First().Response.ResponseCode)
}

func TestHandleInquiry_DomainMismatch(t *testing.T) {
	env := newTestEnv(t)
	configure(t, env.sim, Settings{UnitUnderTest: ptr("T"), Purpose: ptr("P"), Domain: ptr("CA")})

	got := ask(t, env.sim, []byte(testInquiry))
	assert.Equal(t, afc.CodeInvalidValue, got.Response.ResponseCode)
	assert.Equal(t, []string{"rulesetId"}, got.Response.SupplementalInfo.InvalidParams)
	assert.False(t, env.sim.Status().ValidRequest)
	assert.Equal(t, "CA", env.sim.Status().Domain)
}

func TestHandleInquiry_MissingFixtureIsGeneralFailure(t *testing.T) {
	env := newTestEnv(t)
	configure(t, env.sim, Settings{UnitUnderTest: ptr("T"), Purpose: ptr("NOPE")})

	got := ask(t, env.sim, []byte(testInquiry))
	assert.Equal(t, afc.CodeGeneralFailure, got.Response.ResponseCode)
	assert.Equal(t, "General Failure", got.Response.ShortDescription)
	// the request was well formed
	assert.True(t, env.sim.Status().ValidRequest)
	assert.Contains(t, env.logs.String(), "T_NOPE_3.json")
}

type panickingSource struct{}

func (panickingSource) Get(context.Context, string) (*fixture.Fixture, error) {
	panic("fixture store is broken")
}

// ctxSource answers every lookup with ErrNotFound and keeps the contexts it saw.
type ctxSource struct {
	seen []context.Context
}

func (c *ctxSource) Get(ctx context.Context, name string) (*fixture.Fixture, error) {
	c.seen = append(c.seen, ctx)
	return nil, fixture.ErrNotFound
}

func TestHandleInquiry_PanicReleasesSession(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.Fixtures = panickingSource{} })

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("HandleInquiry did not panic")
			}
		}()
		_, _ = env.sim.HandleInquiry(context.Background(), nil, []byte(testInquiry))
	}()

	done := make(chan Status, 1)
	go func() { done <- env.sim.Status() }()
	select {
	case st := <-done:
		assert.Equal(t, StateIdle, st.State)
	case <-time.After(2 * time.Second):
		t.Fatalf("Status blocked after a recovered panic")
	}
	require.NoError(t, env.sim.Configure(activateTP()))
	env.sim.Reset("")
}

func TestHandleInquiry_FixtureLookupUsesRequestContext(t *testing.T) {
	src := &ctxSource{}
	env := newTestEnv(t, func(o *Options) { o.Fixtures = src })
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "inquiry")

	resp, err := env.sim.HandleInquiry(ctx, nil, []byte(testInquiry))
	if err != nil {
		t.Fatalf("HandleInquiry error: %v", err)
	}
	assert.Equal(t, afc.CodeGeneralFailure, resp.First().Response.ResponseCode)
	require.NotEmpty(t, src.seen)
	for _, got := range src.seen {
		assert.Equal(t, "inquiry", got.Value(ctxKey{}))
	}
}

func TestHandleInquiry_NeitherListIsGeneralFailure(t *testing.T) {
	env := newTestEnv(t)
	configure(t, env.sim, activateTP())
	body := inquiry(t, func(req map[string]any) {
		delete(req, "inquiredChannels")
		req["inquiredFrequencyRange"] = []any{}
	})
	got := ask(t, env.sim, body)
	assert.Equal(t, afc.CodeGeneralFailure, got.Response.ResponseCode)
}

func TestHandleInquiry_TestVectorOverrideAndPhase(t *testing.T) {
	env := newTestEnv(t)
	st := activateTP()
	st.TestVector = ptr(2)
	configure(t, env.sim, st)

	got := ask(t, env.sim, []byte(testInquiry))
	assert.Equal(t, []float64{25}, got.AvailableChannelInfo[0].MaxEirp)
	assert.Nil(t, got.AvailableFrequencyInfo)

	configure(t, env.sim, Settings{Phase: ptr(2)})
	got = ask(t, env.sim, []byte(testInquiry))
	assert.Equal(t, []float64{21}, got.AvailableChannelInfo[0].MaxEirp)

	// a new activation drops the phase but keeps the vector override
	configure(t, env.sim, activateTP())
	got = ask(t, env.sim, []byte(testInquiry))
	assert.Equal(t, []float64{25}, got.AvailableChannelInfo[0].MaxEirp)
}

func TestHandleInquiry_MalformedBodyLeavesSessionUntouched(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.sim.HandleInquiry(context.Background(), nil, []byte(`{"version": `))
	require.Error(t, err)
	assert.True(t, errors.Is(err, afc.ErrMalformedInquiry))

	st := env.sim.Status()
	assert.Equal(t, StateIdle, st.State)
	assert.Nil(t, st.SentResponse)
	assert.JSONEq(t, `{}`, string(st.ReceivedRequest))
}

func TestHandleInquiry_HoldUntilReleased(t *testing.T) {
	env := newTestEnv(t)
	st := activateTP()
	st.HoldResponse = ptr(true)
	configure(t, env.sim, st)

	done := make(chan *afc.ResponseEnvelope, 1)
	go func() {
		resp, _ := env.sim.HandleInquiry(context.Background(), nil, []byte(testInquiry))
		done <- resp
	}()

	require.Eventually(t, func() bool {
		return env.sim.Status().State == StateAwaiting
	}, 2*time.Second, 5*time.Millisecond)
	select {
	case <-done:
		t.Fatalf("response sent while held")
	case <-time.After(20 * time.Millisecond):
	}
	// control calls are not blocked by the held inquiry
	assert.True(t, env.sim.Status().HoldResponse)

	configure(t, env.sim, Settings{HoldResponse: ptr(false)})
	select {
	case resp := <-done:
		require.NotNil(t, resp)
		assert.Equal(t, afc.CodeSuccess, resp.First().Response.ResponseCode)
	case <-time.After(2 * time.Second):
		t.Fatalf("held response was not released")
	}
	assert.Equal(t, StateResponded, env.sim.Status().State)
}

func TestHandleInquiry_HoldTimeout(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.HoldTimeout = 10 * time.Millisecond })
	configure(t, env.sim, Settings{HoldResponse: ptr(true)})

	got := ask(t, env.sim, []byte(testInquiry))
	assert.Equal(t, afc.CodeSuccess, got.Response.ResponseCode)
	assert.Contains(t, env.logs.String(), "hold timed out")
}

func TestHandleInquiry_ResetReleasesHeldInquiry(t *testing.T) {
	env := newTestEnv(t)
	st := activateTP()
	st.HoldResponse = ptr(true)
	configure(t, env.sim, st)

	done := make(chan *afc.ResponseEnvelope, 1)
	go func() {
		resp, _ := env.sim.HandleInquiry(context.Background(), nil, []byte(testInquiry))
		done <- resp
	}()
	require.Eventually(t, func() bool {
		return env.sim.Status().State == StateAwaiting
	}, 2*time.Second, 5*time.Millisecond)

	env.sim.Reset("")
	select {
	case resp := <-done:
		require.NotNil(t, resp)
		assert.Equal(t, "REQ-7", resp.First().RequestID)
	case <-time.After(2 * time.Second):
		t.Fatalf("reset did not release the held response")
	}

	// the released response belongs to the previous session
	status := env.sim.Status()
	assert.Equal(t, StateIdle, status.State)
	assert.Nil(t, status.SentResponse)
	assert.False(t, status.HoldResponse)
}

func TestHandleInquiry_Delay(t *testing.T) {
	env := newTestEnv(t)
	st := activateTP()
	st.RespWaitTime = ptr(2.5)
	configure(t, env.sim, st)

	ask(t, env.sim, []byte(testInquiry))
	assert.Equal(t, []time.Duration{2500 * time.Millisecond}, env.slept)

	// a new activation clears the delay
	configure(t, env.sim, activateTP())
	ask(t, env.sim, []byte(testInquiry))
	assert.Len(t, env.slept, 1)
}

func TestHandleInquiry_GeneratedMask(t *testing.T) {
	env := newTestEnv(t)
	configure(t, env.sim, Settings{Random: ptr(true), ChannelWidth: ptr(80)})

	got := ask(t, env.sim, []byte(testInquiry))
	require.Equal(t, afc.CodeSuccess, got.Response.ResponseCode)
	require.Len(t, got.AvailableChannelInfo, 1)
	info := got.AvailableChannelInfo[0]
	assert.Equal(t, 133, info.GlobalOperatingClass)
	assert.Equal(t, []int{7}, info.ChannelCfi)
	require.Len(t, info.MaxEirp, 1)
	assert.LessOrEqual(t, info.MaxEirp[0], 36.0)
	// the four primaries of channel 7 all lie in the inquired range
	assert.Len(t, got.AvailableFrequencyInfo, 4)

	st := env.sim.Status()
	require.NotNil(t, st.CurrentTestVector)
	assert.Contains(t, st.CurrentTestVector.Description, "80 MHz")

	// the mask is drawn once per activation
	again := ask(t, env.sim, []byte(testInquiry))
	assert.Equal(t, got.AvailableChannelInfo, again.AvailableChannelInfo)
}

func TestHandleInquiry_GeneratedComplementRunsOut(t *testing.T) {
	env := newTestEnv(t)
	channels := func(cfis ...int) []byte {
		return inquiry(t, func(req map[string]any) {
			req["inquiredChannels"] = []any{map[string]any{"globalOperatingClass": 133, "channelCfi": cfis}}
		})
	}
	activate := Settings{Random: ptr(true), DifferenceLastPicks: ptr(true), ChannelWidth: ptr(80)}

	configure(t, env.sim, activate)
	first := ask(t, env.sim, channels(7, 23, 39, 55))
	require.Equal(t, afc.CodeSuccess, first.Response.ResponseCode)
	require.Len(t, first.AvailableChannelInfo, 1)
	picked := first.AvailableChannelInfo[0].ChannelCfi
	require.Len(t, picked, 2)

	// only the channels of the previous pick are left to choose from
	configure(t, env.sim, activate)
	second := ask(t, env.sim, channels(picked...))
	assert.Equal(t, afc.CodeUnsupportedSpectrum, second.Response.ResponseCode)
	assert.Equal(t, "Unsupported spectrum", second.Response.ShortDescription)
}

func TestHandleInquiry_GeneratedComplementAlternates(t *testing.T) {
	env := newTestEnv(t)
	body := inquiry(t, func(req map[string]any) {
		req["inquiredChannels"] = []any{map[string]any{"globalOperatingClass": 133, "channelCfi": []int{7, 23}}}
	})
	activate := Settings{Random: ptr(true), DifferenceLastPicks: ptr(true), ChannelWidth: ptr(80)}

	configure(t, env.sim, activate)
	first := ask(t, env.sim, body)
	require.Equal(t, afc.CodeSuccess, first.Response.ResponseCode)
	require.Len(t, first.AvailableChannelInfo[0].ChannelCfi, 1)

	configure(t, env.sim, activate)
	second := ask(t, env.sim, body)
	require.Equal(t, afc.CodeSuccess, second.Response.ResponseCode)
	picked := append(slices.Clone(first.AvailableChannelInfo[0].ChannelCfi), second.AvailableChannelInfo[0].ChannelCfi...)
	assert.ElementsMatch(t, []int{7, 23}, picked)

	configure(t, env.sim, activate)
	third := ask(t, env.sim, body)
	require.Equal(t, afc.CodeSuccess, third.Response.ResponseCode)
	assert.Equal(t, first.AvailableChannelInfo[0].ChannelCfi, third.AvailableChannelInfo[0].ChannelCfi)
}

func TestHandleInquiry_GeneratedWithoutCandidates(t *testing.T) {
	env := newTestEnv(t)
	configure(t, env.sim, Settings{Random: ptr(true)})
	body := inquiry(t, func(req map[string]any) {
		delete(req, "inquiredFrequencyRange")
		req["inquiredChannels"] = []any{map[string]any{"globalOperatingClass": 137, "channelCfi": []int{5}}}
	})
	got := ask(t, env.sim, body)
	assert.Equal(t, afc.CodeUnsupportedSpectrum, got.Response.ResponseCode)
}

func TestCandidatesOf(t *testing.T) {
	tables, err := channel.Default()
	require.NoError(t, err)
	d, err := tables.Domain("US")
	require.NoError(t, err)

	constraintsOf := func(body []byte) afc.Constraints {
		env, err := afc.DecodeInquiry(body)
		require.NoError(t, err)
		return afc.ConstraintsOf(env.Request())
	}

	c := constraintsOf(inquiry(t, nil))
	assert.Equal(t, []int{7}, candidatesOf(d, c, 80))
	assert.Equal(t, []int{31, 63}, candidatesOf(d, c, 320))

	c = constraintsOf(inquiry(t, func(req map[string]any) {
		req["inquiredFrequencyRange"] = []any{map[string]any{"lowFrequency": 5925, "highFrequency": 6100}}
	}))
	// 5925-6100 covers no whole 320 MHz channel
	assert.Equal(t, []int{}, candidatesOf(d, c, 320))
	assert.Equal(t, []int{7}, candidatesOf(d, c, 80))

	c = constraintsOf(inquiry(t, func(req map[string]any) {
		delete(req, "inquiredFrequencyRange")
		req["inquiredChannels"] = []any{map[string]any{"globalOperatingClass": 133}}
	}))
	assert.Nil(t, candidatesOf(d, c, 80))
	assert.Nil(t, candidatesOf(d, c, 160))
}

func TestConfigure_Invalid(t *testing.T) {
	env := newTestEnv(t)
	for _, st := range []Settings{
		{Purpose: ptr("P")},
		{ChannelWidth: ptr(30)},
		{Domain: ptr("XX")},
		{TestVector: ptr(-1)},
		{RespWaitTime: ptr(-2.0)},
		{RespWaitTime: ptr(1e12)},
	} {
		err := env.sim.Configure(st)
		assert.True(t, errors.Is(err, ErrInvalidSettings), "%+v: %v", st, err)
	}
	assert.Equal(t, StateIdle, env.sim.Status().State)
}

func TestReset_Transcript(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "inquiry.txt")
	env.sim.Reset(path)
	ask(t, env.sim, []byte(testInquiry))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	border := strings.Repeat("#", 27) + "   2026-01-02T03:04:05Z   " + strings.Repeat("#", 27) + "\n"
	assert.Equal(t, 2, strings.Count(text, border))
	assert.Contains(t, text, `"requestId": "REQ-7"`)
	assert.Contains(t, text, `"availableSpectrumInquiryResponses"`)
	assert.True(t, strings.HasSuffix(text, "}\n\n"))

	// a reset without a path turns the transcript off
	env.sim.Reset("")
	ask(t, env.sim, []byte(testInquiry))
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, after)
}

func TestTranscriptEntry(t *testing.T) {
	entry, err := transcriptEntry([]byte(`{"a":1}`), "T")
	require.NoError(t, err)
	want := strings.Repeat("#", 27) + "   T   " + strings.Repeat("#", 27) + "\n{\n    \"a\": 1\n}\n\n"
	assert.Equal(t, want, string(entry))

	_, err = transcriptEntry([]byte(`{`), "T")
	assert.Error(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "AWAITING", StateAwaiting.String())
	out, err := json.Marshal(Status{State: StateResponded})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"state":"RESPONDED"`)
}
