/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package control

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kentakayama/afc-simulator/internal/config"
	"github.com/kentakayama/afc-simulator/internal/rf"
	"github.com/kentakayama/afc-simulator/internal/simulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(config.ControlConfig{BaseURL: srv.URL, Logger: log.New(io.Discard, "", 0)})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return c
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient(config.ControlConfig{})
	assert.Error(t, err)
	_, err = NewClient(config.ControlConfig{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestConfigure_SendsSettings(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/set-response", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"message":"Success"}`)
	}))

	uut, purpose, hold := "T", "P", true
	err := c.Configure(context.Background(), simulator.Settings{UnitUnderTest: &uut, Purpose: &purpose, HoldResponse: &hold})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"unitUnderTest": "T", "purpose": "P", "holdResponse": true}, got)
}

func TestConfigure_ReturnsAPIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"message":"Exception : purpose requires unitUnderTest"}`)
	}))

	purpose := "P"
	err := c.Configure(context.Background(), simulator.Settings{Purpose: &purpose})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "unitUnderTest")
}

func TestStatusAndReset(t *testing.T) {
	var resetBody map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/get-status":
			io.WriteString(w, `{"state":"RESPONDED","domain":"US","exchangeId":"ex-1",
				"receivedRequest":{"version":"1.4"},"sentResponse":null,"valid_request":true,"holdResponse":false}`)
		case "/reset":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&resetBody))
			io.WriteString(w, `{"message":"Success"}`)
		default:
			http.NotFound(w, r)
		}
	}))

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "RESPONDED", st.State)
	assert.Equal(t, "ex-1", st.ExchangeID)
	assert.True(t, st.ValidRequest)
	assert.JSONEq(t, `{"version":"1.4"}`, string(st.ReceivedRequest))

	require.NoError(t, c.Reset(context.Background(), "/tmp/inquiry.log"))
	assert.Equal(t, "/tmp/inquiry.log", resetBody["inquiryFile"])
}

func TestValidateRF(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.JSONEq(t, `"both"`, string(req["mode"]))
		assert.JSONEq(t, `{"centralFreq":5985}`, string(req["rfMeasurementReport"]))
		io.WriteString(w, `{"mode":"both","power":{"pass":true},"adjacent":{"pass":false,"reason":"too loud"},"pass":false}`)
	}))

	v, err := c.ValidateRF(context.Background(), rf.ModeBoth, 3, json.RawMessage(`{"centralFreq":5985}`))
	require.NoError(t, err)
	assert.Equal(t, rf.ModeBoth, v.Mode)
	assert.True(t, v.Power.Pass)
	require.NotNil(t, v.Adjacent)
	assert.Equal(t, "too loud", v.Adjacent.Reason)
	assert.False(t, v.Pass)
}

func TestEvidence_ChecksContentType(t *testing.T) {
	contentType := "application/cose; cose-type=\"cose-sign1\""
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write([]byte{0xd2, 0x84})
	}))

	out, err := c.Evidence(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0xd2, 0x84}, out)

	contentType = "text/plain"
	_, err = c.Evidence(context.Background())
	assert.True(t, errors.Is(err, ErrInvalidResponse))
}

func TestCircuitOpensAfterServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	for range breakerThreshold {
		_, err := c.Status(context.Background())
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
	}
	_, err := c.Status(context.Background())
	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.Equal(t, int32(breakerThreshold), calls.Load())
}

func TestClientErrorsDoNotTripCircuit(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message":"no exchange has been answered yet"}`)
	}))

	for range breakerThreshold + 2 {
		_, err := c.Evidence(context.Background())
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	}
}
