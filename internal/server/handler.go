/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kentakayama/afc-simulator/internal/afc"
	"github.com/kentakayama/afc-simulator/internal/fixture"
	"github.com/kentakayama/afc-simulator/internal/observability"
	"github.com/kentakayama/afc-simulator/internal/rf"
	"github.com/kentakayama/afc-simulator/internal/simulator"
	"golang.org/x/time/rate"
)

const (
	maxRequestBodyBytes = 1 << 20 // 1 MiB covers the largest measurement reports.

	defaultExchangeLimit = 20
	maxExchangeLimit     = 500
)

type handler struct {
	sim     *simulator.Simulator
	metrics *observability.Collector
	limiter *rate.Limiter
	logger  *log.Logger
	routes  map[string]route
}

// route maps the allowed methods of one path to their handlers.
type route map[string]http.HandlerFunc

type responseSpec struct {
	status      int
	body        []byte
	contentType string
}

// newHandler wires the routes. A nil limiter disables rate limiting of
// inquiries.
func newHandler(sim *simulator.Simulator, metrics *observability.Collector, limiter *rate.Limiter, logger *log.Logger) (*handler, error) {
	if sim == nil {
		return nil, errors.New("simulator is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	h := &handler{
		sim:     sim,
		metrics: metrics,
		limiter: limiter,
		logger:  logger,
	}
	h.routes = map[string]route{
		"/availableSpectrumInquiry": {http.MethodPost: h.availableSpectrumInquiry},
		"/set-response":             {http.MethodPost: h.setResponse},
		"/get-status":               {http.MethodGet: h.getStatus},
		"/reset":                    {http.MethodPost: h.reset},
		"/validate-rf":              {http.MethodPost: h.validateRF},
		"/fixtures": {
			http.MethodGet:    h.listFixtures,
			http.MethodPost:   h.uploadFixture,
			http.MethodDelete: h.deleteFixture,
		},
		"/exchanges":    {http.MethodGet: h.listExchanges},
		"/verdicts":     {http.MethodGet: h.listVerdicts},
		"/evidence":     {http.MethodGet: h.evidence},
		"/evidence-key": {http.MethodGet: h.evidenceKey},
		"/metrics":      {http.MethodGet: h.metricsHandler},
	}
	return h, nil
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt, ok := h.routes[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	serve, ok := rt[r.Method]
	if !ok {
		w.Header().Set("Allow", rt.allow())
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	serve(w, r)
}

func (rt route) allow() string {
	methods := make([]string, 0, len(rt))
	for m := range rt {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}

func (h *handler) availableSpectrumInquiry(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow() {
		h.metrics.ObserveRejected("rate_limited")
		h.writeMessage(w, http.StatusTooManyRequests, "Too many requests, retry later.")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err != nil || mediaType != "application/json" {
		h.logger.Printf("content type mismatch: expected application/json, actual %v", contentType)
		h.metrics.ObserveRejected("content_type")
		h.writeMessage(w, http.StatusBadRequest, fmt.Sprintf("Content-Type %s not supported! Please use application/json.", contentType))
		return
	}

	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	headers := make(map[string]string, len(r.Header)+1)
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}
	headers["Host"] = r.Host

	resp, err := h.handleInquiry(r, headers, body)
	if err != nil {
		h.logger.Printf("failed to decode inquiry: %v", err)
		h.metrics.ObserveRejected("malformed")
		h.writeMessage(w, http.StatusBadRequest, "Failed to decode JSON object: "+err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// handleInquiry converts a panic while assembling the response into a
// general failure.
func (h *handler) handleInquiry(r *http.Request, headers map[string]string, body []byte) (resp *afc.ResponseEnvelope, err error) {
	defer func() {
		if p := recover(); p != nil {
			h.logger.Printf("panic while answering an inquiry: %v", p)
			resp, err = afc.ErrorResponse("", "0", afc.GeneralFailure()), nil
		}
	}()
	return h.sim.HandleInquiry(r.Context(), headers, body)
}

func (h *handler) setResponse(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	var st simulator.Settings
	if err := json.Unmarshal(body, &st); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Exception : "+err.Error())
		return
	}
	if err := h.sim.Configure(st); err != nil {
		h.logger.Printf("set-response rejected: %v", err)
		h.writeMessage(w, http.StatusBadRequest, "Exception : "+err.Error())
		return
	}
	h.writeMessage(w, http.StatusOK, "Success")
}

func (h *handler) getStatus(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.sim.Status())
}

type resetRequest struct {
	InquiryFile string `json:"inquiryFile"`
}

func (h *handler) reset(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	var req resetRequest
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			h.writeMessage(w, http.StatusBadRequest, "Exception : "+err.Error())
			return
		}
	}
	h.sim.Reset(req.InquiryFile)
	h.writeMessage(w, http.StatusOK, "Success")
}

type validateRFRequest struct {
	Mode        string          `json:"mode"`
	CriteriaPSD float64         `json:"criteriaPsd"`
	Report      json.RawMessage `json:"rfMeasurementReport"`
}

type validateRFResponse struct {
	rf.Result
	Pass bool `json:"pass"`
}

func (h *handler) validateRF(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	var req validateRFRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Exception : "+err.Error())
		return
	}
	mode, err := rf.ParseMode(req.Mode)
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	document, err := json.Marshal(map[string]json.RawMessage{"rfMeasurementReport": req.Report})
	if err != nil || len(req.Report) == 0 {
		h.writeMessage(w, http.StatusBadRequest, "rfMeasurementReport is required")
		return
	}

	result, err := h.sim.ValidateRF(r.Context(), mode, req.CriteriaPSD, document)
	switch {
	case errors.Is(err, simulator.ErrNoExchange):
		h.writeMessage(w, http.StatusConflict, err.Error())
	case err != nil:
		h.writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		h.writeJSON(w, http.StatusOK, validateRFResponse{Result: result, Pass: result.Pass()})
	}
}

func (h *handler) uploadFixture(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	name, err := h.sim.UploadFixture(r.Context(), body)
	switch {
	case errors.Is(err, simulator.ErrUploadDisabled):
		h.writeMessage(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, fixture.ErrInvalidFixture):
		h.writeMessage(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.logger.Printf("failed to store fixture: %v", err)
		h.writeMessage(w, http.StatusInternalServerError, "failed to store fixture")
	default:
		h.logger.Printf("fixture %s uploaded", name)
		h.writeJSON(w, http.StatusCreated, map[string]string{"name": name})
	}
}

func (h *handler) listFixtures(w http.ResponseWriter, r *http.Request) {
	names, err := h.sim.FixtureNames(r.Context())
	switch {
	case errors.Is(err, simulator.ErrUploadDisabled):
		h.writeMessage(w, http.StatusNotImplemented, err.Error())
	case err != nil:
		h.logger.Printf("failed to list fixtures: %v", err)
		h.writeMessage(w, http.StatusInternalServerError, "failed to list fixtures")
	default:
		if names == nil {
			names = []string{}
		}
		h.writeJSON(w, http.StatusOK, names)
	}
}

func (h *handler) deleteFixture(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		h.writeMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	err := h.sim.DeleteFixture(r.Context(), name)
	switch {
	case errors.Is(err, simulator.ErrUploadDisabled):
		h.writeMessage(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, fixture.ErrNotFound):
		h.writeMessage(w, http.StatusNotFound, err.Error())
	case err != nil:
		h.logger.Printf("failed to delete fixture: %v", err)
		h.writeMessage(w, http.StatusInternalServerError, "failed to delete fixture")
	default:
		h.logger.Printf("fixture %s deleted", name)
		h.writeMessage(w, http.StatusOK, "Success")
	}
}

type exchangeSummary struct {
	ExchangeID   string    `json:"exchangeId"`
	RequestID    string    `json:"requestId"`
	SerialNumber string    `json:"serialNumber"`
	TestVector   int       `json:"testVector"`
	ResponseCode int       `json:"responseCode"`
	ValidRequest bool      `json:"validRequest"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (h *handler) listExchanges(w http.ResponseWriter, r *http.Request) {
	limit := defaultExchangeLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeMessage(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxExchangeLimit)
	}
	list, err := h.sim.Exchanges(r.Context(), limit)
	if err != nil {
		h.logger.Printf("failed to list exchanges: %v", err)
		h.writeMessage(w, http.StatusInternalServerError, "failed to list exchanges")
		return
	}
	out := make([]exchangeSummary, 0, len(list))
	for _, e := range list {
		out = append(out, exchangeSummary{
			ExchangeID:   e.ExchangeID,
			RequestID:    e.RequestID,
			SerialNumber: e.SerialNumber,
			TestVector:   e.TestVector,
			ResponseCode: e.ResponseCode,
			ValidRequest: e.ValidRequest,
			CreatedAt:    e.CreatedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

type verdictSummary struct {
	ExchangeID   string    `json:"exchangeId"`
	Mode         string    `json:"mode"`
	Pass         bool      `json:"pass"`
	PowerPass    bool      `json:"powerPass"`
	AdjacentPass *bool     `json:"adjacentPass,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// listVerdicts lists the rf verdicts of exchangeId, the current exchange by
// default.
func (h *handler) listVerdicts(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("exchangeId")
	if id == "" {
		id = h.sim.Status().ExchangeID
	}
	if id == "" {
		h.writeMessage(w, http.StatusNotFound, simulator.ErrNoExchange.Error())
		return
	}
	list, err := h.sim.Verdicts(r.Context(), id)
	if err != nil {
		h.logger.Printf("failed to list verdicts of %s: %v", id, err)
		h.writeMessage(w, http.StatusInternalServerError, "failed to list verdicts")
		return
	}
	out := make([]verdictSummary, 0, len(list))
	for _, v := range list {
		out = append(out, verdictSummary{
			ExchangeID:   v.ExchangeID,
			Mode:         v.Mode,
			Pass:         v.Pass(),
			PowerPass:    v.PowerPass,
			AdjacentPass: v.AdjacentPass,
			Reason:       v.Reason,
			CreatedAt:    v.CreatedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *handler) evidence(w http.ResponseWriter, _ *http.Request) {
	signed, err := h.sim.Evidence()
	switch {
	case errors.Is(err, simulator.ErrNoSigner):
		h.writeMessage(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, simulator.ErrNoExchange):
		h.writeMessage(w, http.StatusNotFound, err.Error())
	case err != nil:
		h.logger.Printf("failed to sign evidence: %v", err)
		h.writeMessage(w, http.StatusInternalServerError, "failed to sign evidence")
	default:
		h.writeResponse(w, responseSpec{status: http.StatusOK, body: signed, contentType: "application/cose; cose-type=\"cose-sign1\""})
	}
}

func (h *handler) evidenceKey(w http.ResponseWriter, _ *http.Request) {
	key, err := h.sim.EvidenceKey()
	if err != nil {
		h.writeMessage(w, http.StatusNotImplemented, err.Error())
		return
	}
	h.writeResponse(w, responseSpec{status: http.StatusOK, body: key, contentType: "application/x-pem-file"})
}

func (h *handler) metricsHandler(w http.ResponseWriter, r *http.Request) {
	h.metrics.Handler().ServeHTTP(w, r)
}

func (h *handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		h.logger.Printf("failed reading request body: %v", err)
		h.writeMessage(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	if err := r.Body.Close(); err != nil {
		h.logger.Printf("failed closing request body: %v", err)
		h.writeMessage(w, http.StatusBadRequest, "failed to close request body")
		return nil, false
	}
	return body, true
}

func (h *handler) writeMessage(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"message": message})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.logger.Printf("failed encoding response: %v", err)
		h.writeResponse(w, responseSpec{status: http.StatusInternalServerError})
		return
	}
	h.writeResponse(w, responseSpec{status: status, body: body, contentType: "application/json"})
}

func (h *handler) writeResponse(w http.ResponseWriter, spec responseSpec) {
	w.Header().Set("Server", "afc-simulator")

	if len(spec.body) > 0 {
		for k, v := range defaultHeaders {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", spec.contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(spec.body)))
		w.WriteHeader(spec.status)
		if _, err := w.Write(spec.body); err != nil {
			h.logger.Printf("failed writing response body: %v", err)
		}
		return
	}

	w.WriteHeader(spec.status)
}

var defaultHeaders = map[string]string{
	"Cache-Control":           "no-store",
	"X-Content-Type-Options":  "nosniff",
	"Content-Security-Policy": "default-src 'none'",
	"Referrer-Policy":         "no-referrer",
}
