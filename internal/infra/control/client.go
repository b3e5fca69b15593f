/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package control

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kentakayama/afc-simulator/internal/afc"
	"github.com/kentakayama/afc-simulator/internal/config"
	"github.com/kentakayama/afc-simulator/internal/rf"
	"github.com/kentakayama/afc-simulator/internal/simulator"
	"github.com/sony/gobreaker"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "afc-simulator/control-client"

	breakerName      = "afc-control"
	breakerThreshold = 3
	breakerTimeout   = 10 * time.Second
)

var (
	ErrCircuitOpen     = errors.New("simulator unreachable, circuit open")
	ErrInvalidResponse = errors.New("invalid simulator response")
)

// APIError is a non-2xx answer of the simulator.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("simulator returned %d: %s", e.StatusCode, e.Message)
}

// Controller drives a running simulator.
type Controller interface {
	Configure(ctx context.Context, st simulator.Settings) error
	Reset(ctx context.Context, inquiryFile string) error
	Status(ctx context.Context) (*Status, error)
	Inquire(ctx context.Context, body []byte) (*afc.ResponseEnvelope, error)
	ValidateRF(ctx context.Context, mode rf.Mode, criteriaPSD float64, report json.RawMessage) (*Verification, error)
	Evidence(ctx context.Context) ([]byte, error)
	EvidenceKey(ctx context.Context) ([]byte, error)
}

// Status is the session snapshot reported by /get-status. Documents are kept
// raw for display.
type Status struct {
	State                  string            `json:"state"`
	Domain                 string            `json:"domain"`
	ExchangeID             string            `json:"exchangeId"`
	CurrentTestVector      json.RawMessage   `json:"currentTestVector"`
	ReceivedRequestHeaders map[string]string `json:"receivedRequestHeaders"`
	ReceivedRequest        json.RawMessage   `json:"receivedRequest"`
	SentResponse           json.RawMessage   `json:"sentResponse"`
	ValidRequest           bool              `json:"valid_request"`
	HoldResponse           bool              `json:"holdResponse"`
}

// Verification is the answer of /validate-rf.
type Verification struct {
	rf.Result
	Pass bool `json:"pass"`
}

type Client struct {
	http   *resty.Client
	cb     *gobreaker.CircuitBreaker
	logger *log.Logger
}

var _ Controller = (*Client)(nil)

func NewClient(cfg config.ControlConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("simulator URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse simulator URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported simulator URL scheme %q", base.Scheme)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("User-Agent", defaultUserAgent)
	if base.Scheme == "https" {
		httpClient.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: cfg.InsecureTLS})
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    breakerName,
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Printf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &Client{http: httpClient, cb: cb, logger: logger}, nil
}

// do sends one request. Transport failures and 5xx answers count against the
// circuit breaker, other error statuses do not.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, http.Header, error) {
	type answer struct {
		body   []byte
		header http.Header
	}
	result, err := c.cb.Execute(func() (any, error) {
		req := c.http.R().SetContext(ctx)
		if body != nil {
			req.SetHeader("Content-Type", "application/json").SetBody(body)
		}
		resp, err := req.Execute(method, path)
		if err != nil {
			return nil, fmt.Errorf("perform %s %s: %w", method, path, err)
		}
		if resp.StatusCode() >= http.StatusInternalServerError && resp.StatusCode() != http.StatusNotImplemented {
			return nil, apiErrorOf(resp.StatusCode(), resp.Body())
		}
		if !resp.IsSuccess() {
			return apiErrorOf(resp.StatusCode(), resp.Body()), nil
		}
		return answer{body: resp.Body(), header: resp.Header()}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, nil, ErrCircuitOpen
		}
		return nil, nil, err
	}
	switch v := result.(type) {
	case *APIError:
		return nil, nil, v
	case answer:
		return v.body, v.header, nil
	default:
		return nil, nil, ErrInvalidResponse
	}
}

func apiErrorOf(status int, body []byte) *APIError {
	var msg struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &msg); err == nil && msg.Message != "" {
		return &APIError{StatusCode: status, Message: msg.Message}
	}
	return &APIError{StatusCode: status, Message: string(bytes.TrimSpace(body))}
}

func (c *Client) Configure(ctx context.Context, st simulator.Settings) error {
	_, _, err := c.do(ctx, http.MethodPost, "/set-response", st)
	return err
}

func (c *Client) Reset(ctx context.Context, inquiryFile string) error {
	_, _, err := c.do(ctx, http.MethodPost, "/reset", map[string]string{"inquiryFile": inquiryFile})
	return err
}

func (c *Client) Status(ctx context.Context) (*Status, error) {
	body, _, err := c.do(ctx, http.MethodGet, "/get-status", nil)
	if err != nil {
		return nil, err
	}
	var st Status
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &st, nil
}

// Inquire sends an Available Spectrum Inquiry as a device would.
func (c *Client) Inquire(ctx context.Context, body []byte) (*afc.ResponseEnvelope, error) {
	out, _, err := c.do(ctx, http.MethodPost, "/availableSpectrumInquiry", json.RawMessage(body))
	if err != nil {
		return nil, err
	}
	var env afc.ResponseEnvelope
	if err := json.Unmarshal(out, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &env, nil
}

func (c *Client) ValidateRF(ctx context.Context, mode rf.Mode, criteriaPSD float64, report json.RawMessage) (*Verification, error) {
	req := map[string]any{
		"mode":                mode,
		"criteriaPsd":         criteriaPSD,
		"rfMeasurementReport": report,
	}
	out, _, err := c.do(ctx, http.MethodPost, "/validate-rf", req)
	if err != nil {
		return nil, err
	}
	var v Verification
	if err := json.Unmarshal(out, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &v, nil
}

// Evidence fetches the COSE_Sign1 evidence of the last exchange.
func (c *Client) Evidence(ctx context.Context) ([]byte, error) {
	out, header, err := c.do(ctx, http.MethodGet, "/evidence", nil)
	if err != nil {
		return nil, err
	}
	if ct := header.Get("Content-Type"); !strings.HasPrefix(ct, "application/cose") {
		return nil, fmt.Errorf("%w: unexpected content type %q", ErrInvalidResponse, ct)
	}
	c.logger.Printf("received %d bytes of evidence", len(out))
	return out, nil
}

// EvidenceKey fetches the PEM verification key of the evidence.
func (c *Client) EvidenceKey(ctx context.Context) ([]byte, error) {
	out, _, err := c.do(ctx, http.MethodGet, "/evidence-key", nil)
	return out, err
}
