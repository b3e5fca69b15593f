/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics of the simulator. A nil Collector
// records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Inquiries        *prometheus.CounterVec
	InquiryDurations prometheus.Histogram
	HeldResponses    prometheus.Gauge
	RFVerdicts       *prometheus.CounterVec
	RejectedRequests *prometheus.CounterVec
}

// NewCollector registers the simulator metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	inquiries, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "afc_inquiries_total",
		Help: "Total number of answered spectrum inquiries, labeled by response code.",
	}, []string{"code"}), "afc_inquiries_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "afc_inquiry_duration_seconds",
		Help:    "Time from receiving an inquiry to answering it, holds and delays included.",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}), "afc_inquiry_duration_seconds")
	if err != nil {
		return nil, err
	}

	held, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "afc_held_responses",
		Help: "Number of inquiries currently waiting for a hold to be released.",
	}), "afc_held_responses")
	if err != nil {
		return nil, err
	}

	verdicts, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "afc_rf_verdicts_total",
		Help: "Total number of RF measurement verdicts, labeled by mode and result.",
	}, []string{"mode", "result"}), "afc_rf_verdicts_total")
	if err != nil {
		return nil, err
	}

	rejected, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "afc_rejected_requests_total",
		Help: "Requests rejected before reaching the simulator, labeled by reason.",
	}, []string{"reason"}), "afc_rejected_requests_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		Inquiries:        inquiries,
		InquiryDurations: durations,
		HeldResponses:    held,
		RFVerdicts:       verdicts,
		RejectedRequests: rejected,
	}, nil
}

// ObserveInquiry records one answered inquiry.
func (c *Collector) ObserveInquiry(code int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Inquiries.WithLabelValues(strconv.Itoa(code)).Inc()
	c.InquiryDurations.Observe(elapsed.Seconds())
}

// HoldStarted and HoldEnded track inquiries blocked on a hold.
func (c *Collector) HoldStarted() {
	if c == nil {
		return
	}
	c.HeldResponses.Inc()
}

func (c *Collector) HoldEnded() {
	if c == nil {
		return
	}
	c.HeldResponses.Dec()
}

// ObserveVerdict records the outcome of an RF validation.
func (c *Collector) ObserveVerdict(mode string, pass bool) {
	if c == nil {
		return
	}
	result := "fail"
	if pass {
		result = "pass"
	}
	c.RFVerdicts.WithLabelValues(mode, result).Inc()
}

// ObserveRejected records a request refused at the transport level.
func (c *Collector) ObserveRejected(reason string) {
	if c == nil {
		return
	}
	c.RejectedRequests.WithLabelValues(reason).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
