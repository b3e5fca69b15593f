/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/kentakayama/afc-simulator/internal/afc"
	"github.com/kentakayama/afc-simulator/internal/channel"
	"github.com/kentakayama/afc-simulator/internal/config"
	"github.com/kentakayama/afc-simulator/internal/fixture"
	"github.com/kentakayama/afc-simulator/internal/infra/sqlite"
	"github.com/kentakayama/afc-simulator/internal/observability"
	"github.com/kentakayama/afc-simulator/internal/simulator"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// Server wires the HTTP listener and request handling stack.
type Server struct {
	cfg     config.SimulatorConfig
	sim     *simulator.Simulator
	db      *sql.DB
	handler *handler
	http    *http.Server
	logger  *log.Logger
}

// New constructs a Server using the provided configuration.
func New(cfg config.SimulatorConfig) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	tables, err := channel.Default()
	if err != nil {
		return nil, err
	}

	db, err := sqlite.InitDB(context.Background(), cfg.DBPath)
	if err != nil {
		return nil, err
	}
	uploads := fixture.NewRepositorySource(sqlite.NewFixtureRepository(db))

	sources := fixture.Chain{uploads}
	if cfg.FixtureDir != "" {
		dir, err := fixture.Dir(cfg.FixtureDir)
		if err != nil {
			db.Close()
			return nil, err
		}
		sources = append(sources, dir)
	}
	embedded, err := fixture.Embedded()
	if err != nil {
		db.Close()
		return nil, err
	}
	sources = append(sources, embedded)

	var signer *simulator.EvidenceSigner
	if cfg.EvidenceKeyFile != "" {
		signer, err = simulator.LoadEvidenceSigner(cfg.EvidenceKeyFile)
	} else {
		signer, err = simulator.GenerateEvidenceSigner()
		logger.Printf("no evidence key configured, signing with an ephemeral key")
	}
	if err != nil {
		db.Close()
		return nil, err
	}

	metrics, err := observability.NewCollector(prometheus.NewRegistry())
	if err != nil {
		db.Close()
		return nil, err
	}

	versions, err := afc.NewVersionConstraint(cfg.SupportedVersions)
	if err != nil {
		db.Close()
		return nil, err
	}

	sim, err := simulator.New(simulator.Options{
		Tables:      tables,
		Domain:      cfg.Domain,
		Versions:    versions,
		Fixtures:    sources,
		Uploads:     uploads,
		Exchanges:   sqlite.NewExchangeRepository(db),
		Verdicts:    sqlite.NewRFVerdictRepository(db),
		Metrics:     metrics,
		Signer:      signer,
		HoldTimeout: cfg.HoldTimeout,
		Seed:        cfg.RandomSeed,
		MaskSerial:  cfg.LogMaskSerial,
		Logger:      logger,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.InquiryRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.InquiryRate), cfg.Burst())
	}

	h, err := newHandler(sim, metrics, limiter, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{
		cfg:     cfg,
		sim:     sim,
		db:      db,
		handler: h,
		http:    httpSrv,
		logger:  logger,
	}, nil
}

// Handler returns the request handler of the server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe starts the HTTP server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	s.logger.Printf("Run AFC Simulator on %s (domain %s).", s.http.Addr, s.cfg.Domain)

	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown releases any held inquiry, then gracefully takes down the HTTP
// server and closes the database.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.sim.Close(); err != nil {
		s.logger.Printf("failed to close simulator: %v", err)
	}
	err := s.http.Shutdown(ctx)
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}
