/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package simulator

import (
	"context"
	"strings"

	"github.com/kentakayama/afc-simulator/internal/domain/model"
	"github.com/kentakayama/afc-simulator/internal/rf"
)

// ValidateRF checks a measurement report against the last sent response and
// stores the verdict with the exchange. A failing verdict is a result, not
// an error; errors report an unusable report or a missing exchange.
func (s *Simulator) ValidateRF(ctx context.Context, mode rf.Mode, criteriaPSD float64, document []byte) (rf.Result, error) {
	report, err := rf.ParseReport(document)
	if err != nil {
		return rf.Result{}, err
	}

	s.mu.Lock()
	if s.sess.response == nil || s.sess.response.First() == nil {
		s.mu.Unlock()
		return rf.Result{}, ErrNoExchange
	}
	resp := s.sess.response.First().Clone()
	exchangeID := s.sess.exchangeID
	s.mu.Unlock()

	result, err := rf.NewValidator(&resp, report, s.logger).Validate(mode, criteriaPSD)
	if err != nil {
		return rf.Result{}, err
	}
	s.metrics.ObserveVerdict(string(mode), result.Pass())
	s.logger.Printf("rf validation %s of %s: pass=%v", mode, exchangeID, result.Pass())

	if s.verdicts != nil {
		v := &model.RFVerdict{
			ExchangeID: exchangeID,
			Mode:       string(mode),
			PowerPass:  result.Power.Pass,
			Reason:     reasonOf(result),
			Report:     document,
			CreatedAt:  s.now().UTC(),
		}
		if result.Adjacent != nil {
			pass := result.Adjacent.Pass
			v.AdjacentPass = &pass
		}
		if _, err := s.verdicts.Create(ctx, v); err != nil {
			s.logger.Printf("failed to store rf verdict of %s: %v", exchangeID, err)
		}
	}
	return result, nil
}

// Verdicts lists the stored verdicts of an exchange.
func (s *Simulator) Verdicts(ctx context.Context, exchangeID string) ([]*model.RFVerdict, error) {
	if s.verdicts == nil {
		return nil, nil
	}
	return s.verdicts.ListByExchangeID(ctx, exchangeID)
}

func reasonOf(r rf.Result) string {
	var reasons []string
	if r.Power.Reason != "" {
		reasons = append(reasons, r.Power.Reason)
	}
	if r.Adjacent != nil && r.Adjacent.Reason != "" {
		reasons = append(reasons, r.Adjacent.Reason)
	}
	return strings.Join(reasons, "; ")
}
