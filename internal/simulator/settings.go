/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package simulator

import (
	"fmt"
	"time"
)

// maxRespWaitTime bounds respWaitTime, in seconds.
const maxRespWaitTime = 24 * 60 * 60

// Settings is one configure call. Only the members present are applied.
// Purpose starts a new activation and requires UnitUnderTest.
type Settings struct {
	UnitUnderTest *string `json:"unitUnderTest,omitempty"`
	Purpose       *string `json:"purpose,omitempty"`
	TestVector    *int    `json:"testVector,omitempty"`
	Phase         *int    `json:"phase,omitempty"`
	// RespWaitTime delays every response, in seconds.
	RespWaitTime *float64 `json:"respWaitTime,omitempty"`
	HoldResponse *bool    `json:"holdResponse,omitempty"`

	Random              *bool   `json:"random,omitempty"`
	DifferenceLastPicks *bool   `json:"differenceLastPicks,omitempty"`
	OnlyRandomPower     *bool   `json:"onlyRandomPower,omitempty"`
	ChannelWidth        *int    `json:"channelWidth,omitempty"`
	Domain              *string `json:"domain,omitempty"`
}

func (s *Settings) check() error {
	if s.Purpose != nil && s.UnitUnderTest == nil {
		return fmt.Errorf("%w: purpose requires unitUnderTest", ErrInvalidSettings)
	}
	if s.TestVector != nil && *s.TestVector < 0 {
		return fmt.Errorf("%w: testVector must not be negative", ErrInvalidSettings)
	}
	if s.Phase != nil && *s.Phase < 0 {
		return fmt.Errorf("%w: phase must not be negative", ErrInvalidSettings)
	}
	if s.RespWaitTime != nil && *s.RespWaitTime < 0 {
		return fmt.Errorf("%w: respWaitTime must not be negative", ErrInvalidSettings)
	}
	if s.RespWaitTime != nil && *s.RespWaitTime > maxRespWaitTime {
		return fmt.Errorf("%w: respWaitTime must not exceed %d seconds", ErrInvalidSettings, maxRespWaitTime)
	}
	return nil
}

// activatesGenerator reports whether the settings change how masks are drawn.
func (s *Settings) activatesGenerator() bool {
	return s.Purpose != nil || s.Random != nil || s.DifferenceLastPicks != nil ||
		s.OnlyRandomPower != nil || s.ChannelWidth != nil || s.Domain != nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
