/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package simulator

// State is the phase of the session under test.
type State int

const (
	// StateIdle answers inquiries from the default fixture.
	StateIdle State = iota
	// StateConfigured has a fixture or generator selected by a control call.
	StateConfigured
	// StateAwaiting holds an accepted inquiry until the hold is released and
	// the delay has passed.
	StateAwaiting
	// StateResponding assembles the response.
	StateResponding
	// StateResponded has answered at least one inquiry since activation.
	StateResponded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConfigured:
		return "CONFIGURED"
	case StateAwaiting:
		return "AWAITING"
	case StateResponding:
		return "RESPONDING"
	case StateResponded:
		return "RESPONDED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
