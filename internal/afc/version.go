/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package afc

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ProtocolVersion is the protocol version the simulator speaks by default.
const ProtocolVersion = "1.4"

// VersionPolicy decides which protocol versions are answered.
type VersionPolicy interface {
	Supports(version string) bool
}

// VersionConstraint is a VersionPolicy backed by a semver constraint such as
// "1.4" or ">= 1.3, < 2".
type VersionConstraint struct {
	expr        string
	constraints *semver.Constraints
}

func NewVersionConstraint(expr string) (*VersionConstraint, error) {
	c, err := semver.NewConstraint(expr)
	if err != nil {
		return nil, fmt.Errorf("parse version constraint %q: %w", expr, err)
	}
	return &VersionConstraint{expr: expr, constraints: c}, nil
}

func (v *VersionConstraint) Supports(version string) bool {
	ver, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return v.constraints.Check(ver)
}

func (v *VersionConstraint) String() string {
	return v.expr
}
