/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/kentakayama/afc-simulator/internal/afc"
)

var (
	ErrNotFound       = errors.New("fixture not found")
	ErrInvalidFixture = errors.New("invalid fixture")
)

// DefaultPrefix selects the fixture answering every classification.
const DefaultPrefix = "default"

// Key addresses a fixture.
type Key struct {
	UnitUnderTest string
	Purpose       string
	Vector        int
	Phase         int
	Domain        string
}

// IsDefault reports whether the key selects the default fixture.
func (k Key) IsDefault() bool {
	return (k.UnitUnderTest == "" && k.Purpose == "") || k.UnitUnderTest == DefaultPrefix
}

// FileName returns "{uut}_{purpose}_{vector}[_phase{n}].json", or
// "default.json" for the default key.
func (k Key) FileName() string {
	if k.IsDefault() {
		return DefaultPrefix + ".json"
	}
	name := fmt.Sprintf("%s_%s_%d", k.UnitUnderTest, k.Purpose, k.Vector)
	if k.Phase > 0 {
		name += fmt.Sprintf("_phase%d", k.Phase)
	}
	return name + ".json"
}

// Names lists the lookup names of the key, the domain specific one first.
func (k Key) Names() []string {
	name := k.FileName()
	if k.Domain == "" {
		return []string{name}
	}
	return []string{path.Join(k.Domain, name), name}
}

func (k Key) String() string {
	if k.Domain == "" {
		return k.FileName()
	}
	return path.Join(k.Domain, k.FileName())
}

// TestCaseID identifies the scenario a fixture was written for.
type TestCaseID struct {
	UnitUnderTest string `json:"unitUnderTest"`
	Purpose       string `json:"purpose"`
	TestVector    int    `json:"testVector"`
	Phase         int    `json:"phase,omitempty"`
}

// Fixture is a prepared inquiry response.
type Fixture struct {
	TestCaseID  *TestCaseID           `json:"testCaseID,omitempty"`
	Description string                `json:"description,omitempty"`
	Responses   *afc.ResponseEnvelope `json:"responses"`
}

// Parse decodes a fixture document.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	if f.Responses.First() == nil {
		return nil, fmt.Errorf("%w: no availableSpectrumInquiryResponses", ErrInvalidFixture)
	}
	return &f, nil
}

// Key returns the key a fixture was written for, in domain.
func (f *Fixture) Key(domain string) (Key, error) {
	if f.TestCaseID == nil {
		return Key{}, fmt.Errorf("%w: missing testCaseID", ErrInvalidFixture)
	}
	id := f.TestCaseID
	k := Key{
		UnitUnderTest: id.UnitUnderTest,
		Purpose:       id.Purpose,
		Vector:        id.TestVector,
		Phase:         id.Phase,
		Domain:        domain,
	}
	if !k.IsDefault() && (id.Purpose == "" || id.TestVector == 0) {
		return Key{}, fmt.Errorf("%w: testCaseID needs purpose and testVector", ErrInvalidFixture)
	}
	return k, nil
}

// Response returns a copy of the fixture's response that the caller may
// modify.
func (f *Fixture) Response() afc.InquiryResponse {
	return f.Responses.First().Clone()
}
