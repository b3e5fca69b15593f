/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "US", cfg.Domain)
	assert.Equal(t, "afc_simulator.db", cfg.DBPath)
	assert.Equal(t, "1.4", cfg.SupportedVersions)
	assert.Equal(t, time.Duration(0), cfg.HoldTimeout)
	assert.False(t, cfg.LogMaskSerial)
	assert.Zero(t, cfg.Burst())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("AFC_ADDR", "127.0.0.1:9000")
	t.Setenv("AFC_DOMAIN", "CA")
	t.Setenv("AFC_HOLD_TIMEOUT", "90s")
	t.Setenv("AFC_SUPPORTED_VERSIONS", ">= 1.3, < 2")
	t.Setenv("AFC_INQUIRY_RATE", "2.5")
	t.Setenv("AFC_LOG_MASK_SERIAL", "true")
	t.Setenv("AFC_RANDOM_SEED", "42")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "CA", cfg.Domain)
	assert.Equal(t, 90*time.Second, cfg.HoldTimeout)
	assert.Equal(t, ">= 1.3, < 2", cfg.SupportedVersions)
	assert.True(t, cfg.LogMaskSerial)
	assert.Equal(t, uint64(42), cfg.RandomSeed)
	assert.Equal(t, 2, cfg.Burst())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"empty domain", "AFC_DOMAIN", " "},
		{"negative rate", "AFC_INQUIRY_RATE", "-1"},
		{"negative burst", "AFC_INQUIRY_BURST", "-3"},
		{"negative hold", "AFC_HOLD_TIMEOUT", "-1s"},
		{"bad duration", "AFC_HOLD_TIMEOUT", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestBurst(t *testing.T) {
	cfg := SimulatorConfig{InquiryRate: 0.2}
	assert.Equal(t, 1, cfg.Burst())
	cfg.InquiryBurst = 7
	assert.Equal(t, 7, cfg.Burst())
}
