/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "AFC"

// SimulatorConfig captures the tunables required to start the AFC simulator.
type SimulatorConfig struct {
	Addr       string `envconfig:"ADDR" default:":8080"`
	Domain     string `envconfig:"DOMAIN" default:"US"`
	DBPath     string `envconfig:"DB_PATH" default:"afc_simulator.db"`
	FixtureDir string `envconfig:"FIXTURE_DIR"`

	// HoldTimeout bounds how long a held response waits. Zero waits until
	// released.
	HoldTimeout       time.Duration `envconfig:"HOLD_TIMEOUT" default:"0s"`
	SupportedVersions string        `envconfig:"SUPPORTED_VERSIONS" default:"1.4"`

	// InquiryRate limits inquiries per second. Zero disables the limiter.
	InquiryRate  float64 `envconfig:"INQUIRY_RATE" default:"0"`
	InquiryBurst int     `envconfig:"INQUIRY_BURST" default:"0"`

	EvidenceKeyFile string `envconfig:"EVIDENCE_KEY_FILE"`
	LogMaskSerial   bool   `envconfig:"LOG_MASK_SERIAL" default:"false"`
	RandomSeed      uint64 `envconfig:"RANDOM_SEED" default:"0"`

	Logger *log.Logger `ignored:"true"`
}

// ControlConfig configures the client driving a running simulator.
type ControlConfig struct {
	BaseURL     string
	InsecureTLS bool
	Timeout     time.Duration
	Logger      *log.Logger
}

// Load reads the simulator configuration from AFC_* environment variables.
func Load() (*SimulatorConfig, error) {
	var cfg SimulatorConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that envconfig cannot.
func (c *SimulatorConfig) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("AFC_ADDR must not be empty")
	}
	if strings.TrimSpace(c.Domain) == "" {
		return fmt.Errorf("AFC_DOMAIN must not be empty")
	}
	if strings.TrimSpace(c.SupportedVersions) == "" {
		return fmt.Errorf("AFC_SUPPORTED_VERSIONS must not be empty")
	}
	if c.HoldTimeout < 0 {
		return fmt.Errorf("AFC_HOLD_TIMEOUT must not be negative")
	}
	if c.InquiryRate < 0 {
		return fmt.Errorf("AFC_INQUIRY_RATE must not be negative")
	}
	if c.InquiryBurst < 0 {
		return fmt.Errorf("AFC_INQUIRY_BURST must not be negative")
	}
	return nil
}

// Burst returns the limiter burst, at least one request when a rate is set.
func (c *SimulatorConfig) Burst() int {
	if c.InquiryBurst > 0 {
		return c.InquiryBurst
	}
	if c.InquiryRate > 0 {
		return max(1, int(c.InquiryRate))
	}
	return 0
}
