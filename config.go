// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

package tn3270

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/racingmars/tn3270/internal/negotiator"
)

// ForceMode forbids the negotiator from reaching past the stated protocol
// level.
type ForceMode string

const (
	ForceAuto    ForceMode = "auto"
	ForceTN3270  ForceMode = "tn3270"
	ForceTN3270E ForceMode = "tn3270e"
)

// NegotiationMode selects the negotiation-complete completion policy.
type NegotiationMode string

const (
	NegotiationStrict   NegotiationMode = "strict"
	NegotiationFlexible NegotiationMode = "flexible"
)

// Config holds every recognized configuration key from the external
// interface table. Zero-value fields are filled in from DefaultConfig by
// LoadConfig.
type Config struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`

	CodePage     string `yaml:"code_page"`
	EBCDICCompat string `yaml:"ebcdic_compat"`

	ForceMode       ForceMode       `yaml:"force_mode"`
	NegotiationMode NegotiationMode `yaml:"negotiation_mode"`

	ConnectTimeoutSeconds     int `yaml:"connect_timeout"`
	NegotiationTimeoutSeconds int `yaml:"negotiation_timeout"`
	ReadTimeoutSeconds        int `yaml:"read_timeout"`

	AllowFallback bool `yaml:"allow_fallback"`

	// PrinterMaxBufferBytes and PrinterJobRingSize configure the SCS
	// printer path; they have no equivalent in the plain-terminal
	// configuration keys but are recognized the same way for sessions
	// that negotiate a 3287 device type.
	PrinterMaxBufferBytes int `yaml:"printer_max_buffer_bytes"`
	PrinterJobRingSize    int `yaml:"printer_job_ring_size"`
}

// DefaultConfig returns the configuration a Session uses when no
// overrides are given: negotiated screen size, CP037, default EBCDIC
// substitution, auto force mode, strict negotiation completion, and
// reasonable timeouts.
func DefaultConfig() Config {
	return Config{
		CodePage:                  "037",
		EBCDICCompat:              "default",
		ForceMode:                 ForceAuto,
		NegotiationMode:           NegotiationStrict,
		ConnectTimeoutSeconds:     10,
		NegotiationTimeoutSeconds: 10,
		ReadTimeoutSeconds:        30,
		PrinterMaxBufferBytes:     1 << 20,
		PrinterJobRingSize:        16,
	}
}

// LoadConfig reads a YAML document from r and merges it over
// DefaultConfig, returning the result.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, newErr(KindProtocol, "LoadConfig", err)
	}
	return cfg, nil
}

func (c Config) connectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

func (c Config) negotiationTimeout() time.Duration {
	return time.Duration(c.NegotiationTimeoutSeconds) * time.Second
}

func (c Config) readTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

func (c Config) ebcdicCompat() EBCDICCompat {
	if c.EBCDICCompat == "p3270" {
		return CompatP3270
	}
	return CompatDefault
}

func (c Config) completionMode() negotiator.CompletionMode {
	if c.NegotiationMode == NegotiationFlexible {
		return negotiator.Flexible
	}
	return negotiator.Strict
}
