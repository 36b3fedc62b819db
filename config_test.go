// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mcoap

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig(env.Options{Prefix: "MCOAP_TEST_DEFAULTS_"})
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	if cfg.IdleTimeout != 30*time.Second {
		t.Errorf("IdleTimeout = %v, want 30s", cfg.IdleTimeout)
	}
	if cfg.BufferSize != 1500 {
		t.Errorf("BufferSize = %d, want 1500", cfg.BufferSize)
	}
	if cfg.WorkerPoolSize != 100 {
		t.Errorf("WorkerPoolSize = %d, want 100", cfg.WorkerPoolSize)
	}
	if cfg.MaxPeers != 0 {
		t.Errorf("MaxPeers = %d, want 0", cfg.MaxPeers)
	}
}

func TestNewConfig_Prefixed(t *testing.T) {
	t.Setenv("MCOAP_TEST_HOST", "0.0.0.0")
	t.Setenv("MCOAP_TEST_PORT", "5683")
	t.Setenv("MCOAP_TEST_IDLE_TIMEOUT", "90s")
	t.Setenv("MCOAP_TEST_GLOBAL_RATE", "1000")

	cfg, err := NewConfig(env.Options{Prefix: "MCOAP_TEST_"})
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	if cfg.Address() != "0.0.0.0:5683" {
		t.Errorf("Address() = %q, want 0.0.0.0:5683", cfg.Address())
	}
	if cfg.IdleTimeout != 90*time.Second {
		t.Errorf("IdleTimeout = %v, want 90s", cfg.IdleTimeout)
	}
	if cfg.GlobalRate != 1000 {
		t.Errorf("GlobalRate = %d, want 1000", cfg.GlobalRate)
	}
}
