// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealth_Aggregation(t *testing.T) {
	c := NewChecker(time.Minute)
	c.Register("ok", func(ctx context.Context) error { return nil })
	c.Register("broken", func(ctx context.Context) error { return errors.New("boom") })

	report := c.Health(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", report.Status)
	}
	if len(report.Checks) != 2 {
		t.Fatalf("Checks = %d, want 2", len(report.Checks))
	}
	for _, check := range report.Checks {
		switch check.Name {
		case "ok":
			if check.Status != StatusHealthy {
				t.Errorf("Check %q status = %v, want healthy", check.Name, check.Status)
			}
		case "broken":
			if check.Status != StatusUnhealthy {
				t.Errorf("Check %q status = %v, want unhealthy", check.Name, check.Status)
			}
			if check.Message != "boom" {
				t.Errorf("Check %q message = %q, want 'boom'", check.Name, check.Message)
			}
		}
	}
}

func TestHealth_CachesWithinTTL(t *testing.T) {
	calls := 0
	c := NewChecker(time.Minute)
	c.Register("counted", func(ctx context.Context) error {
		calls++
		return nil
	})

	c.Health(context.Background())
	c.Health(context.Background())
	if calls != 1 {
		t.Errorf("Check ran %d times within TTL, want 1", calls)
	}
}

func TestReadinessHandler(t *testing.T) {
	c := NewChecker(time.Minute)
	c.Register("broken", func(ctx context.Context) error { return errors.New("boom") })

	rec := httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", rec.Code)
	}
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", rec.Code)
	}
}
