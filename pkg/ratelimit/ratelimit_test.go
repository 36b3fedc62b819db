// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import "testing"

func TestTokenBucket_Exhaustion(t *testing.T) {
	tb := NewTokenBucket(3, 1)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Fatalf("Allow() #%d = false, want true", i)
		}
	}
	if tb.Allow() {
		t.Error("Allow() after exhaustion = true, want false")
	}
}

func TestTokenBucket_AllowN(t *testing.T) {
	tb := NewTokenBucket(10, 1)

	if !tb.AllowN(10) {
		t.Fatal("AllowN(10) on a full bucket = false")
	}
	if tb.AllowN(1) {
		t.Error("AllowN(1) on an empty bucket = true")
	}
}

func TestSourceLimiter_IndependentBuckets(t *testing.T) {
	l := NewSourceLimiter(1, 1, 100)

	if !l.Allow("10.0.0.1:5683") {
		t.Fatal("first datagram from source A rejected")
	}
	if l.Allow("10.0.0.1:5683") {
		t.Error("second datagram from source A allowed, bucket should be empty")
	}
	if !l.Allow("10.0.0.2:5683") {
		t.Error("first datagram from source B rejected")
	}
	if l.Sources() != 2 {
		t.Errorf("Sources() = %d, want 2", l.Sources())
	}
}

func TestSourceLimiter_MaxSources(t *testing.T) {
	// Two sources with empty buckets fill the limiter; a third source
	// cannot be tracked and is rejected.
	l := NewSourceLimiter(1, 0, 2)

	l.Allow("a")
	l.Allow("b")
	if l.Allow("c") {
		t.Error("datagram from untrackable source allowed")
	}
}

func TestSourceLimiter_Remove(t *testing.T) {
	l := NewSourceLimiter(1, 1, 10)
	l.Allow("a")
	l.Remove("a")
	if l.Sources() != 0 {
		t.Errorf("Sources() after Remove = %d, want 0", l.Sources())
	}
}
