// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package udp

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/absmach/mcoap/pkg/errors"
	"github.com/google/uuid"
)

// Peer represents a virtual UDP "connection" for a specific client.
// Since UDP is connectionless, we maintain peer state per client
// address; a peer exists from its first datagram until it goes idle.
type Peer struct {
	// ID is a unique identifier for this peer
	ID string

	// Addr is the client's UDP address
	Addr *net.UDPAddr

	// FirstSeen is when the first datagram from this peer arrived
	FirstSeen time.Time

	// Exchanges counts completed request/response exchanges
	Exchanges atomic.Int64

	// lastActivity tracks the last time a datagram was received
	lastActivity time.Time

	// mu protects lastActivity updates
	mu sync.Mutex
}

// UpdateActivity updates the last activity timestamp for this peer.
func (p *Peer) UpdateActivity() {
	p.mu.Lock()
	p.lastActivity = time.Now()
	p.mu.Unlock()
}

// LastActivity returns the last activity timestamp.
func (p *Peer) LastActivity() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastActivity
}

// PeerTracker manages known peers keyed by client address.
type PeerTracker struct {
	peers    map[string]*Peer
	mu       sync.RWMutex
	logger   *slog.Logger
	maxPeers int
}

// NewPeerTracker creates a new peer tracker. If maxPeers is 0, no
// limit is enforced.
func NewPeerTracker(logger *slog.Logger, maxPeers int) *PeerTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &PeerTracker{
		peers:    make(map[string]*Peer),
		logger:   logger,
		maxPeers: maxPeers,
	}
}

// Touch gets the existing peer for the given client address or
// registers a new one. The second return value reports whether the
// peer is new.
func (pt *PeerTracker) Touch(addr *net.UDPAddr) (*Peer, bool, error) {
	key := addr.String()

	// Try the common case first (read lock)
	pt.mu.RLock()
	if p, ok := pt.peers[key]; ok {
		pt.mu.RUnlock()
		p.UpdateActivity()
		return p, false, nil
	}
	pt.mu.RUnlock()

	pt.mu.Lock()
	defer pt.mu.Unlock()

	// Double-check in case another goroutine registered it
	if p, ok := pt.peers[key]; ok {
		p.UpdateActivity()
		return p, false, nil
	}

	if pt.maxPeers > 0 && len(pt.peers) >= pt.maxPeers {
		return nil, false, errors.ErrTooManyPeers
	}

	now := time.Now()
	p := &Peer{
		ID:           uuid.New().String(),
		Addr:         addr,
		FirstSeen:    now,
		lastActivity: now,
	}
	pt.peers[key] = p

	return p, true, nil
}

// Get returns the peer for the given client address.
func (pt *PeerTracker) Get(addr *net.UDPAddr) (*Peer, bool) {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	p, ok := pt.peers[addr.String()]
	return p, ok
}

// Count returns the number of currently tracked peers.
func (pt *PeerTracker) Count() int {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return len(pt.peers)
}

// Remove drops the peer for the given client address.
func (pt *PeerTracker) Remove(addr *net.UDPAddr) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	delete(pt.peers, addr.String())
}

// Clear drops all tracked peers.
func (pt *PeerTracker) Clear() {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.peers = make(map[string]*Peer)
}

// Cleanup evicts idle peers on a timer until the context is cancelled.
// onExpired, if non-nil, is called for each evicted peer. Should be
// called in a background goroutine.
func (pt *PeerTracker) Cleanup(ctx context.Context, timeout time.Duration, onExpired func(*Peer)) {
	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pt.evictIdle(timeout, onExpired)
		}
	}
}

// evictIdle removes peers that have been quiet longer than the timeout.
func (pt *PeerTracker) evictIdle(timeout time.Duration, onExpired func(*Peer)) {
	now := time.Now()
	var toRemove []string

	pt.mu.RLock()
	for key, p := range pt.peers {
		if now.Sub(p.LastActivity()) > timeout {
			toRemove = append(toRemove, key)
		}
	}
	pt.mu.RUnlock()

	if len(toRemove) == 0 {
		return
	}

	pt.mu.Lock()
	var evicted []*Peer
	for _, key := range toRemove {
		if p, ok := pt.peers[key]; ok {
			pt.logger.Debug("peer idle timeout",
				slog.String("peer", p.ID),
				slog.String("client", p.Addr.String()),
				slog.Int64("exchanges", p.Exchanges.Load()))
			delete(pt.peers, key)
			evicted = append(evicted, p)
		}
	}
	pt.mu.Unlock()

	for _, p := range evicted {
		if onExpired != nil {
			onExpired(p)
		}
	}

	pt.logger.Debug("evicted idle peers", slog.Int("count", len(evicted)))
}
