// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package udp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/absmach/mcoap/pkg/codec"
	mcoaperrors "github.com/absmach/mcoap/pkg/errors"
	"github.com/absmach/mcoap/pkg/metrics"
	"github.com/absmach/mcoap/pkg/pool"
	"github.com/absmach/mcoap/pkg/ratelimit"
	"github.com/absmach/mcoap/pkg/router"
)

const (
	// DefaultIdleTimeout is the default idle timeout for tracked peers.
	DefaultIdleTimeout = 30 * time.Second

	// DefaultShutdownTimeout is the default timeout for graceful shutdown.
	DefaultShutdownTimeout = 30 * time.Second

	// MaxDatagramSize is the maximum size of a UDP datagram.
	MaxDatagramSize = 65535

	// DefaultBufferSize is the default buffer size for CoAP datagrams.
	DefaultBufferSize = 1500

	// DefaultWorkerPoolSize is the default number of workers for datagram processing.
	DefaultWorkerPoolSize = 100

	// scratchSize is the size of the per-exchange scratch buffer handed
	// to handlers for response option values.
	scratchSize = 16
)

// Config holds the UDP CoAP server configuration.
type Config struct {
	// Address is the listen address (host:port)
	Address string

	// IdleTimeout is how long a quiet peer stays tracked
	IdleTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for in-flight
	// exchanges during graceful shutdown
	ShutdownTimeout time.Duration

	// MaxPeers is the maximum number of concurrently tracked peers.
	// If 0, no limit is enforced.
	MaxPeers int

	// BufferSize is the size of datagram buffers in bytes.
	// If 0, uses DefaultBufferSize. Must not exceed MaxDatagramSize.
	BufferSize int

	// WorkerPoolSize is the number of goroutines in the datagram
	// processing pool. If 0, uses DefaultWorkerPoolSize.
	WorkerPoolSize int

	// ReadBufferSize sets the socket receive buffer size (SO_RCVBUF).
	// If 0, uses system default.
	ReadBufferSize int

	// WriteBufferSize sets the socket send buffer size (SO_SNDBUF).
	// If 0, uses system default.
	WriteBufferSize int

	// GlobalRate and GlobalBurst configure a server-wide token bucket
	// (datagrams per second / burst). Zero disables global limiting.
	GlobalRate  int64
	GlobalBurst int64

	// SourceRate and SourceBurst configure per-source token buckets.
	// Zero disables per-source limiting.
	SourceRate  int64
	SourceBurst int64

	// Logger for server events
	Logger *slog.Logger

	// Metrics is optional Prometheus instrumentation
	Metrics *metrics.Metrics
}

// job carries one received datagram to the worker pool. The buffer is
// pooled and returned by the worker once the exchange is finished, so
// the zero-copy packet views stay valid for the whole exchange.
type job struct {
	src *net.UDPAddr
	buf *[]byte
	n   int
}

// Server is a UDP CoAP endpoint server: each datagram is parsed, routed
// to an endpoint handler, and answered with a single response datagram.
type Server struct {
	config   Config
	router   *router.Router
	peers    *PeerTracker
	buffers  *pool.BufferPool
	global   *ratelimit.TokenBucket
	source   *ratelimit.SourceLimiter
	jobs     chan job
	workerWg sync.WaitGroup
	conn     atomic.Pointer[net.UDPConn]
}

// New creates a new UDP server dispatching to the given router.
func New(cfg Config, rt *router.Router) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.BufferSize > MaxDatagramSize {
		cfg.BufferSize = MaxDatagramSize
	}
	if cfg.WorkerPoolSize == 0 {
		cfg.WorkerPoolSize = DefaultWorkerPoolSize
	}

	s := &Server{
		config:  cfg,
		router:  rt,
		peers:   NewPeerTracker(cfg.Logger, cfg.MaxPeers),
		buffers: pool.New(cfg.BufferSize),
		// Buffered so the read loop does not block on a busy pool
		jobs: make(chan job, cfg.WorkerPoolSize*2),
	}
	if cfg.GlobalRate > 0 {
		s.global = ratelimit.NewTokenBucket(cfg.GlobalBurst, cfg.GlobalRate)
	}
	if cfg.SourceRate > 0 {
		s.source = ratelimit.NewSourceLimiter(cfg.SourceBurst, cfg.SourceRate, cfg.MaxPeers)
	}
	return s
}

// LocalAddr returns the bound UDP address, or nil before Listen has
// opened the socket.
func (s *Server) LocalAddr() net.Addr {
	conn := s.conn.Load()
	if conn == nil {
		return nil
	}
	return conn.LocalAddr()
}

// Peers returns the peer tracker.
func (s *Server) Peers() *PeerTracker {
	return s.peers
}

// Buffers returns the datagram buffer pool, for stats reporting.
func (s *Server) Buffers() *pool.BufferPool {
	return s.buffers
}

// Listen starts the UDP server and blocks until the context is cancelled.
func (s *Server) Listen(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to resolve address %s: %w", s.config.Address, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}
	defer conn.Close()
	s.conn.Store(conn)

	if s.config.ReadBufferSize > 0 {
		if err := conn.SetReadBuffer(s.config.ReadBufferSize); err != nil {
			s.config.Logger.Warn("failed to set read buffer size",
				slog.String("error", err.Error()))
		}
	}
	if s.config.WriteBufferSize > 0 {
		if err := conn.SetWriteBuffer(s.config.WriteBufferSize); err != nil {
			s.config.Logger.Warn("failed to set write buffer size",
				slog.String("error", err.Error()))
		}
	}

	s.config.Logger.Info("CoAP server started",
		slog.String("address", conn.LocalAddr().String()),
		slog.Int("endpoints", len(s.router.Endpoints())),
		slog.Int("worker_pool_size", s.config.WorkerPoolSize),
		slog.Int("buffer_size", s.config.BufferSize))

	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	s.startWorkerPool(workerCtx, conn)

	cleanupCtx, cleanupCancel := context.WithCancel(ctx)
	defer cleanupCancel()
	go s.peers.Cleanup(cleanupCtx, s.config.IdleTimeout, s.onPeerExpired)

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			bufPtr := s.buffers.Get()
			n, src, err := conn.ReadFromUDP(*bufPtr)
			if err != nil {
				s.buffers.Put(bufPtr)
				select {
				case <-ctx.Done():
					// Expected error during shutdown
					return
				default:
					s.config.Logger.Error("failed to read datagram",
						slog.String("error", err.Error()))
					continue
				}
			}

			select {
			case s.jobs <- job{src: src, buf: bufPtr, n: n}:
			case <-ctx.Done():
				s.buffers.Put(bufPtr)
				return
			default:
				// Worker pool is saturated, drop the datagram
				s.buffers.Put(bufPtr)
				s.countDrop("worker_pool_full")
				s.config.Logger.Warn("worker pool full, dropping datagram",
					slog.String("source", src.String()))
			}
		}
	}()

	<-ctx.Done()
	s.config.Logger.Info("shutdown signal received, closing listener")

	if err := conn.Close(); err != nil {
		s.config.Logger.Error("error closing listener", slog.String("error", err.Error()))
	}
	<-readDone

	close(s.jobs)
	workerCancel()

	workersDone := make(chan struct{})
	go func() {
		s.workerWg.Wait()
		close(workersDone)
	}()
	select {
	case <-workersDone:
		s.config.Logger.Info("all workers stopped")
	case <-time.After(s.config.ShutdownTimeout):
		return mcoaperrors.ErrShutdownTimeout
	}

	s.peers.Clear()
	return nil
}

// startWorkerPool starts the worker goroutines for datagram processing.
func (s *Server) startWorkerPool(ctx context.Context, conn *net.UDPConn) {
	for i := 0; i < s.config.WorkerPoolSize; i++ {
		s.workerWg.Add(1)
		go func(workerID int) {
			defer s.workerWg.Done()
			s.worker(ctx, conn, workerID)
		}(i)
	}
	s.config.Logger.Info("worker pool started", slog.Int("workers", s.config.WorkerPoolSize))
}

// worker drains the job channel, serving one exchange per datagram.
func (s *Server) worker(ctx context.Context, conn *net.UDPConn, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-s.jobs:
			if !ok {
				return
			}
			if err := s.serveDatagram(conn, j.src, (*j.buf)[:j.n]); err != nil {
				s.config.Logger.Debug("exchange failed",
					slog.Int("worker", workerID),
					slog.String("error", err.Error()))
			}
			s.buffers.Put(j.buf)
		}
	}
}

// serveDatagram runs one complete exchange: rate limiting, peer
// tracking, parse, route, build, reply. Each stage failure drops the
// datagram; no partial responses are ever sent.
func (s *Server) serveDatagram(conn *net.UDPConn, src *net.UDPAddr, data []byte) error {
	source := src.String()

	if s.global != nil && !s.global.Allow() {
		s.countRateLimited("global")
		return mcoaperrors.NewExchange("admit", source, ratelimit.ErrRateLimitExceeded)
	}
	if s.source != nil && !s.source.Allow(source) {
		s.countRateLimited("per_source")
		return mcoaperrors.NewExchange("admit", source, ratelimit.ErrRateLimitExceeded)
	}

	peer, isNew, err := s.peers.Touch(src)
	if err != nil {
		s.countDrop("too_many_peers")
		return mcoaperrors.NewExchange("track", source, err)
	}
	if isNew {
		s.config.Logger.Debug("new peer",
			slog.String("peer", peer.ID),
			slog.String("source", source))
		if m := s.config.Metrics; m != nil {
			m.PeersTotal.Inc()
			m.ActivePeers.Set(float64(s.peers.Count()))
		}
	}

	var req codec.Packet
	if err := codec.Parse(&req, data); err != nil {
		s.countParseError(err)
		s.config.Logger.Debug("dropping unparseable datagram",
			slog.String("source", source),
			slog.String("error", err.Error()))
		return mcoaperrors.NewExchange("parse", source, err)
	}
	if m := s.config.Metrics; m != nil {
		m.RequestSize.Observe(float64(len(data)))
		m.MessagesTotal.WithLabelValues(req.Header.Type.String(), codeLabel(req.Header.Code)).Inc()
	}

	var resp codec.Packet
	var scratch [scratchSize]byte
	if err := s.router.HandleRequest(scratch[:], &req, &resp); err != nil {
		if m := s.config.Metrics; m != nil {
			m.HandlerErrors.WithLabelValues(methodLabel(req.Header.Code)).Inc()
		}
		return mcoaperrors.NewExchange("route", source, err)
	}

	out := s.buffers.Get()
	defer s.buffers.Put(out)

	n, err := codec.Build(*out, &resp)
	if err != nil {
		if m := s.config.Metrics; m != nil {
			m.BuildErrors.Inc()
		}
		return mcoaperrors.NewExchange("build", source, err)
	}

	if _, err := conn.WriteToUDP((*out)[:n], src); err != nil {
		s.countDrop("send_failed")
		return mcoaperrors.NewExchange("send", source, err)
	}

	peer.Exchanges.Add(1)
	if m := s.config.Metrics; m != nil {
		m.ResponseSize.Observe(float64(n))
		m.ResponsesTotal.WithLabelValues(classLabel(resp.Header.Code)).Inc()
		outcome := "matched"
		if resp.Header.Code == codec.NotFound {
			outcome = "not_found"
		}
		m.RoutedTotal.WithLabelValues(outcome).Inc()
	}
	s.config.Logger.Debug("exchange completed",
		slog.String("source", source),
		slog.Any("request", &req),
		slog.Any("response", &resp))

	return nil
}

// onPeerExpired releases per-peer state when the tracker evicts a peer.
func (s *Server) onPeerExpired(p *Peer) {
	if s.source != nil {
		s.source.Remove(p.Addr.String())
	}
	if m := s.config.Metrics; m != nil {
		m.ActivePeers.Set(float64(s.peers.Count()))
	}
}

func (s *Server) countDrop(reason string) {
	if m := s.config.Metrics; m != nil {
		m.DroppedDatagrams.WithLabelValues(reason).Inc()
	}
}

func (s *Server) countRateLimited(limiter string) {
	if m := s.config.Metrics; m != nil {
		m.RateLimited.WithLabelValues(limiter).Inc()
	}
}

// countParseError records a parse failure under its error kind.
func (s *Server) countParseError(err error) {
	if m := s.config.Metrics; m == nil {
		return
	}
	s.config.Metrics.ParseErrors.WithLabelValues(parseErrorKind(err)).Inc()
}

// parseErrorKind maps codec sentinel errors to stable metric labels.
func parseErrorKind(err error) string {
	switch {
	case errors.Is(err, codec.ErrHeaderTooShort):
		return "header_too_short"
	case errors.Is(err, codec.ErrVersionMismatch):
		return "version_mismatch"
	case errors.Is(err, codec.ErrTokenTooShort):
		return "token_too_short"
	case errors.Is(err, codec.ErrOptionTooShortForHeader):
		return "option_too_short"
	case errors.Is(err, codec.ErrOptionDeltaInvalid):
		return "option_delta_invalid"
	case errors.Is(err, codec.ErrOptionLenInvalid):
		return "option_len_invalid"
	case errors.Is(err, codec.ErrOptionTooBig):
		return "option_too_big"
	case errors.Is(err, codec.ErrOptionOverrunsPacket):
		return "option_overruns_packet"
	default:
		return "other"
	}
}

// methodLabel names a request method for metric labels.
func methodLabel(c codec.Code) string {
	switch c {
	case codec.GET:
		return "GET"
	case codec.POST:
		return "POST"
	case codec.PUT:
		return "PUT"
	case codec.DELETE:
		return "DELETE"
	default:
		return codeLabel(c)
	}
}

// codeLabel renders a CoAP code as class.detail for metric labels.
func codeLabel(c codec.Code) string {
	return fmt.Sprintf("%d.%02d", c.Class(), c.Detail())
}

// classLabel renders just the response class (2, 4, 5).
func classLabel(c codec.Code) string {
	return fmt.Sprintf("%d", c.Class())
}
