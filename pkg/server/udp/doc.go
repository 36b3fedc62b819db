// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package udp implements the CoAP/UDP endpoint server.
//
// # Overview
//
// The server reads datagrams off a single UDP socket, hands each one to
// a worker pool, and serves one complete exchange per datagram: parse,
// route, build, reply. Nothing is streamed and nothing is retransmitted;
// one request datagram produces at most one response datagram.
//
// # Datagram Flow
//
//	1. Read loop receives a datagram into a pooled buffer
//	2. Rate limiters admit or drop it (global, then per-source)
//	3. Peer tracker registers or refreshes the source address
//	4. codec.Parse decodes the request in place
//	5. router.HandleRequest fills in the response packet
//	6. codec.Build encodes the response into a second pooled buffer
//	7. The response is written back to the source address
//
// Any stage failure drops the datagram without a reply; malformed
// traffic never crashes the server and never produces a partial
// response.
//
// # Buffer Ownership
//
// The decoded request borrows its token, option, and payload bytes from
// the receive buffer, so the buffer is returned to the pool only after
// the exchange finishes, by the worker that served it. The read loop
// never touches a buffer once it has been handed to a worker.
//
// # Peer Tracking
//
// Since UDP is connectionless, peers are tracked per source IP:Port.
// A peer exists from its first datagram until it goes idle; a
// background goroutine evicts quiet peers every IdleTimeout/2 and
// releases their per-source rate limiter state. MaxPeers bounds the
// tracker; datagrams from new sources beyond the limit are dropped.
//
// # Graceful Shutdown
//
// When the context is cancelled the listener closes, the read loop
// exits, and the job channel is drained by the workers. Listen returns
// ErrShutdownTimeout if the workers do not finish within
// ShutdownTimeout.
//
// # Example
//
//	rt := router.New(logger)
//	rt.Register(router.Endpoint{
//		Method:        codec.GET,
//		Path:          []string{"light"},
//		ContentFormat: codec.TextPlain,
//		Handler:       handleLightGet,
//	})
//
//	server := udp.New(udp.Config{Address: ":5683"}, rt)
//	if err := server.Listen(ctx); err != nil {
//		log.Fatal(err)
//	}
package udp
