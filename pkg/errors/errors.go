// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package errors provides structured error handling for the server path.
package errors

import (
	"errors"
	"fmt"
)

// Common error types
var (
	// ErrTooManyPeers indicates the peer tracker is at capacity.
	ErrTooManyPeers = errors.New("too many peers")

	// ErrServerClosed indicates the server is shutting down.
	ErrServerClosed = errors.New("server closed")

	// ErrShutdownTimeout indicates graceful shutdown exceeded its deadline.
	ErrShutdownTimeout = errors.New("shutdown timeout exceeded")
)

// ExchangeError wraps a failure in a single request/response exchange
// with transport context.
type ExchangeError struct {
	Op         string // Stage that failed (parse, route, build, send)
	RemoteAddr string // Datagram source address
	Err        error  // Underlying error
}

// Error implements the error interface.
func (e *ExchangeError) Error() string {
	return fmt.Sprintf("coap %s %s: %v", e.Op, e.RemoteAddr, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// NewExchange creates an ExchangeError, or nil when err is nil.
func NewExchange(op, remoteAddr string, err error) error {
	if err == nil {
		return nil
	}
	return &ExchangeError{Op: op, RemoteAddr: remoteAddr, Err: err}
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
