// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package router dispatches parsed CoAP requests to registered endpoint
// handlers.
//
// # Matching
//
// An endpoint matches a request when the method code equals the request
// code, the endpoint path has exactly as many segments as the request has
// URI-Path options, and every segment compares equal byte-for-byte. The
// table is scanned in registration order and the first match wins.
// Requests matching nothing receive a 4.04 Not Found response built with
// the request's token and message ID; routing misses are responses, not
// errors.
//
// # Discovery
//
// The router also renders its table as a CoRE Link Format listing for
// the /.well-known/core resource; see LinkFormat.
//
// # Concurrency
//
// Register all endpoints during startup. Once serving begins the table
// is treated as immutable, so HandleRequest needs no locking.
package router
