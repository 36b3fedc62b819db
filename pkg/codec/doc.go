// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package codec implements the CoAP (RFC 7252) binary message format:
// parsing a raw datagram into a structured packet, and serializing a
// packet back into a caller-supplied buffer.
//
// # Wire Format
//
// A message is a 4-byte fixed header (version, type, token length, code,
// message ID), a 0-8 byte token, a sequence of delta-encoded options, and
// an optional payload introduced by the 0xFF marker:
//
//	| ver:2 type:2 tkl:4 | code:8 | message id:16 |
//	| token (tkl bytes)                           |
//	| options ...                                 |
//	| 0xFF | payload ...                          |
//
// Each option record starts with one byte whose high nibble encodes the
// option-number delta from the previous option and whose low nibble
// encodes the value length. Nibble values 13 and 14 escape to one or two
// trailing extension bytes; 15 is reserved and rejected.
//
// # Zero Copy
//
// Parse never copies message bytes: the token, option values, and payload
// of a decoded Packet are slices into the input buffer owned by the
// caller. A packet is therefore only valid as long as its source buffer
// is alive and unmodified. Build writes into a caller-supplied buffer and
// reports the bytes used; neither direction allocates.
//
// # Errors
//
// All failures belong to the closed set of sentinel errors declared in
// this package. Parsing and building are fail-fast: the first error
// aborts the operation and nothing partial is committed.
//
// # Limits
//
// A packet holds at most MaxOptions options; options beyond the capacity
// are dropped silently during decode, matching the reference behavior of
// constrained-device CoAP stacks. Tokens are capped at 8 bytes per the
// RFC.
package codec
