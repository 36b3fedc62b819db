// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

import "errors"

// Decoding and encoding failures form a closed set. Parse and Build are
// fail-fast: the first error aborts the operation, and the contents of
// the destination packet or buffer are unspecified afterwards.
var (
	// ErrHeaderTooShort indicates the buffer cannot hold the fixed header.
	ErrHeaderTooShort = errors.New("header too short")

	// ErrVersionMismatch indicates a version field other than 1.
	ErrVersionMismatch = errors.New("version is not 1")

	// ErrTokenTooShort indicates a declared token length over 8 or a
	// buffer too short to hold the declared token.
	ErrTokenTooShort = errors.New("token too short")

	// ErrOptionTooShortForHeader indicates a truncated option header or
	// missing extension bytes.
	ErrOptionTooShortForHeader = errors.New("option too short for header")

	// ErrOptionDeltaInvalid indicates the reserved delta nibble 15.
	ErrOptionDeltaInvalid = errors.New("option delta invalid")

	// ErrOptionLenInvalid indicates the reserved length nibble 15.
	ErrOptionLenInvalid = errors.New("option length invalid")

	// ErrOptionTooBig indicates an option value running past the buffer.
	ErrOptionTooBig = errors.New("option too big")

	// ErrOptionOverrunsPacket indicates the option section starts beyond
	// the end of the buffer.
	ErrOptionOverrunsPacket = errors.New("option overruns packet")

	// ErrBufferTooSmall indicates a destination buffer too small for the
	// encoded message or response scratch data.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrUnsupported indicates an internally inconsistent packet, such as
	// a declared token length that does not match the token slice.
	ErrUnsupported = errors.New("unsupported packet")
)
