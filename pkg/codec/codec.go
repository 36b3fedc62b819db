// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

const (
	// Version is the only CoAP protocol version this codec accepts (RFC 7252).
	Version = 1

	// HeaderSize is the size of the fixed CoAP message header in bytes.
	HeaderSize = 4

	// MaxTokenLen is the maximum token length allowed by RFC 7252.
	MaxTokenLen = 8

	// MaxOptions is the maximum number of options a Packet can hold.
	// Options beyond this limit are silently ignored during decoding.
	MaxOptions = 16

	// PayloadMarker separates the option sequence from the payload.
	PayloadMarker = 0xFF
)

// Type is the CoAP message type from the fixed header.
type Type uint8

const (
	Confirmable Type = iota
	NonConfirmable
	Acknowledgement
	Reset
)

// String returns a string representation of the message type.
func (t Type) String() string {
	switch t {
	case Confirmable:
		return "CON"
	case NonConfirmable:
		return "NON"
	case Acknowledgement:
		return "ACK"
	case Reset:
		return "RST"
	default:
		return "unknown"
	}
}

// Code is a CoAP method or response code. The upper three bits hold the
// class and the lower five bits the detail, so 0x44 reads as 2.04.
type Code uint8

// Request method codes.
const (
	GET    Code = 1
	POST   Code = 2
	PUT    Code = 3
	DELETE Code = 4
)

// Response codes, class.detail packed as class<<5 | detail.
const (
	Created Code = 2<<5 | 1
	Deleted Code = 2<<5 | 2
	Valid   Code = 2<<5 | 3
	Changed Code = 2<<5 | 4
	Content Code = 2<<5 | 5

	BadRequest       Code = 4 << 5
	Unauthorized     Code = 4<<5 | 1
	BadOption        Code = 4<<5 | 2
	Forbidden        Code = 4<<5 | 3
	NotFound         Code = 4<<5 | 4
	MethodNotAllowed Code = 4<<5 | 5

	InternalServerError Code = 5 << 5
	NotImplemented      Code = 5<<5 | 1
	ServiceUnavailable  Code = 5<<5 | 3
)

// Class returns the code class (0 for requests, 2/4/5 for responses).
func (c Code) Class() uint8 {
	return uint8(c) >> 5
}

// Detail returns the code detail.
func (c Code) Detail() uint8 {
	return uint8(c) & 0x1F
}

// Option numbers from the RFC 7252 registry.
const (
	OptIfMatch       uint16 = 1
	OptURIHost       uint16 = 3
	OptETag          uint16 = 4
	OptIfNoneMatch   uint16 = 5
	OptObserve       uint16 = 6
	OptURIPort       uint16 = 7
	OptLocationPath  uint16 = 8
	OptURIPath       uint16 = 11
	OptContentFormat uint16 = 12
	OptMaxAge        uint16 = 14
	OptURIQuery      uint16 = 15
	OptAccept        uint16 = 17
	OptLocationQuery uint16 = 20
	OptProxyURI      uint16 = 35
	OptProxyScheme   uint16 = 39
)

// ContentFormat identifies a payload media type (Content-Format registry).
type ContentFormat uint16

const (
	TextPlain   ContentFormat = 0
	LinkFormat  ContentFormat = 40
	XML         ContentFormat = 41
	OctetStream ContentFormat = 42
	EXI         ContentFormat = 47
	JSON        ContentFormat = 50

	// ContentFormatNone marks the absence of a meaningful content format.
	// Responses built with it still carry a Content-Format option whose
	// value is 0xFFFF, and the discovery listing skips such endpoints.
	ContentFormatNone ContentFormat = 0xFFFF
)

// Header is the fixed 4-byte CoAP message header.
type Header struct {
	// Ver is the protocol version (2 bits, must be 1)
	Ver uint8

	// Type is the message type (2 bits)
	Type Type

	// TokenLen is the declared token length (4 bits, 0-8)
	TokenLen uint8

	// Code is the method or response code
	Code Code

	// MessageID is the 16-bit message identifier (big-endian on the wire)
	MessageID uint16
}

// Option is a single decoded CoAP option. Value borrows from the buffer
// the option was decoded from and stays valid only as long as that buffer.
type Option struct {
	Num   uint16
	Value []byte
}

// Packet is a structured CoAP message. Token, option values, and Payload
// are views into the buffer the packet was parsed from; the packet must
// not outlive that buffer, and the buffer must not be modified while the
// packet is in use.
type Packet struct {
	Header  Header
	Token   []byte
	Opts    [MaxOptions]Option
	NumOpts int

	// Payload is nil when the message has no payload. A marker byte at
	// the very end of the buffer also yields a nil payload.
	Payload []byte
}

// Options returns the decoded options in wire order.
func (p *Packet) Options() []Option {
	return p.Opts[:p.NumOpts]
}

// AddOption appends an option to the packet. It reports false when the
// packet already holds MaxOptions options. Callers must add options in
// ascending option-number order; the encoder relies on it.
func (p *Packet) AddOption(num uint16, value []byte) bool {
	if p.NumOpts >= MaxOptions {
		return false
	}
	p.Opts[p.NumOpts] = Option{Num: num, Value: value}
	p.NumOpts++
	return true
}
