// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

import "encoding/binary"

// writer is a bounds-checked cursor over a caller-supplied buffer.
// Every advance is preceded by a capacity check so a too-small buffer
// fails with ErrBufferTooSmall instead of writing out of bounds.
type writer struct {
	buf []byte
	pos int
}

func (w *writer) writeByte(b byte) error {
	if w.pos >= len(w.buf) {
		return ErrBufferTooSmall
	}
	w.buf[w.pos] = b
	w.pos++
	return nil
}

func (w *writer) write(p []byte) error {
	if w.pos+len(p) > len(w.buf) {
		return ErrBufferTooSmall
	}
	copy(w.buf[w.pos:], p)
	w.pos += len(p)
	return nil
}

// Build encodes pkt into dst and returns the number of bytes written.
// The options must already be in ascending option-number order; Build
// re-derives the delta encoding from the running previous option number.
// On error the contents of dst are unspecified and must not be sent.
func Build(dst []byte, pkt *Packet) (int, error) {
	tkl := int(pkt.Header.TokenLen)
	if len(dst) < HeaderSize+tkl {
		return 0, ErrBufferTooSmall
	}
	if tkl > 0 && tkl != len(pkt.Token) {
		return 0, ErrUnsupported
	}

	w := writer{buf: dst}
	if err := w.writeByte(pkt.Header.Ver<<6 | uint8(pkt.Header.Type)<<4 | pkt.Header.TokenLen); err != nil {
		return 0, err
	}
	if err := w.writeByte(byte(pkt.Header.Code)); err != nil {
		return 0, err
	}
	var msgID [2]byte
	binary.BigEndian.PutUint16(msgID[:], pkt.Header.MessageID)
	if err := w.write(msgID[:]); err != nil {
		return 0, err
	}
	if tkl > 0 {
		if err := w.write(pkt.Token); err != nil {
			return 0, err
		}
	}

	// Options, RFC 7252 §3.1: each option encodes the delta from the
	// previous option's absolute number.
	var runningDelta uint16
	for _, opt := range pkt.Options() {
		delta := uint32(opt.Num - runningDelta)
		length := uint32(len(opt.Value))

		deltaNib := optionNibble(delta)
		lenNib := optionNibble(length)

		if err := w.writeByte(deltaNib<<4 | lenNib); err != nil {
			return 0, err
		}
		if err := writeExtended(&w, deltaNib, delta); err != nil {
			return 0, err
		}
		if err := writeExtended(&w, lenNib, length); err != nil {
			return 0, err
		}
		if err := w.write(opt.Value); err != nil {
			return 0, err
		}
		runningDelta = opt.Num
	}

	if len(pkt.Payload) > 0 {
		if err := w.writeByte(PayloadMarker); err != nil {
			return 0, err
		}
		if err := w.write(pkt.Payload); err != nil {
			return 0, err
		}
	}

	return w.pos, nil
}

// optionNibble classifies a delta or length value into its 4-bit code:
// literal below 13, one extension byte up to 268, two up to 65804.
// Larger values are not representable; passing one is a caller defect.
func optionNibble(value uint32) uint8 {
	switch {
	case value < 13:
		return uint8(value)
	case value <= 0xFF+13:
		return 13
	case value <= 0xFFFF+269:
		return 14
	}
	return 0
}

// writeExtended emits the extension bytes for nibble codes 13 and 14.
func writeExtended(w *writer, nibble uint8, value uint32) error {
	switch nibble {
	case 13:
		return w.writeByte(uint8(value - 13))
	case 14:
		var ext [2]byte
		binary.BigEndian.PutUint16(ext[:], uint16(value-269))
		return w.write(ext[:])
	}
	return nil
}

// MakeResponse populates resp as an acknowledgement to a request.
// The request token is echoed when non-nil, the content format is written
// big-endian into the first two bytes of scratch and attached as the
// single Content-Format option, and payload is assigned verbatim.
// scratch must stay valid and unmodified for as long as resp is in use.
func MakeResponse(resp *Packet, scratch, payload, token []byte, msgID uint16, code Code, cf ContentFormat) error {
	resp.Header.Ver = Version
	resp.Header.Type = Acknowledgement
	resp.Header.TokenLen = 0
	resp.Header.Code = code
	resp.Header.MessageID = msgID
	resp.Token = nil
	if token != nil {
		resp.Header.TokenLen = uint8(len(token))
		resp.Token = token
	}

	if len(scratch) < 2 {
		return ErrBufferTooSmall
	}
	binary.BigEndian.PutUint16(scratch[:2], uint16(cf))
	resp.Opts[0] = Option{Num: OptContentFormat, Value: scratch[:2]}
	resp.NumOpts = 1

	resp.Payload = payload
	return nil
}
