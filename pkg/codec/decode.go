// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

import "encoding/binary"

// Parse decodes a raw CoAP message into pkt. The decoded packet borrows
// token, option, and payload bytes from buf; see Packet for lifetime rules.
// On error the contents of pkt are unspecified.
func Parse(pkt *Packet, buf []byte) error {
	if err := parseHeader(&pkt.Header, buf); err != nil {
		return err
	}
	if err := parseToken(pkt, buf); err != nil {
		return err
	}
	return parseOptionsPayload(pkt, buf)
}

// parseHeader decodes the fixed 4-byte header:
// byte 0 is ver(2) | type(2) | tkl(4), byte 1 the code, bytes 2-3 the
// message ID in network order.
func parseHeader(h *Header, buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrHeaderTooShort
	}
	h.Ver = buf[0] >> 6
	h.Type = Type(buf[0] >> 4 & 0x03)
	h.TokenLen = buf[0] & 0x0F
	h.Code = Code(buf[1])
	h.MessageID = binary.BigEndian.Uint16(buf[2:4])
	if h.Ver != Version {
		return ErrVersionMismatch
	}
	return nil
}

// parseToken slices the token immediately following the header.
func parseToken(pkt *Packet, buf []byte) error {
	tkl := int(pkt.Header.TokenLen)
	if tkl > MaxTokenLen || HeaderSize+tkl > len(buf) {
		return ErrTokenTooShort
	}
	if tkl == 0 {
		pkt.Token = nil
		return nil
	}
	pkt.Token = buf[HeaderSize : HeaderSize+tkl]
	return nil
}

// parseOptionsPayload decodes the option sequence and locates the payload
// (RFC 7252 §3.1). Decoding stops at the payload marker, the end of the
// buffer, or once MaxOptions options have been read; remaining options
// past the capacity are dropped without error. A payload marker with no
// bytes after it yields an absent payload, not an error.
func parseOptionsPayload(pkt *Packet, buf []byte) error {
	pos := HeaderSize + int(pkt.Header.TokenLen)
	end := len(buf)
	if pos > end {
		return ErrOptionOverrunsPacket
	}

	var runningDelta uint16
	pkt.NumOpts = 0
	for pkt.NumOpts < MaxOptions && pos < end && buf[pos] != PayloadMarker {
		n, err := parseOption(&pkt.Opts[pkt.NumOpts], &runningDelta, buf[pos:end])
		if err != nil {
			return err
		}
		pos += n
		pkt.NumOpts++
	}

	if pos+1 < end && buf[pos] == PayloadMarker {
		pkt.Payload = buf[pos+1 : end]
	} else {
		pkt.Payload = nil
	}
	return nil
}

// parseOption decodes a single option record from the front of rem.
// The record starts with one byte holding a delta nibble and a length
// nibble; nibble values 13 and 14 pull one or two extension bytes, and 15
// is reserved. Option numbers are cumulative: the resolved delta is added
// to runningDelta, which carries the previous option's absolute number.
// Returns the number of bytes consumed.
func parseOption(opt *Option, runningDelta *uint16, rem []byte) (int, error) {
	if len(rem) < 1 {
		return 0, ErrOptionTooShortForHeader
	}
	deltaNib := rem[0] >> 4
	lenNib := rem[0] & 0x0F
	pos := 1

	delta := uint16(deltaNib)
	switch deltaNib {
	case 13:
		if len(rem) < pos+1 {
			return 0, ErrOptionTooShortForHeader
		}
		delta = uint16(rem[pos]) + 13
		pos++
	case 14:
		if len(rem) < pos+2 {
			return 0, ErrOptionTooShortForHeader
		}
		delta = binary.BigEndian.Uint16(rem[pos:pos+2]) + 269
		pos += 2
	case 15:
		return 0, ErrOptionDeltaInvalid
	}

	length := int(lenNib)
	switch lenNib {
	case 13:
		if len(rem) < pos+1 {
			return 0, ErrOptionTooShortForHeader
		}
		length = int(rem[pos]) + 13
		pos++
	case 14:
		if len(rem) < pos+2 {
			return 0, ErrOptionTooShortForHeader
		}
		length = int(binary.BigEndian.Uint16(rem[pos:pos+2])) + 269
		pos += 2
	case 15:
		return 0, ErrOptionLenInvalid
	}

	if pos+length > len(rem) {
		return 0, ErrOptionTooBig
	}

	opt.Num = *runningDelta + delta
	opt.Value = rem[pos : pos+length]
	*runningDelta += delta

	return pos + length, nil
}
