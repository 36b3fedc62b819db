// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"strconv"

	"github.com/absmach/mcoap/pkg/codec"
)

// LinkFormat serializes the endpoint table as a CoRE Link Format
// (RFC 6690) resource listing into buf and returns the bytes used:
//
//	</light>;ct=0,</sensors/temp>;ct=50
//
// Endpoints with ContentFormatNone are skipped. Returns
// codec.ErrBufferTooSmall when buf cannot hold the listing.
func (r *Router) LinkFormat(buf []byte) (int, error) {
	if len(buf) < 4 {
		return 0, codec.ErrBufferTooSmall
	}

	pos := 0
	for i := range r.endpoints {
		ep := &r.endpoints[i]
		if ep.ContentFormat == codec.ContentFormatNone {
			continue
		}

		entry := ""
		if pos > 0 {
			entry = ","
		}
		entry += "<"
		for _, seg := range ep.Path {
			entry += "/" + seg
		}
		entry += ">;ct=" + strconv.Itoa(int(ep.ContentFormat))

		if pos+len(entry) > len(buf) {
			return 0, codec.ErrBufferTooSmall
		}
		pos += copy(buf[pos:], entry)
	}

	return pos, nil
}
