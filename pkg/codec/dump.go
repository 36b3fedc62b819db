// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"
	"io"
	"log/slog"
)

// Dump writes a human-readable rendering of the packet to w, for
// diagnostics only. Write errors are ignored.
func (p *Packet) Dump(w io.Writer) {
	h := p.Header
	fmt.Fprintf(w, "Header: ver=%d type=%s tkl=%d code=%d.%02d id=0x%04X\n",
		h.Ver, h.Type, h.TokenLen, h.Code.Class(), h.Code.Detail(), h.MessageID)
	if len(p.Token) > 0 {
		fmt.Fprintf(w, "Token: % 02X\n", p.Token)
	}
	for _, opt := range p.Options() {
		fmt.Fprintf(w, "Option: %d [% 02X]\n", opt.Num, opt.Value)
	}
	if p.Payload != nil {
		fmt.Fprintf(w, "Payload: % 02X\n", p.Payload)
	}
}

// LogValue renders the packet as structured log attributes.
func (p *Packet) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", p.Header.Type.String()),
		slog.String("code", fmt.Sprintf("%d.%02d", p.Header.Code.Class(), p.Header.Code.Detail())),
		slog.Int("message_id", int(p.Header.MessageID)),
		slog.Int("token_len", int(p.Header.TokenLen)),
		slog.Int("options", p.NumOpts),
		slog.Int("payload_len", len(p.Payload)),
	)
}
