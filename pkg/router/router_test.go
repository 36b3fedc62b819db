// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/absmach/mcoap/pkg/codec"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// request builds a parsed request packet with the given method, path
// segments, and token.
func request(method codec.Code, path []string, token []byte) codec.Packet {
	var req codec.Packet
	req.Header = codec.Header{
		Ver:       1,
		Type:      codec.Confirmable,
		TokenLen:  uint8(len(token)),
		Code:      method,
		MessageID: 0x1234,
	}
	req.Token = token
	for _, seg := range path {
		req.AddOption(codec.OptURIPath, []byte(seg))
	}
	return req
}

func TestHandleRequest_Match(t *testing.T) {
	called := false
	rt := New(testLogger())
	rt.Register(Endpoint{
		Method:        codec.GET,
		Path:          []string{"test"},
		ContentFormat: codec.TextPlain,
		Handler: func(scratch []byte, req, resp *codec.Packet, msgID uint16) error {
			called = true
			if msgID != req.Header.MessageID {
				t.Errorf("msgID = %d, want %d", msgID, req.Header.MessageID)
			}
			return codec.MakeResponse(resp, scratch, []byte("hello"), req.Token,
				msgID, codec.Content, codec.TextPlain)
		},
	})

	req := request(codec.GET, []string{"test"}, nil)
	var resp codec.Packet
	scratch := make([]byte, 8)

	if err := rt.HandleRequest(scratch, &req, &resp); err != nil {
		t.Fatalf("HandleRequest() error = %v", err)
	}
	if !called {
		t.Fatal("Expected handler to be called")
	}
	if resp.Header.Code != codec.Content {
		t.Errorf("Response code = %d, want Content", resp.Header.Code)
	}
	if string(resp.Payload) != "hello" {
		t.Errorf("Response payload = %q, want 'hello'", resp.Payload)
	}
}

func TestHandleRequest_NotFound(t *testing.T) {
	handlerCalled := false
	rt := New(testLogger())
	rt.Register(Endpoint{
		Method:        codec.GET,
		Path:          []string{"test"},
		ContentFormat: codec.TextPlain,
		Handler: func(scratch []byte, req, resp *codec.Packet, msgID uint16) error {
			handlerCalled = true
			return nil
		},
	})

	tests := []struct {
		name   string
		method codec.Code
		path   []string
	}{
		{"longer path", codec.GET, []string{"test", "x"}},
		{"wrong method", codec.POST, []string{"test"}},
		{"different segment", codec.GET, []string{"tesz"}},
		{"no uri-path", codec.GET, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled = false
			token := []byte{0xAB, 0xCD}
			req := request(tt.method, tt.path, token)

			var resp codec.Packet
			scratch := make([]byte, 8)
			if err := rt.HandleRequest(scratch, &req, &resp); err != nil {
				t.Fatalf("HandleRequest() error = %v", err)
			}
			if handlerCalled {
				t.Error("Handler must not be called on a miss")
			}
			if resp.Header.Code != codec.NotFound {
				t.Errorf("Response code = %d, want NotFound", resp.Header.Code)
			}
			if resp.Header.Type != codec.Acknowledgement {
				t.Errorf("Response type = %s, want ACK", resp.Header.Type)
			}
			if !bytes.Equal(resp.Token, token) {
				t.Errorf("Token not echoed: % 02X", resp.Token)
			}
			if resp.Payload != nil {
				t.Errorf("Expected empty payload, got %q", resp.Payload)
			}
		})
	}
}

func TestHandleRequest_TableOrder(t *testing.T) {
	order := []string{}
	mk := func(name string) Handler {
		return func(scratch []byte, req, resp *codec.Packet, msgID uint16) error {
			order = append(order, name)
			return nil
		}
	}

	rt := New(testLogger())
	rt.Register(Endpoint{Method: codec.GET, Path: []string{"a"}, ContentFormat: codec.TextPlain, Handler: mk("first")})
	rt.Register(Endpoint{Method: codec.GET, Path: []string{"a"}, ContentFormat: codec.TextPlain, Handler: mk("second")})

	req := request(codec.GET, []string{"a"}, nil)
	var resp codec.Packet
	if err := rt.HandleRequest(make([]byte, 8), &req, &resp); err != nil {
		t.Fatalf("HandleRequest() error = %v", err)
	}
	if len(order) != 1 || order[0] != "first" {
		t.Errorf("Expected only the first endpoint to run, got %v", order)
	}
}

func TestHandleRequest_HandlerError(t *testing.T) {
	wantErr := errors.New("handler failed")
	rt := New(testLogger())
	rt.Register(Endpoint{
		Method:        codec.PUT,
		Path:          []string{"light"},
		ContentFormat: codec.TextPlain,
		Handler: func(scratch []byte, req, resp *codec.Packet, msgID uint16) error {
			return wantErr
		},
	})

	req := request(codec.PUT, []string{"light"}, nil)
	var resp codec.Packet
	if err := rt.HandleRequest(make([]byte, 8), &req, &resp); !errors.Is(err, wantErr) {
		t.Errorf("HandleRequest() error = %v, want handler error", err)
	}
}

func TestLinkFormat(t *testing.T) {
	noop := func(scratch []byte, req, resp *codec.Packet, msgID uint16) error { return nil }

	rt := New(testLogger())
	rt.Register(Endpoint{Method: codec.GET, Path: []string{".well-known", "core"}, ContentFormat: codec.ContentFormatNone, Handler: noop})
	rt.Register(Endpoint{Method: codec.GET, Path: []string{"light"}, ContentFormat: codec.TextPlain, Handler: noop})
	rt.Register(Endpoint{Method: codec.GET, Path: []string{"sensors", "temp"}, ContentFormat: codec.JSON, Handler: noop})

	buf := make([]byte, 128)
	n, err := rt.LinkFormat(buf)
	if err != nil {
		t.Fatalf("LinkFormat() error = %v", err)
	}

	want := "</light>;ct=0,</sensors/temp>;ct=50"
	if string(buf[:n]) != want {
		t.Errorf("LinkFormat() = %q, want %q", buf[:n], want)
	}
}

func TestLinkFormat_BufferTooSmall(t *testing.T) {
	noop := func(scratch []byte, req, resp *codec.Packet, msgID uint16) error { return nil }

	rt := New(testLogger())
	rt.Register(Endpoint{Method: codec.GET, Path: []string{"light"}, ContentFormat: codec.TextPlain, Handler: noop})

	for _, size := range []int{0, 3, 8} {
		if _, err := rt.LinkFormat(make([]byte, size)); !errors.Is(err, codec.ErrBufferTooSmall) {
			t.Errorf("LinkFormat(%d bytes) error = %v, want ErrBufferTooSmall", size, err)
		}
	}
}
