// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"bytes"
	"log/slog"

	"github.com/absmach/mcoap/pkg/codec"
)

// Handler processes a matched request. It populates resp, typically via
// codec.MakeResponse, using scratch for option values that must outlive
// the call. msgID is the request's message ID to echo in the response.
type Handler func(scratch []byte, req, resp *codec.Packet, msgID uint16) error

// Endpoint binds a method and URI path to a handler. ContentFormat
// describes the representation the handler serves; endpoints with
// ContentFormatNone are omitted from the discovery listing.
type Endpoint struct {
	Method        codec.Code
	Path          []string
	ContentFormat codec.ContentFormat
	Handler       Handler
}

// Router dispatches parsed requests to a static endpoint table.
// Register all endpoints during setup; the table is read-only afterwards
// and safe for concurrent HandleRequest calls.
type Router struct {
	logger    *slog.Logger
	endpoints []Endpoint
}

// New creates an empty router.
func New(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{logger: logger}
}

// Register adds an endpoint to the table. Not safe to call concurrently
// with HandleRequest.
func (r *Router) Register(ep Endpoint) {
	r.endpoints = append(r.endpoints, ep)
}

// Endpoints returns the registered endpoint table.
func (r *Router) Endpoints() []Endpoint {
	return r.endpoints
}

// HandleRequest routes req to the first endpoint whose method and URI
// path match, in table order, and returns the handler's result. Requests
// that match no endpoint - including requests without URI-Path options -
// get a 4.04 Not Found response with the request token echoed; a missing
// route is never an error of the router itself.
func (r *Router) HandleRequest(scratch []byte, req, resp *codec.Packet) error {
	run := req.FindOptions(codec.OptURIPath)

	if len(run) > 0 {
		for i := range r.endpoints {
			ep := &r.endpoints[i]
			if ep.Handler == nil || ep.Method != req.Header.Code || len(ep.Path) != len(run) {
				continue
			}
			if !pathMatches(ep.Path, run) {
				continue
			}
			r.logger.Debug("request matched",
				slog.String("path", joinPath(ep.Path)),
				slog.Int("method", int(ep.Method)))
			return ep.Handler(scratch, req, resp, req.Header.MessageID)
		}
	}

	r.logger.Debug("no endpoint matched",
		slog.Int("method", int(req.Header.Code)),
		slog.Int("segments", len(run)))
	return codec.MakeResponse(resp, scratch, nil, req.Token, req.Header.MessageID,
		codec.NotFound, codec.ContentFormatNone)
}

// pathMatches compares endpoint path segments byte-for-byte against a
// URI-Path option run of the same length.
func pathMatches(path []string, run []codec.Option) bool {
	for i, seg := range path {
		if !bytes.Equal([]byte(seg), run[i].Value) {
			return false
		}
	}
	return true
}

func joinPath(path []string) string {
	out := ""
	for _, seg := range path {
		out += "/" + seg
	}
	return out
}
