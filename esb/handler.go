package esb

import (
	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/request"
)

// Senders is the outbound half of the Controller contract (spec.md §4.1):
// handlers call SendTo synchronously to emit a response or forward a
// message. Sends are fire-and-forget; there is no correlation id or
// response channel at this layer.
type Senders interface {
	SendTo(bus Bus, source, dest address.ServiceAddress, req request.Request) error
}

// Handler is the request-dispatch contract every daemon supplies to its
// Controller. Handle runs to completion before the next frame is dequeued
// from either bus — it must never block on a peer or operator response
// (spec.md §5 "Scheduling").
type Handler interface {
	Handle(senders Senders, bus Bus, source address.ServiceAddress, req request.Request) error
}

// ErrHandler is the optional error path. After logging, Controller.dispatch
// passes every error returned by Handle to HandleErr when the Handler
// implements it; transport failures (decode, write, accept) are only logged
// and never reach it. BaseHandler supplies a no-op (spec.md §4.1 "Error
// policy").
type ErrHandler interface {
	HandleErr(err error) error
}

// BaseHandler can be embedded by a Handler that has nothing to do in
// handle_err, matching the spec's stated default.
type BaseHandler struct{}

// HandleErr is a no-op, per spec.md §4.1.
func (BaseHandler) HandleErr(err error) error { return nil }
