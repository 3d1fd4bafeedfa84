// Package routed is a stub for the path-computation subsystem (spec.md
// §2). Multi-hop payment routing is out of scope for this core; the
// daemon exists only to occupy the Router bus identity.
package routed

import (
	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/esb"
	"github.com/lnp-node/lnpnode/lnperrors"
	"github.com/lnp-node/lnpnode/log"
	"github.com/lnp-node/lnpnode/request"
)

// Runtime is the Router identity's esb.Handler. It acknowledges its own
// Hello and otherwise rejects everything, since path computation is out
// of scope for this core.
type Runtime struct {
	esb.BaseHandler
}

func New() *Runtime { return &Runtime{} }

func (r *Runtime) Handle(senders esb.Senders, bus esb.Bus, source address.ServiceAddress, req request.Request) error {
	if _, ok := req.(*request.Hello); ok {
		log.RoutedLog.Debugf("%s checked in", source)
		return nil
	}
	return lnperrors.NotSupported(bus.String(), "routed is a stub")
}
