// Package gossipd is a stub for the gossip subsystem (spec.md §2: peer
// graph, channel announcements). This core carries no announcement
// protocol; the daemon exists only to occupy the Gossip bus identity. It
// acknowledges Hello and rejects every other request, GetInfo included,
// with NotSupported.
package gossipd

import (
	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/esb"
	"github.com/lnp-node/lnpnode/lnperrors"
	"github.com/lnp-node/lnpnode/log"
	"github.com/lnp-node/lnpnode/request"
)

// Runtime is the Gossip identity's esb.Handler. It acknowledges its own
// Hello and otherwise rejects everything, since channel-announcement
// gossip is out of scope for this core.
type Runtime struct {
	esb.BaseHandler
}

func New() *Runtime { return &Runtime{} }

func (r *Runtime) Handle(senders esb.Senders, bus esb.Bus, source address.ServiceAddress, req request.Request) error {
	if _, ok := req.(*request.Hello); ok {
		log.GossipdLog.Debugf("%s checked in", source)
		return nil
	}
	return lnperrors.NotSupported(bus.String(), "gossipd is a stub")
}
