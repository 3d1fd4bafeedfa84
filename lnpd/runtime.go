// Package lnpd implements the supervisor daemon of spec.md §4.2: it owns
// the router side of both buses, tracks channels mid-spawn in
// opening_channels, and launches channeld children on demand.
package lnpd

import (
	"encoding/hex"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/esb"
	"github.com/lnp-node/lnpnode/lnperrors"
	"github.com/lnp-node/lnpnode/lnpwp"
	"github.com/lnp-node/lnpnode/log"
	"github.com/lnp-node/lnpnode/request"
)

// pending bundles what Runtime remembers about a channel between the
// moment it decides to spawn a channeld for it and the moment that
// channeld checks in with Connect (spec.md §4.2 "Child launching").
type pending struct {
	chanReq request.ChannelRequest
	peerd   address.ServiceAddress
}

// Runtime is the lnpd esb.Handler: it never runs channel protocol logic
// itself, only spawns and wires channeld children. Grounded on
// original_source/src/lnpd/runtime.rs's Runtime (handle/handle_rpc_msg/
// handle_rpc_ctl/open_channel/launch), adapted to Go's os/exec and this
// core's ChannelRequest/CreateChannel vocabulary.
type Runtime struct {
	esb.BaseHandler

	binDir string
	launch func(binDir, name string, args ...string) (*exec.Cmd, error)

	mu              sync.Mutex
	openingChannels map[address.ServiceAddress]pending
}

// New constructs a Runtime that launches sibling daemon binaries out of
// binDir (typically filepath.Dir(os.Args[0]), the directory the running
// lnpd binary itself lives in).
func New(binDir string) *Runtime {
	return &Runtime{
		binDir:          binDir,
		launch:          launch,
		openingChannels: map[address.ServiceAddress]pending{},
	}
}

// Handle implements esb.Handler, dispatching by bus per spec.md §4.1.
func (r *Runtime) Handle(senders esb.Senders, bus esb.Bus, source address.ServiceAddress, req request.Request) error {
	switch bus {
	case esb.Msg:
		return r.handleMsg(senders, source, req)
	case esb.Ctl:
		return r.handleCtl(senders, source, req)
	default:
		return lnperrors.NotSupported(bus.String(), typeName(req.Type()))
	}
}

// handleMsg sees every PeerMessage that reaches the supervisor on Msg. It
// acts only on an inbound OpenChannel proposing a brand new channel
// (spec.md §4.2 "Inbound channel"); every other LNPWP message is ignored
// here.
func (r *Runtime) handleMsg(senders esb.Senders, source address.ServiceAddress, req request.Request) error {
	pm, ok := req.(*request.PeerMessage)
	if !ok {
		return lnperrors.NotSupported(esb.Msg.String(), typeName(req.Type()))
	}
	open, ok := pm.Msg.(*lnpwp.OpenChannel)
	if !ok {
		return nil
	}

	log.LnpdLog.Infof("creating channel by peer request from %s", source)
	chanReq := request.ChannelRequest{
		TempChannelID:   open.TemporaryChannelID,
		FundingSatoshis: open.FundingSatoshis,
		PushMsat:        open.PushMsat,
		ToSelfDelay:     open.ToSelfDelay,
		Originator:      false,
	}
	return r.openChannel(chanReq, source)
}

// handleCtl serves operator-issued CreateChannel requests and the Connect
// check-in every freshly spawned channeld sends once it is up.
func (r *Runtime) handleCtl(senders esb.Senders, source address.ServiceAddress, req request.Request) error {
	switch cr := req.(type) {
	case *request.Hello:
		log.LnpdLog.Debugf("%s checked in", source)
		return nil

	case *request.CreateChannel:
		log.LnpdLog.Infof("creating channel by request from %s", source)
		return r.openChannel(cr.ChannelReq, cr.Peerd)

	case *request.Connect:
		return r.onConnect(senders, source)

	default:
		return lnperrors.NotSupported(esb.Ctl.String(), typeName(req.Type()))
	}
}

// openChannel launches a channeld for chanReq.TempChannelID (if one isn't
// already pending) and remembers chanReq/peerd under the channel's address
// until the new channeld checks in with Connect.
func (r *Runtime) openChannel(chanReq request.ChannelRequest, peerd address.ServiceAddress) error {
	addr := address.Channel(chanReq.TempChannelID)

	r.mu.Lock()
	if _, exists := r.openingChannels[addr]; exists {
		r.mu.Unlock()
		log.LnpdLog.Infof("channeld for %s is already pending, not launching another", addr)
		return nil
	}
	r.openingChannels[addr] = pending{chanReq: chanReq, peerd: peerd}
	r.mu.Unlock()

	log.LnpdLog.Infof("instantiating channeld for %s", addr)
	child, err := r.launch(r.binDir, "channeld", hex.EncodeToString(chanReq.TempChannelID[:]))
	if err != nil {
		log.LnpdLog.Errorf("error launching channeld: %v", err)
		return lnperrors.Other("failed to launch channeld: " + err.Error())
	}
	log.LnpdLog.Infof("new instance of channeld launched with pid %d", child.Process.Pid)
	return nil
}

// onConnect answers a channeld's Connect check-in (spec.md §4.2) by
// handing back the ChannelRequest/connectiond pair openChannel stashed for
// it, as a CreateChannel addressed to source — the same payload shape a
// channeld also accepts directly from the operator.
func (r *Runtime) onConnect(senders esb.Senders, source address.ServiceAddress) error {
	r.mu.Lock()
	p, ok := r.openingChannels[source]
	if ok {
		delete(r.openingChannels, source)
	}
	r.mu.Unlock()

	if !ok {
		return lnperrors.Other("unknown channel: " + source.String())
	}

	log.LnpdLog.Infof("requesting channeld %s to open a channel", source)
	return senders.SendTo(esb.Ctl, address.Supervisor, source, &request.CreateChannel{
		ChannelReq: p.chanReq,
		Peerd:      p.peerd,
	})
}

// launch starts a sibling daemon binary directly via exec.Command, with no
// shell wrapper — unlike original_source/src/lnpd/runtime.rs's launch(),
// which shells out through `sh -C`. A supervisor spawning untrusted-length
// channel ids as argv has no reason to hand them to a shell at all, so this
// port drops the wrapper rather than carrying it over (resolves spec.md
// §9 open question (d)).
func launch(binDir, name string, args ...string) (*exec.Cmd, error) {
	binPath := filepath.Join(binDir, name)
	cmd := exec.Command(binPath, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func typeName(t request.Type) string {
	switch t {
	case request.TypeHello:
		return "Hello"
	case request.TypePeerMessage:
		return "PeerMessage"
	case request.TypeCreateChannel:
		return "CreateChannel"
	case request.TypeConnect:
		return "Connect"
	default:
		return "Unknown"
	}
}
