// Package esb implements the enterprise service bus described in spec.md
// §4.1: two logical buses (Msg, Ctl) plus a reserved Bridge pseudo-bus, a
// dealer/router Controller contract, and a non-blocking, queue-backed
// Senders.send_to. The queueing discipline is internal/queue (adapted from
// the teacher's queue package); the controller/handler split and the
// bootstrap Hello handshake are grounded on
// original_source/src/channeld/runtime.rs's esb::Controller::with(...)
// construction and original_source/src/lnpd/runtime.rs's Supervisor loop,
// and on the external contract shape of
// breez-lightninglib/lnpeer/peer.go's Peer interface (SendMessage,
// QuitSignal).
package esb

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/internal/queue"
	"github.com/lnp-node/lnpnode/lnperrors"
	"github.com/lnp-node/lnpnode/log"
	"github.com/lnp-node/lnpnode/request"
)

// bootstrapDelay is the bounded interval a daemon waits before its first
// send, to let the underlying transport finish binding (spec.md §4.1
// "Bootstrap").
const bootstrapDelay = time.Second

// Controller runs a daemon's event loop: for every inbound frame it decodes
// source/destination and the typed Request, then invokes
// handler.Handle(senders, bus, source, request). A single Controller is
// either the router (bound listeners, one per bus, accepting any number of
// dealer connections — the role Supervisor plays) or a dealer (one
// outbound connection per bus, to the router). Every inbound frame goes to
// the receiving Controller's own handler, whatever its destination; the
// router does not relay frames from one dealer to another.
type Controller struct {
	identity address.ServiceAddress
	router   address.ServiceAddress
	isRouter bool
	endpoints map[Bus]string
	handler   Handler

	mu         sync.Mutex
	routes     map[Bus]map[string]net.Conn // router only: AsBytes key -> conn
	dealerConn map[Bus]net.Conn            // dealer only: one conn per bus

	queues    map[Bus]*queue.Queue
	listeners []net.Listener

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewRouter constructs a Controller playing the router role: it binds one
// listener per entry in endpoints and remembers, per bus, the connection
// of each dealer keyed by the source address it identifies itself with.
// Those routes only carry the router's own outgoing frames; frames a
// dealer sends are handled by the router's handler and are not forwarded
// to other dealers.
func NewRouter(identity address.ServiceAddress, endpoints map[Bus]string, handler Handler) *Controller {
	c := newController(identity, endpoints, handler)
	c.isRouter = true
	c.router = identity
	c.routes = map[Bus]map[string]net.Conn{}
	for bus := range endpoints {
		c.routes[bus] = map[string]net.Conn{}
	}
	return c
}

// NewDealer constructs a Controller playing the dealer role: it dials out
// to the router's endpoints and addresses every frame it sends to router
// unless overridden per-call.
func NewDealer(identity address.ServiceAddress, endpoints map[Bus]string,
	router address.ServiceAddress, handler Handler) *Controller {

	c := newController(identity, endpoints, handler)
	c.router = router
	c.dealerConn = map[Bus]net.Conn{}
	return c
}

func newController(identity address.ServiceAddress, endpoints map[Bus]string, handler Handler) *Controller {
	c := &Controller{
		identity:  identity,
		endpoints: endpoints,
		handler:   handler,
		queues:    map[Bus]*queue.Queue{},
		quit:      make(chan struct{}),
	}
	for bus := range endpoints {
		q := queue.New(16)
		q.Start()
		c.queues[bus] = q
	}
	return c
}

// Run binds or dials the configured endpoints and starts the read and
// write loops. It returns once every endpoint has been bound/dialed
// successfully; the loops themselves run in background goroutines.
func (c *Controller) Run() error {
	if c.isRouter {
		for bus, endpoint := range c.endpoints {
			ln, err := net.Listen("tcp", endpoint)
			if err != nil {
				return lnperrors.Transport("esb: listen on %s (%s): %v", bus, endpoint, err)
			}
			c.listeners = append(c.listeners, ln)
			c.wg.Add(1)
			go c.acceptLoop(bus, ln)
		}
	} else {
		for bus, endpoint := range c.endpoints {
			conn, err := net.Dial("tcp", endpoint)
			if err != nil {
				return lnperrors.Transport("esb: dial %s (%s): %v", bus, endpoint, err)
			}
			c.dealerConn[bus] = conn
			c.wg.Add(1)
			go c.readLoop(bus, conn)
		}
	}

	for bus := range c.queues {
		go c.writeLoop(bus)
	}
	return nil
}

// Bootstrap waits bootstrapDelay and then, for a dealer, sends the initial
// Hello on Ctl to the router (spec.md §4.1 "Bootstrap"). It is a no-op for
// the router itself, which only ever receives Hello.
func (c *Controller) Bootstrap() error {
	time.Sleep(bootstrapDelay)
	if c.isRouter {
		return nil
	}
	return c.SendTo(Ctl, c.identity, c.router, &request.Hello{})
}

// Shutdown stops every read/write loop and closes all listeners and
// connections.
func (c *Controller) Shutdown() {
	close(c.quit)
	for _, ln := range c.listeners {
		ln.Close()
	}
	for _, conn := range c.dealerConn {
		conn.Close()
	}
	for _, q := range c.queues {
		q.Stop()
	}
	c.wg.Wait()
}

// SendTo implements Senders: it hands the frame to the bus's unbounded send
// queue and returns without waiting for the write to the socket. Once the
// Controller has been shut down it fails with a Transport error instead.
// Bridge is reserved and always fails with NotSupported, per spec.md §4.1.
func (c *Controller) SendTo(bus Bus, source, dest address.ServiceAddress, req request.Request) error {
	if bus == Bridge {
		return lnperrors.NotSupported(bus.String(), typeName(req.Type()))
	}
	q, ok := c.queues[bus]
	if !ok {
		return lnperrors.Transport("esb: no queue configured for bus %s", bus)
	}

	frame := Frame{Source: source, Dest: dest, Bus: bus, Payload: req}
	select {
	case q.ChanIn() <- frame:
		return nil
	case <-c.quit:
		return lnperrors.Transport("esb: controller shut down, dropping frame on bus %s", bus)
	}
}

func (c *Controller) acceptLoop(bus Bus, ln net.Listener) {
	defer c.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-c.quit:
				return
			default:
				log.EsbLog.Errorf("esb: accept on %s: %v", bus, err)
				return
			}
		}
		c.wg.Add(1)
		go c.readLoop(bus, conn)
	}
}

func (c *Controller) readLoop(bus Bus, conn net.Conn) {
	defer c.wg.Done()
	for {
		frame, err := decodeFrame(conn)
		if err != nil {
			if err != io.EOF {
				log.EsbLog.Errorf("esb: decode frame on %s: %v", bus, err)
			}
			return
		}

		if c.isRouter {
			c.mu.Lock()
			c.routes[bus][string(frame.Source.AsBytes())] = conn
			c.mu.Unlock()
		}

		c.dispatch(bus, frame)
	}
}

func (c *Controller) writeLoop(bus Bus) {
	q := c.queues[bus]
	for {
		select {
		case item, ok := <-q.ChanOut():
			if !ok {
				return
			}
			frame := item.(Frame)
			conn := c.connFor(bus, frame.Dest)
			if conn == nil {
				log.EsbLog.Warnf("esb: no route to %s on %s", frame.Dest, bus)
				continue
			}
			if err := encodeFrame(conn, frame); err != nil {
				log.EsbLog.Errorf("esb: write frame on %s: %v", bus, err)
			}
		case <-c.quit:
			return
		}
	}
}

func (c *Controller) connFor(bus Bus, dest address.ServiceAddress) net.Conn {
	if c.isRouter {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.routes[bus][string(dest.AsBytes())]
	}
	return c.dealerConn[bus]
}

// dispatch invokes the handler and enforces the error policy of spec.md
// §4.1: handler errors are logged and swallowed, never allowed to unwind
// or panic the event loop.
func (c *Controller) dispatch(bus Bus, frame Frame) {
	err := c.handler.Handle(c, bus, frame.Source, frame.Payload)
	if err == nil {
		return
	}
	log.EsbLog.Errorf("esb: handler error on %s from %s: %v", bus, frame.Source, err)
	if eh, ok := c.handler.(ErrHandler); ok {
		_ = eh.HandleErr(err)
	}
}

func typeName(t request.Type) string {
	switch t {
	case request.TypeHello:
		return "Hello"
	case request.TypePeerMessage:
		return "PeerMessage"
	case request.TypeOpenChannelWith:
		return "OpenChannelWith"
	case request.TypeAcceptChannelFrom:
		return "AcceptChannelFrom"
	case request.TypeFundChannel:
		return "FundChannel"
	case request.TypeTransfer:
		return "Transfer"
	case request.TypeGetInfo:
		return "GetInfo"
	case request.TypeChannelInfo:
		return "ChannelInfo"
	case request.TypeChannelFunding:
		return "ChannelFunding"
	case request.TypeUpdateChannelID:
		return "UpdateChannelId"
	case request.TypeConnect:
		return "Connect"
	case request.TypeCreateChannel:
		return "CreateChannel"
	case request.TypeReportProgress:
		return "ReportProgress"
	case request.TypeReportSuccess:
		return "ReportSuccess"
	case request.TypeReportFailure:
		return "ReportFailure"
	case request.TypeNegotiationTimeout:
		return "NegotiationTimeout"
	default:
		return "Unknown"
	}
}
