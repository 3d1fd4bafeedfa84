// Package connectiond implements the bus-facing half of the connection
// daemon's contract (spec.md §4.4): bridging LNPWP frames between the Msg
// bus and one remote peer's raw TCP link. Noise/BOLT-8 transport
// encryption is an explicit Non-goal, so the peer link here is framed
// LNPWP in the clear — the same simplification the spec's contract
// already bakes in by only describing the bus-facing half.
package connectiond

import (
	"encoding/binary"
	"io"
	"net"
	"sync"

	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/esb"
	"github.com/lnp-node/lnpnode/lnperrors"
	"github.com/lnp-node/lnpnode/lnpwp"
	"github.com/lnp-node/lnpnode/log"
	"github.com/lnp-node/lnpnode/request"
)

// Runtime bridges exactly one remote node's peer link onto the bus, per
// spec.md §4.4 ("Identity on the bus is Peer(node-endpoint-string)").
type Runtime struct {
	esb.BaseHandler

	identity address.ServiceAddress

	mu   sync.Mutex
	conn net.Conn
}

// New constructs a Runtime addressed as address.Peer(endpoint). conn is
// the already-established TCP link to that node (dialed outbound or
// accepted inbound — the contract doesn't distinguish).
func New(endpoint string, conn net.Conn) *Runtime {
	return &Runtime{identity: address.Peer(endpoint), conn: conn}
}

// Identity returns this connectiond's bus address.
func (r *Runtime) Identity() address.ServiceAddress { return r.identity }

// ReadLoop decodes LNPWP frames off the peer link until the link closes
// (Close closes it), republishing each as a PeerMessage on Msg to
// whichever channeld owns it (routed by the message's channel id or
// temporary channel id, per spec.md §4.4). It blocks until then;
// cmd/connectiond runs it in the foreground as the daemon's main loop.
func (r *Runtime) ReadLoop(senders esb.Senders) {
	for {
		msg, err := readLnpwpMessage(r.conn)
		if err != nil {
			if err != io.EOF {
				log.ConnectiondLog.Errorf("connectiond %s: read: %v", r.identity, err)
			}
			return
		}
		dest := address.Channel(channelIDOf(msg))
		if err := senders.SendTo(esb.Msg, r.identity, dest, &request.PeerMessage{Msg: msg}); err != nil {
			log.ConnectiondLog.Errorf("connectiond %s: forward to %s: %v", r.identity, dest, err)
		}
	}
}

// Handle implements esb.Handler for the Msg bus: every PeerMessage a
// channeld sends here is the outbound direction, written straight to the
// peer link (spec.md §4.4, "Accepts on Msg from any channeld").
func (r *Runtime) Handle(senders esb.Senders, bus esb.Bus, source address.ServiceAddress, req request.Request) error {
	if bus != esb.Msg {
		return lnperrors.NotSupported(bus.String(), "connectiond only serves Msg")
	}
	pm, ok := req.(*request.PeerMessage)
	if !ok {
		return lnperrors.NotSupported(bus.String(), "non-PeerMessage on connectiond")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := writeLnpwpMessage(r.conn, pm.Msg); err != nil {
		return lnperrors.Transport("connectiond %s: write: %v", r.identity, err)
	}
	return nil
}

// Close shuts down the underlying peer link.
func (r *Runtime) Close() error {
	return r.conn.Close()
}

// readLnpwpMessage reads one length-prefixed, type-tagged LNPWP frame: a
// uint16 MessageType followed by a uint32 byte length and that many bytes
// of the message's own Encode output.
func readLnpwpMessage(r io.Reader) (lnpwp.Message, error) {
	var header [6]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	msgType := lnpwp.MessageType(binary.BigEndian.Uint16(header[0:2]))
	length := binary.BigEndian.Uint32(header[2:6])

	msg, err := lnpwp.NewMessage(msgType)
	if err != nil {
		return nil, err
	}
	body := io.LimitReader(r, int64(length))
	if err := msg.Decode(body); err != nil {
		return nil, err
	}
	return msg, nil
}

func writeLnpwpMessage(w io.Writer, msg lnpwp.Message) error {
	var buf countingBuffer
	if err := msg.Encode(&buf); err != nil {
		return err
	}

	var header [6]byte
	binary.BigEndian.PutUint16(header[0:2], uint16(msg.MsgType()))
	binary.BigEndian.PutUint32(header[2:6], uint32(len(buf.data)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(buf.data)
	return err
}

// countingBuffer is a minimal io.Writer sink, used so Encode can be called
// once to measure the frame before writing its header.
type countingBuffer struct{ data []byte }

func (b *countingBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

// channelIDOf extracts whichever channel identifier field is present on
// msg — ChannelID post-funding, TemporaryChannelID before — per spec.md
// §4.4's routing rule.
func channelIDOf(msg lnpwp.Message) lnpwp.ChannelID {
	switch m := msg.(type) {
	case *lnpwp.OpenChannel:
		return m.TemporaryChannelID
	case *lnpwp.AcceptChannel:
		return m.TemporaryChannelID
	case *lnpwp.FundingCreated:
		return m.TemporaryChannelID
	case *lnpwp.FundingSigned:
		return m.ChannelID
	case *lnpwp.FundingLocked:
		return m.ChannelID
	case *lnpwp.UpdateAddHTLC:
		return m.ChannelID
	default:
		return lnpwp.ChannelID{}
	}
}
