package connectiond

import (
	"net"
	"testing"
	"time"

	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/esb"
	"github.com/lnp-node/lnpnode/lnpwp"
	"github.com/lnp-node/lnpnode/request"
)

type sentFrame struct {
	bus  esb.Bus
	dest address.ServiceAddress
	req  request.Request
}

// fakeSenders hands every SendTo call to a channel rather than a plain
// slice, since ReadLoop delivers on its own goroutine.
type fakeSenders struct {
	sent chan sentFrame
}

func newFakeSenders() *fakeSenders { return &fakeSenders{sent: make(chan sentFrame, 8)} }

func (f *fakeSenders) SendTo(bus esb.Bus, source, dest address.ServiceAddress, req request.Request) error {
	f.sent <- sentFrame{bus, dest, req}
	return nil
}

func newPipe(t *testing.T) (near, far net.Conn) {
	t.Helper()
	near, far = net.Pipe()
	t.Cleanup(func() {
		near.Close()
		far.Close()
	})
	return near, far
}

func TestOutboundPeerMessageIsWrittenToLink(t *testing.T) {
	near, far := newPipe(t)
	r := New("10.0.0.1:9735", near)

	done := make(chan error, 1)
	go func() {
		_, err := readLnpwpMessage(far)
		done <- err
	}()

	var id lnpwp.ChannelID
	id[0] = 0xaa
	open := &lnpwp.OpenChannel{TemporaryChannelID: id}

	if err := r.Handle(newFakeSenders(), esb.Msg, address.Channel(id), &request.PeerMessage{Msg: open}); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("reading what was written: %v", err)
	}
}

func TestInboundFrameIsRepublishedByChannelID(t *testing.T) {
	near, far := newPipe(t)
	r := New("10.0.0.2:9735", near)

	var id lnpwp.ChannelID
	id[0] = 0xbb
	locked := &lnpwp.FundingLocked{ChannelID: id}

	writeDone := make(chan error, 1)
	go func() { writeDone <- writeLnpwpMessage(far, locked) }()

	senders := newFakeSenders()
	go r.ReadLoop(senders)

	if err := <-writeDone; err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case f := <-senders.sent:
		if !f.dest.Equal(address.Channel(id)) {
			t.Fatalf("republished to %v, want channel %x", f.dest, id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("ReadLoop never republished the inbound frame")
	}
}

func TestHandleRejectsCtlBus(t *testing.T) {
	near, _ := newPipe(t)
	r := New("10.0.0.3:9735", near)
	err := r.Handle(newFakeSenders(), esb.Ctl, address.Supervisor, &request.Hello{})
	if err == nil {
		t.Fatalf("expected Ctl-bus request to be rejected")
	}
}
