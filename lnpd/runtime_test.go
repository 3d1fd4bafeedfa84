package lnpd

import (
	"os"
	"os/exec"
	"testing"

	"github.com/btcsuite/btcutil"

	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/esb"
	"github.com/lnp-node/lnpnode/lnpwp"
	"github.com/lnp-node/lnpnode/request"
)

// fakeSenders records every SendTo call instead of touching a real bus.
type fakeSenders struct {
	sent []sentFrame
}

type sentFrame struct {
	bus        esb.Bus
	source     address.ServiceAddress
	dest       address.ServiceAddress
	req        request.Request
}

func (f *fakeSenders) SendTo(bus esb.Bus, source, dest address.ServiceAddress, req request.Request) error {
	f.sent = append(f.sent, sentFrame{bus, source, dest, req})
	return nil
}

// newTestRuntime returns a Runtime whose launch is stubbed so tests never
// exec a real channeld binary; it just records what would have been run.
func newTestRuntime() (*Runtime, *[]launchCall) {
	r := New("/fake/bin")
	var calls []launchCall
	r.launch = func(binDir, name string, args ...string) (*exec.Cmd, error) {
		calls = append(calls, launchCall{binDir, name, args})
		return &exec.Cmd{Process: &os.Process{Pid: 1234}}, nil
	}
	return r, &calls
}

type launchCall struct {
	binDir string
	name   string
	args   []string
}

func tempID(b byte) lnpwp.ChannelID {
	var id lnpwp.ChannelID
	id[0] = b
	return id
}

func TestCreateChannelSpawnsAndTracksPending(t *testing.T) {
	r, calls := newTestRuntime()
	id := tempID(0x01)
	operator := address.Foreign("cli")
	peerd := address.Peer("10.0.0.1:9735")

	err := r.Handle(&fakeSenders{}, esb.Ctl, operator, &request.CreateChannel{
		ChannelReq: request.ChannelRequest{
			TempChannelID:   id,
			FundingSatoshis: btcutil.Amount(1_000_000),
			Originator:      true,
		},
		Peerd: peerd,
	})
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}

	if len(*calls) != 1 {
		t.Fatalf("launch called %d times, want 1", len(*calls))
	}
	if (*calls)[0].name != "channeld" {
		t.Fatalf("launched %q, want channeld", (*calls)[0].name)
	}

	r.mu.Lock()
	p, ok := r.openingChannels[address.Channel(id)]
	r.mu.Unlock()
	if !ok {
		t.Fatalf("no pending entry tracked for %x", id)
	}
	if !p.peerd.Equal(peerd) {
		t.Fatalf("tracked peerd = %v, want %v", p.peerd, peerd)
	}
	if !p.chanReq.Originator {
		t.Fatalf("tracked chanReq lost Originator=true")
	}
}

func TestConnectForwardsCreateChannelAndClearsPending(t *testing.T) {
	r, _ := newTestRuntime()
	id := tempID(0x02)
	peerd := address.Peer("10.0.0.2:9735")

	if err := r.Handle(&fakeSenders{}, esb.Ctl, address.Foreign("cli"), &request.CreateChannel{
		ChannelReq: request.ChannelRequest{TempChannelID: id, FundingSatoshis: 500_000},
		Peerd:      peerd,
	}); err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}

	senders := &fakeSenders{}
	childAddr := address.Channel(id)
	if err := r.Handle(senders, esb.Ctl, childAddr, &request.Connect{}); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if len(senders.sent) != 1 {
		t.Fatalf("sent %d frames, want 1", len(senders.sent))
	}
	fwd, ok := senders.sent[0].req.(*request.CreateChannel)
	if !ok {
		t.Fatalf("forwarded request is %T, want *request.CreateChannel", senders.sent[0].req)
	}
	if !senders.sent[0].dest.Equal(childAddr) {
		t.Fatalf("forwarded to %v, want %v", senders.sent[0].dest, childAddr)
	}
	if !fwd.Peerd.Equal(peerd) {
		t.Fatalf("forwarded peerd = %v, want %v", fwd.Peerd, peerd)
	}

	r.mu.Lock()
	_, stillPending := r.openingChannels[childAddr]
	r.mu.Unlock()
	if stillPending {
		t.Fatalf("pending entry for %x was not cleared after Connect", id)
	}
}

func TestConnectUnknownChannelFails(t *testing.T) {
	r, _ := newTestRuntime()
	err := r.Handle(&fakeSenders{}, esb.Ctl, address.Channel(tempID(0xff)), &request.Connect{})
	if err == nil {
		t.Fatalf("expected Connect from an untracked channel to fail")
	}
}

func TestPeerOpenChannelSpawnsResponder(t *testing.T) {
	r, calls := newTestRuntime()
	id := tempID(0x03)
	connectiond := address.Peer("10.0.0.3:9735")

	open := &lnpwp.OpenChannel{
		TemporaryChannelID: id,
		FundingSatoshis:    btcutil.Amount(2_000_000),
	}
	err := r.Handle(&fakeSenders{}, esb.Msg, connectiond, &request.PeerMessage{Msg: open})
	if err != nil {
		t.Fatalf("PeerMessage(OpenChannel): %v", err)
	}

	if len(*calls) != 1 {
		t.Fatalf("launch called %d times, want 1", len(*calls))
	}

	r.mu.Lock()
	p, ok := r.openingChannels[address.Channel(id)]
	r.mu.Unlock()
	if !ok {
		t.Fatalf("no pending entry tracked for inbound OpenChannel")
	}
	if p.chanReq.Originator {
		t.Fatalf("inbound OpenChannel must track Originator=false")
	}
	if !p.peerd.Equal(connectiond) {
		t.Fatalf("tracked peerd = %v, want %v", p.peerd, connectiond)
	}
}

func TestHelloIsAcknowledged(t *testing.T) {
	r, calls := newTestRuntime()
	err := r.Handle(&fakeSenders{}, esb.Ctl, address.Peer("10.0.0.4:9735"), &request.Hello{})
	if err != nil {
		t.Fatalf("Hello: %v", err)
	}
	if len(*calls) != 0 {
		t.Fatalf("Hello must never launch a child")
	}
}

func TestNonOpenChannelPeerMessageIsIgnored(t *testing.T) {
	r, calls := newTestRuntime()
	msg := &lnpwp.UpdateAddHTLC{ChannelID: tempID(0x04)}
	err := r.Handle(&fakeSenders{}, esb.Msg, address.Peer("10.0.0.5:9735"), &request.PeerMessage{Msg: msg})
	if err != nil {
		t.Fatalf("non-OpenChannel PeerMessage should be ignored, not errored: %v", err)
	}
	if len(*calls) != 0 {
		t.Fatalf("non-OpenChannel PeerMessage must never launch a child")
	}
}

func TestCreateChannelOnMsgBusIsRejected(t *testing.T) {
	r, _ := newTestRuntime()
	err := r.Handle(&fakeSenders{}, esb.Msg, address.Foreign("cli"), &request.CreateChannel{})
	if err == nil {
		t.Fatalf("expected CreateChannel on the Msg bus to be rejected")
	}
}
