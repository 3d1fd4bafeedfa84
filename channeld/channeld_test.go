package channeld

import (
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"

	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/esb"
	"github.com/lnp-node/lnpnode/lnpwp"
	"github.com/lnp-node/lnpnode/request"
	"github.com/lnp-node/lnpnode/storage"
)

// frame is a queued send, used by the test harness to simulate the
// Controller's queue-then-deliver semantics (spec.md §4.1): a Handle call
// only enqueues what it sends, so delivering it can never nest inside the
// sender's own (non-reentrant) lock.
type frame struct {
	bus      esb.Bus
	source   address.ServiceAddress
	req      request.Request
	toOrigin bool
}

// harness wires an originator and a responder Channel together with one
// enquirer address both report to. Each side is given its own roleSenders
// so the harness always knows which Channel is sending, even after both
// sides converge on the same post-funding identity.
type harness struct {
	origin, responder *Channel
	enquirer          address.ServiceAddress
	queue             []frame
	reports           []request.Request
}

type roleSenders struct {
	h        *harness
	isOrigin bool
}

func (s roleSenders) SendTo(bus esb.Bus, source, dest address.ServiceAddress, req request.Request) error {
	if bus == esb.Msg {
		s.h.queue = append(s.h.queue, frame{bus, source, req, !s.isOrigin})
		return nil
	}
	if dest.Equal(address.Supervisor) {
		return nil
	}
	s.h.reports = append(s.h.reports, req)
	return nil
}

func (h *harness) originSenders() roleSenders    { return roleSenders{h, true} }
func (h *harness) responderSenders() roleSenders { return roleSenders{h, false} }

func (h *harness) pump(t *testing.T) {
	t.Helper()
	for len(h.queue) > 0 {
		f := h.queue[0]
		h.queue = h.queue[1:]

		if f.toOrigin {
			if err := h.origin.Handle(h.originSenders(), f.bus, f.source, f.req); err != nil {
				t.Fatalf("origin.Handle(%v): %v", f.req.Type(), err)
			}
			continue
		}
		if err := h.responder.Handle(h.responderSenders(), f.bus, f.source, f.req); err != nil {
			t.Fatalf("responder.Handle(%v): %v", f.req.Type(), err)
		}
	}
}

func newHarness(t *testing.T, capacity btcutil.Amount) *harness {
	t.Helper()

	var tempID lnpwp.ChannelID
	tempID[0] = 0xaa

	h := &harness{
		origin:    New(tempID, DefaultPolicy(), storage.NewFileDriver(), t.TempDir()),
		responder: New(tempID, DefaultPolicy(), storage.NewFileDriver(), t.TempDir()),
		enquirer:  address.Foreign("test-enquirer"),
	}
	h.origin.peerService = address.Peer("10.0.0.1:9735")
	h.responder.peerService = address.Peer("10.0.0.2:9735")

	chanReq := request.ChannelRequest{
		TempChannelID:   tempID,
		FundingSatoshis: capacity,
		PushMsat:        0,
		ToSelfDelay:     144,
	}

	if err := h.origin.Handle(h.originSenders(), esb.Ctl, address.Loopback, &request.OpenChannelWith{
		ChannelReq: chanReq,
		Peerd:      h.origin.peerService,
		ReportTo:   h.enquirer,
	}); err != nil {
		t.Fatalf("OpenChannelWith: %v", err)
	}
	// The resulting OpenChannel goes out over the wire via connectiond,
	// not straight to a responder channeld that doesn't exist yet (lnpd
	// spawns it); this harness doesn't model lnpd/connectiond, so the
	// frame is dropped rather than auto-delivered.
	h.queue = nil

	if err := h.responder.Handle(h.responderSenders(), esb.Ctl, address.Loopback, &request.AcceptChannelFrom{
		ChannelReq: chanReq,
		Peerd:      h.responder.peerService,
		ReportTo:   h.enquirer,
	}); err != nil {
		t.Fatalf("AcceptChannelFrom: %v", err)
	}
	h.pump(t)

	// The responder never independently receives the triggering
	// OpenChannel in this harness (that redelivery comes from
	// connectiond in the real system, spec.md §4.4); feed it directly so
	// the responder also derives remote_keys and the funding script.
	openSeen := &lnpwp.OpenChannel{
		TemporaryChannelID:       tempID,
		FundingSatoshis:          capacity,
		DustLimitSatoshis:        h.origin.params.DustLimitSatoshis,
		MaxHtlcValueInFlightMsat: h.origin.params.MaxHtlcValueInFlightMsat,
		ChannelReserveSatoshis:   h.origin.params.ChannelReserveSatoshis,
		HtlcMinimumMsat:          h.origin.params.HtlcMinimumMsat,
		ToSelfDelay:              h.origin.params.ToSelfDelay,
		MaxAcceptedHtlcs:         h.origin.params.MaxAcceptedHtlcs,
		FundingPubkey:            h.origin.localKeys.FundingPubkey,
		RevocationBasepoint:      h.origin.localKeys.RevocationBasepoint,
		PaymentBasepoint:         h.origin.localKeys.PaymentBasepoint,
		DelayedPaymentBasepoint:  h.origin.localKeys.DelayedPaymentBasepoint,
		HtlcBasepoint:            h.origin.localKeys.HtlcBasepoint,
		FirstPerCommitmentPoint:  h.origin.localKeys.FirstPerCommitmentPoint,
	}
	if err := h.responder.Handle(h.responderSenders(), esb.Msg, h.origin.identity,
		&request.PeerMessage{Msg: openSeen}); err != nil {
		t.Fatalf("responder OpenChannel mirror: %v", err)
	}
	h.pump(t)

	return h
}

func TestOutboundOpenIsAccepted(t *testing.T) {
	h := newHarness(t, 1_000_000)

	if h.origin.state != StateAccepted {
		t.Fatalf("origin state = %s, want Accepted", h.origin.state)
	}
	if h.responder.state != StateAccepted {
		t.Fatalf("responder state = %s, want Accepted", h.responder.state)
	}
	if len(h.origin.witnessScript) == 0 {
		t.Fatalf("origin never derived a funding script")
	}
	if len(h.responder.witnessScript) == 0 {
		t.Fatalf("responder never derived a funding script")
	}

	foundFunding := false
	for _, r := range h.reports {
		if _, ok := r.(*request.ChannelFunding); ok {
			foundFunding = true
		}
	}
	if !foundFunding {
		t.Fatalf("no ChannelFunding was reported to the enquirer")
	}
}

func fundChannel(t *testing.T, h *harness) {
	t.Helper()
	outpoint := wire.OutPoint{Index: 0}
	outpoint.Hash[0] = 0x01

	if err := h.origin.Handle(h.originSenders(), esb.Ctl, address.Loopback, &request.FundChannel{
		Outpoint: outpoint,
	}); err != nil {
		t.Fatalf("FundChannel: %v", err)
	}
	h.pump(t)
}

func TestFundingDerivesMatchingChannelID(t *testing.T) {
	h := newHarness(t, 1_000_000)
	fundChannel(t, h)

	if h.origin.state != StateFunded && h.origin.state != StateOperational {
		t.Fatalf("origin state = %s, want at least Funded", h.origin.state)
	}
	if h.origin.channelID != h.responder.channelID {
		t.Fatalf("channel id mismatch: origin %x, responder %x",
			h.origin.channelID, h.responder.channelID)
	}
	if !h.origin.identity.Equal(h.responder.identity) {
		t.Fatalf("origin and responder converged on different identities")
	}
}

func TestObscuringFactorIsDeterministic(t *testing.T) {
	h := newHarness(t, 1_000_000)
	fundChannel(t, h)

	if h.origin.obscuringFactor == 0 {
		t.Fatalf("origin never computed an obscuring factor")
	}
	if h.origin.obscuringFactor != h.responder.obscuringFactor {
		t.Fatalf("obscuring factor mismatch: origin %d, responder %d",
			h.origin.obscuringFactor, h.responder.obscuringFactor)
	}
}

func TestFundingLockedPromotesToOperational(t *testing.T) {
	h := newHarness(t, 1_000_000)
	fundChannel(t, h)

	if h.origin.state != StateOperational {
		t.Fatalf("origin state = %s, want Operational", h.origin.state)
	}
	if h.responder.state != StateOperational {
		t.Fatalf("responder state = %s, want Operational", h.responder.state)
	}

	total := h.origin.localCapacity + h.origin.remoteCapacity
	if total != h.origin.fundingAmount {
		t.Fatalf("capacity not conserved: local %d + remote %d != funding %d",
			h.origin.localCapacity, h.origin.remoteCapacity, h.origin.fundingAmount)
	}
}

func TestTransferIncrementsCounters(t *testing.T) {
	h := newHarness(t, 1_000_000)
	fundChannel(t, h)

	for i := 0; i < 5; i++ {
		if err := h.origin.Handle(h.originSenders(), esb.Ctl, address.Loopback, &request.Transfer{
			Amount: 1000,
		}); err != nil {
			t.Fatalf("Transfer #%d: %v", i, err)
		}
		h.pump(t)
	}

	if h.origin.totalPayments != 5 {
		t.Fatalf("totalPayments = %d, want 5", h.origin.totalPayments)
	}
	if h.origin.pendingPayments != 5 {
		t.Fatalf("pendingPayments = %d, want 5", h.origin.pendingPayments)
	}

	before := h.origin.localCapacity + h.origin.remoteCapacity
	if err := h.origin.Handle(h.originSenders(), esb.Ctl, address.Loopback, &request.Transfer{Amount: 2000}); err != nil {
		t.Fatalf("Transfer #6: %v", err)
	}
	h.pump(t)
	after := h.origin.localCapacity + h.origin.remoteCapacity
	if before != after {
		t.Fatalf("capacity moved on an unsettled Transfer: before %d, after %d", before, after)
	}
}

func TestTransferBeforeOperationalIsRejected(t *testing.T) {
	h := newHarness(t, 1_000_000)

	err := h.origin.Handle(h.originSenders(), esb.Ctl, address.Loopback, &request.Transfer{Amount: 1000})
	if err == nil {
		t.Fatalf("expected Transfer on a non-Operational channel to fail")
	}
}

func TestCrossBusIsolation(t *testing.T) {
	h := newHarness(t, 1_000_000)

	err := h.origin.Handle(h.originSenders(), esb.Msg, address.Loopback, &request.GetInfo{})
	if err == nil {
		t.Fatalf("expected GetInfo on the Msg bus to be rejected")
	}
}

func TestGetInfoReflectsState(t *testing.T) {
	h := newHarness(t, 1_000_000)
	fundChannel(t, h)

	caller := address.Foreign("cli")
	if err := h.origin.Handle(h.originSenders(), esb.Ctl, caller, &request.GetInfo{}); err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	h.pump(t)

	var info *request.ChannelInfo
	for _, r := range h.reports {
		if ci, ok := r.(*request.ChannelInfo); ok {
			info = ci
		}
	}
	if info == nil {
		t.Fatalf("GetInfo produced no ChannelInfo report")
	}
	if info.Snapshot.State != byte(StateOperational) {
		t.Fatalf("snapshot state = %d, want %d (Operational)", info.Snapshot.State, StateOperational)
	}
}
