package request

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/wire"

	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/lnpwp"
)

func testPubKey(seed byte) *btcec.PublicKey {
	var priv [32]byte
	priv[31] = seed + 1
	_, pub := btcec.PrivKeyFromBytes(btcec.S256(), priv[:])
	return pub
}

func TestOpenChannelWithRoundTrip(t *testing.T) {
	var temp lnpwp.ChannelID
	temp[0] = 0x11

	want := OpenChannelWith{
		ChannelReq: ChannelRequest{
			TempChannelID:   temp,
			FundingSatoshis: 1_000_000,
			PushMsat:        0,
			ToSelfDelay:     144,
		},
		Peerd:    address.Peer("1.2.3.4:9735"),
		ReportTo: address.Supervisor,
	}

	var buf bytes.Buffer
	if err := want.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var got OpenChannelWith
	if err := got.Decode(&buf); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.ChannelReq != want.ChannelReq {
		t.Fatalf("ChannelReq mismatch: got %+v want %+v", got.ChannelReq, want.ChannelReq)
	}
	if !got.Peerd.Equal(want.Peerd) || !got.ReportTo.Equal(want.ReportTo) {
		t.Fatalf("address mismatch: got %+v", got)
	}
}

func TestTransferRoundTrip(t *testing.T) {
	want := Transfer{Amount: 1000, HasAsset: false}

	var buf bytes.Buffer
	if err := want.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var got Transfer
	if err := got.Decode(&buf); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != want {
		t.Fatalf("Transfer mismatch: got %+v want %+v", got, want)
	}
}

func TestFundChannelRoundTrip(t *testing.T) {
	var txid [32]byte
	txid[0] = 0xaa
	want := FundChannel{Outpoint: wire.OutPoint{Hash: txid, Index: 7}}

	var buf bytes.Buffer
	if err := want.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var got FundChannel
	if err := got.Decode(&buf); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Outpoint != want.Outpoint {
		t.Fatalf("Outpoint mismatch: got %+v want %+v", got.Outpoint, want.Outpoint)
	}
}

func TestPeerMessageRoundTrip(t *testing.T) {
	inner := &lnpwp.AcceptChannel{
		MinimumDepth:            3,
		ToSelfDelay:             144,
		FundingPubkey:           testPubKey(1),
		RevocationBasepoint:     testPubKey(2),
		PaymentBasepoint:        testPubKey(3),
		DelayedPaymentBasepoint: testPubKey(4),
		HtlcBasepoint:           testPubKey(5),
		FirstPerCommitmentPoint: testPubKey(6),
	}
	want := PeerMessage{Msg: inner}

	var buf bytes.Buffer
	if err := want.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var got PeerMessage
	if err := got.Decode(&buf); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	gotMsg, ok := got.Msg.(*lnpwp.AcceptChannel)
	if !ok {
		t.Fatalf("Decode produced %T, want *lnpwp.AcceptChannel", got.Msg)
	}
	if gotMsg.MinimumDepth != inner.MinimumDepth || gotMsg.ToSelfDelay != inner.ToSelfDelay {
		t.Fatalf("decoded message mismatch: got %+v want %+v", gotMsg, inner)
	}
}

func TestGetInfoHasEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	if err := (GetInfo{}).Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("GetInfo must encode to zero bytes, got %d", buf.Len())
	}
}

func TestNewRoundTripsAllTypes(t *testing.T) {
	types := []Type{
		TypeHello, TypePeerMessage, TypeOpenChannelWith, TypeAcceptChannelFrom,
		TypeFundChannel, TypeTransfer, TypeGetInfo, TypeChannelInfo,
		TypeChannelFunding, TypeUpdateChannelID, TypeConnect, TypeCreateChannel,
		TypeReportProgress, TypeReportSuccess, TypeReportFailure,
		TypeNegotiationTimeout,
	}
	for _, ty := range types {
		req, err := New(ty)
		if err != nil {
			t.Fatalf("New(%d): %v", ty, err)
		}
		if req.Type() != ty {
			t.Fatalf("New(%d).Type() = %d", ty, req.Type())
		}
	}
}
