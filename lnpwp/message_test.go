package lnpwp

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec"
)

func testPubKey(t *testing.T, seed byte) *btcec.PublicKey {
	t.Helper()
	var priv [32]byte
	priv[31] = seed + 1
	_, pub := btcec.PrivKeyFromBytes(btcec.S256(), priv[:])
	return pub
}

func TestOpenChannelRoundTrip(t *testing.T) {
	pub := testPubKey(t, 1)
	msg := &OpenChannel{
		TemporaryChannelID:       ChannelID{0x11},
		FundingSatoshis:          1_000_000,
		DustLimitSatoshis:        573,
		MaxHtlcValueInFlightMsat: 1_000_000_000,
		ChannelReserveSatoshis:   10_000,
		HtlcMinimumMsat:          1,
		FeeratePerKw:             253,
		ToSelfDelay:              144,
		MaxAcceptedHtlcs:         30,
		FundingPubkey:            pub,
		RevocationBasepoint:      pub,
		PaymentBasepoint:         pub,
		DelayedPaymentBasepoint:  pub,
		HtlcBasepoint:            pub,
		FirstPerCommitmentPoint:  pub,
		ChannelFlags:             1,
	}

	var buf bytes.Buffer
	if err := msg.Encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	var decoded OpenChannel
	if err := decoded.Decode(&buf); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.FundingSatoshis != msg.FundingSatoshis {
		t.Errorf("FundingSatoshis mismatch: got %d want %d",
			decoded.FundingSatoshis, msg.FundingSatoshis)
	}
	if decoded.TemporaryChannelID != msg.TemporaryChannelID {
		t.Errorf("TemporaryChannelID mismatch")
	}
	if !decoded.FundingPubkey.IsEqual(pub) {
		t.Errorf("FundingPubkey mismatch")
	}
}

func TestFundingCreatedRoundTrip(t *testing.T) {
	msg := &FundingCreated{
		TemporaryChannelID: ChannelID{0xAA},
		FundingOutputIndex: 7,
	}
	msg.FundingTxid[0] = 0xAA
	msg.Signature[0] = 0x01

	var buf bytes.Buffer
	if err := msg.Encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded FundingCreated
	if err := decoded.Decode(&buf); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.FundingOutputIndex != 7 {
		t.Errorf("FundingOutputIndex mismatch: got %d", decoded.FundingOutputIndex)
	}
	if decoded.Signature != msg.Signature {
		t.Errorf("Signature mismatch")
	}
}

func TestUpdateAddHTLCRoundTrip(t *testing.T) {
	msg := &UpdateAddHTLC{
		ChannelID: ChannelID{0x01},
		ID:        5,
		Amount:    1000,
		Expiry:    500_000,
	}
	var buf bytes.Buffer
	if err := msg.Encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded UpdateAddHTLC
	if err := decoded.Decode(&buf); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != 5 || decoded.Amount != 1000 {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}
