package chanfunding

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/wire"
)

func testKey(seed byte) *btcec.PublicKey {
	var priv [32]byte
	priv[31] = seed + 1
	_, pub := btcec.PrivKeyFromBytes(btcec.S256(), priv[:])
	return pub
}

func TestFundingScriptSortsKeys(t *testing.T) {
	keyA := testKey(1)
	keyB := testKey(2)

	scriptAB, _, err := FundingScript(keyA, keyB, 1_000_000)
	if err != nil {
		t.Fatalf("FundingScript: %v", err)
	}
	scriptBA, _, err := FundingScript(keyB, keyA, 1_000_000)
	if err != nil {
		t.Fatalf("FundingScript: %v", err)
	}

	if !bytes.Equal(scriptAB, scriptBA) {
		t.Fatalf("witness script must be independent of argument order")
	}
}

func TestFundingScriptRejectsNonPositiveAmount(t *testing.T) {
	keyA := testKey(1)
	keyB := testKey(2)
	if _, _, err := FundingScript(keyA, keyB, 0); err == nil {
		t.Fatalf("expected error for zero funding amount")
	}
}

func TestDeriveChannelID(t *testing.T) {
	txidHex := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	txidBytes, err := hex.DecodeString(txidHex)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var hash [32]byte
	copy(hash[:], txidBytes)

	op := wire.OutPoint{Hash: hash, Index: 7}
	id := DeriveChannelID(op)

	want := hash
	want[30] ^= 0x00
	want[31] ^= 0x07

	if id != want {
		t.Fatalf("DeriveChannelID mismatch: got %x want %x", id, want)
	}
}

func TestEncodeDecodeCommitmentNumberRoundTrip(t *testing.T) {
	obscuringFactor := ObscuringFactor(testKey(1), testKey(2))

	for _, n := range []uint64{0, 1, 42, 1 << 40} {
		lt, seq := EncodeCommitmentNumber(n, obscuringFactor)
		got := DecodeCommitmentNumber(lt, seq, obscuringFactor)
		if got != n {
			t.Fatalf("round trip mismatch for %d: got %d", n, got)
		}
	}
}

func TestObscuringFactorDeterministic(t *testing.T) {
	opener := testKey(1)
	responder := testKey(2)

	a := ObscuringFactor(opener, responder)
	b := ObscuringFactor(opener, responder)
	if a != b {
		t.Fatalf("obscuring factor must be deterministic")
	}

	// Order matters: opener first, responder second.
	c := ObscuringFactor(responder, opener)
	if a == c {
		t.Fatalf("obscuring factor must depend on opener/responder order")
	}
}
