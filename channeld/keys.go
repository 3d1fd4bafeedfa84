package channeld

import (
	"crypto/rand"

	"github.com/btcsuite/btcd/btcec"

	"github.com/lnp-node/lnpnode/lnperrors"
	"github.com/lnp-node/lnpnode/request"
)

// LocalKeySet bundles a channeld's own ChannelKeys alongside the private
// keys backing them, so the owning channeld can later sign with
// FundingPrivKey without re-deriving anything. A full node would derive
// these from a BIP32 keychain (out of scope for this core, per spec.md §1
// "persistence of channel state" and the surrounding wallet being a
// contract-only collaborator); here each basepoint is an independently
// generated secp256k1 keypair, which is sufficient to exercise the funding
// script, obscuring factor and commitment signing paths correctly.
type LocalKeySet struct {
	Keys           request.ChannelKeys
	FundingPrivKey *btcec.PrivateKey
}

// GenerateLocalKeys produces a fresh set of basepoints for a new channel.
func GenerateLocalKeys() (LocalKeySet, error) {
	funding, fundingPriv, err := newKeyPair()
	if err != nil {
		return LocalKeySet{}, err
	}
	revocation, _, err := newKeyPair()
	if err != nil {
		return LocalKeySet{}, err
	}
	payment, _, err := newKeyPair()
	if err != nil {
		return LocalKeySet{}, err
	}
	delayedPayment, _, err := newKeyPair()
	if err != nil {
		return LocalKeySet{}, err
	}
	htlc, _, err := newKeyPair()
	if err != nil {
		return LocalKeySet{}, err
	}
	firstPerCommit, _, err := newKeyPair()
	if err != nil {
		return LocalKeySet{}, err
	}

	return LocalKeySet{
		Keys: request.ChannelKeys{
			FundingPubkey:           funding,
			RevocationBasepoint:     revocation,
			PaymentBasepoint:        payment,
			DelayedPaymentBasepoint: delayedPayment,
			HtlcBasepoint:           htlc,
			FirstPerCommitmentPoint: firstPerCommit,
		},
		FundingPrivKey: fundingPriv,
	}, nil
}

func newKeyPair() (*btcec.PublicKey, *btcec.PrivateKey, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, nil, lnperrors.Other("channeld: failed to read random seed: " + err.Error())
	}
	priv, pub := btcec.PrivKeyFromBytes(btcec.S256(), seed[:])
	return pub, priv, nil
}

// RemoteKeysFromOpenOrAccept extracts the six basepoints a peer offered in
// its OpenChannel or AcceptChannel message into a ChannelKeys value.
func RemoteKeysFromOpenOrAccept(
	fundingPubkey, revocationBasepoint, paymentBasepoint,
	delayedPaymentBasepoint, htlcBasepoint, firstPerCommitmentPoint *btcec.PublicKey,
) request.ChannelKeys {
	return request.ChannelKeys{
		FundingPubkey:           fundingPubkey,
		RevocationBasepoint:     revocationBasepoint,
		PaymentBasepoint:        paymentBasepoint,
		DelayedPaymentBasepoint: delayedPaymentBasepoint,
		HtlcBasepoint:           htlcBasepoint,
		FirstPerCommitmentPoint: firstPerCommitmentPoint,
	}
}
