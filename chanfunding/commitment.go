package chanfunding

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
)

// CommitmentParams bundles everything needed to build one side's version of
// the commitment transaction: the funding outpoint and script it spends,
// the two balances as seen from the signer's perspective, the
// counterparty's to_self_delay, the current commitment number, and the
// channel's fixed obscuring factor.
type CommitmentParams struct {
	FundingOutpoint     wire.OutPoint
	FundingAmount       btcutil.Amount
	WitnessScript       []byte
	ToLocalAmount       btcutil.Amount
	ToRemoteAmount      btcutil.Amount
	ToSelfDelay         uint16
	RevocationPubkey    *btcec.PublicKey
	DelayedPubkey       *btcec.PublicKey
	RemotePubkey        *btcec.PublicKey
	CommitmentNumber    uint64
	ObscuringFactor     uint64
}

// BuildCounterpartyCommitment constructs the counterparty's version of the
// commitment transaction per spec.md §4.3.5: the signer's own balance
// (ToRemoteAmount in CommitmentParams, since this is the *counterparty's*
// view) pays directly to RemotePubkey, the signer's own key, while the
// counterparty's balance (ToLocalAmount) pays through the delayed/revocable
// to-local script. The commitment number and obscuring factor are packed
// into locktime and sequence.
func BuildCounterpartyCommitment(p CommitmentParams) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(2)

	locktime, sequence := EncodeCommitmentNumber(p.CommitmentNumber, p.ObscuringFactor)
	tx.LockTime = locktime

	txIn := wire.NewTxIn(&p.FundingOutpoint, nil, nil)
	txIn.Sequence = sequence
	tx.AddTxIn(txIn)

	if p.ToLocalAmount > 0 {
		toLocalScript, err := CommitScriptToSelf(
			p.ToSelfDelay, p.DelayedPubkey, p.RevocationPubkey,
		)
		if err != nil {
			return nil, err
		}
		pkScript, err := WitnessScriptHash(toLocalScript)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(int64(p.ToLocalAmount), pkScript))
	}

	if p.ToRemoteAmount > 0 {
		pkScript, err := commitScriptUnencumbered(p.RemotePubkey)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(int64(p.ToRemoteAmount), pkScript))
	}

	return tx, nil
}

// SignCounterpartyCommitment signs the counterparty's commitment
// transaction built by BuildCounterpartyCommitment using BIP143 segwit
// sighash with SIGHASH_ALL over the funding witness script and the full
// funding output value, as specified in spec.md §4.3.5. The returned
// signature is raw 64-byte (R||S) secp256k1; DER encoding and the trailing
// sighash-type byte are left to the transport layer, same as the spec
// requires.
func SignCounterpartyCommitment(tx *wire.MsgTx, p CommitmentParams,
	signer *btcec.PrivateKey) ([64]byte, error) {

	var sig [64]byte
	if len(tx.TxIn) != 1 {
		return sig, fmt.Errorf("chanfunding: commitment tx must have exactly one input")
	}

	sigHashes := txscript.NewTxSigHashes(tx)
	hash, err := txscript.CalcWitnessSigHash(
		p.WitnessScript, sigHashes, txscript.SigHashAll, tx, 0,
		int64(p.FundingAmount),
	)
	if err != nil {
		return sig, err
	}

	rawSig, err := signer.Sign(hash)
	if err != nil {
		return sig, err
	}

	return serializeCompact64(rawSig), nil
}

// VerifySignature checks a raw 64-byte (R||S) signature produced by
// SignCounterpartyCommitment against the commitment transaction it should
// cover and the signer's funding pubkey.
func VerifySignature(tx *wire.MsgTx, p CommitmentParams, signer *btcec.PublicKey, sig [64]byte) error {
	if len(tx.TxIn) != 1 {
		return fmt.Errorf("chanfunding: commitment tx must have exactly one input")
	}

	sigHashes := txscript.NewTxSigHashes(tx)
	hash, err := txscript.CalcWitnessSigHash(
		p.WitnessScript, sigHashes, txscript.SigHashAll, tx, 0,
		int64(p.FundingAmount),
	)
	if err != nil {
		return err
	}

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	ecSig := &btcec.Signature{R: r, S: s}
	if !ecSig.Verify(hash, signer) {
		return fmt.Errorf("chanfunding: counterparty commitment signature does not verify")
	}
	return nil
}

// serializeCompact64 lays an ECDSA signature out as raw 32-byte R followed
// by 32-byte S, left-padding each half, rather than btcec's variable-length
// DER form — the transport layer is responsible for any DER/sighash-byte
// framing per spec.md §4.3.5.
func serializeCompact64(sig *btcec.Signature) [64]byte {
	var out [64]byte
	rBytes := sig.R.Bytes()
	sBytes := sig.S.Bytes()
	copy(out[32-len(rBytes):32], rBytes)
	copy(out[64-len(sBytes):64], sBytes)
	return out
}

// CommitScriptToSelf builds the revocable, delayed to-local output script
// used on one's own commitment transaction: spendable immediately by the
// counterparty's revocation key (if the commitment was ever revoked), or by
// the owner after csvTimeout blocks. Mirrors
// lnwallet/script_utils.go's commitScriptToSelf in the teacher pack.
func CommitScriptToSelf(csvTimeout uint16, selfKey, revokeKey *btcec.PublicKey) ([]byte, error) {
	bldr := txscript.NewScriptBuilder()

	bldr.AddOp(txscript.OP_IF)
	bldr.AddData(revokeKey.SerializeCompressed())
	bldr.AddOp(txscript.OP_CHECKSIG)
	bldr.AddOp(txscript.OP_ELSE)
	bldr.AddData(selfKey.SerializeCompressed())
	bldr.AddOp(txscript.OP_CHECKSIGVERIFY)
	bldr.AddInt64(int64(csvTimeout))
	bldr.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	bldr.AddOp(txscript.OP_ENDIF)

	return bldr.Script()
}

// commitScriptUnencumbered builds a direct (version-0 witness program over
// a pubkey hash) output script for a party's to-remote balance, with no
// delay or revocation clause, mirroring
// lnwallet/script_utils.go's commitScriptUnencumbered in the teacher pack.
func commitScriptUnencumbered(key *btcec.PublicKey) ([]byte, error) {
	bldr := txscript.NewScriptBuilder()
	bldr.AddOp(txscript.OP_0)
	bldr.AddData(btcutil.Hash160(key.SerializeCompressed()))
	return bldr.Script()
}
