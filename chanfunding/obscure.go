package chanfunding

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec"
)

// ObscuringFactor computes the commitment-number obscuring factor per
// BOLT-3: the last 8 bytes, read big-endian, of
// SHA256(payment_basepoint_opener || payment_basepoint_responder). The
// concatenation order is always opener-first, responder-second, regardless
// of which side computes it locally — this is what lets both parties derive
// the same factor independently (spec.md §4.3.4, §8 "Obscuring factor
// determinism").
func ObscuringFactor(openerPaymentBasepoint, responderPaymentBasepoint *btcec.PublicKey) uint64 {
	h := sha256.New()
	h.Write(openerPaymentBasepoint.SerializeCompressed())
	h.Write(responderPaymentBasepoint.SerializeCompressed())
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[24:32])
}

// EncodeCommitmentNumber packs a 48-bit obscured commitment number into the
// locktime/sequence fields of the commitment transaction per BOLT-3:
//
//	obscured := commitmentNumber XOR obscuringFactor
//	locktime := 0x20000000 | (obscured & 0xffffff)
//	sequence := 0x80000000 | ((obscured >> 24) & 0xffffff)
func EncodeCommitmentNumber(commitmentNumber, obscuringFactor uint64) (locktime, sequence uint32) {
	obscured := (commitmentNumber ^ obscuringFactor) & 0xffffffffffff
	locktime = 0x20000000 | uint32(obscured&0xffffff)
	sequence = 0x80000000 | uint32((obscured>>24)&0xffffff)
	return locktime, sequence
}

// DecodeCommitmentNumber reverses EncodeCommitmentNumber, recovering the
// commitment number from a transaction's locktime/sequence fields and the
// known obscuring factor.
func DecodeCommitmentNumber(locktime, sequence uint32, obscuringFactor uint64) uint64 {
	obscured := uint64(sequence&0xffffff)<<24 | uint64(locktime&0xffffff)
	return (obscured ^ obscuringFactor) & 0xffffffffffff
}
