// Package lnpwp implements the slice of the Lightning peer-wire protocol
// (BOLT-1/-2) this core consumes and emits via Request.PeerMessage:
// open_channel, accept_channel, funding_created, funding_signed,
// funding_locked and update_add_htlc. The Message contract and the
// readElements/writeElements helpers are adapted from the teacher pack's
// lnwire message shape (single_funding_request.go / single_funding_response.go).
package lnpwp

import (
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcutil"
)

// MilliSatoshi represents a thousandth of a satoshi, the unit HTLC amounts
// are denominated in on the wire.
type MilliSatoshi uint64

// ChannelID is a 32-byte channel identifier; it serves equally as a
// temporary (pre-funding) or final (post-funding) channel id on the wire,
// matching BOLT-2's reuse of the 32-byte slot.
type ChannelID [32]byte

// MessageType uniquely identifies a message for dispatch and framing.
type MessageType uint16

const (
	MsgTypeOpenChannel MessageType = 32 + iota
	MsgTypeAcceptChannel
	MsgTypeFundingCreated
	MsgTypeFundingSigned
	MsgTypeFundingLocked
	MsgTypeUpdateAddHTLC
)

// Message is the contract every LNPWP message satisfies: self-describing
// type, and streaming codec.
type Message interface {
	Decode(r io.Reader) error
	Encode(w io.Writer) error
	MsgType() MessageType
}

// OpenChannel is sent by the channel opener to the responder; see BOLT-2
// open_channel.
type OpenChannel struct {
	TemporaryChannelID       ChannelID
	FundingSatoshis          btcutil.Amount
	PushMsat                 MilliSatoshi
	DustLimitSatoshis        btcutil.Amount
	MaxHtlcValueInFlightMsat MilliSatoshi
	ChannelReserveSatoshis   btcutil.Amount
	HtlcMinimumMsat          MilliSatoshi
	FeeratePerKw             uint32
	ToSelfDelay              uint16
	MaxAcceptedHtlcs         uint16
	FundingPubkey            *btcec.PublicKey
	RevocationBasepoint      *btcec.PublicKey
	PaymentBasepoint         *btcec.PublicKey
	DelayedPaymentBasepoint  *btcec.PublicKey
	HtlcBasepoint            *btcec.PublicKey
	FirstPerCommitmentPoint  *btcec.PublicKey
	ChannelFlags             byte
}

func (m *OpenChannel) MsgType() MessageType { return MsgTypeOpenChannel }

func (m *OpenChannel) Encode(w io.Writer) error {
	return writeElements(w,
		m.TemporaryChannelID,
		m.FundingSatoshis,
		m.PushMsat,
		m.DustLimitSatoshis,
		m.MaxHtlcValueInFlightMsat,
		m.ChannelReserveSatoshis,
		m.HtlcMinimumMsat,
		m.FeeratePerKw,
		m.ToSelfDelay,
		m.MaxAcceptedHtlcs,
		m.FundingPubkey,
		m.RevocationBasepoint,
		m.PaymentBasepoint,
		m.DelayedPaymentBasepoint,
		m.HtlcBasepoint,
		m.FirstPerCommitmentPoint,
		m.ChannelFlags,
	)
}

func (m *OpenChannel) Decode(r io.Reader) error {
	return readElements(r,
		&m.TemporaryChannelID,
		&m.FundingSatoshis,
		&m.PushMsat,
		&m.DustLimitSatoshis,
		&m.MaxHtlcValueInFlightMsat,
		&m.ChannelReserveSatoshis,
		&m.HtlcMinimumMsat,
		&m.FeeratePerKw,
		&m.ToSelfDelay,
		&m.MaxAcceptedHtlcs,
		&m.FundingPubkey,
		&m.RevocationBasepoint,
		&m.PaymentBasepoint,
		&m.DelayedPaymentBasepoint,
		&m.HtlcBasepoint,
		&m.FirstPerCommitmentPoint,
		&m.ChannelFlags,
	)
}

// AcceptChannel is the responder's reply to OpenChannel; see BOLT-2
// accept_channel.
type AcceptChannel struct {
	TemporaryChannelID       ChannelID
	DustLimitSatoshis        btcutil.Amount
	MaxHtlcValueInFlightMsat MilliSatoshi
	ChannelReserveSatoshis   btcutil.Amount
	HtlcMinimumMsat          MilliSatoshi
	MinimumDepth             uint32
	ToSelfDelay              uint16
	MaxAcceptedHtlcs         uint16
	FundingPubkey            *btcec.PublicKey
	RevocationBasepoint      *btcec.PublicKey
	PaymentBasepoint         *btcec.PublicKey
	DelayedPaymentBasepoint  *btcec.PublicKey
	HtlcBasepoint            *btcec.PublicKey
	FirstPerCommitmentPoint  *btcec.PublicKey
}

func (m *AcceptChannel) MsgType() MessageType { return MsgTypeAcceptChannel }

func (m *AcceptChannel) Encode(w io.Writer) error {
	return writeElements(w,
		m.TemporaryChannelID,
		m.DustLimitSatoshis,
		m.MaxHtlcValueInFlightMsat,
		m.ChannelReserveSatoshis,
		m.HtlcMinimumMsat,
		m.MinimumDepth,
		m.ToSelfDelay,
		m.MaxAcceptedHtlcs,
		m.FundingPubkey,
		m.RevocationBasepoint,
		m.PaymentBasepoint,
		m.DelayedPaymentBasepoint,
		m.HtlcBasepoint,
		m.FirstPerCommitmentPoint,
	)
}

func (m *AcceptChannel) Decode(r io.Reader) error {
	return readElements(r,
		&m.TemporaryChannelID,
		&m.DustLimitSatoshis,
		&m.MaxHtlcValueInFlightMsat,
		&m.ChannelReserveSatoshis,
		&m.HtlcMinimumMsat,
		&m.MinimumDepth,
		&m.ToSelfDelay,
		&m.MaxAcceptedHtlcs,
		&m.FundingPubkey,
		&m.RevocationBasepoint,
		&m.PaymentBasepoint,
		&m.DelayedPaymentBasepoint,
		&m.HtlcBasepoint,
		&m.FirstPerCommitmentPoint,
	)
}

// FundingCreated carries the funding outpoint and the opener's signature
// over the responder's first commitment transaction; see BOLT-2
// funding_created.
type FundingCreated struct {
	TemporaryChannelID ChannelID
	FundingTxid        [32]byte
	FundingOutputIndex uint16
	Signature          [64]byte
}

func (m *FundingCreated) MsgType() MessageType { return MsgTypeFundingCreated }

func (m *FundingCreated) Encode(w io.Writer) error {
	return writeElements(w,
		m.TemporaryChannelID,
		m.FundingTxid,
		m.FundingOutputIndex,
		m.Signature,
	)
}

func (m *FundingCreated) Decode(r io.Reader) error {
	return readElements(r,
		&m.TemporaryChannelID,
		&m.FundingTxid,
		&m.FundingOutputIndex,
		&m.Signature,
	)
}

// FundingSigned carries the responder's signature over the opener's first
// commitment transaction; see BOLT-2 funding_signed.
type FundingSigned struct {
	ChannelID ChannelID
	Signature [64]byte
}

func (m *FundingSigned) MsgType() MessageType { return MsgTypeFundingSigned }

func (m *FundingSigned) Encode(w io.Writer) error {
	return writeElements(w, m.ChannelID, m.Signature)
}

func (m *FundingSigned) Decode(r io.Reader) error {
	return readElements(r, &m.ChannelID, &m.Signature)
}

// FundingLocked announces that the funding transaction has reached
// minimum_depth and carries the sender's next per-commitment point; see
// BOLT-2 funding_locked.
type FundingLocked struct {
	ChannelID           ChannelID
	NextPerCommitPoint  *btcec.PublicKey
}

func (m *FundingLocked) MsgType() MessageType { return MsgTypeFundingLocked }

func (m *FundingLocked) Encode(w io.Writer) error {
	return writeElements(w, m.ChannelID, m.NextPerCommitPoint)
}

func (m *FundingLocked) Decode(r io.Reader) error {
	return readElements(r, &m.ChannelID, &m.NextPerCommitPoint)
}

// UpdateAddHTLC proposes adding a new HTLC to the commitment; this core
// emits it as the sole effect of a Transfer request and never itself
// settles or routes it further, per spec.md §1.
type UpdateAddHTLC struct {
	ChannelID   ChannelID
	ID          uint64
	Amount      MilliSatoshi
	PaymentHash [32]byte
	Expiry      uint32
}

func (m *UpdateAddHTLC) MsgType() MessageType { return MsgTypeUpdateAddHTLC }

func (m *UpdateAddHTLC) Encode(w io.Writer) error {
	return writeElements(w, m.ChannelID, m.ID, m.Amount, m.PaymentHash, m.Expiry)
}

func (m *UpdateAddHTLC) Decode(r io.Reader) error {
	return readElements(r, &m.ChannelID, &m.ID, &m.Amount, &m.PaymentHash, &m.Expiry)
}

// NewMessage allocates a zero-value Message for the given type, for use by
// a decoder that has only read the type discriminant so far.
func NewMessage(t MessageType) (Message, error) {
	switch t {
	case MsgTypeOpenChannel:
		return &OpenChannel{}, nil
	case MsgTypeAcceptChannel:
		return &AcceptChannel{}, nil
	case MsgTypeFundingCreated:
		return &FundingCreated{}, nil
	case MsgTypeFundingSigned:
		return &FundingSigned{}, nil
	case MsgTypeFundingLocked:
		return &FundingLocked{}, nil
	case MsgTypeUpdateAddHTLC:
		return &UpdateAddHTLC{}, nil
	default:
		return nil, fmt.Errorf("lnpwp: unknown message type %d", t)
	}
}
