// Package request implements the Request vocabulary exchanged across the
// enterprise service bus (spec.md §6): the typed payload half of every bus
// frame, alongside the source/destination ServiceAddress pair from the
// address package. The wire shape mirrors lnpwp's Message contract —
// a one-byte type discriminant plus a streaming Encode/Decode pair — so the
// same framing code in esb can carry both.
package request

import (
	"fmt"
	"io"

	"github.com/btcsuite/btcd/wire"

	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/lnpwp"
)

// Type discriminates the variants of Request on the wire.
type Type byte

const (
	TypeHello Type = iota
	TypePeerMessage
	TypeOpenChannelWith
	TypeAcceptChannelFrom
	TypeFundChannel
	TypeTransfer
	TypeGetInfo
	TypeChannelInfo
	TypeChannelFunding
	TypeUpdateChannelID
	TypeConnect
	TypeCreateChannel
	TypeReportProgress
	TypeReportSuccess
	TypeReportFailure
	TypeNegotiationTimeout
)

// Request is the contract every bus payload satisfies.
type Request interface {
	Type() Type
	Encode(w io.Writer) error
	Decode(r io.Reader) error
}

// Hello is the first message a non-supervisor daemon sends, on Ctl to
// Supervisor, to register itself as live (spec.md §4.1 "Bootstrap").
type Hello struct{}

func (Hello) Type() Type            { return TypeHello }
func (Hello) Encode(io.Writer) error { return nil }
func (*Hello) Decode(io.Reader) error { return nil }

// PeerMessage wraps one LNPWP message travelling across the Msg bus in
// either direction (spec.md §4.4).
type PeerMessage struct {
	Msg lnpwp.Message
}

func (PeerMessage) Type() Type { return TypePeerMessage }

func (p PeerMessage) Encode(w io.Writer) error {
	if err := writeElement(w, uint16(p.Msg.MsgType())); err != nil {
		return err
	}
	return p.Msg.Encode(w)
}

func (p *PeerMessage) Decode(r io.Reader) error {
	var t uint16
	if err := readElement(r, &t); err != nil {
		return err
	}
	msg, err := lnpwp.NewMessage(lnpwp.MessageType(t))
	if err != nil {
		return err
	}
	if err := msg.Decode(r); err != nil {
		return err
	}
	p.Msg = msg
	return nil
}

// OpenChannelWith is sent by the operator to a channeld to begin an
// outbound channel open (spec.md §4.3.1, §8 scenario 1); lnpd rejects it
// with NotSupported. It carries the originator's proposed
// parameters, the connectiond to speak through, and the enquirer to report
// progress to.
type OpenChannelWith struct {
	ChannelReq ChannelRequest
	Peerd      address.ServiceAddress
	ReportTo   address.ServiceAddress
}

func (OpenChannelWith) Type() Type { return TypeOpenChannelWith }

func (o OpenChannelWith) Encode(w io.Writer) error {
	if err := o.ChannelReq.encode(w); err != nil {
		return err
	}
	return writeElements(w, o.Peerd, o.ReportTo)
}

func (o *OpenChannelWith) Decode(r io.Reader) error {
	if err := o.ChannelReq.decode(r); err != nil {
		return err
	}
	return readElements(r, &o.Peerd, &o.ReportTo)
}

// AcceptChannelFrom is sent by the operator to a channeld to start it as
// responder. lnpd does not send it; for an inbound OpenChannel it hands the
// spawned channeld a CreateChannel instead.
type AcceptChannelFrom struct {
	ChannelReq ChannelRequest
	Peerd      address.ServiceAddress
	ReportTo   address.ServiceAddress
}

func (AcceptChannelFrom) Type() Type { return TypeAcceptChannelFrom }

func (a AcceptChannelFrom) Encode(w io.Writer) error {
	if err := a.ChannelReq.encode(w); err != nil {
		return err
	}
	return writeElements(w, a.Peerd, a.ReportTo)
}

func (a *AcceptChannelFrom) Decode(r io.Reader) error {
	if err := a.ChannelReq.decode(r); err != nil {
		return err
	}
	return readElements(r, &a.Peerd, &a.ReportTo)
}

// FundChannel supplies the funding outpoint once the operator has broadcast
// (or otherwise obtained) the funding transaction (spec.md §8 scenario 2).
type FundChannel struct {
	Outpoint wire.OutPoint
}

func (FundChannel) Type() Type { return TypeFundChannel }

func (f FundChannel) Encode(w io.Writer) error  { return writeElement(w, f.Outpoint) }
func (f *FundChannel) Decode(r io.Reader) error { return readElement(r, &f.Outpoint) }

// Transfer asks an Operational channel to add one outbound HTLC (spec.md
// §8 scenario 4). HasAsset=false means the native asset (msat).
type Transfer struct {
	Amount   lnpwp.MilliSatoshi
	HasAsset bool
	Asset    AssetID
}

func (Transfer) Type() Type { return TypeTransfer }

func (t Transfer) Encode(w io.Writer) error {
	return writeElements(w, t.Amount, t.HasAsset, t.Asset)
}

func (t *Transfer) Decode(r io.Reader) error {
	return readElements(r, &t.Amount, &t.HasAsset, &t.Asset)
}

// GetInfo requests a Snapshot of the addressed channel (spec.md §4.3.6).
type GetInfo struct{}

func (GetInfo) Type() Type            { return TypeGetInfo }
func (GetInfo) Encode(io.Writer) error { return nil }
func (*GetInfo) Decode(io.Reader) error { return nil }

// ChannelInfo carries the Snapshot response to a GetInfo request.
type ChannelInfo struct {
	Snapshot Snapshot
}

func (ChannelInfo) Type() Type { return TypeChannelInfo }

func (c ChannelInfo) Encode(w io.Writer) error  { return c.Snapshot.encode(w) }
func (c *ChannelInfo) Decode(r io.Reader) error { return c.Snapshot.decode(r) }

// ChannelFunding is published to the enquirer once a channel has been
// accepted and the 2-of-2 funding witness script is known (spec.md §8
// scenario 1).
type ChannelFunding struct {
	Script []byte
}

func (ChannelFunding) Type() Type { return TypeChannelFunding }

func (c ChannelFunding) Encode(w io.Writer) error  { return writeElement(w, c.Script) }
func (c *ChannelFunding) Decode(r io.Reader) error { return readElement(r, &c.Script) }

// UpdateChannelID is published to Supervisor once a channel's identity
// changes from its TempChannelID to its final ChannelID at funding time
// (spec.md §8 scenario 2).
type UpdateChannelID struct {
	ChannelID lnpwp.ChannelID
}

func (UpdateChannelID) Type() Type { return TypeUpdateChannelID }

func (u UpdateChannelID) Encode(w io.Writer) error  { return writeElement(w, u.ChannelID) }
func (u *UpdateChannelID) Decode(r io.Reader) error { return readElement(r, &u.ChannelID) }

// Connect is sent by a freshly spawned channeld to Supervisor on Ctl to
// announce it is alive and waiting to be paired with a connectiond
// (spec.md §4.2).
type Connect struct{}

func (Connect) Type() Type            { return TypeConnect }
func (Connect) Encode(io.Writer) error { return nil }
func (*Connect) Decode(io.Reader) error { return nil }

// CreateChannel is sent by the operator to lnpd to spawn a channeld child
// (Peerd names the connectiond to use), and is reused by lnpd to forward
// the same payload back to the channeld once it has checked in via Connect
// (spec.md §4.2).
type CreateChannel struct {
	ChannelReq ChannelRequest
	Peerd      address.ServiceAddress
}

func (CreateChannel) Type() Type { return TypeCreateChannel }

func (c CreateChannel) Encode(w io.Writer) error {
	if err := c.ChannelReq.encode(w); err != nil {
		return err
	}
	return writeElement(w, c.Peerd)
}

func (c *CreateChannel) Decode(r io.Reader) error {
	if err := c.ChannelReq.decode(r); err != nil {
		return err
	}
	return readElement(r, &c.Peerd)
}

// ReportProgress, ReportSuccess and ReportFailure are sent to an enquirer
// (spec.md §7 "Propagation policy") to narrate a channel's negotiation.
type ReportProgress struct{ Message string }
type ReportSuccess struct{ Message string }
type ReportFailure struct{ Error string }

func (ReportProgress) Type() Type { return TypeReportProgress }
func (r ReportProgress) Encode(w io.Writer) error  { return writeElement(w, r.Message) }
func (r *ReportProgress) Decode(rd io.Reader) error { return readElement(rd, &r.Message) }

func (ReportSuccess) Type() Type { return TypeReportSuccess }
func (r ReportSuccess) Encode(w io.Writer) error  { return writeElement(w, r.Message) }
func (r *ReportSuccess) Decode(rd io.Reader) error { return readElement(rd, &r.Message) }

func (ReportFailure) Type() Type { return TypeReportFailure }
func (r ReportFailure) Encode(w io.Writer) error  { return writeElement(w, r.Error) }
func (r *ReportFailure) Decode(rd io.Reader) error { return readElement(rd, &r.Error) }

// NegotiationTimeout is a synthetic Ctl event a channeld's own negotiation
// timer posts to itself if a channel hasn't left Proposed/Accepted/
// FundingCreated within the configured window (spec.md §9 open question
// (c)).
type NegotiationTimeout struct{}

func (NegotiationTimeout) Type() Type            { return TypeNegotiationTimeout }
func (NegotiationTimeout) Encode(io.Writer) error { return nil }
func (*NegotiationTimeout) Decode(io.Reader) error { return nil }

// New allocates a zero-value Request for the given type, for use by a
// decoder that has only read the type discriminant so far.
func New(t Type) (Request, error) {
	switch t {
	case TypeHello:
		return &Hello{}, nil
	case TypePeerMessage:
		return &PeerMessage{}, nil
	case TypeOpenChannelWith:
		return &OpenChannelWith{}, nil
	case TypeAcceptChannelFrom:
		return &AcceptChannelFrom{}, nil
	case TypeFundChannel:
		return &FundChannel{}, nil
	case TypeTransfer:
		return &Transfer{}, nil
	case TypeGetInfo:
		return &GetInfo{}, nil
	case TypeChannelInfo:
		return &ChannelInfo{}, nil
	case TypeChannelFunding:
		return &ChannelFunding{}, nil
	case TypeUpdateChannelID:
		return &UpdateChannelID{}, nil
	case TypeConnect:
		return &Connect{}, nil
	case TypeCreateChannel:
		return &CreateChannel{}, nil
	case TypeReportProgress:
		return &ReportProgress{}, nil
	case TypeReportSuccess:
		return &ReportSuccess{}, nil
	case TypeReportFailure:
		return &ReportFailure{}, nil
	case TypeNegotiationTimeout:
		return &NegotiationTimeout{}, nil
	default:
		return nil, fmt.Errorf("request: unknown request type %d", t)
	}
}
