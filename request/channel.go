package request

import (
	"io"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"

	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/lnpwp"
)

// AssetID identifies the asset a balance or transfer is denominated in.
// NativeAsset is the reserved id for the chain's native asset (spec.md §3,
// "Channel runtime object").
type AssetID uint32

// NativeAsset is the reserved AssetID for the channel's base currency
// (satoshis/msat), as opposed to any future multi-asset extension.
const NativeAsset AssetID = 0

// ChannelRequest carries the parameters an operator (or a forwarding
// supervisor) proposes for a new channel: the temporary id the originator
// picked, the funding amount, any immediate push, and the originator's
// to_self_delay preference. It is shared by OpenChannelWith,
// AcceptChannelFrom and CreateChannel.
type ChannelRequest struct {
	TempChannelID   lnpwp.ChannelID
	FundingSatoshis btcutil.Amount
	PushMsat        lnpwp.MilliSatoshi
	ToSelfDelay     uint16
	// Originator distinguishes, once lnpd re-delivers this ChannelRequest
	// to the spawned channeld as a CreateChannel (spec.md §4.2), whether
	// the channeld should begin the protocol as opener (send OpenChannel)
	// or as responder (send AcceptChannel); channeld's CreateChannel
	// handling branches on this flag.
	Originator bool
}

func (c ChannelRequest) encode(w io.Writer) error {
	return writeElements(w, c.TempChannelID, c.FundingSatoshis, c.PushMsat, c.ToSelfDelay, c.Originator)
}

func (c *ChannelRequest) decode(r io.Reader) error {
	return readElements(r, &c.TempChannelID, &c.FundingSatoshis, &c.PushMsat, &c.ToSelfDelay, &c.Originator)
}

// ChannelParams is the negotiated parameter set both sides converge on per
// spec.md §4.3.2 (ChannelParams::with / updated).
type ChannelParams struct {
	DustLimitSatoshis        btcutil.Amount
	MaxHtlcValueInFlightMsat lnpwp.MilliSatoshi
	ChannelReserveSatoshis   btcutil.Amount
	HtlcMinimumMsat          lnpwp.MilliSatoshi
	ToSelfDelay              uint16
	MaxAcceptedHtlcs         uint16
	MinimumDepth             uint32
}

func (p ChannelParams) encode(w io.Writer) error {
	return writeElements(w,
		p.DustLimitSatoshis, p.MaxHtlcValueInFlightMsat, p.ChannelReserveSatoshis,
		p.HtlcMinimumMsat, p.ToSelfDelay, p.MaxAcceptedHtlcs, p.MinimumDepth,
	)
}

func (p *ChannelParams) decode(r io.Reader) error {
	return readElements(r,
		&p.DustLimitSatoshis, &p.MaxHtlcValueInFlightMsat, &p.ChannelReserveSatoshis,
		&p.HtlcMinimumMsat, &p.ToSelfDelay, &p.MaxAcceptedHtlcs, &p.MinimumDepth,
	)
}

// ChannelKeys bundles one side's six basepoints plus its current
// per-commitment point, per spec.md §3 "ChannelKeys".
type ChannelKeys struct {
	FundingPubkey           *btcec.PublicKey
	RevocationBasepoint     *btcec.PublicKey
	PaymentBasepoint        *btcec.PublicKey
	DelayedPaymentBasepoint *btcec.PublicKey
	HtlcBasepoint           *btcec.PublicKey
	FirstPerCommitmentPoint *btcec.PublicKey
}

func (k ChannelKeys) encode(w io.Writer) error {
	return writeElements(w,
		k.FundingPubkey, k.RevocationBasepoint, k.PaymentBasepoint,
		k.DelayedPaymentBasepoint, k.HtlcBasepoint, k.FirstPerCommitmentPoint,
	)
}

func (k *ChannelKeys) decode(r io.Reader) error {
	return readElements(r,
		&k.FundingPubkey, &k.RevocationBasepoint, &k.PaymentBasepoint,
		&k.DelayedPaymentBasepoint, &k.HtlcBasepoint, &k.FirstPerCommitmentPoint,
	)
}

// Balance is one entry of a snapshot's per-asset balance map.
type Balance struct {
	Asset  AssetID
	Amount lnpwp.MilliSatoshi
}

// Snapshot is the GetInfo/ChannelInfo response payload described in
// spec.md §4.3.6: identities, state, capacities, balances, the funding
// outpoint, uptime, commitment number, counters, params and both key sets.
type Snapshot struct {
	Local  address.ServiceAddress
	Peer   address.ServiceAddress
	State  byte // mirrors channeld.State's wire tag; see channeld/state.go
	ChannelID lnpwp.ChannelID

	LocalCapacity  btcutil.Amount
	RemoteCapacity btcutil.Amount
	LocalBalances  []Balance
	RemoteBalances []Balance

	FundingOutpoint wire.OutPoint

	UptimeSeconds int64
	Since         int64

	CommitmentNumber uint64
	TotalPayments    uint64
	PendingPayments  uint64

	Params     ChannelParams
	LocalKeys  ChannelKeys
	RemoteKeys ChannelKeys
}

func (s Snapshot) encode(w io.Writer) error {
	if err := writeElements(w, s.Local, s.Peer, s.State, s.ChannelID,
		s.LocalCapacity, s.RemoteCapacity); err != nil {
		return err
	}
	if err := writeElement(w, uint32(len(s.LocalBalances))); err != nil {
		return err
	}
	for _, b := range s.LocalBalances {
		if err := writeElements(w, b.Asset, b.Amount); err != nil {
			return err
		}
	}
	if err := writeElement(w, uint32(len(s.RemoteBalances))); err != nil {
		return err
	}
	for _, b := range s.RemoteBalances {
		if err := writeElements(w, b.Asset, b.Amount); err != nil {
			return err
		}
	}
	if err := writeElements(w, s.FundingOutpoint, s.UptimeSeconds, s.Since,
		s.CommitmentNumber, s.TotalPayments, s.PendingPayments); err != nil {
		return err
	}
	if err := s.Params.encode(w); err != nil {
		return err
	}
	if err := s.LocalKeys.encode(w); err != nil {
		return err
	}
	return s.RemoteKeys.encode(w)
}

func (s *Snapshot) decode(r io.Reader) error {
	if err := readElements(r, &s.Local, &s.Peer, &s.State, &s.ChannelID,
		&s.LocalCapacity, &s.RemoteCapacity); err != nil {
		return err
	}
	var n uint32
	if err := readElement(r, &n); err != nil {
		return err
	}
	s.LocalBalances = make([]Balance, n)
	for i := range s.LocalBalances {
		if err := readElements(r, &s.LocalBalances[i].Asset, &s.LocalBalances[i].Amount); err != nil {
			return err
		}
	}
	if err := readElement(r, &n); err != nil {
		return err
	}
	s.RemoteBalances = make([]Balance, n)
	for i := range s.RemoteBalances {
		if err := readElements(r, &s.RemoteBalances[i].Asset, &s.RemoteBalances[i].Amount); err != nil {
			return err
		}
	}
	if err := readElements(r, &s.FundingOutpoint, &s.UptimeSeconds, &s.Since,
		&s.CommitmentNumber, &s.TotalPayments, &s.PendingPayments); err != nil {
		return err
	}
	if err := s.Params.decode(r); err != nil {
		return err
	}
	if err := s.LocalKeys.decode(r); err != nil {
		return err
	}
	return s.RemoteKeys.decode(r)
}
