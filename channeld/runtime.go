// Package channeld owns exactly one channel: its state machine, its keys,
// and its commitment sequence (spec.md §4.3). The Handler/Senders split and
// the Msg/Ctl bus dispatch are grounded on
// original_source/src/channeld/runtime.rs's Runtime/handle_rpc_msg/
// handle_rpc_ctl shape; the cryptography calls into chanfunding, which in
// turn is grounded on backend-engineer1-land/lnwallet/script_utils.go.
package channeld

import (
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"

	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/chanfunding"
	"github.com/lnp-node/lnpnode/esb"
	"github.com/lnp-node/lnpnode/lnperrors"
	"github.com/lnp-node/lnpnode/lnpwp"
	"github.com/lnp-node/lnpnode/log"
	"github.com/lnp-node/lnpnode/request"
	"github.com/lnp-node/lnpnode/storage"
)

// feeratePerKw is a fixed placeholder feerate; this core has no fee
// estimator (out of scope per spec.md §1), so every OpenChannel proposes
// the same conservative value.
const feeratePerKw = 253

// defaultDustLimit, defaultHtlcMinimumMsat and defaultMinimumDepth stand in
// for the config-driven policy defaults a real node would load; mirrors
// lnwallet.DefaultDustLimit's role but as a fixed constant since this core
// carries no fee-estimation wallet.
const (
	defaultDustLimit        = btcutil.Amount(546)
	defaultHtlcMinimumMsat  = lnpwp.MilliSatoshi(1000)
	defaultMinimumDepth     = uint32(3)
	defaultMaxAcceptedHtlcs = uint16(30)
)

// Channel is the runtime object described in spec.md §3: one per channeld
// process, carrying identity, peer address, both key sets, params,
// capacities, funding outpoint, commitment number, obscuring factor,
// originator flag, counters, an optional enquirer, and a storage driver.
// It keeps no per-asset balances; local and remote capacity are the only
// amounts it tracks.
type Channel struct {
	mu sync.Mutex

	identity    address.ServiceAddress
	peerService address.ServiceAddress
	hasEnquirer bool
	enquirer    address.ServiceAddress

	initialized bool
	originator  bool
	state       State

	tempChannelID lnpwp.ChannelID
	channelID     lnpwp.ChannelID
	hasChannelID  bool

	fundingAmount btcutil.Amount
	pushMsat      lnpwp.MilliSatoshi

	params     request.ChannelParams
	localKeys  request.ChannelKeys
	localPriv  *btcec.PrivateKey
	remoteKeys request.ChannelKeys
	hasRemoteKeys bool

	witnessScript []byte

	fundingOutpoint wire.OutPoint
	hasOutpoint     bool

	commitmentNumber uint64
	obscuringFactor  uint64

	localCapacity  btcutil.Amount
	remoteCapacity btcutil.Amount

	localLocked  bool
	remoteLocked bool

	totalPayments   uint64
	pendingPayments uint64

	policy         Policy
	storage        storage.Driver
	storageDir     string
	storageReady   bool

	negotiationTimer *time.Timer

	startedAt time.Time
	since     int64
}

// New constructs a Channel runtime object for a freshly spawned channeld,
// identified on the bus by its TempChannelID until funding (spec.md §3
// "Lifecycle").
func New(tempChannelID lnpwp.ChannelID, policy Policy, driver storage.Driver, storageDir string) *Channel {
	return &Channel{
		identity:      address.Channel(tempChannelID),
		state:         StateProposed,
		tempChannelID: tempChannelID,
		policy:        policy,
		storage:       driver,
		storageDir:    storageDir,
		startedAt:     time.Now(),
		since:         time.Now().Unix(),
	}
}

// Identity returns the address this channeld is currently reachable under:
// Channel(temp) before funding, Channel(real) afterward (spec.md §3).
func (c *Channel) Identity() address.ServiceAddress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Handle implements esb.Handler.
func (c *Channel) Handle(senders esb.Senders, bus esb.Bus, source address.ServiceAddress, req request.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch bus {
	case esb.Msg:
		return c.handleMsg(senders, source, req)
	case esb.Ctl:
		return c.handleCtl(senders, source, req)
	default:
		return lnperrors.NotSupported(bus.String(), typeName(req.Type()))
	}
}

// HandleErr is a no-op, per spec.md §4.1.
func (c *Channel) HandleErr(error) error { return nil }

func (c *Channel) handleMsg(senders esb.Senders, source address.ServiceAddress, req request.Request) error {
	pm, ok := req.(*request.PeerMessage)
	if !ok {
		return lnperrors.NotSupported(esb.Msg.String(), typeName(req.Type()))
	}

	switch m := pm.Msg.(type) {
	case *lnpwp.OpenChannel:
		// connectiond redelivers the triggering OpenChannel to the
		// responder channeld once it is wired up (spec.md §4.4); this
		// is the responder-side mirror of the opener's "Msg
		// AcceptChannel" row in §4.3.1's table.
		return c.onPeerOpenChannel(senders, m)
	case *lnpwp.AcceptChannel:
		return c.onPeerAcceptChannel(senders, m)
	case *lnpwp.FundingCreated:
		return c.onPeerFundingCreated(senders, m)
	case *lnpwp.FundingSigned:
		return c.onPeerFundingSigned(senders, m)
	case *lnpwp.FundingLocked:
		return c.onPeerFundingLocked(senders, m)
	default:
		return lnperrors.NotSupported(esb.Msg.String(), "PeerMessage")
	}
}

func (c *Channel) handleCtl(senders esb.Senders, source address.ServiceAddress, req request.Request) error {
	switch r := req.(type) {
	case *request.OpenChannelWith:
		return c.beginAsOriginator(senders, r.ChannelReq, r.Peerd, r.ReportTo)
	case *request.AcceptChannelFrom:
		return c.beginAsResponder(senders, r.ChannelReq, r.Peerd, r.ReportTo)
	case *request.CreateChannel:
		if r.ChannelReq.Originator {
			return c.beginAsOriginator(senders, r.ChannelReq, r.Peerd, address.Loopback)
		}
		return c.beginAsResponder(senders, r.ChannelReq, r.Peerd, address.Loopback)
	case *request.FundChannel:
		return c.onFundChannel(senders, r)
	case *request.Transfer:
		return c.onTransfer(senders, r)
	case *request.GetInfo:
		return c.onGetInfo(senders, source)
	case *request.NegotiationTimeout:
		return c.onNegotiationTimeout(senders)
	default:
		return lnperrors.NotSupported(esb.Ctl.String(), typeName(req.Type()))
	}
}

// beginAsOriginator implements the "— | Ctl OpenChannelWith" row of
// spec.md §4.3.1's table: set originator=true, compute params+local_keys,
// send OpenChannel, land in Proposed.
func (c *Channel) beginAsOriginator(senders esb.Senders, chanReq request.ChannelRequest,
	peerd, reportTo address.ServiceAddress) error {

	if c.initialized {
		return lnperrors.Other("channel already initialized")
	}

	keys, err := GenerateLocalKeys()
	if err != nil {
		return err
	}

	c.initialized = true
	c.originator = true
	c.tempChannelID = chanReq.TempChannelID
	c.peerService = peerd
	if !reportTo.Equal(address.Loopback) {
		c.hasEnquirer = true
		c.enquirer = reportTo
	}
	c.fundingAmount = chanReq.FundingSatoshis
	c.pushMsat = chanReq.PushMsat
	c.localKeys = keys.Keys
	c.localPriv = keys.FundingPrivKey
	c.params = request.ChannelParams{
		DustLimitSatoshis:        defaultDustLimit,
		MaxHtlcValueInFlightMsat: lnpwp.MilliSatoshi(chanReq.FundingSatoshis) * 1000,
		ChannelReserveSatoshis:   chanReq.FundingSatoshis / 100,
		HtlcMinimumMsat:          defaultHtlcMinimumMsat,
		ToSelfDelay:              orDefaultDelay(chanReq.ToSelfDelay),
		MaxAcceptedHtlcs:         defaultMaxAcceptedHtlcs,
	}

	open := &lnpwp.OpenChannel{
		TemporaryChannelID:       c.tempChannelID,
		FundingSatoshis:          c.fundingAmount,
		PushMsat:                 c.pushMsat,
		DustLimitSatoshis:        c.params.DustLimitSatoshis,
		MaxHtlcValueInFlightMsat: c.params.MaxHtlcValueInFlightMsat,
		ChannelReserveSatoshis:   c.params.ChannelReserveSatoshis,
		HtlcMinimumMsat:          c.params.HtlcMinimumMsat,
		FeeratePerKw:             feeratePerKw,
		ToSelfDelay:              c.params.ToSelfDelay,
		MaxAcceptedHtlcs:         c.params.MaxAcceptedHtlcs,
		FundingPubkey:            c.localKeys.FundingPubkey,
		RevocationBasepoint:      c.localKeys.RevocationBasepoint,
		PaymentBasepoint:         c.localKeys.PaymentBasepoint,
		DelayedPaymentBasepoint:  c.localKeys.DelayedPaymentBasepoint,
		HtlcBasepoint:            c.localKeys.HtlcBasepoint,
		FirstPerCommitmentPoint:  c.localKeys.FirstPerCommitmentPoint,
	}

	c.state = StateProposed
	c.armNegotiationTimer(senders)
	return senders.SendTo(esb.Msg, c.identity, c.peerService, &request.PeerMessage{Msg: open})
}

// beginAsResponder implements the "— | Ctl AcceptChannelFrom" row: set
// originator=false, compute params and this side's local keys, send
// AcceptChannel, land in Accepted. The remote keys arrive later with the
// peer's OpenChannel (onPeerOpenChannel).
func (c *Channel) beginAsResponder(senders esb.Senders, chanReq request.ChannelRequest,
	peerd, reportTo address.ServiceAddress) error {

	if c.initialized {
		return lnperrors.Other("channel already initialized")
	}

	keys, err := GenerateLocalKeys()
	if err != nil {
		return err
	}

	c.initialized = true
	c.originator = false
	c.tempChannelID = chanReq.TempChannelID
	c.peerService = peerd
	if !reportTo.Equal(address.Loopback) {
		c.hasEnquirer = true
		c.enquirer = reportTo
	}
	c.fundingAmount = chanReq.FundingSatoshis
	c.localKeys = keys.Keys
	c.localPriv = keys.FundingPrivKey
	c.params = request.ChannelParams{
		DustLimitSatoshis:        defaultDustLimit,
		MaxHtlcValueInFlightMsat: lnpwp.MilliSatoshi(chanReq.FundingSatoshis) * 1000,
		ChannelReserveSatoshis:   chanReq.FundingSatoshis / 100,
		HtlcMinimumMsat:          defaultHtlcMinimumMsat,
		ToSelfDelay:              orDefaultDelay(chanReq.ToSelfDelay),
		MaxAcceptedHtlcs:         defaultMaxAcceptedHtlcs,
		MinimumDepth:             defaultMinimumDepth,
	}

	accept := &lnpwp.AcceptChannel{
		TemporaryChannelID:       c.tempChannelID,
		DustLimitSatoshis:        c.params.DustLimitSatoshis,
		MaxHtlcValueInFlightMsat: c.params.MaxHtlcValueInFlightMsat,
		ChannelReserveSatoshis:   c.params.ChannelReserveSatoshis,
		HtlcMinimumMsat:          c.params.HtlcMinimumMsat,
		MinimumDepth:             c.params.MinimumDepth,
		ToSelfDelay:              c.params.ToSelfDelay,
		MaxAcceptedHtlcs:         c.params.MaxAcceptedHtlcs,
		FundingPubkey:            c.localKeys.FundingPubkey,
		RevocationBasepoint:      c.localKeys.RevocationBasepoint,
		PaymentBasepoint:         c.localKeys.PaymentBasepoint,
		DelayedPaymentBasepoint:  c.localKeys.DelayedPaymentBasepoint,
		HtlcBasepoint:            c.localKeys.HtlcBasepoint,
		FirstPerCommitmentPoint:  c.localKeys.FirstPerCommitmentPoint,
	}

	c.state = StateAccepted
	c.armNegotiationTimer(senders)
	return senders.SendTo(esb.Msg, c.identity, c.peerService, &request.PeerMessage{Msg: accept})
}

// onPeerOpenChannel fills the responder-side symmetry gap: validate the
// opener's params, store its keys, derive the funding script, and report
// it to the enquirer, same as the opener does on receiving AcceptChannel.
func (c *Channel) onPeerOpenChannel(senders esb.Senders, open *lnpwp.OpenChannel) error {
	if c.originator || c.hasRemoteKeys {
		return lnperrors.Other("unexpected OpenChannel in this channel's role/state")
	}

	params, err := ParamsFromOpen(c.policy, open.FundingSatoshis, open)
	if err != nil {
		c.reportFailure(senders, err)
		return err
	}
	c.params.ToSelfDelay = params.ToSelfDelay

	c.remoteKeys = RemoteKeysFromOpenOrAccept(
		open.FundingPubkey, open.RevocationBasepoint, open.PaymentBasepoint,
		open.DelayedPaymentBasepoint, open.HtlcBasepoint, open.FirstPerCommitmentPoint,
	)
	c.hasRemoteKeys = true
	c.fundingAmount = open.FundingSatoshis

	return c.deriveFundingScriptAndReport(senders)
}

// onPeerAcceptChannel implements "Proposed | Msg AcceptChannel": validate
// params, store remote_keys, derive funding script, emit
// ChannelFunding(script) to enquirer, land in Accepted.
func (c *Channel) onPeerAcceptChannel(senders esb.Senders, accept *lnpwp.AcceptChannel) error {
	if !c.originator || c.state != StateProposed {
		return lnperrors.Other("unexpected AcceptChannel in this channel's role/state")
	}

	params, err := ParamsUpdated(c.policy, c.params, accept)
	if err != nil {
		c.reportFailure(senders, err)
		return err
	}
	c.params = params

	c.remoteKeys = RemoteKeysFromOpenOrAccept(
		accept.FundingPubkey, accept.RevocationBasepoint, accept.PaymentBasepoint,
		accept.DelayedPaymentBasepoint, accept.HtlcBasepoint, accept.FirstPerCommitmentPoint,
	)
	c.hasRemoteKeys = true

	return c.deriveFundingScriptAndReport(senders)
}

func (c *Channel) deriveFundingScriptAndReport(senders esb.Senders) error {
	script, _, err := chanfunding.FundingScript(
		c.localKeys.FundingPubkey, c.remoteKeys.FundingPubkey, c.fundingAmount,
	)
	if err != nil {
		return lnperrors.ChannelNegotiation("deriving funding script: %v", err)
	}
	c.witnessScript = script
	c.state = StateAccepted

	if c.hasEnquirer {
		if err := senders.SendTo(esb.Ctl, c.identity, c.enquirer,
			&request.ChannelFunding{Script: script}); err != nil {
			log.ChanneldLog.Warnf("channeld: reporting funding script: %v", err)
		}
	}
	return nil
}

// onFundChannel implements "Accepted | Ctl FundChannel(outpoint)": store
// outpoint, run funding-update, sign the counterparty's commitment, send
// FundingCreated, land in FundingCreated. Only the originator holds the
// funding outpoint directly; the responder learns it from the peer's
// FundingCreated message (see onPeerFundingCreated).
func (c *Channel) onFundChannel(senders esb.Senders, r *request.FundChannel) error {
	if !c.originator || c.state != StateAccepted {
		return lnperrors.Other("FundChannel is only valid for the originator in state Accepted")
	}

	c.fundingOutpoint = r.Outpoint
	c.hasOutpoint = true
	c.runFundingUpdate()

	sig, err := c.signCounterpartyCommitment()
	if err != nil {
		return lnperrors.ChannelNegotiation("signing counterparty commitment: %v", err)
	}

	msg := &lnpwp.FundingCreated{
		TemporaryChannelID: c.tempChannelID,
		FundingTxid:        r.Outpoint.Hash,
		FundingOutputIndex: uint16(r.Outpoint.Index),
		Signature:          sig,
	}
	c.state = StateFundingCreated

	if err := senders.SendTo(esb.Ctl, c.identity, address.Supervisor,
		&request.UpdateChannelID{ChannelID: c.channelID}); err != nil {
		log.ChanneldLog.Warnf("channeld: publishing UpdateChannelId: %v", err)
	}
	return senders.SendTo(esb.Msg, c.identity, c.peerService, &request.PeerMessage{Msg: msg})
}

// onPeerFundingCreated implements "Accepted | Msg FundingCreated": store
// outpoint, run funding-update, sign, send FundingSigned. Per this core's
// resolution of open question (a)/(b), the responder has nothing further
// to verify at this point (it is producing, not consuming, a signature),
// so it proceeds straight to Funded rather than lingering in
// FundingCreated — see DESIGN.md.
func (c *Channel) onPeerFundingCreated(senders esb.Senders, m *lnpwp.FundingCreated) error {
	if c.originator || c.state != StateAccepted {
		return lnperrors.Other("unexpected FundingCreated in this channel's role/state")
	}

	c.fundingOutpoint = wire.OutPoint{Hash: m.FundingTxid, Index: uint32(m.FundingOutputIndex)}
	c.hasOutpoint = true
	c.runFundingUpdate()

	sig, err := c.signCounterpartyCommitment()
	if err != nil {
		return lnperrors.ChannelNegotiation("signing counterparty commitment: %v", err)
	}

	if err := c.persist(); err != nil {
		return err
	}

	reply := &lnpwp.FundingSigned{ChannelID: c.channelID, Signature: sig}
	c.state = StateFunded
	c.cancelNegotiationTimer()
	if err := senders.SendTo(esb.Ctl, c.identity, address.Supervisor,
		&request.UpdateChannelID{ChannelID: c.channelID}); err != nil {
		log.ChanneldLog.Warnf("channeld: publishing UpdateChannelId: %v", err)
	}
	if err := senders.SendTo(esb.Msg, c.identity, c.peerService, &request.PeerMessage{Msg: reply}); err != nil {
		return err
	}
	return c.sendOwnFundingLocked(senders)
}

// onPeerFundingSigned implements "FundingCreated | Msg FundingSigned":
// verify the counterparty's signature against the locally constructed
// commitment and persist it before transitioning to Funded — the explicit
// resolution of open question (a).
func (c *Channel) onPeerFundingSigned(senders esb.Senders, m *lnpwp.FundingSigned) error {
	if !c.originator || c.state != StateFundingCreated {
		return lnperrors.Other("unexpected FundingSigned in this channel's role/state")
	}

	if err := c.verifyCounterpartySignature(m.Signature); err != nil {
		c.reportFailure(senders, err)
		return err
	}

	if err := c.persist(); err != nil {
		return err
	}

	c.state = StateFunded
	c.cancelNegotiationTimer()
	return c.sendOwnFundingLocked(senders)
}

// onPeerFundingLocked implements "Funded | Msg FundingLocked": store the
// counterparty's next per-commitment point, land in Locked, and promote to
// Operational once both sides are locked — the explicit resolution of open
// question (b). This core sends its own FundingLocked as soon as it enters
// Funded (see sendOwnFundingLocked), since chain-depth watching is out of
// scope (spec.md §1); so the first inbound FundingLocked typically
// completes the promotion to Operational immediately.
func (c *Channel) onPeerFundingLocked(senders esb.Senders, m *lnpwp.FundingLocked) error {
	if c.state != StateFunded && c.state != StateLocked {
		return lnperrors.Other("unexpected FundingLocked in this channel's state")
	}

	c.remoteKeys.FirstPerCommitmentPoint = m.NextPerCommitPoint
	c.remoteLocked = true

	if c.localLocked {
		c.state = StateOperational
		c.localCapacity = c.fundingAmount - c.remoteShare()
		c.remoteCapacity = c.remoteShare()
	} else {
		c.state = StateLocked
	}
	return nil
}

// sendOwnFundingLocked emits this channeld's own FundingLocked immediately
// on entering Funded, since there is no chain-depth watcher in this core
// to gate it on (spec.md §1 "blockchain confirmation watching" is out of
// scope, treated as an external collaborator).
func (c *Channel) sendOwnFundingLocked(senders esb.Senders) error {
	c.localLocked = true
	msg := &lnpwp.FundingLocked{
		ChannelID:          c.channelID,
		NextPerCommitPoint: c.localKeys.FirstPerCommitmentPoint,
	}
	if c.remoteLocked {
		c.state = StateOperational
		c.localCapacity = c.fundingAmount - c.remoteShare()
		c.remoteCapacity = c.remoteShare()
	}
	return senders.SendTo(esb.Msg, c.identity, c.peerService, &request.PeerMessage{Msg: msg})
}

// remoteShare is a placeholder split until a real settlement model
// decides how much of the funding output each side holds at Operational;
// this core gives the responder the channel reserve and the rest to the
// originator, which is enough to exercise the capacity-conservation
// invariant (spec.md §8). It returns the counterparty's part of that split.
func (c *Channel) remoteShare() btcutil.Amount {
	if c.originator {
		return c.params.ChannelReserveSatoshis
	}
	return c.fundingAmount - c.params.ChannelReserveSatoshis
}

// onTransfer implements "Operational | Ctl Transfer": build
// UpdateAddHtlc, increment counters, send (spec.md §8 scenario 4).
// Settlement (and therefore any change to the local/remote capacity split)
// is out of scope per spec.md §1, so Transfer only books a pending HTLC
// and leaves capacities untouched — capacity conservation then holds
// trivially for any sequence of Transfers.
func (c *Channel) onTransfer(senders esb.Senders, r *request.Transfer) error {
	if c.state != StateOperational {
		return lnperrors.ChannelNegotiation("Transfer is only valid in state Operational, channel is %s", c.state)
	}

	htlcID := c.totalPayments
	msg := &lnpwp.UpdateAddHTLC{
		ChannelID: c.channelID,
		ID:        htlcID,
		Amount:    r.Amount,
		Expiry:    144,
	}

	c.totalPayments++
	c.pendingPayments++

	return senders.SendTo(esb.Msg, c.identity, c.peerService, &request.PeerMessage{Msg: msg})
}

// onGetInfo implements spec.md §4.3.6: a snapshot of identities, state,
// capacities, funding outpoint, uptime, commitment number, counters,
// params and both key sets. The snapshot's LocalBalances and
// RemoteBalances are left empty, since Channel keeps no per-asset
// balances.
func (c *Channel) onGetInfo(senders esb.Senders, source address.ServiceAddress) error {
	snap := request.Snapshot{
		Local:            c.identity,
		Peer:             c.peerService,
		State:            byte(c.state),
		ChannelID:        c.channelID,
		LocalCapacity:    c.localCapacity,
		RemoteCapacity:   c.remoteCapacity,
		FundingOutpoint:  c.fundingOutpoint,
		UptimeSeconds:    int64(time.Since(c.startedAt).Seconds()),
		Since:            c.since,
		CommitmentNumber: c.commitmentNumber,
		TotalPayments:    c.totalPayments,
		PendingPayments:  c.pendingPayments,
		Params:           c.params,
		LocalKeys:        c.localKeys,
		RemoteKeys:       c.remoteKeys,
	}
	return senders.SendTo(esb.Ctl, c.identity, source, &request.ChannelInfo{Snapshot: snap})
}

// runFundingUpdate recomputes the obscuring factor exactly once, derives
// the final ChannelID from the funding outpoint, and switches this
// channeld's bus identity to it (spec.md §4.3.3, §4.3.4). Publishing
// UpdateChannelID to the supervisor is left to its callers.
func (c *Channel) runFundingUpdate() {
	if c.obscuringFactor != 0 {
		return
	}

	var opener, responder *btcec.PublicKey
	if c.originator {
		opener, responder = c.localKeys.PaymentBasepoint, c.remoteKeys.PaymentBasepoint
	} else {
		opener, responder = c.remoteKeys.PaymentBasepoint, c.localKeys.PaymentBasepoint
	}
	c.obscuringFactor = chanfunding.ObscuringFactor(opener, responder)

	id := chanfunding.DeriveChannelID(c.fundingOutpoint)
	c.channelID = lnpwp.ChannelID(id)
	c.hasChannelID = true
	c.identity = address.Channel(id)
}

// signCounterpartyCommitment builds and signs the counterparty's version
// of the commitment transaction (spec.md §4.3.5).
func (c *Channel) signCounterpartyCommitment() ([64]byte, error) {
	var local, remote btcutil.Amount
	if c.originator {
		local, remote = c.fundingAmount, 0
	} else {
		local, remote = 0, c.fundingAmount
	}

	params := chanfunding.CommitmentParams{
		FundingOutpoint:  c.fundingOutpoint,
		FundingAmount:    c.fundingAmount,
		WitnessScript:    c.witnessScript,
		ToLocalAmount:    remote,
		ToRemoteAmount:   local,
		ToSelfDelay:      c.params.ToSelfDelay,
		RevocationPubkey: c.remoteKeys.RevocationBasepoint,
		DelayedPubkey:    c.remoteKeys.DelayedPaymentBasepoint,
		RemotePubkey:     c.localKeys.PaymentBasepoint,
		CommitmentNumber: c.commitmentNumber,
		ObscuringFactor:  c.obscuringFactor,
	}

	tx, err := chanfunding.BuildCounterpartyCommitment(params)
	if err != nil {
		var sig [64]byte
		return sig, err
	}
	return chanfunding.SignCounterpartyCommitment(tx, params, c.localPriv)
}

// verifyCounterpartySignature reconstructs the local commitment this
// channeld should have received a signature over and verifies it against
// the counterparty's funding pubkey (resolving open question (a)).
func (c *Channel) verifyCounterpartySignature(sig [64]byte) error {
	var local, remote btcutil.Amount
	if c.originator {
		local, remote = 0, c.fundingAmount
	} else {
		local, remote = c.fundingAmount, 0
	}

	params := chanfunding.CommitmentParams{
		FundingOutpoint:  c.fundingOutpoint,
		FundingAmount:    c.fundingAmount,
		WitnessScript:    c.witnessScript,
		ToLocalAmount:    remote,
		ToRemoteAmount:   local,
		ToSelfDelay:      c.params.ToSelfDelay,
		RevocationPubkey: c.localKeys.RevocationBasepoint,
		DelayedPubkey:    c.localKeys.DelayedPaymentBasepoint,
		RemotePubkey:     c.remoteKeys.PaymentBasepoint,
		CommitmentNumber: c.commitmentNumber,
		ObscuringFactor:  c.obscuringFactor,
	}

	tx, err := chanfunding.BuildCounterpartyCommitment(params)
	if err != nil {
		return err
	}

	return chanfunding.VerifySignature(tx, params, c.remoteKeys.FundingPubkey, sig)
}

func (c *Channel) persist() error {
	if c.storage == nil {
		return nil
	}
	if !c.storageReady {
		if err := c.storage.Init(c.channelID, c.storageDir); err != nil {
			return err
		}
		c.storageReady = true
	}
	snap := request.Snapshot{
		Local: c.identity, Peer: c.peerService, State: byte(c.state),
		ChannelID: c.channelID, FundingOutpoint: c.fundingOutpoint,
		CommitmentNumber: c.commitmentNumber, Params: c.params,
		LocalKeys: c.localKeys, RemoteKeys: c.remoteKeys,
	}
	if err := c.storage.Store(snap); err != nil {
		return lnperrors.Storage("channeld: persisting funded channel: %v", err)
	}
	return nil
}

// armNegotiationTimer (re)starts the per-channel negotiation watchdog:
// if the channel hasn't left Proposed/Accepted/FundingCreated by the time
// it fires, a NegotiationTimeout is fed back into this channeld's own
// Handle the same way an inbound bus frame would be (spec.md §9 open
// question (c)). Timers can't be posted through the bus itself — a dealer
// Controller only ever has one upstream connection, to the router, so a
// self-addressed send would travel to the supervisor instead of looping
// back — so the callback invokes Handle directly.
func (c *Channel) armNegotiationTimer(senders esb.Senders) {
	if c.policy.NegotiationTimeout <= 0 {
		return
	}
	if c.negotiationTimer != nil {
		c.negotiationTimer.Stop()
	}
	identity := c.identity
	c.negotiationTimer = time.AfterFunc(c.policy.NegotiationTimeout, func() {
		_ = c.Handle(senders, esb.Ctl, identity, &request.NegotiationTimeout{})
	})
}

func (c *Channel) cancelNegotiationTimer() {
	if c.negotiationTimer != nil {
		c.negotiationTimer.Stop()
		c.negotiationTimer = nil
	}
}

// onNegotiationTimeout reports a stuck negotiation as a ChannelNegotiation
// error and notifies the enquirer, if any. A timer that fires after the
// channel already progressed past FundingCreated (a race between Stop and
// the timer's own goroutine) is a no-op.
func (c *Channel) onNegotiationTimeout(senders esb.Senders) error {
	switch c.state {
	case StateProposed, StateAccepted, StateFundingCreated:
	default:
		return nil
	}
	err := lnperrors.ChannelNegotiation(
		"channel %s timed out after %s in state %s", c.identity, c.policy.NegotiationTimeout, c.state,
	)
	c.reportFailure(senders, err)
	return err
}

func (c *Channel) reportFailure(senders esb.Senders, cause error) {
	if !c.hasEnquirer {
		return
	}
	if err := senders.SendTo(esb.Ctl, c.identity, c.enquirer,
		&request.ReportFailure{Error: cause.Error()}); err != nil {
		log.ChanneldLog.Warnf("channeld: reporting failure: %v", err)
	}
}

func orDefaultDelay(d uint16) uint16 {
	if d == 0 {
		return 144
	}
	return d
}

func typeName(t request.Type) string {
	return fmt.Sprintf("%d", t)
}
