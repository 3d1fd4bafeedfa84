package channeld

import (
	"time"

	"github.com/btcsuite/btcutil"

	"github.com/lnp-node/lnpnode/lnperrors"
	"github.com/lnp-node/lnpnode/lnpwp"
	"github.com/lnp-node/lnpnode/request"
)

// Policy bounds the parameter choices this channeld will accept from a
// counterparty, standing in for the config-driven constraint object the
// teacher pack calls ChannelConstraints (lnwallet/reservation.go,
// CommitConstraints). The numeric bounds below are ported directly from
// that function.
type Policy struct {
	MaxToSelfDelay     uint16
	MinAcceptedHtlcs   uint16
	MaxAcceptedHtlcs   uint16
	MaxReserveRatio    btcutil.Amount // channel reserve must be <= capacity/MaxReserveRatio
	MaxMinimumDepth    uint32
	NegotiationTimeout time.Duration // spec.md §9 open question (c)
}

// DefaultPolicy mirrors lnwallet/reservation.go's CommitConstraints:
// csv delay capped at 10000, channel reserve capped at 1/5 of capacity,
// max_accepted_htlcs in [5, 483] (483 = BOLT-2's MaxHTLCNumber/2).
func DefaultPolicy() Policy {
	return Policy{
		MaxToSelfDelay:     10000,
		MinAcceptedHtlcs:   5,
		MaxAcceptedHtlcs:   483,
		MaxReserveRatio:    5,
		MaxMinimumDepth:    144,
		NegotiationTimeout: 60 * time.Second,
	}
}

// ParamsFromOpen applies BOLT-2 acceptance rules to an originator's
// OpenChannel proposal (spec.md §4.3.2, "ChannelParams::with"). MinimumDepth
// is left zero; it is only known once the responder's AcceptChannel is
// validated in ParamsUpdated.
func ParamsFromOpen(policy Policy, capacity btcutil.Amount, open *lnpwp.OpenChannel) (request.ChannelParams, error) {
	if open.DustLimitSatoshis <= 0 {
		return request.ChannelParams{}, lnperrors.ChannelNegotiation(
			"dust_limit_satoshis must be positive")
	}
	if open.DustLimitSatoshis > open.ChannelReserveSatoshis {
		return request.ChannelParams{}, lnperrors.ChannelNegotiation(
			"channel_reserve_satoshis %d is below dust_limit_satoshis %d",
			open.ChannelReserveSatoshis, open.DustLimitSatoshis)
	}
	maxReserve := capacity / policy.MaxReserveRatio
	if open.ChannelReserveSatoshis > maxReserve {
		return request.ChannelParams{}, lnperrors.ChannelNegotiation(
			"channel_reserve_satoshis %d exceeds policy maximum %d",
			open.ChannelReserveSatoshis, maxReserve)
	}
	if lnpwp.MilliSatoshi(open.HtlcMinimumMsat) > open.MaxHtlcValueInFlightMsat {
		return request.ChannelParams{}, lnperrors.ChannelNegotiation(
			"htlc_minimum_msat %d exceeds max_htlc_value_in_flight_msat %d",
			open.HtlcMinimumMsat, open.MaxHtlcValueInFlightMsat)
	}
	if open.ToSelfDelay > policy.MaxToSelfDelay {
		return request.ChannelParams{}, lnperrors.ChannelNegotiation(
			"to_self_delay %d exceeds policy maximum %d",
			open.ToSelfDelay, policy.MaxToSelfDelay)
	}
	if err := checkMaxAcceptedHtlcs(policy, open.MaxAcceptedHtlcs); err != nil {
		return request.ChannelParams{}, err
	}

	return request.ChannelParams{
		DustLimitSatoshis:        open.DustLimitSatoshis,
		MaxHtlcValueInFlightMsat: open.MaxHtlcValueInFlightMsat,
		ChannelReserveSatoshis:   open.ChannelReserveSatoshis,
		HtlcMinimumMsat:          open.HtlcMinimumMsat,
		ToSelfDelay:              open.ToSelfDelay,
		MaxAcceptedHtlcs:         open.MaxAcceptedHtlcs,
	}, nil
}

// ParamsUpdated validates the responder's AcceptChannel choices against
// params already derived from the originator's OpenChannel, and merges the
// responder-chosen fields in (spec.md §4.3.2, "ChannelParams::updated"):
// dust limit must be monotone non-decreasing, the reserve must still clear
// the new dust limit, to_self_delay and minimum_depth must fall within
// local policy.
func ParamsUpdated(policy Policy, params request.ChannelParams, accept *lnpwp.AcceptChannel) (request.ChannelParams, error) {
	if accept.DustLimitSatoshis < params.DustLimitSatoshis {
		return params, lnperrors.ChannelNegotiation(
			"responder dust_limit_satoshis %d is lower than the proposed %d",
			accept.DustLimitSatoshis, params.DustLimitSatoshis)
	}
	if accept.ChannelReserveSatoshis < accept.DustLimitSatoshis {
		return params, lnperrors.ChannelNegotiation(
			"responder channel_reserve_satoshis %d is below its own dust_limit_satoshis %d",
			accept.ChannelReserveSatoshis, accept.DustLimitSatoshis)
	}
	if accept.ToSelfDelay > policy.MaxToSelfDelay {
		return params, lnperrors.ChannelNegotiation(
			"responder to_self_delay %d exceeds policy maximum %d",
			accept.ToSelfDelay, policy.MaxToSelfDelay)
	}
	if accept.MinimumDepth > policy.MaxMinimumDepth {
		return params, lnperrors.ChannelNegotiation(
			"responder minimum_depth %d exceeds policy maximum %d",
			accept.MinimumDepth, policy.MaxMinimumDepth)
	}
	if err := checkMaxAcceptedHtlcs(policy, accept.MaxAcceptedHtlcs); err != nil {
		return params, err
	}

	params.DustLimitSatoshis = accept.DustLimitSatoshis
	params.ChannelReserveSatoshis = accept.ChannelReserveSatoshis
	params.ToSelfDelay = accept.ToSelfDelay
	params.MaxAcceptedHtlcs = accept.MaxAcceptedHtlcs
	params.MinimumDepth = accept.MinimumDepth
	return params, nil
}

func checkMaxAcceptedHtlcs(policy Policy, n uint16) error {
	if n > policy.MaxAcceptedHtlcs {
		return lnperrors.ChannelNegotiation(
			"max_accepted_htlcs %d exceeds the BOLT-2 maximum of %d",
			n, policy.MaxAcceptedHtlcs)
	}
	if n < policy.MinAcceptedHtlcs {
		return lnperrors.ChannelNegotiation(
			"max_accepted_htlcs %d is below policy minimum %d",
			n, policy.MinAcceptedHtlcs)
	}
	return nil
}
