package esb

import "fmt"

// Bus names one of the two logical message-oriented transports a daemon
// connects to, plus a reserved pseudo-bus for future use (spec.md §4.1).
type Bus byte

const (
	// Msg carries peer-relayed protocol traffic (LNPWP frames).
	Msg Bus = iota
	// Ctl carries operator/control-plane traffic.
	Ctl
	// Bridge is reserved; any request addressed to it fails with
	// NotSupported, at the Controller/Senders layer rather than in a
	// handler.
	Bridge
)

func (b Bus) String() string {
	switch b {
	case Msg:
		return "Msg"
	case Ctl:
		return "Ctl"
	case Bridge:
		return "Bridge"
	default:
		return fmt.Sprintf("Bus(%d)", byte(b))
	}
}
