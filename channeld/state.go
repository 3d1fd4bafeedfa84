package channeld

// State enumerates the channel lifecycle nodes of spec.md §4.3.1.
type State byte

const (
	StateProposed State = iota
	StateAccepted
	StateFundingCreated
	StateFunded
	StateLocked
	StateOperational
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateProposed:
		return "Proposed"
	case StateAccepted:
		return "Accepted"
	case StateFundingCreated:
		return "FundingCreated"
	case StateFunded:
		return "Funded"
	case StateLocked:
		return "Locked"
	case StateOperational:
		return "Operational"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}
