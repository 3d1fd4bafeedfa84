package address

import "net"

// IsNodeEndpoint reports whether s parses as a reachable node endpoint: a
// TCP host:port pair. Only TCP is accepted here — the string serves as a
// routing key on the bus and as the address connectiond dials over plain
// TCP, so the validation is narrower than lncfg.ParseAddressString (which
// also understands unix sockets, onion hosts and bare ports).
func IsNodeEndpoint(s string) bool {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return false
	}
	if host == "" || port == "" {
		return false
	}
	if _, _, err := net.ParseCIDR(host + "/32"); err == nil {
		return true
	}
	if net.ParseIP(host) != nil {
		return true
	}
	// Accept hostnames as well as literal IPs. The check is purely
	// syntactic (letters, digits, '.', '-', '_'); no name resolution is
	// attempted.
	return isValidHostname(host)
}

func isValidHostname(host string) bool {
	if len(host) == 0 || len(host) > 253 {
		return false
	}
	for _, r := range host {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
