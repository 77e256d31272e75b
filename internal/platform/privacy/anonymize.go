// Package privacy reduces client identifiers to a form safe to write to logs.
package privacy

import (
	"net/netip"

	"folio/pkg/requestcontext"
)

// Label returned when the input is not an address at all.
const Invalid = "invalid"

// AnonymizeIP masks a client address down to the network it came from so log
// lines can be correlated without naming a host. IPv4 keeps its /24 and IPv6
// keeps its /48. IPv4-mapped IPv6 addresses are treated as IPv4.
//
//	"192.168.1.47"                 -> "192.168.1.0/24"
//	"2001:db8:85a3::8a2e:370:7334" -> "2001:db8:85a3::/48"
func AnonymizeIP(ip string) string {
	if ip == "" || ip == requestcontext.UnknownClient {
		return requestcontext.UnknownClient
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return Invalid
	}
	addr = addr.Unmap().WithZone("")

	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return Invalid
	}
	return prefix.String()
}
