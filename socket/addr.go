// File: socket/addr.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package socket

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"github.com/momentics/sockio/api"
)

// ParseAddr parses a dotted-decimal IPv4 host into an endpoint with port.
// Hostnames, IPv6 text and the IPv4-mapped IPv6 form are rejected with
// api.ErrUnsupported: the toolkit performs no name resolution.
func ParseAddr(host string, port uint16) (netip.AddrPort, error) {
	ip, err := netip.ParseAddr(host)
	if err != nil || !ip.Is4() {
		return netip.AddrPort{}, &api.Error{
			Op:   "parse address",
			Kind: api.ErrUnsupported,
			Err:  fmt.Errorf("not a dotted-decimal IPv4 host: %q", host),
		}
	}
	return netip.AddrPortFrom(ip, port), nil
}

// ParseHostPort parses "a.b.c.d:port" under the same IPv4-only rule.
func ParseHostPort(hostport string) (netip.AddrPort, error) {
	host, portText, err := net.SplitHostPort(hostport)
	if err != nil {
		return netip.AddrPort{}, &api.Error{Op: "parse address", Kind: api.ErrUnsupported, Err: err}
	}
	port, err := strconv.ParseUint(portText, 10, 16)
	if err != nil {
		return netip.AddrPort{}, &api.Error{
			Op:   "parse address",
			Kind: api.ErrUnsupported,
			Err:  fmt.Errorf("port %q out of range", portText),
		}
	}
	return ParseAddr(host, uint16(port))
}
