// Package netx has small address helpers shared by the transports.
package netx

import (
	"net"
	"strings"
)

// UnknownOrigin is the origin of a caller whose address cannot be determined.
// All such callers share one rate-limit bucket.
const UnknownOrigin = "unknown"

// HostOf returns the host part of a "host:port" address, without IPv6
// brackets. Addresses without a port are returned trimmed.
func HostOf(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return UnknownOrigin
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		if host == "" {
			return UnknownOrigin
		}
		return host
	}
	return strings.Trim(addr, "[]")
}

// OriginOf returns the rate-limit origin for a peer address. Unix socket and
// in-process peers have no host and map to their network name.
func OriginOf(addr net.Addr) string {
	if addr == nil {
		return UnknownOrigin
	}
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP.String()
	case *net.UDPAddr:
		return a.IP.String()
	}
	if s := addr.String(); s != "" && strings.Contains(s, ":") {
		return HostOf(s)
	}
	if n := addr.Network(); n != "" {
		return n
	}
	return UnknownOrigin
}
