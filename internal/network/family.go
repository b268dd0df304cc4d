// Package network owns the UDP side of the robot controller: the socket
// listener, the supervisor that restarts it, and capture replay.
package network

import (
	"fmt"
	"net"
	"strings"
)

const (
	// DefaultPort is the well-known control port.
	DefaultPort = 50052

	// MaxDatagramSize is the largest payload accepted from one datagram.
	// Longer datagrams are truncated to this size before decoding.
	MaxDatagramSize = 127
)

// AddressFamily selects IPv4 or IPv6 for the listening socket. It is fixed
// at startup; the listener itself is family agnostic.
type AddressFamily int

const (
	IPv4 AddressFamily = iota
	IPv6
)

// ParseAddressFamily accepts "ipv4"/"4" or "ipv6"/"6". Empty means IPv4.
func ParseAddressFamily(s string) (AddressFamily, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ipv4", "4", "inet":
		return IPv4, nil
	case "ipv6", "6", "inet6":
		return IPv6, nil
	default:
		return IPv4, fmt.Errorf("unsupported address family %q: expected ipv4 or ipv6", s)
	}
}

func (f AddressFamily) String() string {
	switch f {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	default:
		return fmt.Sprintf("AddressFamily(%d)", int(f))
	}
}

// Network returns the net package network name for the family.
func (f AddressFamily) Network() string {
	if f == IPv6 {
		return "udp6"
	}
	return "udp4"
}

// WildcardAddr returns the any-address of the family on port.
func (f AddressFamily) WildcardAddr(port int) *net.UDPAddr {
	if f == IPv6 {
		return &net.UDPAddr{IP: net.IPv6unspecified, Port: port}
	}
	return &net.UDPAddr{IP: net.IPv4zero, Port: port}
}
