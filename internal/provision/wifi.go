package provision

import (
	"context"
	"errors"
	"net"
)

// ErrWiFiUnsupported is returned by radio operations on hosts whose network
// is managed outside the controller.
var ErrWiFiUnsupported = errors.New("wifi control not supported on this host")

// AccessPoint is one scan result.
type AccessPoint struct {
	SSID    string
	RSSI    int
	Channel int
}

// WiFi is the station-mode radio the console drives.
type WiFi interface {
	Scan(ctx context.Context) ([]AccessPoint, error)
	Connect(ctx context.Context, ssid, passwd string) error
	Stop() error
	// IPAddr returns the station address, or "" when not connected.
	IPAddr() string
}

// UnmanagedWiFi reports the host's address but leaves the radio alone.
type UnmanagedWiFi struct {
	// InterfaceAddrs lists host addresses; nil uses net.InterfaceAddrs.
	InterfaceAddrs func() ([]net.Addr, error)
}

func (w UnmanagedWiFi) Scan(context.Context) ([]AccessPoint, error) {
	return nil, ErrWiFiUnsupported
}

func (w UnmanagedWiFi) Connect(context.Context, string, string) error {
	return ErrWiFiUnsupported
}

func (w UnmanagedWiFi) Stop() error {
	return ErrWiFiUnsupported
}

// IPAddr returns the first non-loopback IPv4 address of the host.
func (w UnmanagedWiFi) IPAddr() string {
	list := w.InterfaceAddrs
	if list == nil {
		list = net.InterfaceAddrs
	}
	addrs, err := list()
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return ""
}
