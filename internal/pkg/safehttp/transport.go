// Package safehttp provides an HTTP transport that refuses to dial private,
// loopback and link-local addresses.
package safehttp

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"
)

// NewTransport returns a clone of http.DefaultTransport whose dialer rejects
// non-public destinations. The check runs on the resolved address, so DNS
// names that point inside the network are refused too.
func NewTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   control,
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = nil
	t.DialContext = dialer.DialContext
	return t
}

// Denied reports whether addr is outside the public unicast range.
func Denied(addr netip.Addr) bool {
	addr = addr.Unmap()
	return !addr.IsValid() ||
		addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified() ||
		addr.IsMulticast()
}

func control(network, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("failed to parse remote address %q: %w", address, err)
	}
	if Denied(ap.Addr()) {
		return fmt.Errorf("access to private IP %s is denied", ap.Addr())
	}
	return nil
}
