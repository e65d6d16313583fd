// Package transport defines the byte-stream and connectivity collaborators
// the request driver is built against, and provides production
// implementations on top of the outline-sdk stream dialer.
package transport

import "net"

// Client is the non-blocking byte-stream surface the driver polls. All
// methods return immediately; connection establishment runs in the
// background and is observed through Connected.
type Client interface {
	// Connect starts establishing a connection to host:port. It reports
	// false only when a connection attempt cannot even be started.
	Connect(host string, port int) bool
	// Connected reports whether the stream is established and not yet
	// closed by either side.
	Connected() bool
	// Available returns the number of bytes that can be read without
	// blocking.
	Available() int
	// ReadByte pops one buffered byte. ok is false when nothing is
	// available.
	ReadByte() (b byte, ok bool)
	// Print writes s to the stream.
	Print(s string) error
	// Stop closes the stream. Safe to call at any time, idempotent.
	Stop()
}

// LinkChecker answers the single synchronous "is the link up" query
// consulted once per session, at Begin.
type LinkChecker interface {
	LinkUp() bool
}

// InterfaceLinkChecker reports the link up when any non-loopback interface
// is up and has an address assigned.
type InterfaceLinkChecker struct{}

func NewInterfaceLinkChecker() *InterfaceLinkChecker {
	return &InterfaceLinkChecker{}
}

func (c *InterfaceLinkChecker) LinkUp() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}
