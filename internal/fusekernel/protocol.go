package fusekernel

import "fmt"

// Protocol identifies a version of the FUSE wire protocol, negotiated
// between the kernel and userspace during the INIT handshake.
type Protocol struct {
	Major uint32
	Minor uint32
}

func (p Protocol) String() string {
	return fmt.Sprintf("%d.%d", p.Major, p.Minor)
}

// LT returns whether p is strictly older than other.
func (p Protocol) LT(other Protocol) bool {
	if p.Major != other.Major {
		return p.Major < other.Major
	}
	return p.Minor < other.Minor
}

// GE returns whether p is at least as new as other.
func (p Protocol) GE(other Protocol) bool {
	return !p.LT(other)
}

// The oldest kernel ABI this package is willing to speak. Requests from an
// older kernel are rejected with EPROTO during INIT.
var MinProtocol = Protocol{Major: 7, Minor: 6}

// The newest ABI this package understands. Offered to the kernel during
// INIT; the kernel may negotiate down to its own maximum.
var MaxProtocol = Protocol{Major: 7, Minor: 31}

// HasReaddirplus reports whether the protocol version supports the
// READDIRPLUS opcode and its associated init flags.
func (p Protocol) HasReaddirplus() bool {
	return p.GE(Protocol{Major: 7, Minor: 21})
}

// HasCongestionControl reports whether the protocol version negotiates
// max_background/congestion_threshold during INIT.
func (p Protocol) HasCongestionControl() bool {
	return p.GE(Protocol{Major: 7, Minor: 13})
}
