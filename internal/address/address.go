// Package address derives the loopback address a guarded command locks on.
//
// Each user gets a private slice of 127.0.0.0/8: the uid is packed into the
// second and third octets, so two users picking the same port never collide
// while one user always finds their own lock again.
package address

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// MaxPort is the largest valid TCP port.
const MaxPort = 65535

// dottedQuadRe matches four dot-separated groups of digits. Octet ranges are
// checked later by [LockAddress.IP4].
var dottedQuadRe = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// LockAddress is the IPv4 host and port a guard binds to.
type LockAddress struct {
	// Host is a dotted-quad IPv4 literal.
	Host string
	// Port is in 1..[MaxPort].
	Port int
}

// String renders the address as host:port.
func (a LockAddress) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// IP4 converts Host to its four octets. It fails when Host is not a dotted
// quad or when an octet exceeds 255.
func (a LockAddress) IP4() ([4]byte, error) {
	var ip [4]byte
	if !Valid(a.Host) {
		return ip, &InvalidError{Host: a.Host}
	}
	for i, part := range strings.Split(a.Host, ".") {
		n, err := strconv.Atoi(part)
		if err != nil || n > 255 {
			return ip, fmt.Errorf("octet %q of %s is out of range", part, a.Host)
		}
		ip[i] = byte(n)
	}
	return ip, nil
}

// InvalidError reports an explicit address that is not a dotted quad.
type InvalidError struct {
	Host string
}

func (e *InvalidError) Error() string {
	return "Invalid address: " + e.Host
}

// ///////////////////////////////////////////////
// Derivation
// ///////////////////////////////////////////////

// Valid reports whether host has dotted-quad shape.
func Valid(host string) bool {
	return dottedQuadRe.MatchString(host)
}

// Synthesize returns the per-user loopback host 127.<hi>.<lo>.1, where hi and
// lo are the big-endian bytes of uid truncated to 16 bits.
func Synthesize(uid int) string {
	u := uint16(uid)
	return fmt.Sprintf("127.%d.%d.1", u>>8, u&0xff)
}

// Derive builds the LockAddress for one invocation. A non-empty override is
// used verbatim after a syntax check; otherwise the host is synthesized from
// uid.
func Derive(override string, uid, port int) (LockAddress, error) {
	if port <= 0 || port > MaxPort {
		return LockAddress{}, fmt.Errorf("port %d is out of range 1..%d", port, MaxPort)
	}
	if override != "" {
		if !Valid(override) {
			return LockAddress{}, &InvalidError{Host: override}
		}
		return LockAddress{Host: override, Port: port}, nil
	}
	return LockAddress{Host: Synthesize(uid), Port: port}, nil
}
