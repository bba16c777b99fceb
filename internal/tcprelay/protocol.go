package tcprelay

import (
	"crypto/rand"
	"encoding/binary"
	"net"
)

// Magic values identify the 16-byte frames exchanged on the control
// and link connections (RATS/RATL/RATA/RATP in the wire protocol).
const (
	MagicSession uint32 = 0x52415453 // "RATS"
	MagicLink    uint32 = 0x5241544C // "RATL"
	MagicAddr    uint32 = 0x52415441 // "RATA"
	MagicPing    uint32 = 0x52415450 // "RATP"
)

const (
	idSize   = 16 // 4-byte magic + 12-byte unique id
	addrSize = 16 // IPv4-mapped-IPv6 form
)

// zeroID is the well-known unique value a new host connection sends to
// request a freshly minted session id from the relay.
var zeroID = [12]byte{}

// encodeID packs a magic and a 12-byte unique id into a 16-byte frame.
func encodeID(magic uint32, unique [12]byte) []byte {
	buf := make([]byte, idSize)
	binary.BigEndian.PutUint32(buf[:4], magic)
	copy(buf[4:], unique[:])
	return buf
}

// decodeID unpacks a 16-byte frame into its magic and unique id.
func decodeID(buf []byte) (magic uint32, unique [12]byte) {
	magic = binary.BigEndian.Uint32(buf[:4])
	copy(unique[:], buf[4:idSize])
	return magic, unique
}

// encodeAddress renders a peer's IP as the wire's 16-byte address
// field: IPv4-mapped for v4 addresses, packed 16 bytes for v6, and all
// zeros if addr doesn't parse (including the no-address case).
func encodeAddress(addr string) [addrSize]byte {
	var out [addrSize]byte
	if addr == "" {
		return out
	}
	ip := net.ParseIP(stripZone(addr))
	if ip == nil {
		return out
	}
	if v4 := ip.To4(); v4 != nil {
		out[10] = 0xff
		out[11] = 0xff
		copy(out[12:], v4)
		return out
	}
	v6 := ip.To16()
	if v6 == nil {
		return out
	}
	copy(out[:], v6)
	return out
}

// stripZone removes a trailing IPv6 zone identifier ("fe80::1%eth0").
func stripZone(addr string) string {
	for i, c := range addr {
		if c == '%' {
			return addr[:i]
		}
	}
	return addr
}

// peerIP extracts the IP portion of a net.Addr produced by a TCP
// connection's RemoteAddr, dropping the port.
func peerIP(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return ""
	}
	return host
}

// newUniqueID returns a random 12-byte id that isn't already present
// in the given set and isn't the reserved all-zero value.
func newUniqueID(taken func(id [12]byte) bool) [12]byte {
	for {
		var id [12]byte
		if _, err := rand.Read(id[:]); err != nil {
			continue
		}
		if id == zeroID {
			continue
		}
		if taken != nil && taken(id) {
			continue
		}
		return id
	}
}
