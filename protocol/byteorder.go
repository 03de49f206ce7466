package protocol

import (
	"encoding/binary"
	"math/bits"
)

// wire is the byte order of every multi-byte integer on the wire.
var wire = binary.BigEndian

var hostBigEndian = binary.NativeEndian.Uint16([]byte{0x01, 0x02}) == 0x0102

// IsBigEndian reports whether the host stores integers most significant byte first.
func IsBigEndian() bool {
	return hostBigEndian
}

// Hton16 converts a host order value to network order.
func Hton16(v uint16) uint16 {
	if hostBigEndian {
		return v
	}
	return bits.ReverseBytes16(v)
}

func Hton32(v uint32) uint32 {
	if hostBigEndian {
		return v
	}
	return bits.ReverseBytes32(v)
}

func Hton64(v uint64) uint64 {
	if hostBigEndian {
		return v
	}
	return bits.ReverseBytes64(v)
}

// Ntoh16 converts a network order value to host order.
// Byte swapping is an involution, so it is the same operation as Hton16.
func Ntoh16(v uint16) uint16 { return Hton16(v) }

func Ntoh32(v uint32) uint32 { return Hton32(v) }

func Ntoh64(v uint64) uint64 { return Hton64(v) }
