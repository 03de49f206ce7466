package protocol

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestHtonMatchesWireLayout(t *testing.T) {
	// Storing a converted value in native order must produce big-endian bytes.
	b16 := make([]byte, 2)
	binary.NativeEndian.PutUint16(b16, Hton16(0x0102))
	assert.Equal(t, []byte{0x01, 0x02}, b16)

	b32 := make([]byte, 4)
	binary.NativeEndian.PutUint32(b32, Hton32(Magic))
	assert.Equal(t, []byte("LPTF"), b32)

	b64 := make([]byte, 8)
	binary.NativeEndian.PutUint64(b64, Hton64(0x0102030405060708))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, b64)
}

func TestByteOrderRoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v16 := rapid.Uint16().Draw(t, "v16")
		v32 := rapid.Uint32().Draw(t, "v32")
		v64 := rapid.Uint64().Draw(t, "v64")

		if Ntoh16(Hton16(v16)) != v16 {
			t.Fatalf("16-bit round trip failed for %#x", v16)
		}
		if Ntoh32(Hton32(v32)) != v32 {
			t.Fatalf("32-bit round trip failed for %#x", v32)
		}
		if Ntoh64(Hton64(v64)) != v64 {
			t.Fatalf("64-bit round trip failed for %#x", v64)
		}
	})
}
