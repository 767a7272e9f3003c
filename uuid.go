package bluetooth

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// A UUID is a Bluetooth UUID, stored as a 128-bit big-endian value.
// Shorter 16 and 32-bit UUIDs are expanded over the Bluetooth base UUID.
type UUID [16]byte

// ErrInvalidUUID is returned when a UUID string can not be parsed.
var ErrInvalidUUID = errors.New("invalid UUID")

// EmptyUUID is the all-zero UUID. It never names a service and is used to
// mark unused entries.
var EmptyUUID UUID

// baseUUID is 00000000-0000-1000-8000-00805F9B34FB.
var baseUUID = UUID{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00,
	0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB,
}

// UUID16 converts a uint16 (such as 0x1800) to a UUID.
func UUID16(i uint16) UUID {
	return UUID32(uint32(i))
}

// UUID32 converts a uint32 to a UUID.
func UUID32(i uint32) UUID {
	u := baseUUID
	binary.BigEndian.PutUint32(u[:4], i)
	return u
}

// From128BitBE returns the UUID whose big-endian representation is b.
func From128BitBE(b [16]byte) UUID { return UUID(b) }

// From128BitLE returns the UUID whose little-endian (on-air) representation is b.
func From128BitLE(b [16]byte) UUID {
	var u UUID
	copy(u[:], reverse(b[:]))
	return u
}

// ParseUUID parses a standard-format UUID string, such
// as "1800" or "34DA3AD1-7110-41A1-B1EF-4430F509CDE7".
func ParseUUID(s string) (UUID, error) {
	switch len(s) {
	case 4, 8:
		b, err := hex.DecodeString(s)
		if err != nil {
			return EmptyUUID, errors.Wrapf(ErrInvalidUUID, "%q", s)
		}
		if len(b) == 2 {
			return UUID16(binary.BigEndian.Uint16(b)), nil
		}
		return UUID32(binary.BigEndian.Uint32(b)), nil
	case 32, 36:
		u, err := uuid.Parse(s)
		if err != nil {
			return EmptyUUID, errors.Wrapf(ErrInvalidUUID, "%q: %v", s, err)
		}
		return UUID(u), nil
	}
	return EmptyUUID, errors.Wrapf(ErrInvalidUUID, "%q: bad length %d", s, len(s))
}

// MustParseUUID parses a standard-format UUID string,
// like Parse, but panics in case of error.
func MustParseUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// String returns the canonical lowercase form of the UUID,
// e.g. "00112233-4455-6677-8899-aabbccddeeff".
func (u UUID) String() string {
	return uuid.UUID(u).String()
}

// IsEmpty reports whether u is the EmptyUUID.
func (u UUID) IsEmpty() bool { return u == EmptyUUID }

// Equal returns a boolean reporting whether v represent the same UUID as u.
func (u UUID) Equal(v UUID) bool { return u == v }

// ShortestLen returns the length in bytes of the shortest on-air form of u:
// 2 or 4 when u lies on the base UUID, 16 otherwise.
func (u UUID) ShortestLen() int {
	if !bytes.Equal(u[4:], baseUUID[4:]) {
		return 16
	}
	if u[0] == 0 && u[1] == 0 {
		return 2
	}
	return 4
}

// As16Bit returns the 16-bit short form of u. It is only meaningful when
// ShortestLen returns 2.
func (u UUID) As16Bit() uint16 { return binary.BigEndian.Uint16(u[2:4]) }

// As32Bit returns the 32-bit short form of u. It is only meaningful when
// ShortestLen returns 2 or 4.
func (u UUID) As32Bit() uint32 { return binary.BigEndian.Uint32(u[:4]) }

// LittleEndian returns the 128-bit value in on-air byte order.
func (u UUID) LittleEndian() []byte { return reverse(u[:]) }

// MarshalText implements encoding.TextMarshaler.
func (u UUID) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *UUID) UnmarshalText(b []byte) error {
	v, err := ParseUUID(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// reverse returns a reversed copy of u.
func reverse(u []byte) []byte {
	// Special-case 16 bit UUIDS for speed.
	l := len(u)
	if l == 2 {
		return []byte{u[1], u[0]}
	}
	b := make([]byte, l)
	for i := 0; i < l/2+1; i++ {
		b[i], b[l-i-1] = u[l-i-1], u[i]
	}
	return b
}
