package bluetooth

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// MaxEIRLength is the length of the Extended Inquiry Response data
// carried by the Write Extended Inquiry Response command.
const MaxEIRLength = 240

// DefaultMinNameLen is the length a local name may be shortened to when it
// would otherwise crowd out the 16-bit service UUID list.
const DefaultMinNameLen = 50

// ErrEIRTooLong is the error returned when a payload exceeds MaxEIRLength.
var ErrEIRTooLong = errors.Errorf("max EIR length is %d", MaxEIRLength)

// EIR data types
const (
	typeFlags            = 0x01 // flags
	typeSomeUUID16       = 0x02 // more 16-bit UUIDs available
	typeAllUUID16        = 0x03 // complete list of 16-bit UUIDs available
	typeSomeUUID32       = 0x04 // more 32-bit UUIDs available
	typeAllUUID32        = 0x05 // complete list of 32-bit UUIDs available
	typeSomeUUID128      = 0x06 // more 128-bit UUIDs available
	typeAllUUID128       = 0x07 // complete list of 128-bit UUIDs available
	typeShortName        = 0x08 // shortened local name
	typeCompleteName     = 0x09 // complete local name
	typeTxPower          = 0x0A // tx power level
	typeManufacturerData = 0xFF // manufacturer specific data
)

// An EIRBuilder assembles an Extended Inquiry Response payload.
// The zero value builds an empty payload.
type EIRBuilder struct {
	// LocalName is advertised as the complete local name when it fits.
	LocalName string

	// MinNameLen is the length LocalName is shortened to when it would not
	// leave room for the 16-bit UUID list. Zero means DefaultMinNameLen.
	MinNameLen int

	// Services are the 16-bit service classes registered locally.
	// ServicesComplete reports whether the list holds all of them.
	Services         []uint16
	ServicesComplete bool

	// Custom are the locally defined service UUIDs, in placement order.
	// Each one goes into the 16, 32 or 128-bit list according to its
	// shortest form.
	Custom []UUID

	// TxPower, when non-nil, is advertised as the inquiry response
	// transmit power level in dBm.
	TxPower *int8

	// Flags, when non-empty, is advertised as the flags field.
	Flags []byte

	// ManufacturerData, when non-empty, is appended if it fits.
	// The first two bytes are the company identifier.
	ManufacturerData []byte
}

// Build returns a new Buffer holding the payload. The caller owns the
// returned Buffer.
func (e *EIRBuilder) Build() *Buffer {
	p := &eirPacket{buf: NewBuffer()}

	var u16 []uint16
	var u32 []uint32
	var u128 []UUID
	for _, u := range e.Custom {
		switch u.ShortestLen() {
		case 2:
			u16 = append(u16, u.As16Bit())
		case 4:
			u32 = append(u32, u.As32Bit())
		default:
			u128 = append(u128, u)
		}
	}
	svcs := make([]uint16, 0, len(e.Services)+len(u16))
	svcs = appendUnique16(svcs, e.Services...)
	svcs = appendUnique16(svcs, u16...)

	if e.LocalName != "" {
		p.appendName(e.LocalName, e.minNameLen(), len(svcs))
	}
	p.appendUUID16s(svcs, e.ServicesComplete)
	p.appendUUID32s(u32)
	p.appendUUID128s(u128)

	if e.TxPower != nil {
		p.appendFieldFit(typeTxPower, []byte{byte(*e.TxPower)})
	}
	if len(e.Flags) > 0 {
		p.appendFieldFit(typeFlags, e.Flags)
	}
	if len(e.ManufacturerData) > 0 {
		p.appendFieldFit(typeManufacturerData, e.ManufacturerData)
	}
	return p.buf
}

func (e *EIRBuilder) minNameLen() int {
	if e.MinNameLen <= 0 {
		return DefaultMinNameLen
	}
	return e.MinNameLen
}

func appendUnique16(dst []uint16, src ...uint16) []uint16 {
next:
	for _, s := range src {
		for _, d := range dst {
			if d == s {
				continue next
			}
		}
		dst = append(dst, s)
	}
	return dst
}

type eirPacket struct {
	buf *Buffer
}

// appendField appends an EIR field.
func (p *eirPacket) appendField(typ byte, data []byte) {
	// A field consists of len, typ, data.
	// Len is 1 byte for typ plus len(data).
	p.buf.append(byte(len(data)+1), typ)
	p.buf.append(data...)
}

// appendFieldFit appends an EIR field if it fits in the
// packet, and reports whether it fit.
func (p *eirPacket) appendFieldFit(typ byte, data []byte) bool {
	if p.buf.Free() < len(data)+2 {
		return false
	}
	p.appendField(typ, data)
	return true
}

// appendName appends the local name. The name is shortened to min bytes if
// keeping it whole would not leave room for n 16-bit UUIDs, and further if
// it does not fit at all.
func (p *eirPacket) appendName(name string, min, n int) {
	typ := byte(typeCompleteName)
	if len(name) > min && len(name) > p.buf.Free()-4-n*2 {
		name = truncateUTF8(name, min)
		typ = typeShortName
	}
	if max := p.buf.Free() - 2; len(name) > max {
		if max <= 0 {
			return
		}
		name = truncateUTF8(name, max)
		typ = typeShortName
	}
	p.appendField(typ, []byte(name))
}

// truncateUTF8 shortens s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// fit returns how many w-byte values of the n available fit in one field.
func (p *eirPacket) fit(n, w int) int {
	max := (p.buf.Free() - 2) / w
	if max < 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}

func (p *eirPacket) appendUUID16s(uu []uint16, complete bool) {
	n := p.fit(len(uu), 2)
	if n == 0 {
		return
	}
	typ := byte(typeAllUUID16)
	if n < len(uu) || !complete {
		typ = typeSomeUUID16
	}
	d := make([]byte, 2*n)
	for i, u := range uu[:n] {
		binary.LittleEndian.PutUint16(d[2*i:], u)
	}
	p.appendField(typ, d)
}

func (p *eirPacket) appendUUID32s(uu []uint32) {
	n := p.fit(len(uu), 4)
	if n == 0 {
		return
	}
	typ := byte(typeAllUUID32)
	if n < len(uu) {
		typ = typeSomeUUID32
	}
	d := make([]byte, 4*n)
	for i, u := range uu[:n] {
		binary.LittleEndian.PutUint32(d[4*i:], u)
	}
	p.appendField(typ, d)
}

func (p *eirPacket) appendUUID128s(uu []UUID) {
	n := p.fit(len(uu), 16)
	if n == 0 {
		return
	}
	typ := byte(typeAllUUID128)
	if n < len(uu) {
		typ = typeSomeUUID128
	}
	d := make([]byte, 0, 16*n)
	for _, u := range uu[:n] {
		d = append(d, u.LittleEndian()...)
	}
	p.appendField(typ, d)
}
