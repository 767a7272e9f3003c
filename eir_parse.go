package bluetooth

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// EIRData is a decoded Extended Inquiry Response payload.
type EIRData struct {
	LocalName        string
	ShortName        bool
	Services         []UUID
	MoreServices     bool // an incomplete UUID list was present
	TxPower          *int8
	Flags            []byte
	ManufacturerData []byte
}

// ParseEIR decodes an EIR payload. Parsing stops at the first zero-length
// field, which marks the start of the zero padding.
func ParseEIR(b []byte) (*EIRData, error) {
	if len(b) > MaxEIRLength {
		return nil, ErrEIRTooLong
	}
	e := &EIRData{}
	for len(b) > 0 {
		l := int(b[0])
		if l == 0 {
			break
		}
		if len(b) < 1+l {
			return nil, errors.Errorf("invalid EIR field: length %d, %d bytes left", l, len(b)-1)
		}
		t, d := b[1], b[2:1+l]
		switch t {
		case typeFlags:
			e.Flags = append([]byte(nil), d...)
		case typeSomeUUID16, typeAllUUID16:
			e.Services = uuidList(e.Services, d, 2)
		case typeSomeUUID32, typeAllUUID32:
			e.Services = uuidList(e.Services, d, 4)
		case typeSomeUUID128, typeAllUUID128:
			e.Services = uuidList(e.Services, d, 16)
		case typeShortName:
			e.LocalName, e.ShortName = string(d), true
		case typeCompleteName:
			e.LocalName, e.ShortName = string(d), false
		case typeTxPower:
			if len(d) != 1 {
				return nil, errors.Errorf("invalid tx power field length %d", len(d))
			}
			p := int8(d[0])
			e.TxPower = &p
		case typeManufacturerData:
			e.ManufacturerData = append([]byte(nil), d...)
		}
		switch t {
		case typeSomeUUID16, typeSomeUUID32, typeSomeUUID128:
			e.MoreServices = true
		}
		b = b[1+l:]
	}
	return e, nil
}

func uuidList(u []UUID, d []byte, w int) []UUID {
	for len(d) >= w {
		switch w {
		case 2:
			u = append(u, UUID16(binary.LittleEndian.Uint16(d)))
		case 4:
			u = append(u, UUID32(binary.LittleEndian.Uint32(d)))
		case 16:
			var b [16]byte
			copy(b[:], d[:16])
			u = append(u, From128BitLE(b))
		}
		d = d[w:]
	}
	return u
}
